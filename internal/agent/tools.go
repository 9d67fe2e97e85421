package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/chris/todoagent/internal/llm"
	"github.com/chris/todoagent/internal/todo"
)

// Outcome is the structured result of one tool invocation. It is sent back
// to the model verbatim, so field names are part of the prompt.
type Outcome struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message,omitempty"`
	Todo        *todo.Item   `json:"todo,omitempty"`
	Count       *int         `json:"count,omitempty"`
	Todos       []todo.Item  `json:"todos,omitempty"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
	UpdatedTodo *todo.Item   `json:"updatedTodo,omitempty"`
}

type Suggestion struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

const msgNeedTarget = "Please provide either id or title"

// todoID accepts a JSON number or a numeric string; models send both. An
// empty string or null reads as 0, which resolve treats as absent.
type todoID int64

func (id *todoID) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if bytes.Equal(raw, []byte("null")) {
		*id = 0
		return nil
	}
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("id must be a number")
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*id = 0
			return nil
		}
		raw = []byte(s)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return fmt.Errorf("id must be a number")
	}
	if v, err := n.Int64(); err == nil {
		*id = todoID(v)
		return nil
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil || f != float64(int64(f)) {
		return fmt.Errorf("id must be an integer, got %s", n)
	}
	*id = todoID(int64(f))
	return nil
}

type createArgs struct {
	Title    string        `json:"title"`
	DueDate  string        `json:"dueDate"`
	Priority todo.Priority `json:"priority"`
}

func (a createArgs) validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("title is required")
	}
	return validPriority(a.Priority)
}

type listArgs struct {
	Completed *bool         `json:"completed"`
	Date      string        `json:"date"`
	Priority  todo.Priority `json:"priority"`
}

func (a listArgs) validate() error { return validPriority(a.Priority) }

// targetArgs names an existing item by id or, failing that, by title.
type targetArgs struct {
	ID    *todoID `json:"id"`
	Title string  `json:"title"`
}

func (a targetArgs) validate() error { return nil }

type updateArgs struct {
	targetArgs
	NewTitle string        `json:"newTitle"`
	DueDate  string        `json:"dueDate"`
	Priority todo.Priority `json:"priority"`
}

func (a updateArgs) validate() error { return validPriority(a.Priority) }

func validPriority(p todo.Priority) error {
	if p == "" || p.Valid() {
		return nil
	}
	return fmt.Errorf("priority must be one of low, medium, high, got %q", p)
}

type validator interface {
	validate() error
}

// decodeArgs strictly decodes a tool's arguments: unknown fields and
// trailing data are rejected.
func decodeArgs(raw json.RawMessage, v validator) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after arguments")
	}
	return v.validate()
}

func invalidArgs(tool string, err error) Outcome {
	return Outcome{Message: fmt.Sprintf("Invalid arguments for %s: %v", tool, err)}
}

// execute dispatches one tool invocation. It never fails: every problem is
// reported as an unsuccessful Outcome.
func (a *Agent) execute(name string, raw json.RawMessage) Outcome {
	switch name {
	case llm.ToolCreateTodo:
		var args createArgs
		if err := decodeArgs(raw, &args); err != nil {
			return invalidArgs(name, err)
		}
		return a.createTodo(args)

	case llm.ToolListTodos:
		var args listArgs
		if err := decodeArgs(raw, &args); err != nil {
			return invalidArgs(name, err)
		}
		return a.listTodos(args)

	case llm.ToolCompleteTodo:
		var args targetArgs
		if err := decodeArgs(raw, &args); err != nil {
			return invalidArgs(name, err)
		}
		return a.completeTodo(args)

	case llm.ToolUpdateTodo:
		var args updateArgs
		if err := decodeArgs(raw, &args); err != nil {
			return invalidArgs(name, err)
		}
		return a.updateTodo(args)

	case llm.ToolDeleteTodo:
		var args targetArgs
		if err := decodeArgs(raw, &args); err != nil {
			return invalidArgs(name, err)
		}
		return a.deleteTodo(args)

	default:
		return Outcome{Message: fmt.Sprintf("Unknown tool: %s", name)}
	}
}

func (a *Agent) createTodo(args createArgs) Outcome {
	it := a.store.Create(args.Title, todo.CreateOptions{
		DueDate:  strings.TrimSpace(args.DueDate),
		Priority: args.Priority,
	})
	return Outcome{
		Success: true,
		Message: fmt.Sprintf("Created todo: \"%s\"", it.Title),
		Todo:    &it,
	}
}

func (a *Agent) listTodos(args listArgs) Outcome {
	items := a.store.List(todo.Filter{
		Completed: args.Completed,
		DueDate:   strings.TrimSpace(args.Date),
		Priority:  args.Priority,
	})
	n := len(items)
	return Outcome{Success: true, Count: &n, Todos: items}
}

// resolve maps targetArgs to an item id. An explicit non-zero id wins
// without a lookup; otherwise the title goes through FindByTitle.
func (a *Agent) resolve(t targetArgs) (int64, Outcome, bool) {
	if t.ID != nil && *t.ID != 0 {
		return int64(*t.ID), Outcome{}, true
	}
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return 0, Outcome{Message: msgNeedTarget}, false
	}
	if it, ok := a.store.FindByTitle(title); ok {
		return it.ID, Outcome{}, true
	}
	return 0, Outcome{Message: fmt.Sprintf("Could not find todo with title: \"%s\"", title)}, false
}

func (a *Agent) completeTodo(args targetArgs) Outcome {
	id, miss, ok := a.resolve(args)
	if !ok {
		return miss
	}
	if !a.store.Complete(id) {
		return Outcome{Message: fmt.Sprintf("Could not find todo with ID %d", id)}
	}
	return Outcome{Success: true, Message: "Marked todo as completed"}
}

func (a *Agent) updateTodo(args updateArgs) Outcome {
	id, miss, ok := a.resolve(args.targetArgs)
	if !ok {
		title := strings.TrimSpace(args.Title)
		if title == "" {
			return miss
		}
		suggestions := a.store.Suggest(title, todo.DefaultSuggestions)
		if len(suggestions) == 0 {
			return miss
		}
		miss.Message += ". Did you mean one of these?"
		for _, s := range suggestions {
			miss.Suggestions = append(miss.Suggestions, Suggestion{ID: s.ID, Title: s.Title})
		}
		return miss
	}

	var patch todo.Patch
	if t := strings.TrimSpace(args.NewTitle); t != "" {
		patch.Title = &t
	}
	if d := strings.TrimSpace(args.DueDate); d != "" {
		patch.DueDate = &d
	}
	if args.Priority != "" {
		p := args.Priority
		patch.Priority = &p
	}

	if !a.store.Update(id, patch) {
		return Outcome{Message: fmt.Sprintf("Could not find todo with ID %d", id)}
	}
	out := Outcome{Success: true, Message: "Updated todo successfully"}
	if it, err := a.store.Get(id); err == nil {
		out.UpdatedTodo = &it
	}
	return out
}

func (a *Agent) deleteTodo(args targetArgs) Outcome {
	id, miss, ok := a.resolve(args)
	if !ok {
		return miss
	}
	if !a.store.Delete(id) {
		return Outcome{Message: fmt.Sprintf("Could not find todo with ID %d", id)}
	}
	return Outcome{Success: true, Message: "Deleted todo"}
}
