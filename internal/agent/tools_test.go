package agent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris/todoagent/internal/llm"
	"github.com/chris/todoagent/internal/todo"
)

func exec(a *Agent, name, args string) Outcome {
	return a.execute(name, json.RawMessage(args))
}

func TestExecute_Create(t *testing.T) {
	a, store, _ := newTestAgent(t)

	out := exec(a, llm.ToolCreateTodo, `{"title":"  Buy milk ","dueDate":"2026-10-17","priority":"high"}`)
	require.True(t, out.Success)
	assert.Equal(t, `Created todo: "Buy milk"`, out.Message)
	require.NotNil(t, out.Todo)
	assert.Equal(t, "Buy milk", out.Todo.Title)
	assert.Equal(t, "2026-10-17", out.Todo.DueDate)
	assert.Equal(t, todo.PriorityHigh, out.Todo.Priority)
	assert.Equal(t, 1, store.Len())
}

func TestExecute_InvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		tool string
		args string
		want string
	}{
		{"missing title", llm.ToolCreateTodo, `{}`, "title is required"},
		{"blank title", llm.ToolCreateTodo, `{"title":"  "}`, "title is required"},
		{"unknown field", llm.ToolCreateTodo, `{"title":"x","notes":"y"}`, "unknown field"},
		{"bad priority", llm.ToolCreateTodo, `{"title":"x","priority":"urgent"}`, "priority must be one of"},
		{"bad list priority", llm.ToolListTodos, `{"priority":"asap"}`, "priority must be one of"},
		{"completed not bool", llm.ToolListTodos, `{"completed":"yes"}`, "Invalid arguments for listTodos"},
		{"fractional id", llm.ToolDeleteTodo, `{"id":1.5}`, "id must be an integer"},
		{"non-numeric id", llm.ToolCompleteTodo, `{"id":"abc"}`, "id must be a number"},
		{"not an object", llm.ToolUpdateTodo, `[1,2]`, "Invalid arguments for updateTodo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, store, _ := newTestAgent(t)
			out := exec(a, tt.tool, tt.args)
			assert.False(t, out.Success)
			assert.Contains(t, out.Message, tt.want)
			assert.Equal(t, 0, store.Len())
		})
	}
}

func TestExecute_List(t *testing.T) {
	a, store, _ := newTestAgent(t)
	milk := store.Create("Buy milk", todo.CreateOptions{Priority: todo.PriorityHigh, DueDate: "2026-10-16"})
	rent := store.Create("Pay rent", todo.CreateOptions{Priority: todo.PriorityLow})
	store.Complete(rent.ID)

	tests := []struct {
		name string
		args string
		want []int64
	}{
		{"all", `{}`, []int64{milk.ID, rent.ID}},
		{"null args", `null`, []int64{milk.ID, rent.ID}},
		{"pending", `{"completed":false}`, []int64{milk.ID}},
		{"by date", `{"date":"2026-10-16"}`, []int64{milk.ID}},
		{"by priority", `{"priority":"low"}`, []int64{rent.ID}},
		{"nothing", `{"priority":"medium"}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := exec(a, llm.ToolListTodos, tt.args)
			require.True(t, out.Success)
			require.NotNil(t, out.Count)
			assert.Equal(t, len(tt.want), *out.Count)
			var ids []int64
			for _, it := range out.Todos {
				ids = append(ids, it.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestExecute_Complete(t *testing.T) {
	a, store, _ := newTestAgent(t)
	it := store.Create("Groceries", todo.CreateOptions{})

	tests := []struct {
		name    string
		args    string
		success bool
		message string
	}{
		{"by numeric id", `{"id":` + jsonInt(it.ID) + `}`, true, "Marked todo as completed"},
		{"by string id", `{"id":"` + jsonInt(it.ID) + `"}`, true, "Marked todo as completed"},
		{"by fuzzy title", `{"title":"grocry"}`, true, "Marked todo as completed"},
		{"unknown id", `{"id":42}`, false, "Could not find todo with ID 42"},
		{"unknown title", `{"title":"dentist"}`, false, `Could not find todo with title: "dentist"`},
		{"no target", `{}`, false, msgNeedTarget},
		{"zero id falls back to title", `{"id":0,"title":"groceries"}`, true, "Marked todo as completed"},
		{"empty id falls back to title", `{"id":"","title":"groceries"}`, true, "Marked todo as completed"},
		{"empty id without title", `{"id":""}`, false, msgNeedTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := exec(a, llm.ToolCompleteTodo, tt.args)
			assert.Equal(t, tt.success, out.Success)
			assert.Equal(t, tt.message, out.Message)
		})
	}
}

func TestExecute_Update(t *testing.T) {
	t.Run("applies given fields", func(t *testing.T) {
		a, store, _ := newTestAgent(t)
		it := store.Create("Call mom", todo.CreateOptions{DueDate: "2026-10-20"})

		out := exec(a, llm.ToolUpdateTodo, `{"title":"call mom","newTitle":"Call mom and dad","priority":"medium"}`)
		require.True(t, out.Success, out.Message)
		assert.Equal(t, "Updated todo successfully", out.Message)
		require.NotNil(t, out.UpdatedTodo)
		assert.Equal(t, it.ID, out.UpdatedTodo.ID)
		assert.Equal(t, "Call mom and dad", out.UpdatedTodo.Title)
		assert.Equal(t, todo.PriorityMedium, out.UpdatedTodo.Priority)
		assert.Equal(t, "2026-10-20", out.UpdatedTodo.DueDate)
	})

	t.Run("miss offers suggestions", func(t *testing.T) {
		a, store, _ := newTestAgent(t)
		g := store.Create("Grocery shopping", todo.CreateOptions{})
		store.Create("Pay rent", todo.CreateOptions{})

		out := exec(a, llm.ToolUpdateTodo, `{"title":"grz","priority":"high"}`)
		assert.False(t, out.Success)
		assert.Equal(t, `Could not find todo with title: "grz". Did you mean one of these?`, out.Message)
		assert.Equal(t, []Suggestion{{ID: g.ID, Title: "Grocery shopping"}}, out.Suggestions)
		assert.Empty(t, store.List(todo.Filter{Priority: todo.PriorityHigh}))
	})

	t.Run("miss without suggestions", func(t *testing.T) {
		a, store, _ := newTestAgent(t)
		store.Create("Pay rent", todo.CreateOptions{})

		out := exec(a, llm.ToolUpdateTodo, `{"title":"xyz"}`)
		assert.False(t, out.Success)
		assert.Equal(t, `Could not find todo with title: "xyz"`, out.Message)
		assert.Empty(t, out.Suggestions)
	})

	t.Run("unknown id", func(t *testing.T) {
		a, _, _ := newTestAgent(t)
		out := exec(a, llm.ToolUpdateTodo, `{"id":7,"newTitle":"x"}`)
		assert.False(t, out.Success)
		assert.Equal(t, "Could not find todo with ID 7", out.Message)
		assert.Nil(t, out.UpdatedTodo)
	})

	t.Run("no target", func(t *testing.T) {
		a, _, _ := newTestAgent(t)
		out := exec(a, llm.ToolUpdateTodo, `{"newTitle":"x"}`)
		assert.Equal(t, msgNeedTarget, out.Message)
	})
}

func TestExecute_Delete(t *testing.T) {
	a, store, _ := newTestAgent(t)
	store.Create("Walk dog", todo.CreateOptions{})
	keep := store.Create("Feed cat", todo.CreateOptions{})

	out := exec(a, llm.ToolDeleteTodo, `{"title":"walk"}`)
	require.True(t, out.Success)
	assert.Equal(t, "Deleted todo", out.Message)

	items := store.List(todo.Filter{})
	require.Len(t, items, 1)
	assert.Equal(t, keep.ID, items[0].ID)

	out = exec(a, llm.ToolDeleteTodo, `{"title":"walk dog"}`)
	assert.False(t, out.Success)
	assert.Empty(t, out.Suggestions, "only update offers suggestions")
}

func TestExecute_UnknownTool(t *testing.T) {
	a, _, _ := newTestAgent(t)
	out := exec(a, "renameTodo", `{"id":1}`)
	assert.Equal(t, Outcome{Message: "Unknown tool: renameTodo"}, out)
}

func TestTodoID_Unmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    todoID
		wantErr bool
	}{
		{`1760605200000`, 1760605200000, false},
		{`"1760605200000"`, 1760605200000, false},
		{`1.7606052e12`, 1760605200000, false},
		{`""`, 0, false},
		{`"  "`, 0, false},
		{`null`, 0, false},
		{`"x"`, 0, true},
		{`true`, 0, true},
		{`2.5`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var id todoID
			err := json.Unmarshal([]byte(tt.in), &id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
