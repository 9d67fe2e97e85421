package agent

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris/todoagent/internal/llm"
	"github.com/chris/todoagent/internal/todo"
)

type step struct {
	resp  *llm.Response
	err   error
	panic any
}

type call struct {
	messages []llm.Message
	tools    []llm.Tool
}

// scriptedClient answers Chat calls from a fixed script, in order.
type scriptedClient struct {
	t     *testing.T
	mu    sync.Mutex
	steps []step
	calls []call

	started chan struct{} // closed on the first call when set
	release chan struct{} // first call waits on it when set
}

func (c *scriptedClient) Chat(ctx context.Context, messages []llm.Message, tools []llm.Tool) (*llm.Response, error) {
	c.mu.Lock()
	c.calls = append(c.calls, call{messages: append([]llm.Message(nil), messages...), tools: tools})
	first := len(c.calls) == 1
	if len(c.steps) == 0 {
		c.mu.Unlock()
		c.t.Errorf("unexpected completion call #%d", len(c.calls))
		return nil, errors.New("script exhausted")
	}
	s := c.steps[0]
	c.steps = c.steps[1:]
	c.mu.Unlock()

	if first && c.started != nil {
		close(c.started)
	}
	if first && c.release != nil {
		<-c.release
	}
	if s.panic != nil {
		panic(s.panic)
	}
	return s.resp, s.err
}

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

var today = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func newTestAgent(t *testing.T, steps ...step) (*Agent, *todo.Store, *scriptedClient) {
	t.Helper()
	store := todo.New(todo.WithClock(func() time.Time { return today }), todo.WithLogger(zerolog.Nop()))
	require.NoError(t, store.Load())
	client := &scriptedClient{t: t, steps: steps}
	a := New(store, client, WithClock(func() time.Time { return today }), WithLogger(zerolog.Nop()))
	return a, store, client
}

func toolCalls(calls ...llm.ToolCall) step {
	return step{resp: &llm.Response{ToolCalls: calls}}
}

func tc(name, args string) llm.ToolCall {
	return llm.ToolCall{ID: "call_" + name, Name: name, Arguments: json.RawMessage(args)}
}

func text(s string) step {
	return step{resp: &llm.Response{Text: s}}
}

func TestSubmit_CreateTodo(t *testing.T) {
	a, store, client := newTestAgent(t,
		toolCalls(tc(llm.ToolCreateTodo, `{"title":"Call dentist"}`)),
		text("Added \"Call dentist\" to your list."),
	)

	reply, err := a.Submit(context.Background(), "remind me to call the dentist")
	require.NoError(t, err)
	assert.Equal(t, "Added \"Call dentist\" to your list.", reply)
	assert.Equal(t, reply, a.LastReply())
	assert.False(t, a.Loading())

	items := store.List(todo.Filter{})
	require.Len(t, items, 1)
	assert.Equal(t, "Call dentist", items[0].Title)

	require.Equal(t, 2, client.callCount())

	first := client.calls[0]
	require.Len(t, first.messages, 2)
	assert.Equal(t, llm.RoleSystem, first.messages[0].Role)
	assert.Contains(t, first.messages[0].Content, "Today's date is 2026-10-16.")
	assert.Equal(t, llm.RoleUser, first.messages[1].Role)
	assert.Equal(t, "remind me to call the dentist", first.messages[1].Content)
	assert.Len(t, first.tools, len(llm.TodoTools))

	second := client.calls[1]
	require.Len(t, second.messages, 4)
	assert.Nil(t, second.tools, "summary call is sent without tools")
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: executedAck}, second.messages[2])
	summary := second.messages[3].Content
	assert.Equal(t, llm.RoleUser, second.messages[3].Role)
	assert.Contains(t, summary, `"tool": "createTodo"`)
	assert.Contains(t, summary, `"success": true`)
	assert.Contains(t, summary, `Created todo: \"Call dentist\"`)
	assert.Contains(t, summary, "Do not make up or hallucinate any data")
}

func TestSubmit_CapabilityError(t *testing.T) {
	tests := []struct {
		name string
		resp *llm.Response
		want string
	}{
		{"text shown", &llm.Response{Error: "GROQ API key not configured.", Text: "Please add GROQ_API_KEY to your .env file."}, "Please add GROQ_API_KEY to your .env file."},
		{"error when no text", &llm.Response{Error: "Rate limit exceeded"}, "Rate limit exceeded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, store, client := newTestAgent(t, step{resp: tt.resp})

			reply, err := a.Submit(context.Background(), "add buy milk")
			require.NoError(t, err)
			assert.Equal(t, tt.want, reply)
			assert.Equal(t, 1, client.callCount(), "no second completion call")
			assert.Equal(t, 0, store.Len(), "no store mutation")
			assert.False(t, a.Loading())
		})
	}
}

func TestSubmit_DirectText(t *testing.T) {
	a, _, client := newTestAgent(t, text("Hi! What should I add?"))
	reply, err := a.Submit(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi! What should I add?", reply)
	assert.Equal(t, 1, client.callCount())
}

func TestSubmit_Fallbacks(t *testing.T) {
	t.Run("empty direct reply", func(t *testing.T) {
		a, _, _ := newTestAgent(t, text(""))
		reply, err := a.Submit(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, replyNoText, reply)
	})

	t.Run("empty summary", func(t *testing.T) {
		a, _, _ := newTestAgent(t, toolCalls(tc(llm.ToolListTodos, `{}`)), text(""))
		reply, err := a.Submit(context.Background(), "what's on my list")
		require.NoError(t, err)
		assert.Equal(t, replyNoSummary, reply)
	})

	t.Run("rejected summary shows its text", func(t *testing.T) {
		a, _, _ := newTestAgent(t,
			toolCalls(tc(llm.ToolListTodos, `{}`)),
			step{resp: &llm.Response{Error: "Rate limit exceeded for Groq.", Text: "Rate limit exceeded for Groq."}},
		)
		reply, err := a.Submit(context.Background(), "what's on my list")
		require.NoError(t, err)
		assert.Equal(t, "Rate limit exceeded for Groq.", reply)
	})
}

func TestSubmit_EmptyInput(t *testing.T) {
	a, _, client := newTestAgent(t)

	reply, err := a.Submit(context.Background(), "   \n")
	require.NoError(t, err)
	assert.Equal(t, replyEmptyInput, reply)
	assert.Equal(t, replyEmptyInput, a.LastReply())
	assert.Equal(t, 0, client.callCount())
	assert.False(t, a.Loading())
}

func TestSubmit_Faults(t *testing.T) {
	tests := []struct {
		name  string
		steps []step
	}{
		{"transport error", []step{{err: errors.New("connection refused")}}},
		{"nil response", []step{{}}},
		{"panic", []step{{panic: "malformed payload"}}},
		{"summary transport error", []step{toolCalls(tc(llm.ToolListTodos, `{}`)), {err: errors.New("timeout")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _, _ := newTestAgent(t, tt.steps...)

			reply, err := a.Submit(context.Background(), "add milk")
			require.NoError(t, err)
			assert.Equal(t, replyFault, reply)
			assert.Equal(t, replyFault, a.LastReply())
			assert.False(t, a.Loading())
		})
	}
}

func TestSubmit_AllToolCallsRun(t *testing.T) {
	a, store, client := newTestAgent(t,
		toolCalls(
			tc(llm.ToolCompleteTodo, `{"title":"nonexistent errand"}`),
			tc("archiveTodo", `{}`),
			tc(llm.ToolCreateTodo, `{"title":"Water plants"}`),
		),
		text("Done."),
	)

	_, err := a.Submit(context.Background(), "do things")
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	summary := client.calls[1].messages[3].Content
	assert.Contains(t, summary, `Could not find todo with title: \"nonexistent errand\"`)
	assert.Contains(t, summary, "Unknown tool: archiveTodo")
	assert.Contains(t, summary, `Created todo: \"Water plants\"`)
}

func TestSubmit_RejectsOverlappingRequests(t *testing.T) {
	a, store, client := newTestAgent(t,
		toolCalls(tc(llm.ToolCreateTodo, `{"title":"first"}`)),
		text("Added first."),
	)
	client.started = make(chan struct{})
	client.release = make(chan struct{})

	done := make(chan string)
	go func() {
		reply, _ := a.Submit(context.Background(), "add first")
		done <- reply
	}()

	<-client.started
	assert.True(t, a.Loading())

	reply, err := a.Submit(context.Background(), "add second")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, replyBusy, reply)

	close(client.release)
	assert.Equal(t, "Added first.", <-done)
	assert.False(t, a.Loading())
	assert.Equal(t, "Added first.", a.LastReply())
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 2, client.callCount())
}

func TestSummaryPrompt(t *testing.T) {
	n := 0
	got, err := summaryPrompt([]toolResult{{Tool: "listTodos", Result: Outcome{Success: true, Count: &n}}})
	require.NoError(t, err)
	assert.Contains(t, got, "Here are the actual results from the tools I called:\n\n[\n  {\n    \"tool\": \"listTodos\",")
	assert.Contains(t, got, `"count": 0`)
}
