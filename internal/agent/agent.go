// Package agent turns one line of user text into todo operations. Each
// request makes at most two completion calls: the first may ask for tool
// invocations, the second summarizes their outcomes.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chris/todoagent/internal/llm"
	"github.com/chris/todoagent/internal/logging"
	"github.com/chris/todoagent/internal/todo"
)

// ErrBusy is returned by Submit while another request is still running.
var ErrBusy = errors.New("agent is busy with another request")

const (
	replyEmptyInput = "Please enter a command."
	replyNoText     = "I processed your request."
	replyNoSummary  = "Task completed successfully."
	replyFault      = "Sorry, I encountered an error. Please try again."
	replyBusy       = "I'm still working on your previous request."
	replyFailed     = "Sorry, the AI service could not handle that request."

	executedAck = "I executed the tools and got these results."
)

type Agent struct {
	store  *todo.Store
	client llm.Client
	now    func() time.Time
	log    zerolog.Logger

	inflight sync.Mutex // held for the whole of one request

	mu        sync.Mutex
	loading   bool
	lastReply string
}

type Option func(*Agent)

// WithClock overrides the time source used for the date in the system prompt.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(a *Agent) { a.log = l }
}

func New(store *todo.Store, client llm.Client, opts ...Option) *Agent {
	a := &Agent{
		store:  store,
		client: client,
		now:    time.Now,
		log:    logging.Component("agent"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Submit runs one request and returns the reply to show the user. The only
// error is ErrBusy, returned with a reply when a previous request has not
// finished; that submission is dropped and no state changes. Every other
// outcome, including backend and internal failures, is a reply.
func (a *Agent) Submit(ctx context.Context, input string) (string, error) {
	if !a.inflight.TryLock() {
		return replyBusy, ErrBusy
	}
	defer a.inflight.Unlock()

	input = strings.TrimSpace(input)
	if input == "" {
		a.finish(replyEmptyInput)
		return replyEmptyInput, nil
	}

	a.mu.Lock()
	a.loading = true
	a.lastReply = ""
	a.mu.Unlock()

	ctx = logging.WithRequestID(ctx, uuid.NewString())
	reply := a.run(ctx, input)
	a.finish(reply)
	return reply, nil
}

// Loading reports whether a request is in flight.
func (a *Agent) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loading
}

// LastReply returns the reply of the most recent finished request.
func (a *Agent) LastReply() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastReply
}

func (a *Agent) finish(reply string) {
	a.mu.Lock()
	a.loading = false
	a.lastReply = reply
	a.mu.Unlock()
}

func (a *Agent) run(ctx context.Context, input string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error().Ctx(ctx).Interface("panic", r).Msg("request aborted")
			reply = replyFault
		}
	}()

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: llm.SystemPrompt(a.now())},
		{Role: llm.RoleUser, Content: input},
	}
	a.log.Debug().Ctx(ctx).
		Int("est_tokens", llm.EstimateMessagesTokens(messages)+llm.EstimateToolsTokens(llm.TodoTools)).
		Msg("dispatching request")

	resp, err := a.client.Chat(ctx, messages, llm.TodoTools)
	if err != nil {
		a.log.Error().Ctx(ctx).Err(err).Msg("completion failed")
		return replyFault
	}
	if resp == nil {
		a.log.Error().Ctx(ctx).Msg("completion returned no response")
		return replyFault
	}
	if resp.Failed() {
		a.log.Warn().Ctx(ctx).Str("error", resp.Error).Msg("completion rejected")
		return firstNonEmpty(resp.Text, resp.Error, replyFailed)
	}
	if len(resp.ToolCalls) == 0 {
		return firstNonEmpty(resp.Text, replyNoText)
	}

	a.log.Debug().Ctx(ctx).
		Int("tool_calls", len(resp.ToolCalls)).
		Int("est_tokens", llm.EstimateToolCallTokens(resp.ToolCalls)).
		Msg("executing tools")

	// Every requested call runs, even after a failed one.
	results := make([]toolResult, 0, len(resp.ToolCalls))
	for _, tc := range resp.ToolCalls {
		out := a.execute(tc.Name, tc.Arguments)
		a.logOutcome(ctx, tc.Name, out)
		results = append(results, toolResult{Tool: tc.Name, Result: out})
	}

	summary, err := summaryPrompt(results)
	if err != nil {
		a.log.Error().Ctx(ctx).Err(err).Msg("encoding tool results")
		return replyFault
	}
	messages = append(messages,
		llm.Message{Role: llm.RoleAssistant, Content: executedAck},
		llm.Message{Role: llm.RoleUser, Content: summary},
	)

	final, err := a.client.Chat(ctx, messages, nil)
	if err != nil {
		a.log.Error().Ctx(ctx).Err(err).Msg("summary completion failed")
		return replyFault
	}
	if final == nil {
		return replyNoSummary
	}
	if final.Failed() {
		a.log.Warn().Ctx(ctx).Str("error", final.Error).Msg("summary completion rejected")
	}
	return firstNonEmpty(final.Text, replyNoSummary)
}

func (a *Agent) logOutcome(ctx context.Context, tool string, out Outcome) {
	b, _ := json.Marshal(out) // Outcome holds only plain values
	a.log.Debug().Ctx(ctx).
		Str("tool", tool).
		Bool("success", out.Success).
		Str("outcome", truncate(string(b), 200)).
		Msg("tool executed")
}

type toolResult struct {
	Tool   string  `json:"tool"`
	Result Outcome `json:"result"`
}

func summaryPrompt(results []toolResult) (string, error) {
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Here are the actual results from the tools I called:\n\n%s\n\n"+
		"Please summarize these ACTUAL results for the user. "+
		"Do not make up or hallucinate any data - only report what you see in the results above.", b), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
