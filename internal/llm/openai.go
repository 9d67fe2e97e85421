package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIOptions configures a client for any OpenAI-compatible chat
// completions endpoint (OpenAI, Groq, Gemini, Ollama).
type OpenAIOptions struct {
	Name        string // provider name used in error messages
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

type OpenAIClient struct {
	client      openai.Client
	name        string
	model       string
	temperature float64
	maxTokens   int
}

func NewOpenAIClient(o OpenAIOptions) *OpenAIClient {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if o.APIKey != "" {
		opts = append(opts, option.WithAPIKey(o.APIKey))
	}
	if o.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(o.BaseURL))
	}
	if o.Name == "" {
		o.Name = "OpenAI"
	}
	if o.Model == "" {
		o.Model = DefaultModels[ProviderOpenAI]
	}
	return &OpenAIClient{
		client:      openai.NewClient(opts...),
		name:        o.Name,
		model:       o.Model,
		temperature: o.Temperature,
		maxTokens:   o.MaxTokens,
	}
}

func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, tools []Tool) (*Response, error) {
	oaiMsgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			oaiMsgs = append(oaiMsgs, openai.SystemMessage(m.Content))
		case RoleAssistant:
			oaiMsgs = append(oaiMsgs, openai.AssistantMessage(m.Content))
		default:
			oaiMsgs = append(oaiMsgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: oaiMsgs,
	}
	if c.temperature > 0 {
		params.Temperature = openai.Float(c.temperature)
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}
	if len(tools) > 0 {
		oaiTools := make([]openai.ChatCompletionToolUnionParam, len(tools))
		for i, t := range tools {
			oaiTools[i] = openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(t.Parameters),
			})
		}
		params.Tools = oaiTools
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return failure(c.name, apiErr.StatusCode, apiErr.Message, err), nil
		}
		return nil, fmt.Errorf("%s chat: %w", strings.ToLower(c.name), err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s chat: response has no choices", strings.ToLower(c.name))
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) == 0 {
		return &Response{Text: msg.Content}, nil
	}

	result := &Response{}
	for _, tc := range msg.ToolCalls {
		ftc := tc.AsFunction()
		args, err := rawArguments(ftc.Function.Arguments)
		if err != nil {
			return nil, fmt.Errorf("%s tool call %s: %w", strings.ToLower(c.name), ftc.Function.Name, err)
		}
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:        ftc.ID,
			Name:      ftc.Function.Name,
			Arguments: args,
		})
	}
	return result, nil
}

// rawArguments validates the JSON argument string sent by the model. An
// empty string is treated as an empty object.
func rawArguments(s string) (json.RawMessage, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid([]byte(s)) {
		return nil, fmt.Errorf("malformed arguments: %q", truncate(s, 80))
	}
	return json.RawMessage(s), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
