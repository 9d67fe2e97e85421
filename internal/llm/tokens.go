package llm

import "encoding/json"

// charsPerToken is the average number of characters per token.
// Real tokenizers vary, but 4 chars/token is close enough for logging
// request sizes.
const charsPerToken = 4

// EstimateTokens returns a rough token count for a string.
func EstimateTokens(s string) int {
	if len(s) == 0 {
		return 0
	}
	return (len(s) + charsPerToken - 1) / charsPerToken // round up
}

// EstimateMessageTokens returns the estimated token count for a single message,
// including per-message overhead (role, framing).
func EstimateMessageTokens(m Message) int {
	return 4 + EstimateTokens(m.Content)
}

// EstimateMessagesTokens returns the total estimated tokens for a slice of messages.
func EstimateMessagesTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += EstimateMessageTokens(m)
	}
	return total
}

// EstimateToolsTokens returns the estimated tokens for tool definitions.
// Tool schemas are serialized as JSON in API requests and count against the context.
func EstimateToolsTokens(tools []Tool) int {
	total := 0
	for _, t := range tools {
		total += EstimateTokens(t.Name)
		total += EstimateTokens(t.Description)
		if schema, err := json.Marshal(t.Parameters); err == nil {
			total += EstimateTokens(string(schema))
		}
		total += 10 // per-tool framing overhead
	}
	return total
}

// EstimateToolCallTokens returns the estimated tokens of the tool calls in a
// response.
func EstimateToolCallTokens(calls []ToolCall) int {
	total := 0
	for _, tc := range calls {
		total += EstimateTokens(tc.Name) + EstimateTokens(string(tc.Arguments)) + 4
	}
	return total
}
