package llm

import "fmt"

// failure builds the Response returned when a backend rejects a call.
func failure(provider string, status int, apiMessage string, err error) *Response {
	msg := describeFailure(provider, status, apiMessage, err)
	return &Response{Error: msg, Text: msg}
}

func describeFailure(provider string, status int, apiMessage string, err error) string {
	switch {
	case status == 401:
		return fmt.Sprintf("Invalid %s API key.\n\nCheck that the key in your .env file is correct and restart the agent.", provider)
	case status == 404:
		return fmt.Sprintf("%s endpoint not found.\n\nCheck the configured model and base URL.", provider)
	case status == 429:
		return fmt.Sprintf("Rate limit exceeded for %s.\n\nWait a moment and retry, or switch LLM_PROVIDER to a different backend.", provider)
	case apiMessage != "":
		return fmt.Sprintf("%s Error: %s", provider, apiMessage)
	case err != nil:
		return fmt.Sprintf("Error: %s", err.Error())
	default:
		return fmt.Sprintf("Sorry, I encountered an error with %s.", provider)
	}
}
