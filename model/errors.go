package model

import "fmt"

// unknownError is the placeholder message providers use when the API gave
// no detail.
const unknownError = "Unknown error"

// ErrorMsg returns a user-facing message for a failed response. A specific
// API message wins; otherwise the status code picks a generic explanation.
func (r Response) ErrorMsg() string {
	if !r.IsError() {
		return ""
	}

	if r.ErrorMessage != "" && r.ErrorMessage != unknownError {
		return fmt.Sprintf("API error: %s (Status code: %d)", r.ErrorMessage, r.StatusCode)
	}

	switch {
	case r.StatusCode == 401:
		return fmt.Sprintf("Authentication error: Invalid API key or token. Please check your API credentials. (Status code: %d)", r.StatusCode)
	case r.StatusCode == 403:
		return fmt.Sprintf("Authorization error: You don't have permission to access this resource. (Status code: %d)", r.StatusCode)
	case r.StatusCode == 404:
		return fmt.Sprintf("Resource not found: The requested endpoint doesn't exist. Please check your API base URL. (Status code: %d)", r.StatusCode)
	case r.StatusCode == 429:
		return fmt.Sprintf("Rate limit exceeded: Too many requests. Please try again later or check your rate limits. (Status code: %d)", r.StatusCode)
	case r.StatusCode >= 500:
		return fmt.Sprintf("Server error: The API service is experiencing issues. Please try again later. (Status code: %d)", r.StatusCode)
	default:
		return fmt.Sprintf("API error: Unknown error occurred (Status code: %d)", r.StatusCode)
	}
}

// StreamFailure wraps a stream error as a single-chunk channel.
func StreamFailure(statusCode int, message string) <-chan StreamChunk {
	ch := make(chan StreamChunk, 1)
	ch <- StreamChunk{Err: &StreamError{StatusCode: statusCode, Message: message}}
	close(ch)

	return ch
}
