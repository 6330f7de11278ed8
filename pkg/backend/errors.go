package backend

import (
	"encoding/json"
	"fmt"
)

// ErrorBody is the structured error payload the backend may return.
// The chat endpoint fills Message, the document loader fills Error.
type ErrorBody struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// HTTPError represents a non-2xx response from the backend.
type HTTPError struct {
	StatusCode int
	Body       string
	// Detail is nil when the body was not a JSON object.
	Detail *ErrorBody
}

func newHTTPError(status int, body []byte) *HTTPError {
	e := &HTTPError{StatusCode: status, Body: string(body)}

	var detail ErrorBody
	if len(body) > 0 && json.Unmarshal(body, &detail) == nil {
		e.Detail = &detail
	}
	return e
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Message returns the backend-provided "message" field, if any.
func (e *HTTPError) Message() string {
	if e.Detail == nil {
		return ""
	}
	return e.Detail.Message
}

// Reason returns the backend-provided "error" field, if any.
func (e *HTTPError) Reason() string {
	if e.Detail == nil {
		return ""
	}
	return e.Detail.Error
}

// NetworkError represents a request that never got a complete response
// (connection refused, DNS failure, timeout, body cut off).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
