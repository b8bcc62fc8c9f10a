package gateway

import (
	"errors"
	"fmt"
)

// APIError is a non-2xx response from the backend. Message carries the
// server's own wording when the body contained one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// ServerMessage extracts the server-provided message from err, if err is an
// APIError that carried one.
func ServerMessage(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message, true
	}
	return "", false
}
