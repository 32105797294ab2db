package paypal

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError describes failed processor call. It unwraps to the domain sentinel of the operation.
type APIError struct {
	Op         string
	StatusCode int
	Name       string
	Message    string
	DebugID    string

	kind  error
	cause error
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %v", e.Op, e.kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d", e.StatusCode)
		if e.Name != "" {
			fmt.Fprintf(&b, " %s", e.Name)
		}
		if e.DebugID != "" {
			fmt.Fprintf(&b, ", debug_id %s", e.DebugID)
		}
		b.WriteString(")")
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.cause != nil {
		fmt.Fprintf(&b, ": %v", e.cause)
	}
	return b.String()
}

func (e *APIError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}

// errorBody covers both REST and OAuth error payloads.
type errorBody struct {
	Name             string `json:"name"`
	Message          string `json:"message"`
	DebugID          string `json:"debug_id"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func newAPIError(op string, kind error, status int, body []byte) *APIError {
	apiErr := &APIError{Op: op, StatusCode: status, kind: kind}
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		apiErr.Name = parsed.Name
		apiErr.Message = parsed.Message
		apiErr.DebugID = parsed.DebugID
		if apiErr.Name == "" {
			apiErr.Name = parsed.Error
		}
		if apiErr.Message == "" {
			apiErr.Message = parsed.ErrorDescription
		}
	}
	return apiErr
}

func transportError(op string, kind error, cause error) *APIError {
	return &APIError{Op: op, kind: kind, cause: cause}
}
