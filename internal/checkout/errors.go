package checkout

import (
	"encoding/json"
	"fmt"
)

// ErrorCategory maps HTTP status ranges to a coarse classification used in
// logs and operator-facing messages. It carries no retry semantics.
type ErrorCategory string

const (
	CategoryBadRequest   ErrorCategory = "bad_request"
	CategoryAccessDenied ErrorCategory = "access_denied"
	CategoryNotFound     ErrorCategory = "not_found"
	CategoryServerError  ErrorCategory = "server_error"
	CategoryAPIError     ErrorCategory = "api_error"
)

// APIError is a structured remote API failure: the HTTP status plus the
// parsed error body ({title, detail}).
type APIError struct {
	StatusCode int
	Title      string
	Detail     string
	Endpoint   string
}

// newAPIError parses the remote error body. Unparsable bodies synthesize a
// generic parse-error detail instead of surfacing a decode failure.
func newAPIError(endpoint string, status int, body []byte) *APIError {
	var parsed struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Title == "" && parsed.Detail == "" {
		parsed.Title = "Error parsing JSON response"
		parsed.Detail = "An error occurred while decoding the API response."
	}
	return &APIError{StatusCode: status, Title: parsed.Title, Detail: parsed.Detail, Endpoint: endpoint}
}

// Category classifies the error by status code.
func (e *APIError) Category() ErrorCategory {
	switch {
	case e.StatusCode == 400:
		return CategoryBadRequest
	case e.StatusCode == 401 || e.StatusCode == 403:
		return CategoryAccessDenied
	case e.StatusCode == 404:
		return CategoryNotFound
	case e.StatusCode >= 500 && e.StatusCode <= 504:
		return CategoryServerError
	default:
		return CategoryAPIError
	}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("checkout api %s: %d %s: %s", e.Endpoint, e.StatusCode, e.Title, e.Detail)
}

// TransportError is a network-level failure reaching the remote API,
// distinct from an HTTP error response. Fatal to the current call.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("checkout transport %s: %v", e.Endpoint, e.Err)
}

// Unwrap exposes the underlying network error.
func (e *TransportError) Unwrap() error {
	return e.Err
}
