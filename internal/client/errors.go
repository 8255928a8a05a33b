package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a failed API call as reported by the server.
type APIError struct {
	Status  int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	switch {
	case e.Detail != "" && e.Message != "":
		return fmt.Sprintf("%s (%d): %s", e.Message, e.Status, e.Detail)
	case e.Message != "":
		return fmt.Sprintf("%s (%d)", e.Message, e.Status)
	default:
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
}

func newAPIError(status int, env envelope) *APIError {
	apiErr := &APIError{Status: status, Message: env.Message}
	if env.Status != 0 && status < 300 {
		apiErr.Status = env.Status
	}
	var data struct {
		Error string `json:"error"`
	}
	if len(env.Data) > 0 && json.Unmarshal(env.Data, &data) == nil {
		apiErr.Detail = data.Error
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(apiErr.Status)
	}
	return apiErr
}

// StatusOf returns the HTTP status of an *APIError, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized reports whether err means the session is missing or expired.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// IsForbidden reports whether the caller lacks permission.
func IsForbidden(err error) bool {
	return StatusOf(err) == http.StatusForbidden
}

// permanentError stops retries regardless of its message.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }
