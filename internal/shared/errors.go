package shared

import (
	"fmt"
	"net/http"
)

var (
	// Configuration errors
	ErrMissingConfig   = fmt.Errorf("configuration not found")
	ErrInvalidConfig   = fmt.Errorf("invalid configuration")
	ErrProfileNotFound = fmt.Errorf("profile not found")
	ErrUnsavedProfile  = fmt.Errorf("profile has not been saved")

	// Server errors
	ErrAuthFailed         = fmt.Errorf("authentication failed")
	ErrNotFound           = fmt.Errorf("resource not found")
	ErrAPINotSupported    = fmt.Errorf("API version not supported by server")
	ErrMissingToken       = fmt.Errorf("can't find _token string")
	ErrRetriesExhausted   = fmt.Errorf("retries exhausted")
	ErrTimeout            = fmt.Errorf("operation timed out")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// HTTPStatusError is returned for responses with an unexpected status code.
type HTTPStatusError struct {
	Code int
	Body string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("HTTP %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}
