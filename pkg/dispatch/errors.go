package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth means the API key is missing or was rejected
	ErrAuth = errors.New("missing or invalid api key")

	// ErrExhausted matches both ProxyError and TimeoutError
	ErrExhausted = errors.New("retry attempts exhausted")
)

// ProxyError is returned when every attempt failed and the last failure was
// a transport error or a retryable status, but not a timeout.
type ProxyError struct {
	URL      string
	Attempts int
	// Status of the last attempt, zero when it never got a response
	StatusCode int
	Err        error
}

func (e *ProxyError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("proxy request to %s failed after %d attempts: last status %d", e.URL, e.Attempts, e.StatusCode)
	}
	return fmt.Sprintf("proxy request to %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *ProxyError) Unwrap() error { return e.Err }

func (e *ProxyError) Is(target error) bool { return target == ErrExhausted }

// TimeoutError is returned when every attempt failed and the last one timed out
type TimeoutError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("all %d attempts timed out for %s", e.Attempts, e.URL)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

func (e *TimeoutError) Is(target error) bool { return target == ErrExhausted }

// StatusError is the cause recorded for a retryable status code
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("retryable status %d", e.StatusCode)
}

func exhausted(url string, attempts int, last Decision) error {
	if last.Timeout {
		return &TimeoutError{URL: url, Attempts: attempts, Err: last.Err}
	}
	return &ProxyError{URL: url, Attempts: attempts, StatusCode: last.StatusCode, Err: last.Err}
}
