package dispatch

import (
	"errors"
	"net/http"

	"egress-dispatcher/pkg/fetch"
)

// Kind is what the attempt loop does after one attempt
type Kind int

const (
	// Retry rotates the identity and tries again while attempts remain
	Retry Kind = iota
	// Terminal hands the response to the caller, whatever its status
	Terminal
	// Fatal stops immediately and returns the error as is
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Retry:
		return "retry"
	case Terminal:
		return "terminal"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Decision is the outcome of classifying one attempt
type Decision struct {
	Kind       Kind
	Result     *fetch.Result
	Err        error
	StatusCode int
	Timeout    bool
}

var retryableStatus = map[int]bool{
	http.StatusForbidden:           true,
	http.StatusProxyAuthRequired:   true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// IsRetryableStatus reports whether a response status triggers rotation
func IsRetryableStatus(code int) bool {
	return retryableStatus[code]
}

// Classify decides what to do with the outcome of one attempt.
//
// Only transport failures and retryable statuses are retried. Any other
// response is terminal data, and any other error is fatal.
func Classify(res *fetch.Result, err error) Decision {
	if err != nil {
		var te *fetch.TransportError
		if errors.As(err, &te) {
			return Decision{Kind: Retry, Err: err, Timeout: te.Timeout}
		}
		return Decision{Kind: Fatal, Err: err}
	}
	if res == nil {
		return Decision{Kind: Fatal, Err: errors.New("no response")}
	}
	if IsRetryableStatus(res.StatusCode) {
		return Decision{
			Kind:       Retry,
			Result:     res,
			StatusCode: res.StatusCode,
			Err:        &StatusError{StatusCode: res.StatusCode},
		}
	}
	return Decision{Kind: Terminal, Result: res, StatusCode: res.StatusCode}
}
