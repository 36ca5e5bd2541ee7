package correlation

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownRequest is returned when awaiting an id that was never
// registered or has already been reclaimed.
var ErrUnknownRequest = errors.New("unknown request id")

// DuplicateRequestError is returned by Register when the id is still live.
type DuplicateRequestError struct {
	RequestID string
	Kind      Kind
}

// Error implements error interface.
func (e *DuplicateRequestError) Error() string {
	return fmt.Sprintf("request %s already registered (kind %s)", e.RequestID, e.Kind)
}

// RequestTimeoutError reports a request that expired without a response.
type RequestTimeoutError struct {
	RequestID string
	Kind      Kind
	Waited    time.Duration
}

// Error implements error interface.
func (e *RequestTimeoutError) Error() string {
	return fmt.Sprintf("request %s (%s) timed out after %s", e.RequestID, e.Kind, e.Waited)
}

// ResponseTypeError reports a resolved value the waiter cannot use.
type ResponseTypeError struct {
	RequestID string
	Want      string
	Got       string
}

// Error implements error interface.
func (e *ResponseTypeError) Error() string {
	return fmt.Sprintf("request %s resolved with %s, want %s", e.RequestID, e.Got, e.Want)
}
