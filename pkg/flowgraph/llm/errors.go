package llm

import (
	"errors"
	"fmt"
	"net/http"

	fgerrors "github.com/randalmurphal/taskmentor/pkg/flowgraph/errors"
)

// ErrEmptyResponse indicates the service returned no usable text.
var ErrEmptyResponse = errors.New("empty response from reasoning service")

// Error is returned by Client implementations.
type Error struct {
	// Op is the client operation, e.g. "complete".
	Op string
	// Err is the underlying cause.
	Err error
	// Retryable reports whether the same request might succeed later.
	Retryable bool
}

// NewError wraps err for op.
func NewError(op string, err error, retryable bool) *Error {
	return &Error{Op: op, Err: err, Retryable: retryable}
}

func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient lets errors.Categorize classify llm errors.
func (e *Error) Transient() bool {
	return e.Retryable
}

// statusError converts a provider's HTTP failure into an *Error wrapping
// an HTTPError so it categorizes by status.
func statusError(op string, status int, msg, endpoint string) *Error {
	if msg == "" {
		msg = http.StatusText(status)
	}
	httpErr := &fgerrors.HTTPError{StatusCode: status, Message: msg, Endpoint: endpoint}
	return NewError(op, httpErr, fgerrors.IsRetryable(httpErr))
}
