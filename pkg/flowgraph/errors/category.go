// Package errors classifies failures from external collaborators and
// retries the transient ones.
//
// The workflow engine never retries. Callers that talk to a reasoning
// service or a store wrap those calls with WithRetryContext and decide
// per-collaborator whether to retry at all.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Category represents how an error should be handled.
type Category int

const (
	// CategoryTransient indicates retry will likely help.
	// Examples: rate limits, timeouts, temporary network issues.
	CategoryTransient Category = iota

	// CategoryPermanent indicates retry won't help.
	// Examples: authentication failures, invalid configuration.
	CategoryPermanent

	// CategoryInvalidOutput indicates the collaborator answered but the
	// answer could not be used (malformed JSON, schema violations).
	// Repeating the identical request is not assumed to help.
	CategoryInvalidOutput
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	case CategoryInvalidOutput:
		return "invalid_output"
	default:
		return "unknown"
	}
}

// CategorizedError wraps an error with its category and context.
type CategorizedError struct {
	// Err is the underlying error.
	Err error

	// Category indicates how this error should be handled.
	Category Category

	// Retries is the number of attempts that have been made.
	Retries int

	// Context describes what operation was being attempted.
	Context string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s, attempts: %d)",
			e.Context, e.Err, e.Category, e.Retries)
	}
	return fmt.Sprintf("%s (category: %s, attempts: %d)",
		e.Err, e.Category, e.Retries)
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// NewCategorized creates a new categorized error.
func NewCategorized(err error, category Category, context string) *CategorizedError {
	return &CategorizedError{
		Err:      err,
		Category: category,
		Context:  context,
	}
}

// Transient creates a transient error.
func Transient(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryTransient, context)
}

// Permanent creates a permanent error.
func Permanent(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryPermanent, context)
}

// transienter is implemented by errors that know whether they are worth
// retrying, such as reasoning-client errors.
type transienter interface {
	Transient() bool
}

// Categorize determines how an error should be handled.
func Categorize(err error) Category {
	if err == nil {
		return CategoryPermanent // shouldn't happen, fail safe
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	// Caller cancellation is never retried; a per-call deadline is.
	if errors.Is(err, context.Canceled) {
		return CategoryPermanent
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return categorizeStatus(httpErr.StatusCode)
	}

	var jsonErr *JSONParseError
	if errors.As(err, &jsonErr) {
		return CategoryInvalidOutput
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return CategoryInvalidOutput
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return CategoryTransient
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTransient
	}

	var t transienter
	if errors.As(err, &t) {
		if t.Transient() {
			return CategoryTransient
		}
		return CategoryPermanent
	}

	// Unknown errors are permanent (fail safe)
	return CategoryPermanent
}

func categorizeStatus(code int) Category {
	switch code {
	case 408, 429, 503, 504, 529:
		return CategoryTransient
	case 401, 403:
		return CategoryPermanent
	default:
		if code >= 500 {
			return CategoryTransient
		}
		return CategoryPermanent
	}
}

// IsRetryable reports whether the error should be retried.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}
