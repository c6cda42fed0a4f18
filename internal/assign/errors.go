package assign

import (
	"errors"
	"fmt"
)

// ValidationError reports bad caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return e.Message
}

// NotFoundError is returned by strict lookups only.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found for %q", e.Kind, e.Key)
}

// ReasoningServiceError wraps a failed reasoning-service call.
type ReasoningServiceError struct {
	Provider string
	Attempts int
	Err      error
}

func (e *ReasoningServiceError) Error() string {
	return fmt.Sprintf("reasoning service %s failed after %d attempt(s): %v", e.Provider, e.Attempts, e.Err)
}

func (e *ReasoningServiceError) Unwrap() error { return e.Err }

// PlanParseError reports reasoning output that is not a valid plan.
type PlanParseError struct {
	Reason string
	Output string // raw model output, truncated
	Err    error
}

func (e *PlanParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse plan: %s: %v", e.Reason, e.Err)
	}
	return "parse plan: " + e.Reason
}

func (e *PlanParseError) Unwrap() error { return e.Err }

// NoCandidateProjectsError is returned by the planner when no project is active.
type NoCandidateProjectsError struct {
	UserID string
}

func (e *NoCandidateProjectsError) Error() string {
	return fmt.Sprintf("no active projects to plan tasks for user %q", e.UserID)
}

// StoreError wraps a document-store failure.
type StoreError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// TaskCommitError reports task inserts that failed. Every insert in the batch
// was attempted; Inserted holds the ids that landed.
type TaskCommitError struct {
	Attempted int
	Inserted  []string
	Err       error // errors.Join of the individual failures
}

func (e *TaskCommitError) Error() string {
	return fmt.Sprintf("committed %d of %d tasks: %v", len(e.Inserted), e.Attempted, e.Err)
}

func (e *TaskCommitError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err is (or wraps) a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func storeErr(op, coll string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Collection: coll, Err: err}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
