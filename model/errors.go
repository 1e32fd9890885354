package model

import "fmt"

// ValidationError rejects malformed input to a mutation (wrong answer
// type, empty title). The write is blocked entirely, nothing partial is
// stored.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

func Invalidf(format string, args ...any) error {
	return &ValidationError{fmt.Sprintf(format, args...)}
}

// AuthorizationError means the requester is neither owner nor admin.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return "forbidden: " + e.Reason
}

func Forbiddenf(format string, args ...any) error {
	return &AuthorizationError{fmt.Sprintf(format, args...)}
}

// NotFoundError means the id does not resolve to a live (non-deleted)
// record.
type NotFoundError struct {
	Kind string
	ID   int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func NotFound(kind string, id int) error {
	return &NotFoundError{kind, id}
}

// PreconditionError is an integration fault: the aggregation engine was
// handed data inconsistent with its template. The whole computation is
// aborted, it is never downgraded to an empty report.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition: " + e.Reason
}

func Preconditionf(format string, args ...any) error {
	return &PreconditionError{fmt.Sprintf(format, args...)}
}
