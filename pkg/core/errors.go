package core

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrValidation = errors.New("validation failed")
	ErrFetch      = errors.New("fetch failed")
	ErrMutation   = errors.New("mutation failed")
	ErrNotFound   = errors.New("note not found")
	ErrClosed     = errors.New("store is closed")
)

// ValidationError reports a draft that cannot become a Note.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("please enter a name and description (%s is empty)", e.Field)
}

// Is makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// FetchError reports a failed full load of the collection.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch notes: %v", e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrFetch, e.Err}
}

// MutationError reports a remote create, update or delete that failed after
// the local change was already applied.
type MutationError struct {
	Op  EventType
	ID  string
	Err error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("failed to %s note %s: %v", opVerb(e.Op), e.ID, e.Err)
}

func (e *MutationError) Unwrap() []error {
	return []error{ErrMutation, e.Err}
}

func opVerb(op EventType) string {
	switch op {
	case EventCreate:
		return "create"
	case EventUpdate:
		return "update"
	case EventDelete:
		return "delete"
	default:
		return string(op)
	}
}
