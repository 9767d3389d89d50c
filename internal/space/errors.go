package space

import (
	"errors"
	"fmt"
)

// Sentinel causes carried by FieldError.
var (
	ErrUndefined          = errors.New("undefined field")
	ErrNotScalar          = errors.New("not a scalar field")
	ErrNotJoin            = errors.New("not a join")
	ErrAggregateInProject = errors.New("aggregate in project")
)

// FieldError reports a name that could not be used where it appeared.
// Error returns the user-facing diagnostic text.
type FieldError struct {
	Err  error
	Name string
}

func (e *FieldError) Error() string {
	switch {
	case errors.Is(e.Err, ErrUndefined):
		return fmt.Sprintf("'%s' is not defined", e.Name)
	case errors.Is(e.Err, ErrNotScalar):
		return fmt.Sprintf("'%s' is not a scalar field", e.Name)
	case errors.Is(e.Err, ErrNotJoin):
		return fmt.Sprintf("'%s' is not a join", e.Name)
	case errors.Is(e.Err, ErrAggregateInProject):
		return fmt.Sprintf("Cannot add aggregate '%s' to project", e.Name)
	default:
		return fmt.Sprintf("'%s': %v", e.Name, e.Err)
	}
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldError(err error, name string) *FieldError {
	return &FieldError{Err: err, Name: name}
}

// FrozenError is panicked by a Builder mutated after Snapshot.
type FrozenError struct {
	Schema string
}

func (e *FrozenError) Error() string {
	return fmt.Sprintf("space: mutation of frozen schema %q", e.Schema)
}
