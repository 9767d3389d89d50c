package catalog

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by Error when a name or URL has no row.
var ErrNotFound = errors.New("not found")

// Error reports a failed catalog operation on one key.
type Error struct {
	Op  string // "put schema", "read model", ...
	Key string // table name or model URL
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
