// Package zone defines the synchronous lookup contract used to reach
// collaborators outside a translation: table schemas and previously
// translated documents.
//
// A zone answers immediately with one of three outcomes. Pending is never
// awaited; the translator reports it as an error and moves on.
package zone

import "github.com/roach88/mtrans/internal/model"

// Status is the outcome of a zone lookup.
type Status string

const (
	StatusPresent Status = "present"
	StatusError   Status = "error"
	StatusPending Status = "pending"
)

// Entry is the result of a zone lookup.
// Value is set only when Status is StatusPresent; Message only for StatusError.
type Entry[T any] struct {
	Status  Status
	Value   T
	Message string
}

// Present wraps a found value.
func Present[T any](v T) Entry[T] {
	return Entry[T]{Status: StatusPresent, Value: v}
}

// Failed records a lookup error.
func Failed[T any](msg string) Entry[T] {
	return Entry[T]{Status: StatusError, Message: msg}
}

// Pending records a lookup still in flight.
func Pending[T any]() Entry[T] {
	return Entry[T]{Status: StatusPending}
}

// Zone resolves keys to entries. A key the zone has never heard of is
// returned with an empty Status.
type Zone[T any] interface {
	Lookup(key string) Entry[T]
}

// SchemaZone resolves table names to schemas.
type SchemaZone = Zone[*model.StructDef]

// ImportZone resolves document URLs to completed models.
type ImportZone = Zone[*model.ModelDef]

// Map is an in-memory Zone.
type Map[T any] map[string]Entry[T]

// Lookup implements Zone.
func (m Map[T]) Lookup(key string) Entry[T] {
	return m[key]
}
