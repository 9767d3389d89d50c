// Package translator runs the semantic pass over one parsed document.
//
// A Translation binds a document to its collaborators: the schema zone that
// answers table lookups, the import zone that answers for previously
// translated documents, an optional base model, and the diagnostic sink.
// Translate executes every statement once, in order, on the calling
// goroutine and returns the completed model with everything that was
// reported along the way.
//
// User errors never stop a translation. They are collected as diagnostics
// and resolution continues with sentinel values. Only an internal
// invariant violation aborts, and it is returned as an error.
package translator
