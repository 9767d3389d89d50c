// Package space implements field spaces: the name-resolution scopes used
// while a schema or a pipeline stage is being resolved.
//
// Three flavors exist:
//
//   - Static: a read-only view over a finished StructDef
//   - Builder: a schema under construction for a source refinement,
//     frozen once into an immutable StructDef by Snapshot
//   - Query: the output of one pipeline stage over an input Static,
//     in grouping (reduce) or projection flavor
//
// Spaces never log. Operations that fail report a *FieldError (or a bool)
// and the caller decides where the diagnostic belongs.
package space
