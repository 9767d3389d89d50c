// Package model provides the resolved query model produced by translation.
//
// This package contains the artifacts handed to a downstream code generator:
// schemas (StructDef), named queries and their pipelines (Query, Segment),
// parameters, and the completed ModelDef. It imports nothing internal; every
// other internal package imports model.
//
// Key design constraints:
//   - A StructDef is never mutated after it is published. Revisions are made
//     on a Clone.
//   - Field order is significant and field names are unique within a struct.
//   - All JSON tags use snake_case.
//   - Expression fragments form a sealed variant (see Fragment).
package model
