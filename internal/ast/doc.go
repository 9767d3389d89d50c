// Package ast holds the parsed document tree and the semantic resolution
// that turns it into a model.
//
// Nodes are built by constructors, which register each node's children and
// set the parent links used to find the nearest source range. All resolution
// goes through an explicit *Context carrying the diagnostic sink, the
// namespace under construction and the external zones.
//
// Resolution never stops at a user error. Each operation logs what it found
// and returns a usable value, substituting a sentinel where it has to, so
// later statements are still checked. Only internal invariant violations
// abort, by panicking with *InternalError.
//
// The node categories are sealed interfaces: Statement (document level),
// Source, SourceProperty (refinement statements), QueryProperty (stage
// statements), QueryItem, FieldCollectionMember, ParameterDecl and Expr.
package ast
