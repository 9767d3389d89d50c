// Package catalog provides SQLite-backed storage for the two collaborators a
// translation looks things up in:
//   - Schemas: table schemas, keyed by table name
//   - Models: completed models of translated documents, keyed by URL
//
// Every row carries a status of present, error or pending, so the catalog
// can record a failed or in-flight introspection or translation as well as
// a finished one. Lookups never block on pending rows; they answer with the
// status and the translator reports it.
//
// # Determinism
//
//   - Stored schemas and models are RFC 8785 canonical JSON
//   - Completed models carry a content hash (model.ModelHash)
//   - Listings are ORDER BY name/url COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package catalog
