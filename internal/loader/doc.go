// Package loader turns files into translator inputs.
//
// Table schemas are CUE:
//
//	table: flights: {
//		primary_key: "id"
//		fields: {
//			id:       "number"
//			carrier:  string
//			dep_time: "timestamp"
//		}
//	}
//
// A field is either an atomic type name or a CUE kind (string, number,
// int, float, bool). Fields keep their declaration order.
//
// Documents are YAML descriptions of an already parsed document: its
// statements, sources, pipelines and expressions. DecodeDocument builds the
// AST the translator resolves; it does no semantic checking of its own.
package loader
