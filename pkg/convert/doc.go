// Package convert turns line protocol documents into CSV.
//
// # Schema Unification
//
// Records in one document rarely share the same tag and field keys, but a
// CSV header is fixed up front. Convert therefore runs in two phases:
//
//  1. Parse every line and collect the union of tag keys and field keys
//     seen across all records.
//  2. Sort each key set independently, build the header
//     (measurement, tag columns, field columns, timestamp), and emit one
//     row per record in input order. A record missing a column renders an
//     empty cell there.
//
// The schema is computed once per document and never per record, so two
// documents with the same keys in a different record order produce an
// identical header.
//
// # Failure Semantics
//
// Malformed lines are logged and dropped; blank lines and # comments are
// silently ignored. The only document-level outcome besides success is
// ErrNoData when zero valid records survived.
//
// ConvertDirectory reproduces the batch workflow: each regular file in an
// input directory becomes a <basename>.csv in the output directory, with
// no-data files skipped and counted.
package convert
