// Package lineproto parses telemetry records in the line protocol format:
// one record per text line, made of a measurement name, an optional
// comma-separated tag set, a required comma-separated field set, and an
// optional integer timestamp.
//
//	temperature,host=serverA value=23.5 1465839830100400200
//	cpu value=0.64
//
// The parser is a leaf component: it converts a single line into a Point
// (or an error) and knows nothing about documents, schemas, or output
// formats. Delimiters within names, keys, and values can be backslash
// escaped (\, \= and "\ "); no quoted-string values are supported.
//
// Per-line failures are always recoverable - callers log the diagnostic
// and continue with the next line.
package lineproto
