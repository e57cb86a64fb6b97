package lineproto

// Point is a single telemetry record decoded from one line of line protocol.
// Tag and field values are kept as text; this layer does no type inference.
type Point struct {
	// Measurement is the record's primary name, with escape sequences resolved
	Measurement string

	// Tags holds the record's tag set (may be empty)
	Tags map[string]string

	// Fields holds the record's field set (never empty on a valid Point)
	Fields map[string]string

	// Timestamp is the raw decimal timestamp literal, or "" when the line
	// carried none. It is never defaulted to the current time.
	Timestamp string
}
