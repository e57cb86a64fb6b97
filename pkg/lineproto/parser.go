package lineproto

import (
	"log"
	"strings"
)

// ParseLine decodes one line of line protocol into a Point.
//
// Grammar:
//
//	line := measurement[,tagset] fieldset [timestamp]
//
// Returns ErrSkip for blank lines and comments (# prefix), and a
// *MalformedLineError for lines that structurally cannot be a record
// (no field separator, empty measurement, empty field set).
//
// Delimiters (space, comma, equals) can be escaped with a backslash:
// \, \= and "\ " resolve to their literal characters. The measurement
// only recognizes \, and "\ " - it cannot contain an equals pair.
func ParseLine(line string) (Point, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || trimmed[0] == '#' {
		return Point{}, ErrSkip
	}

	// The first unescaped space separates "measurement+tags" from
	// "fields+timestamp". It is the only mandatory delimiter on a line.
	sep := indexUnescaped(trimmed, ' ')
	if sep < 0 {
		return Point{}, &MalformedLineError{Reason: "missing field separator", Line: trimmed}
	}
	left := trimmed[:sep]
	right := strings.TrimSpace(trimmed[sep+1:])

	// Left segment: measurement, optionally followed by ",tagset"
	var rawTags string
	measurement := left
	if c := indexUnescaped(left, ','); c >= 0 {
		measurement = left[:c]
		rawTags = left[c+1:]
	}

	// Right segment: fieldset, optionally followed by a whitespace-separated
	// run of trailing digits (the timestamp). A digit run that is glued to
	// the fieldset belongs to the last field value, not the timestamp.
	rawFields := right
	timestamp := ""
	i := len(right) - 1
	for i >= 0 && right[i] >= '0' && right[i] <= '9' {
		i--
	}
	if i >= 0 && i < len(right)-1 && (right[i] == ' ' || right[i] == '\t') {
		timestamp = right[i+1:]
		rawFields = strings.TrimRight(right[:i], " \t")
	}

	tags := parsePairs(rawTags)
	fields := parsePairs(rawFields)

	name := unescapeMeasurement(measurement)
	if name == "" || len(fields) == 0 {
		return Point{}, &MalformedLineError{Reason: "missing measurement or fields", Line: trimmed}
	}

	return Point{
		Measurement: name,
		Tags:        tags,
		Fields:      fields,
		Timestamp:   timestamp,
	}, nil
}

// parsePairs tokenizes a comma-separated key-value list ("k=v,k2=v2").
// Shared by the tag set and the field set.
//
// Fragments without an unescaped '=' are logged and dropped; they do not
// abort the rest of the line. Duplicate keys resolve last-write-wins.
func parsePairs(s string) map[string]string {
	pairs := make(map[string]string)
	if s == "" {
		return pairs
	}
	for _, frag := range splitUnescaped(s, ',') {
		if frag == "" {
			continue
		}
		eq := indexUnescaped(frag, '=')
		if eq < 0 {
			log.Printf("Dropping malformed key-value pair %q: no unescaped '='", frag)
			continue
		}
		key := unescape(frag[:eq])
		value := unescape(frag[eq+1:])
		pairs[key] = value
	}
	return pairs
}

// indexUnescaped returns the index of the first occurrence of delim that is
// not preceded by an unescaped backslash, or -1. The escape flag covers
// exactly one character, so "\\," still counts as an escaped comma while
// "\\\\," does not.
func indexUnescaped(s string, delim byte) int {
	escaped := false
	for i := 0; i < len(s); i++ {
		if escaped {
			escaped = false
			continue
		}
		switch s[i] {
		case '\\':
			escaped = true
		case delim:
			return i
		}
	}
	return -1
}

// splitUnescaped splits s on every unescaped occurrence of delim.
func splitUnescaped(s string, delim byte) []string {
	var parts []string
	start := 0
	escaped := false
	for i := 0; i < len(s); i++ {
		if escaped {
			escaped = false
			continue
		}
		switch s[i] {
		case '\\':
			escaped = true
		case delim:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// unescape resolves \, \= and "\ " to their literal characters.
// Applying it to an already-unescaped string is a no-op.
func unescape(s string) string {
	return unescapeSet(s, ",= ")
}

// unescapeMeasurement resolves \, and "\ " only; '=' has no meaning in a
// measurement name.
func unescapeMeasurement(s string) string {
	return unescapeSet(s, ", ")
}

func unescapeSet(s, set string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && strings.IndexByte(set, s[i+1]) >= 0 {
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
