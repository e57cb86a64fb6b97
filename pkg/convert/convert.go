package convert

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/nicktill/linecsv/pkg/lineproto"
)

// ErrNoData is returned when a document contains no valid records.
// It is a sentinel, not a failure: callers typically skip writing output.
var ErrNoData = errors.New("no valid line protocol records")

// Result holds the CSV output of one document conversion plus counters
// for summary logging and response headers.
type Result struct {
	// CSV is the complete output: header row plus one row per record,
	// newline terminated, no trailing blank line.
	CSV string

	// Points is the number of records emitted.
	Points int

	// Skipped is the number of malformed lines dropped with a diagnostic.
	// Blank lines and comments are not counted.
	Skipped int
}

// Convert turns a line protocol document into CSV text.
//
// The conversion runs in two phases: first every line is parsed and the
// union of tag keys and field keys across all records is collected, then
// a fixed header is built from the sorted key sets and one row is emitted
// per record in input order. Missing keys render as empty cells.
//
// Header layout: measurement, sorted tag keys, sorted field keys, timestamp.
//
// Malformed lines are logged and skipped; they never fail the document.
// A document with zero valid records returns ErrNoData.
func Convert(document string) (*Result, error) {
	var (
		points    []lineproto.Point
		skipped   int
		tagKeys   = make(map[string]struct{})
		fieldKeys = make(map[string]struct{})
	)

	// Phase 1: parse every line and unify the schema.
	for _, raw := range strings.Split(document, "\n") {
		p, err := lineproto.ParseLine(raw)
		if errors.Is(err, lineproto.ErrSkip) {
			continue
		}
		if err != nil {
			log.Printf("Skipping line: %v", err)
			skipped++
			continue
		}

		points = append(points, p)
		for k := range p.Tags {
			tagKeys[k] = struct{}{}
		}
		for k := range p.Fields {
			fieldKeys[k] = struct{}{}
		}
	}

	if len(points) == 0 {
		return nil, ErrNoData
	}

	tagCols := sortedKeys(tagKeys)
	fieldCols := sortedKeys(fieldKeys)

	header := make([]string, 0, len(tagCols)+len(fieldCols)+2)
	header = append(header, "measurement")
	header = append(header, tagCols...)
	header = append(header, fieldCols...)
	header = append(header, "timestamp")

	// Phase 2: emit rows aligned to the fixed header.
	var buf strings.Builder
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	row := make([]string, len(header))
	for _, p := range points {
		row = row[:0]
		row = append(row, p.Measurement)
		for _, k := range tagCols {
			row = append(row, p.Tags[k]) // absent key -> empty cell
		}
		for _, k := range fieldCols {
			row = append(row, p.Fields[k])
		}
		row = append(row, p.Timestamp)

		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}

	return &Result{
		CSV:     buf.String(),
		Points:  len(points),
		Skipped: skipped,
	}, nil
}

// sortedKeys returns the keys of set in lexicographic order.
// Sorting is what makes the header deterministic regardless of record order.
func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
