package lineproto

import (
	"errors"
	"fmt"
)

// ErrSkip is returned for blank lines and comment lines (# prefix).
// These are not records but they are not errors either - callers should
// move on without logging a diagnostic.
var ErrSkip = errors.New("not a record")

// MalformedLineError reports a line that structurally cannot be a record.
// The caller is expected to log it and continue with the next line -
// one bad line never aborts a whole document.
type MalformedLineError struct {
	Reason string // human-readable reason
	Line   string // the offending line, as received
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("malformed line (%s): %q", e.Reason, e.Line)
}
