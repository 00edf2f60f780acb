package plan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingReplacement marks a rename entry that has no replacement text.
var ErrMissingReplacement = errors.New("plan: rename entry without replacement")

// DroppedError lists the entries Decode left out of an otherwise valid
// plan. The entries returned alongside it are usable.
type DroppedError struct {
	Indexes []int
	Err     error
}

func (e *DroppedError) Error() string {
	return fmt.Sprintf("plan: dropped %d entr%s %v: %v", len(e.Indexes), plural(len(e.Indexes)), e.Indexes, e.Err)
}

func (e *DroppedError) Unwrap() error { return e.Err }

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

// ParseError reports output that is not a valid plan payload.
type ParseError struct {
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("plan: malformed output at byte %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("plan: malformed output: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Decode parses raw ConvertTo-Json output into plan entries.
//
// Empty output and JSON null yield no entries. A single object is accepted
// as a one-element plan, since ConvertTo-Json unwraps single-item arrays.
// Rename entries without a replacement are dropped and reported through a
// *DroppedError; the remaining entries are still returned with it.
func Decode(raw []byte) ([]Entry, error) {
	trimmed := bytes.TrimSpace(raw)
	// Windows PowerShell prefixes redirected output with a UTF-8 BOM.
	trimmed = bytes.TrimPrefix(trimmed, []byte("\xef\xbb\xbf"))
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var entries []Entry
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, newParseError(err)
		}
	case '{':
		var single Entry
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, newParseError(err)
		}
		entries = []Entry{single}
	default:
		return nil, &ParseError{Err: fmt.Errorf("unexpected leading %q", trimmed[0])}
	}

	kept := entries[:0]
	var dropped []int
	for i, entry := range entries {
		if entry.PlanSeverity.IsRename() && entry.Replacement == "" {
			dropped = append(dropped, i)
			continue
		}
		kept = append(kept, entry)
	}
	if len(dropped) > 0 {
		return kept, &DroppedError{Indexes: dropped, Err: ErrMissingReplacement}
	}
	return kept, nil
}

func newParseError(err error) *ParseError {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &ParseError{Offset: syntaxErr.Offset, Err: err}
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &ParseError{Offset: typeErr.Offset, Err: err}
	}
	return &ParseError{Err: err}
}
