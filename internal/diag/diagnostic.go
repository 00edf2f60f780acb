package diag

import "fmt"

// Position is a zero-based line/character pair.
type Position struct {
	Line      int `json:"line" msgpack:"line"`
	Character int `json:"character" msgpack:"character"`
}

// Less orders positions by line, then character.
func (p Position) Less(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Character < other.Character
}

// Range is a zero-based half-open span.
type Range struct {
	Start Position `json:"start" msgpack:"start"`
	End   Position `json:"end" msgpack:"end"`
}

// Contains reports whether pos lies within r, end inclusive.
func (r Range) Contains(pos Position) bool {
	return !pos.Less(r.Start) && !r.End.Less(pos)
}

// Overlaps reports whether two half-open ranges intersect.
func (r Range) Overlaps(other Range) bool {
	return r.Start.Less(other.End) && other.Start.Less(r.End)
}

func (r Range) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", r.Start.Line, r.Start.Character, r.End.Line, r.End.Character)
}

// Record is a single diagnostic ready to be shown in an editor.
type Record struct {
	Range      Range    `json:"range" msgpack:"range"`
	Message    string   `json:"message" msgpack:"message"`
	Severity   Severity `json:"severity" msgpack:"severity"`
	Code       Code     `json:"code" msgpack:"code"`
	Annotation string   `json:"annotation,omitempty" msgpack:"annotation,omitempty"`
}

// Replacement returns the text a quick fix should insert, if any.
func (r Record) Replacement() (string, bool) {
	if !r.Code.HasFix() || r.Annotation == "" {
		return "", false
	}
	return r.Annotation, true
}
