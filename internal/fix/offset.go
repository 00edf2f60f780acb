package fix

import (
	"unicode/utf8"

	"azupgrade/internal/diag"
)

// Offset converts an LSP position (UTF-16 columns) into a byte offset in
// text. Positions past the end of a line clamp to the line end and lines
// past the end of text clamp to len(text).
func Offset(text string, pos diag.Position) int {
	if pos.Line < 0 || pos.Character < 0 {
		return 0
	}
	line := 0
	i := 0
	for i < len(text) && line < pos.Line {
		if text[i] == '\n' {
			line++
		}
		i++
	}
	if line < pos.Line {
		return len(text)
	}
	units := 0
	for i < len(text) {
		if text[i] == '\n' || text[i] == '\r' {
			break
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		need := 1
		if r > 0xFFFF {
			need = 2
		}
		if units+need > pos.Character {
			break
		}
		units += need
		i += size
	}
	return i
}
