package diag

// Code classifies what a quick fix can do for a record.
type Code string

const (
	// CodeDoNothing marks findings that have no automatic fix.
	CodeDoNothing Code = "DO_NOTHING"
	// CodeRename marks findings fixed by replacing the span with Annotation.
	CodeRename Code = "RENAME"
)

// ID returns the stable string form used on the wire.
func (c Code) ID() string {
	return string(c)
}

// HasFix reports whether records with this code offer an edit.
func (c Code) HasFix() bool {
	return c == CodeRename
}
