package fix

import "azupgrade/internal/diag"

// KindQuickFix is the LSP code action kind of every action built here.
const KindQuickFix = "quickfix"

// TextEdit replaces Range with NewText.
type TextEdit struct {
	Range   diag.Range
	NewText string
}

// Action is a quick fix offered for one diagnostic.
// Edits is nil for an inert action.
type Action struct {
	Title      string
	Kind       string
	URI        string
	Diagnostic diag.Record
	Edits      []TextEdit
}

// Inert reports whether the action carries no edit.
func (a Action) Inert() bool { return len(a.Edits) == 0 }

// ForDiagnostic builds the quick fix for rec in the document uri.
// DO_NOTHING findings get no action. When the document is not open the
// action is returned without an edit.
func ForDiagnostic(uri string, rec diag.Record, surfaceOpen bool) (Action, bool) {
	replacement, ok := rec.Replacement()
	if !ok {
		return Action{}, false
	}
	action := Action{
		Title:      "Auto fix to " + replacement,
		Kind:       KindQuickFix,
		URI:        uri,
		Diagnostic: rec,
	}
	if surfaceOpen {
		action.Edits = []TextEdit{{Range: rec.Range, NewText: replacement}}
	}
	return action, true
}

// Actions maps ForDiagnostic over records, keeping their order.
func Actions(uri string, records []diag.Record, surfaceOpen bool) []Action {
	out := make([]Action, 0, len(records))
	for _, rec := range records {
		if action, ok := ForDiagnostic(uri, rec, surfaceOpen); ok {
			out = append(out, action)
		}
	}
	return out
}
