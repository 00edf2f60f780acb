package lsp

import (
	"azupgrade/internal/diag"
	"azupgrade/internal/fix"
)

func applyChanges(text string, changes []textDocumentContentChangeEvent) string {
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			continue
		}
		start := fix.Offset(text, toPosition(change.Range.Start))
		end := fix.Offset(text, toPosition(change.Range.End))
		if end < start {
			end = start
		}
		text = text[:start] + change.Text + text[end:]
	}
	return text
}

func toPosition(p position) diag.Position {
	return diag.Position{Line: p.Line, Character: p.Character}
}

func fromPosition(p diag.Position) position {
	return position{Line: p.Line, Character: p.Character}
}

func toRange(r lspRange) diag.Range {
	return diag.Range{Start: toPosition(r.Start), End: toPosition(r.End)}
}

func fromRange(r diag.Range) lspRange {
	return lspRange{Start: fromPosition(r.Start), End: fromPosition(r.End)}
}
