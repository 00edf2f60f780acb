package lsp

import (
	"testing"

	"azupgrade/internal/diag"
)

func renameRecord() diag.Record {
	return diag.Record{
		Range:      diag.Range{Start: diag.Position{Line: 2, Character: 0}, End: diag.Position{Line: 2, Character: 13}},
		Message:    "Use Get-AzVM",
		Severity:   diag.SevWarning,
		Code:       diag.CodeRename,
		Annotation: "Get-AzVM",
	}
}

func TestCodeActionsRename(t *testing.T) {
	s, _ := newTestServer(&fakeAnalyzer{})
	uri := "file:///tmp/fix.ps1"
	rec := renameRecord()
	s.diags.Replace(uri, []diag.Record{rec})
	s.openDocs[uri] = "\n\nGet-AzureRmVM\n"

	actions := s.codeActions(uri, []lspDiagnostic{toLSPDiagnostic(rec)})
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(actions))
	}
	a := actions[0]
	if a.Title != "Auto fix to Get-AzVM" || a.Kind != "quickfix" {
		t.Fatalf("unexpected action: %+v", a)
	}
	if a.Edit == nil {
		t.Fatalf("expected an edit")
	}
	edits := a.Edit.Changes[uri]
	if len(edits) != 1 || edits[0].NewText != "Get-AzVM" || edits[0].Range != fromRange(rec.Range) {
		t.Fatalf("unexpected edits: %+v", edits)
	}
}

func TestCodeActionsFallsBackToPublishedSet(t *testing.T) {
	s, _ := newTestServer(&fakeAnalyzer{})
	uri := "file:///tmp/fix.ps1"
	rec := renameRecord()
	s.diags.Replace(uri, []diag.Record{rec})
	s.openDocs[uri] = "\n\nGet-AzureRmVM\n"

	echoed := toLSPDiagnostic(rec)
	echoed.Data = nil
	actions := s.codeActions(uri, []lspDiagnostic{echoed})
	if len(actions) != 1 || actions[0].Edit == nil {
		t.Fatalf("expected an editing action, got %+v", actions)
	}
	if got := actions[0].Edit.Changes[uri][0].NewText; got != "Get-AzVM" {
		t.Fatalf("unexpected replacement %q", got)
	}
}

func TestCodeActionsInertWhenClosed(t *testing.T) {
	s, _ := newTestServer(&fakeAnalyzer{})
	uri := "file:///tmp/closed.ps1"
	rec := renameRecord()

	actions := s.codeActions(uri, []lspDiagnostic{toLSPDiagnostic(rec)})
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(actions))
	}
	if actions[0].Edit != nil {
		t.Fatalf("expected inert action, got %+v", actions[0].Edit)
	}
	if actions[0].Title != "Auto fix to Get-AzVM" {
		t.Fatalf("unexpected title %q", actions[0].Title)
	}
}

func TestCodeActionsSkipDoNothingAndForeign(t *testing.T) {
	s, _ := newTestServer(&fakeAnalyzer{})
	uri := "file:///tmp/skip.ps1"
	s.openDocs[uri] = "x"

	breaking := toLSPDiagnostic(diag.Record{Message: "removed", Severity: diag.SevError, Code: diag.CodeDoNothing})
	foreign := toLSPDiagnostic(renameRecord())
	foreign.Source = "PSScriptAnalyzer"

	actions := s.codeActions(uri, []lspDiagnostic{breaking, foreign})
	if len(actions) != 0 {
		t.Fatalf("expected no actions, got %+v", actions)
	}
}
