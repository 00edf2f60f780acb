package lsp

import (
	"encoding/json"

	"azupgrade/internal/diag"
	"azupgrade/internal/fix"
)

func (s *Server) handleCodeAction(msg *rpcMessage) error {
	var params codeActionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	uri := canonicalURI(params.TextDocument.URI)
	return s.sendResponse(msg.ID, s.codeActions(uri, params.Context.Diagnostics))
}

// codeActions maps the diagnostics of a request to quick fixes.
// Diagnostics from other sources and those without a replacement are
// ignored, so each remaining record yields exactly one action.
func (s *Server) codeActions(uri string, diagnostics []lspDiagnostic) []codeAction {
	records := make([]diag.Record, 0, len(diagnostics))
	originals := make([]lspDiagnostic, 0, len(diagnostics))
	for _, d := range diagnostics {
		if d.Source != "" && d.Source != diagnosticSource {
			continue
		}
		rec := s.fromLSPDiagnostic(uri, d)
		if _, ok := rec.Replacement(); !ok {
			continue
		}
		records = append(records, rec)
		originals = append(originals, d)
	}

	actions := fix.Actions(uri, records, s.isOpen(uri))
	out := make([]codeAction, 0, len(actions))
	for i, action := range actions {
		ca := codeAction{
			Title:       action.Title,
			Kind:        action.Kind,
			Diagnostics: []lspDiagnostic{originals[i]},
		}
		if !action.Inert() {
			edits := make([]textEdit, 0, len(action.Edits))
			for _, e := range action.Edits {
				edits = append(edits, textEdit{Range: fromRange(e.Range), NewText: e.NewText})
			}
			ca.Edit = &workspaceEdit{Changes: map[string][]textEdit{uri: edits}}
		}
		out = append(out, ca)
	}
	return out
}
