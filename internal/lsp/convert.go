package lsp

import (
	"encoding/json"

	"fortio.org/safecast"

	"azupgrade/internal/diag"
)

// diagnosticSource tags every published diagnostic.
const diagnosticSource = "azupgrade"

func toLSPDiagnostic(rec diag.Record) lspDiagnostic {
	code, _ := json.Marshal(rec.Code.ID())
	d := lspDiagnostic{
		Range:    fromRange(rec.Range),
		Severity: int(rec.Severity),
		Code:     code,
		Source:   diagnosticSource,
		Message:  rec.Message,
	}
	if replacement, ok := rec.Replacement(); ok {
		d.Data = &diagnosticData{Replacement: replacement}
	}
	return d
}

func toLSPDiagnostics(records []diag.Record) []lspDiagnostic {
	out := make([]lspDiagnostic, 0, len(records))
	for _, rec := range records {
		out = append(out, toLSPDiagnostic(rec))
	}
	return out
}

// diagnosticCode reads the code whether the client sent it as a string or
// a number.
func diagnosticCode(raw json.RawMessage) diag.Code {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return diag.Code(s)
	}
	return diag.Code(string(raw))
}

// fromLSPDiagnostic rebuilds a record from a diagnostic echoed back by the
// client. The replacement comes from data when the client preserved it,
// otherwise from the published set.
func (s *Server) fromLSPDiagnostic(uri string, d lspDiagnostic) diag.Record {
	rec := diag.Record{
		Range:   toRange(d.Range),
		Message: d.Message,
		Code:    diagnosticCode(d.Code),
	}
	if sev, err := safecast.Conv[uint8](d.Severity); err == nil {
		rec.Severity = diag.Severity(sev)
	}
	if d.Data != nil && d.Data.Replacement != "" {
		rec.Annotation = d.Data.Replacement
		return rec
	}
	if published, ok := s.diags.Lookup(uri, rec.Range, rec.Code); ok {
		rec.Annotation = published.Annotation
	}
	return rec
}
