package diagfmt

import (
	"encoding/json"
	"fmt"
	"io"

	"fortio.org/safecast"

	"azupgrade/internal/diag"
)

// LocationJSON is a 1-based location.
type LocationJSON struct {
	File      string `json:"file"`
	StartLine uint32 `json:"start_line"`
	StartCol  uint32 `json:"start_col"`
	EndLine   uint32 `json:"end_line"`
	EndCol    uint32 `json:"end_col"`
}

// FixJSON describes the quick fix of a diagnostic.
type FixJSON struct {
	Title   string `json:"title"`
	NewText string `json:"new_text"`
}

// DiagnosticJSON is one diagnostic.
type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Fix      *FixJSON     `json:"fix,omitempty"`
}

// FileErrorJSON records a file whose analysis failed.
type FileErrorJSON struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// DiagnosticsOutput is the root of the JSON document.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Errors      []FileErrorJSON  `json:"errors,omitempty"`
	Count       int              `json:"count"`
}

func oneBased(n int) (uint32, error) {
	return safecast.Conv[uint32](n + 1)
}

func makeLocation(path string, rng diag.Range) (LocationJSON, error) {
	loc := LocationJSON{File: path}
	var err error
	if loc.StartLine, err = oneBased(rng.Start.Line); err != nil {
		return loc, err
	}
	if loc.StartCol, err = oneBased(rng.Start.Character); err != nil {
		return loc, err
	}
	if loc.EndLine, err = oneBased(rng.End.Line); err != nil {
		return loc, err
	}
	if loc.EndCol, err = oneBased(rng.End.Character); err != nil {
		return loc, err
	}
	return loc, nil
}

// BuildDiagnosticsOutput builds the JSON document without serializing it.
func BuildDiagnosticsOutput(reports []FileReport, opts JSONOpts) (DiagnosticsOutput, error) {
	out := DiagnosticsOutput{Diagnostics: make([]DiagnosticJSON, 0)}
	for _, rep := range reports {
		path := formatPath(rep.Path, opts.PathMode, opts.BaseDir)
		if rep.Err != nil {
			out.Errors = append(out.Errors, FileErrorJSON{File: path, Error: rep.Err.Error()})
			continue
		}
		for _, rec := range rep.Records {
			if opts.Max > 0 && len(out.Diagnostics) >= opts.Max {
				break
			}
			loc, err := makeLocation(path, rec.Range)
			if err != nil {
				return out, fmt.Errorf("%s: %w", path, err)
			}
			d := DiagnosticJSON{
				Severity: rec.Severity.String(),
				Code:     rec.Code.ID(),
				Message:  rec.Message,
				Location: loc,
			}
			if opts.IncludeFixes {
				if replacement, ok := rec.Replacement(); ok {
					d.Fix = &FixJSON{Title: "Auto fix to " + replacement, NewText: replacement}
				}
			}
			out.Diagnostics = append(out.Diagnostics, d)
		}
	}
	out.Count = len(out.Diagnostics)
	return out, nil
}

// JSON writes the diagnostics of reports as an indented JSON document.
func JSON(w io.Writer, reports []FileReport, opts JSONOpts) error {
	out, err := BuildDiagnosticsOutput(reports, opts)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
