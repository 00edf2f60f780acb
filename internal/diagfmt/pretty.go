package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"azupgrade/internal/diag"
)

type palette struct {
	path, err, warn, info, hint, code, caret, fix *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		path:  color.New(color.Bold),
		err:   color.New(color.FgRed, color.Bold),
		warn:  color.New(color.FgYellow, color.Bold),
		info:  color.New(color.FgCyan, color.Bold),
		hint:  color.New(color.FgWhite),
		code:  color.New(color.Faint),
		caret: color.New(color.FgGreen, color.Bold),
		fix:   color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{p.path, p.err, p.warn, p.info, p.hint, p.code, p.caret, p.fix} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	case diag.SevInformation:
		return p.info
	default:
		return p.hint
	}
}

// Pretty prints one block per diagnostic:
//
//	<path>:<line>:<col>: <SEV> <CODE>: <Message>
//
// followed, when enabled, by the source line with a ^~~~ underline and
// the suggested replacement.
func Pretty(w io.Writer, reports []FileReport, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for _, rep := range reports {
		path := formatPath(rep.Path, opts.PathMode, opts.BaseDir)
		if rep.Err != nil {
			fmt.Fprintf(w, "%s: %s %v\n", p.path.Sprint(path), p.err.Sprint("ERROR"), rep.Err)
			continue
		}
		lines := strings.Split(rep.Text, "\n")
		records := rep.Records
		if opts.MinSeverity != 0 {
			records = diag.Filter(records, opts.MinSeverity)
		}
		for _, rec := range records {
			fmt.Fprintf(w, "%s:%d:%d: %s %s: %s\n",
				p.path.Sprint(path),
				rec.Range.Start.Line+1, rec.Range.Start.Character+1,
				p.severity(rec.Severity).Sprint(rec.Severity.String()),
				p.code.Sprint(rec.Code.ID()),
				rec.Message)
			if opts.Context && rep.Text != "" && rec.Range.Start.Line < len(lines) {
				writeContext(w, p, lines[rec.Range.Start.Line], rec.Range)
			}
			if opts.ShowFixes {
				if replacement, ok := rec.Replacement(); ok {
					fmt.Fprintf(w, "  %s %s\n", p.fix.Sprint("fix:"), "replace with "+replacement)
				}
			}
		}
	}
}

// writeContext prints line and underlines the part covered by rng.
// Columns are UTF-16 units; the underline is measured in display cells.
func writeContext(w io.Writer, p palette, line string, rng diag.Range) {
	line = strings.TrimRight(line, "\r")
	start := utf16Prefix(line, rng.Start.Character)
	end := len(line)
	if rng.End.Line == rng.Start.Line {
		end = utf16Prefix(line, rng.End.Character)
	}
	if end < start {
		end = start
	}
	pad := runewidth.StringWidth(line[:start])
	width := runewidth.StringWidth(line[start:end])
	if width == 0 {
		width = 1
	}
	fmt.Fprintf(w, "  %s\n", line)
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", pad), p.caret.Sprint("^"+strings.Repeat("~", width-1)))
}

// utf16Prefix returns the byte length of the first n UTF-16 units of s.
func utf16Prefix(s string, n int) int {
	units := 0
	for i, r := range s {
		if units >= n {
			return i
		}
		units++
		if r > 0xFFFF {
			units++
		}
	}
	return len(s)
}

// Summary prints "N errors, N warnings, N infos in N files".
func Summary(w io.Writer, reports []FileReport, colored bool) {
	p := newPalette(colored)
	var counts diag.Counts
	failed := 0
	for _, rep := range reports {
		if rep.Err != nil {
			failed++
			continue
		}
		c := diag.Count(rep.Records)
		counts.Errors += c.Errors
		counts.Warnings += c.Warnings
		counts.Informations += c.Informations
		counts.Hints += c.Hints
	}
	fmt.Fprintf(w, "%s, %s, %s in %d files",
		p.err.Sprint(plural(counts.Errors, "error")),
		p.warn.Sprint(plural(counts.Warnings, "warning")),
		p.info.Sprint(plural(counts.Informations, "info")),
		len(reports))
	if failed > 0 {
		fmt.Fprintf(w, " (%d failed)", failed)
	}
	fmt.Fprintln(w)
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
