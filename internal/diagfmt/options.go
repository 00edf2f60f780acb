// Package diagfmt renders analysis results for the terminal and for
// machine consumers (JSON, SARIF).
package diagfmt

import (
	"path/filepath"

	"azupgrade/internal/diag"
)

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto uses a relative path when it does not climb out of BaseDir.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always uses absolute paths.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// ParsePathMode maps a flag value to a PathMode.
func ParsePathMode(s string) (PathMode, bool) {
	switch s {
	case "auto", "":
		return PathModeAuto, true
	case "absolute":
		return PathModeAbsolute, true
	case "relative":
		return PathModeRelative, true
	case "basename":
		return PathModeBasename, true
	}
	return PathModeAuto, false
}

// FileReport is the outcome of analysing one file.
// Text is optional and only used for source context.
type FileReport struct {
	Path    string
	Text    string
	Records []diag.Record
	Err     error
}

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color       bool
	Context     bool // print the source line with an underline
	PathMode    PathMode
	BaseDir     string
	ShowFixes   bool
	MinSeverity diag.Severity // zero shows everything
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	PathMode     PathMode
	BaseDir      string
	Max          int // truncate output, 0 means no limit
	IncludeFixes bool
}

// SarifRunMeta provides metadata for SARIF output.
type SarifRunMeta struct {
	ToolName       string
	ToolVersion    string
	InvocationArgs []string
	BaseDir        string
}

func formatPath(path string, mode PathMode, baseDir string) string {
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	case PathModeBasename:
		return filepath.Base(path)
	case PathModeRelative, PathModeAuto:
		if baseDir == "" {
			return path
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return path
		}
		rel, err := filepath.Rel(baseDir, abs)
		if err != nil {
			return path
		}
		if mode == PathModeAuto && (rel == ".." || len(rel) > 3 && rel[:3] == ".."+string(filepath.Separator)) {
			return abs
		}
		return rel
	}
	return path
}
