package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"azupgrade/internal/diag"
	"azupgrade/internal/diagfmt"
	"azupgrade/internal/fix"
	"azupgrade/internal/project"
)

func newFlagRoot(t *testing.T) *cobra.Command {
	t.Helper()
	root := &cobra.Command{Use: "azupgrade"}
	root.PersistentFlags().Bool("quiet", false, "")
	root.PersistentFlags().String("color", "auto", "")
	addConfigFlags(root)
	return root
}

func TestApplyConfigFlagsOverridesManifest(t *testing.T) {
	root := newFlagRoot(t)
	for name, value := range map[string]string{
		"from":      "5.0.0",
		"to":        "10.2.0",
		"pwsh":      "/opt/pwsh/pwsh",
		"cache-dir": "/tmp/plans",
	} {
		if err := root.PersistentFlags().Set(name, value); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}
	cfg := project.Defaults()
	cfg.Migration.From = "6.0.0"
	cfg.PowerShell.Module = "Custom.Migration"

	if err := applyConfigFlags(root, &cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.Migration.From != "5.0.0" || cfg.Migration.To != "10.2.0" {
		t.Fatalf("unexpected versions: %+v", cfg.Migration)
	}
	if cfg.PowerShell.Executable != "/opt/pwsh/pwsh" {
		t.Fatalf("unexpected executable %q", cfg.PowerShell.Executable)
	}
	if cfg.PowerShell.Module != "Custom.Migration" {
		t.Fatalf("unset flag must keep manifest value, got %q", cfg.PowerShell.Module)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Dir != "/tmp/plans" {
		t.Fatalf("unexpected cache config: %+v", cfg.Cache)
	}
}

func TestApplyConfigFlagsRejectsEmpty(t *testing.T) {
	root := newFlagRoot(t)
	if err := root.PersistentFlags().Set("to", "  "); err != nil {
		t.Fatalf("set: %v", err)
	}
	cfg := project.Defaults()
	if err := applyConfigFlags(root, &cfg); err == nil {
		t.Fatalf("expected error for empty --to")
	}
}

func TestLoadConfigFromExplicitManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "azupgrade.toml")
	data := `[migration]
from = "6.13.1"
to = "11.0.0"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	root := newFlagRoot(t)
	if err := root.PersistentFlags().Set("config", path); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := root.PersistentFlags().Set("from", "5.7.0"); err != nil {
		t.Fatalf("set: %v", err)
	}
	cfg, err := loadConfig(root)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Migration.From != "5.7.0" || cfg.Migration.To != "11.0.0" {
		t.Fatalf("unexpected migration config: %+v", cfg.Migration)
	}
}

func TestCollectScripts(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.ps1":            "Get-AzureRmVM",
		"lib/b.psm1":       "Get-AzureRmVM",
		"lib/readme.md":    "docs",
		".git/hooks/c.ps1": "hidden",
		"C.PS1":            "upper",
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	got, err := collectScripts([]string{dir, filepath.Join(dir, "a.ps1")})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	want := []string{
		filepath.Join(dir, "C.PS1"),
		filepath.Join(dir, "a.ps1"),
		filepath.Join(dir, "lib", "b.psm1"),
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected files:\n got %v\nwant %v", got, want)
	}
	if _, err := collectScripts([]string{filepath.Join(dir, "missing.ps1")}); err == nil {
		t.Fatalf("expected error for missing path")
	}
}

func TestFixTargetNeedsOneScript(t *testing.T) {
	empty := t.TempDir()
	withScripts := t.TempDir()
	script := filepath.Join(withScripts, "a.ps1")
	for _, name := range []string{"a.ps1", "b.ps1"} {
		if err := os.WriteFile(filepath.Join(withScripts, name), []byte("Get-AzureRmVM"), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	for _, arg := range []string{empty, withScripts, filepath.Join(empty, "missing.ps1")} {
		if _, err := fixTarget(arg); err == nil {
			t.Fatalf("fixTarget(%s): expected an error", arg)
		}
		if err := runFix(fixCmd, []string{arg}); err == nil {
			t.Fatalf("runFix(%s): expected an error", arg)
		}
	}

	got, err := fixTarget(script)
	if err != nil {
		t.Fatalf("fixTarget: %v", err)
	}
	if got != script {
		t.Fatalf("expected %s, got %s", script, got)
	}
}

func TestPlanFailed(t *testing.T) {
	warn := diagfmt.FileReport{Path: "a.ps1", Records: []diag.Record{{Severity: diag.SevWarning}}}
	breaking := diagfmt.FileReport{Path: "b.ps1", Records: []diag.Record{{Severity: diag.SevError}}}
	failed := diagfmt.FileReport{Path: "c.ps1", Err: errors.New("pwsh exited")}

	if planFailed([]diagfmt.FileReport{warn}) {
		t.Fatalf("warnings alone must not fail")
	}
	if !planFailed([]diagfmt.FileReport{warn, breaking}) {
		t.Fatalf("error findings must fail")
	}
	if !planFailed([]diagfmt.FileReport{failed}) {
		t.Fatalf("failed files must fail")
	}
}

func TestReadUIMode(t *testing.T) {
	for value, want := range map[string]uiMode{"": uiModeAuto, "AUTO": uiModeAuto, "on": uiModeOn, " off ": uiModeOff} {
		got, err := readUIMode(value)
		if err != nil || got != want {
			t.Fatalf("readUIMode(%q) = %q, %v", value, got, err)
		}
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Fatalf("expected error for invalid mode")
	}
	if !shouldUseTUI(uiModeOn) || shouldUseTUI(uiModeOff) {
		t.Fatalf("explicit modes must win")
	}
}

func TestHandleApplyResult(t *testing.T) {
	var out bytes.Buffer
	res := &fix.ApplyResult{
		Applied: []fix.AppliedFix{{
			ID:    "RENAME-3-1",
			Title: "Auto fix to Get-AzVM",
			Range: diag.Range{Start: diag.Position{Line: 2, Character: 0}},
		}},
		Skipped: []fix.SkippedFix{{ID: "RENAME-3-5", Title: "Auto fix to Get-AzDisk", Reason: "overlaps RENAME-3-1"}},
	}
	if err := handleApplyResult(&out, "script.ps1", res, nil, true); err != nil {
		t.Fatalf("handleApplyResult: %v", err)
	}
	got := out.String()
	for _, want := range []string{
		"Would apply 1 fix(es) to script.ps1:",
		"Auto fix to Get-AzVM [RENAME-3-1] at 3:1",
		"Auto fix to Get-AzDisk [RENAME-3-5]: overlaps RENAME-3-1",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in output:\n%s", want, got)
		}
	}

	out.Reset()
	empty := &fix.ApplyResult{}
	if err := handleApplyResult(&out, "script.ps1", empty, fix.ErrNoFixes, false); err != nil {
		t.Fatalf("ErrNoFixes must not fail: %v", err)
	}
	if !strings.Contains(out.String(), "No applicable fixes found.") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestRenderVersionJSON(t *testing.T) {
	var out bytes.Buffer
	info := versionInfo{Version: "1.2.3", GitCommit: "abc123"}
	if err := renderVersionJSON(&out, info, versionOptions{format: "json", showHash: true, showDate: true}); err != nil {
		t.Fatalf("render: %v", err)
	}
	var payload versionPayload
	if err := json.Unmarshal(out.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Tool != "azupgrade" || payload.Version != "1.2.3" || payload.GitCommit != "abc123" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.BuildDate != "unknown" || payload.GitMessage != "" {
		t.Fatalf("unexpected optional fields: %+v", payload)
	}
}
