package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"azupgrade/internal/cache"
	"azupgrade/internal/diag"
	"azupgrade/internal/diagfmt"
	"azupgrade/internal/observ"
	"azupgrade/internal/plan"
	"azupgrade/internal/pwsh"
	"azupgrade/internal/trace"
	"azupgrade/internal/ui"
	"azupgrade/internal/version"
)

var planCmd = &cobra.Command{
	Use:   "plan [flags] <file.ps1|directory>...",
	Short: "Report AzureRM to Az breaking changes in PowerShell scripts",
	Long: `Run New-AzUpgradeModulePlan for every script and print the findings.
Directories are searched recursively for *.ps1 and *.psm1 files. The exit
status is 1 when a finding has Error severity or a script could not be analysed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().String("format", "pretty", "output format (pretty|json|sarif)")
	planCmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
	planCmd.Flags().Duration("timeout", 0, "give up waiting for a single plan after this long (0 waits forever)")
	planCmd.Flags().String("path-mode", "auto", "how to print paths (auto|absolute|relative|basename)")
	planCmd.Flags().Int("max", 0, "maximum number of diagnostics in json output (0 = no limit)")
	planCmd.Flags().Bool("fixes", true, "show suggested replacements")
	planCmd.Flags().Bool("no-context", false, "do not print the source line under each finding")
}

// errFindings is returned after the report was printed; main only needs
// the non-zero exit.
var errFindings = errors.New("breaking changes found")

// scriptExts are the file extensions analysed inside directories.
var scriptExts = map[string]bool{".ps1": true, ".psm1": true}

func runPlan(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format = strings.ToLower(format)
	switch format {
	case "pretty", "json", "sarif":
	default:
		return fmt.Errorf("unknown format %q (expected pretty|json|sarif)", format)
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return fmt.Errorf("failed to get timeout flag: %w", err)
	}
	pathModeStr, err := cmd.Flags().GetString("path-mode")
	if err != nil {
		return fmt.Errorf("failed to get path-mode flag: %w", err)
	}
	pathMode, ok := diagfmt.ParsePathMode(pathModeStr)
	if !ok {
		return fmt.Errorf("unknown path mode %q", pathModeStr)
	}
	maxDiagnostics, err := cmd.Flags().GetInt("max")
	if err != nil {
		return fmt.Errorf("failed to get max flag: %w", err)
	}
	showFixes, err := cmd.Flags().GetBool("fixes")
	if err != nil {
		return fmt.Errorf("failed to get fixes flag: %w", err)
	}
	noContext, err := cmd.Flags().GetBool("no-context")
	if err != nil {
		return fmt.Errorf("failed to get no-context flag: %w", err)
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	colored, err := colorEnabled(cmd)
	if err != nil {
		return err
	}

	files, err := collectScripts(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no PowerShell scripts found in %s", strings.Join(args, ", "))
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logf := stderrLogger(cmd)
	var timer *observ.Timer
	if showTimings {
		timer = observ.NewTimer()
	}

	session := newSession(cfg, logf)
	defer func() { _ = session.Stop() }()
	planner, err := newPlanner(cfg, session, logf)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	idx := timer.Begin("module")
	if !session.CheckModuleExist(cfg.PowerShell.Module) {
		if cfg.PowerShell.AutoInstall {
			if _, err := session.EnsureModule(ctx, cfg.PowerShell.Module, true); err != nil {
				logf("warning: %v", err)
			}
		} else {
			logf("warning: PowerShell module %s was not found; run `azupgrade module install` or pass --auto-install", cfg.PowerShell.Module)
		}
	}
	timer.End(idx, cfg.PowerShell.Module)

	a := &planAnalyzer{
		planner: planner,
		session: session,
		from:    cfg.Migration.From,
		to:      cfg.Migration.To,
		timeout: timeout,
		timer:   timer,
		files:   files,
		logf:    logf,
	}

	var reports []diagfmt.FileReport
	if format == "pretty" && !quiet && shouldUseTUI(mode) {
		reports, err = runPlanWithUI(ctx, "azupgrade plan", files, a.run)
		if err != nil {
			return err
		}
	} else {
		reports = a.run(ctx, nil)
	}

	baseDir, _ := os.Getwd()
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		err = diagfmt.JSON(out, reports, diagfmt.JSONOpts{
			PathMode:     pathMode,
			BaseDir:      baseDir,
			Max:          maxDiagnostics,
			IncludeFixes: showFixes,
		})
	case "sarif":
		err = diagfmt.Sarif(out, reports, diagfmt.SarifRunMeta{
			ToolName:       "azupgrade",
			ToolVersion:    version.Version,
			InvocationArgs: os.Args[1:],
			BaseDir:        baseDir,
		})
	default:
		diagfmt.Pretty(out, reports, diagfmt.PrettyOpts{
			Color:     colored,
			Context:   !noContext,
			PathMode:  pathMode,
			BaseDir:   baseDir,
			ShowFixes: showFixes,
		})
		if !quiet {
			diagfmt.Summary(out, reports, colored)
		}
	}
	if err != nil {
		return err
	}

	if timer != nil {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}

	if planFailed(reports) {
		cmd.SilenceErrors = true
		return errFindings
	}
	return nil
}

// planFailed reports whether any file failed or has an Error finding.
func planFailed(reports []diagfmt.FileReport) bool {
	for _, rep := range reports {
		if rep.Err != nil || diag.HasErrors(rep.Records) {
			return true
		}
	}
	return false
}

type planAnalyzer struct {
	planner cache.Planner
	session *pwsh.Session
	from    string
	to      string
	timeout time.Duration
	timer   *observ.Timer
	files   []string
	logf    func(format string, args ...any)
}

// run analyses every file in order on the single session. emit may be nil.
func (a *planAnalyzer) run(ctx context.Context, emit func(ui.Event)) []diagfmt.FileReport {
	if emit == nil {
		emit = func(ui.Event) {}
	}
	reports := make([]diagfmt.FileReport, 0, len(a.files))
	for _, file := range a.files {
		reports = append(reports, a.analyse(ctx, file, emit))
	}
	return reports
}

func (a *planAnalyzer) analyse(ctx context.Context, file string, emit func(ui.Event)) diagfmt.FileReport {
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeRequest, "plan.file", trace.CurrentSpan(ctx))
	span.WithExtra("file", file)
	defer span.End("")
	ctx = trace.WithSpan(ctx, span)

	idx := a.timer.Begin("plan " + filepath.Base(file))
	defer a.timer.End(idx, "")

	report := diagfmt.FileReport{Path: file}
	if data, err := os.ReadFile(file); err == nil {
		report.Text = string(data)
	}

	stage := ui.StagePlan
	if a.session != nil && a.session.State() == pwsh.StateUninitialized {
		stage = ui.StageSession
	}
	emit(ui.Event{File: file, Stage: stage, Status: ui.StatusWorking})

	planCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		planCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	raw, err := a.planner.GetUpgradePlan(planCtx, pwsh.Request{
		FilePath:    file,
		FromVersion: a.from,
		ToVersion:   a.to,
	})
	if err == nil {
		emit(ui.Event{File: file, Stage: ui.StageMap, Status: ui.StatusWorking})
		report.Records, err = diag.MapPlans(raw)
		var dropped *plan.DroppedError
		if errors.As(err, &dropped) {
			a.logf("warning: %s: %v", file, err)
			err = nil
		}
	}
	if err != nil {
		trace.Error(trace.FromContext(ctx), trace.ScopeRequest, "plan.file", err)
		report.Err = err
		report.Records = nil
		emit(ui.Event{File: file, Stage: ui.StageMap, Status: ui.StatusError})
		return report
	}
	emit(ui.Event{File: file, Stage: ui.StageMap, Status: ui.StatusDone, Findings: len(report.Records)})
	return report
}

// collectScripts expands directories into their scripts. Explicit file
// arguments are kept whatever their extension. The result is sorted and
// free of duplicates.
func collectScripts(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("plan: %w", err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if scriptExts[strings.ToLower(filepath.Ext(path))] {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("plan: %w", err)
		}
	}
	sort.Strings(files)
	return files, nil
}
