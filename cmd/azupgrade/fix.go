package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"azupgrade/internal/diag"
	"azupgrade/internal/fix"
	"azupgrade/internal/plan"
	"azupgrade/internal/pwsh"
)

var fixCmd = &cobra.Command{
	Use:   "fix [flags] <file.ps1>",
	Short: "Rename AzureRM commands to their Az equivalents in a script",
	Long:  "Compute the upgrade plan of a script and apply its automatic renames according to the chosen strategy.",
	Args:  cobra.ExactArgs(1),
	RunE:  runFix,
}

func init() {
	fixCmd.Flags().Bool("all", false, "apply all non-overlapping renames")
	fixCmd.Flags().Bool("once", false, "apply the first available rename (default)")
	fixCmd.Flags().String("id", "", "apply the rename with a specific identifier (RENAME-<line>-<column>)")
	fixCmd.Flags().Bool("dry-run", false, "report the renames without writing the file")
}

func runFix(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	applyAll, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}
	applyOnceFlag, err := cmd.Flags().GetBool("once")
	if err != nil {
		return err
	}
	targetID, err := cmd.Flags().GetString("id")
	if err != nil {
		return err
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}

	path, err := fixTarget(args[0])
	if err != nil {
		return err
	}
	if targetID != "" && (applyAll || applyOnceFlag) {
		return fmt.Errorf("--id cannot be combined with --all or --once")
	}
	if applyAll && applyOnceFlag {
		return fmt.Errorf("--all and --once are mutually exclusive")
	}

	mode := fix.ApplyModeOnce
	if targetID != "" {
		mode = fix.ApplyModeID
	} else if applyAll {
		mode = fix.ApplyModeAll
	}
	opts := fix.ApplyOptions{
		Mode:     mode,
		TargetID: targetID,
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logf := stderrLogger(cmd)
	session := newSession(cfg, logf)
	defer func() { _ = session.Stop() }()
	planner, err := newPlanner(cfg, session, logf)
	if err != nil {
		return err
	}

	raw, err := planner.GetUpgradePlan(cmd.Context(), pwsh.Request{
		FilePath:    path,
		FromVersion: cfg.Migration.From,
		ToVersion:   cfg.Migration.To,
	})
	if err != nil {
		return fmt.Errorf("fix: %w", err)
	}
	records, err := diag.MapPlans(raw)
	var dropped *plan.DroppedError
	if errors.As(err, &dropped) {
		logf("warning: %v", err)
		err = nil
	}
	if err != nil {
		return fmt.Errorf("fix: %w", err)
	}

	_, res, applyErr := fix.ApplyFile(path, records, opts, dryRun)
	return handleApplyResult(cmd.OutOrStdout(), path, res, applyErr, dryRun)
}

// fixTarget resolves the single script fix rewrites. Directories are
// rejected since fix edits one file per run.
func fixTarget(arg string) (string, error) {
	info, err := os.Stat(arg)
	if err != nil {
		return "", fmt.Errorf("fix: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("fix: %s is a directory; pass a single script", arg)
	}
	files, err := collectScripts([]string{arg})
	if err != nil {
		return "", fmt.Errorf("fix: %w", err)
	}
	if len(files) != 1 {
		return "", fmt.Errorf("fix: expected one script, got %d", len(files))
	}
	return files[0], nil
}

func handleApplyResult(out io.Writer, path string, res *fix.ApplyResult, applyErr error, dryRun bool) error {
	if res == nil {
		return applyErr
	}

	verb := "Applied"
	if dryRun {
		verb = "Would apply"
	}
	if len(res.Applied) > 0 {
		fmt.Fprintf(out, "%s %d fix(es) to %s:\n", verb, len(res.Applied), path)
		for _, item := range res.Applied {
			fmt.Fprintf(out, "  %s [%s] at %d:%d\n", item.Title, item.ID, item.Range.Start.Line+1, item.Range.Start.Character+1)
		}
	}

	if len(res.Skipped) > 0 {
		fmt.Fprintln(out, "Skipped fixes:")
		for _, skip := range res.Skipped {
			id := skip.ID
			if id == "" {
				id = "(unnamed)"
			}
			if skip.Title != "" {
				fmt.Fprintf(out, "  %s [%s]: %s\n", skip.Title, id, skip.Reason)
			} else {
				fmt.Fprintf(out, "  [%s]: %s\n", id, skip.Reason)
			}
		}
	}

	if applyErr != nil {
		if errors.Is(applyErr, fix.ErrNoFixes) && len(res.Applied) == 0 {
			fmt.Fprintln(out, "No applicable fixes found.")
			return nil
		}
		return applyErr
	}

	if len(res.Applied) == 0 {
		fmt.Fprintln(out, "No fixes applied.")
	}
	return nil
}
