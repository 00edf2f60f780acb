package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"azupgrade/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "azupgrade",
	Short: "AzureRM to Az breaking-change diagnostics for PowerShell scripts",
	Long: `azupgrade runs New-AzUpgradeModulePlan from Az.Tools.Migration in a long-lived
PowerShell session and reports the result as diagnostics, either to an editor
over the Language Server Protocol or on the command line.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		stopProfiles, err := setupProfiling(cmd)
		if err != nil {
			return err
		}
		cleanup, err := setupTracing(cmd)
		if err != nil {
			stopProfiles()
			return err
		}
		traceCleanup = func() {
			cleanup()
			stopProfiles()
		}
		return nil
	},
}

// traceCleanup flushes the tracer and stops the profilers installed by
// PersistentPreRunE.
// It runs after Execute so failed commands flush too.
var traceCleanup = func() {}

// main registers the subcommands and global flags, then executes the root
// command. Any error exits with status 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(lspCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(moduleCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	addConfigFlags(rootCmd)
	addTraceFlags(rootCmd)
	addProfileFlags(rootCmd)

	err := rootCmd.Execute()
	traceCleanup()
	if err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
