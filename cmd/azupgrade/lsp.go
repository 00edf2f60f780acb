package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"azupgrade/internal/lsp"
	"azupgrade/internal/project"
	"azupgrade/internal/version"
)

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Run the azupgrade language server over stdio",
	Long: `Serve diagnostics and quick fixes to an editor over stdio. Scripts are
analysed when they are opened or saved; the PowerShell session is started on
the first analysis and stopped on shutdown.`,
	SilenceUsage: true,
	RunE:         runLSP,
}

// workspaceSettings reads azupgrade.toml from the client's workspace. An
// explicit --config wins over it.
func workspaceSettings(cmd *cobra.Command) func(string, lsp.Settings) (lsp.Settings, error) {
	return func(root string, base lsp.Settings) (lsp.Settings, error) {
		if explicit, _ := cmd.Root().PersistentFlags().GetString("config"); explicit != "" {
			return base, nil
		}
		m, ok, err := project.LoadManifest(root)
		if err != nil || !ok {
			return base, err
		}
		base.FromVersion = m.Config.Migration.From
		base.ToVersion = m.Config.Migration.To
		return base, nil
	}
}

// pinnedSettings returns the versions given on the command line.
func pinnedSettings(cmd *cobra.Command) lsp.Settings {
	var pinned lsp.Settings
	flags := cmd.Root().PersistentFlags()
	if flags.Changed("from") {
		v, _ := flags.GetString("from")
		pinned.FromVersion = strings.TrimSpace(v)
	}
	if flags.Changed("to") {
		v, _ := flags.GetString("to")
		pinned.ToVersion = strings.TrimSpace(v)
	}
	return pinned
}

func runLSP(cmd *cobra.Command, _ []string) error {
	defer dumpTraceOnPanic()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logf := stderrLogger(cmd)
	session := newSession(cfg, logf)
	planner, err := newPlanner(cfg, session, logf)
	if err != nil {
		return err
	}

	server := lsp.NewServer(os.Stdin, os.Stdout, lsp.ServerOptions{
		Analyzer:    planner,
		Session:     session,
		Modules:     session,
		Module:      cfg.PowerShell.Module,
		AutoInstall: cfg.PowerShell.AutoInstall,
		Settings: lsp.Settings{
			FromVersion: cfg.Migration.From,
			ToVersion:   cfg.Migration.To,
		},
		WorkspaceSettings: workspaceSettings(cmd),
		Pinned:            pinnedSettings(cmd),
		Version:           version.Version,
		Log:               cmd.ErrOrStderr(),
	})
	// The session outlives Run when the client never sent shutdown.
	defer func() { _ = session.Stop() }()

	if err := server.Run(cmd.Context()); err != nil {
		if errors.Is(err, lsp.ErrExit) {
			return nil
		}
		if errors.Is(err, lsp.ErrExitWithoutShutdown) {
			return fmt.Errorf("lsp exit without shutdown")
		}
		return err
	}
	return nil
}
