package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"azupgrade/internal/pwsh"
)

var moduleCmd = &cobra.Command{
	Use:   "module",
	Short: "Inspect or install the Az.Tools.Migration PowerShell module",
}

var moduleCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether the migration module is installed",
	Args:  cobra.NoArgs,
	RunE:  runModuleCheck,
}

var moduleInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the migration module from PSGallery for the current user",
	Args:  cobra.NoArgs,
	RunE:  runModuleInstall,
}

var moduleEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Install the migration module unless it is already present",
	Args:  cobra.NoArgs,
	RunE:  runModuleEnsure,
}

var modulePathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "List the directories searched for PowerShell modules",
	Args:  cobra.NoArgs,
	RunE:  runModulePaths,
}

func init() {
	moduleCmd.AddCommand(moduleCheckCmd)
	moduleCmd.AddCommand(moduleInstallCmd)
	moduleCmd.AddCommand(moduleEnsureCmd)
	moduleCmd.AddCommand(modulePathsCmd)
}

var errModuleMissing = errors.New("module not installed")

func runModuleCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	session := newSession(cfg, stderrLogger(cmd))
	name := cfg.PowerShell.Module
	if session.CheckModuleExist(name) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: installed\n", name)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: not installed\n", name)
	cmd.SilenceErrors = true
	return errModuleMissing
}

func runModuleInstall(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	session := newSession(cfg, stderrLogger(cmd))
	defer func() { _ = session.Stop() }()
	if err := session.InstallModule(cmd.Context(), cfg.PowerShell.Module); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: installed\n", cfg.PowerShell.Module)
	return nil
}

func runModuleEnsure(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	session := newSession(cfg, stderrLogger(cmd))
	defer func() { _ = session.Stop() }()
	ok, err := session.EnsureModule(cmd.Context(), cfg.PowerShell.Module, true)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: install finished but the module was not found in any search path", cfg.PowerShell.Module)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: installed\n", cfg.PowerShell.Module)
	return nil
}

func runModulePaths(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	session := newSession(cfg, stderrLogger(cmd))
	dirs, err := session.ModuleSearchPaths()
	for _, dir := range dirs {
		fmt.Fprintln(cmd.OutOrStdout(), dir)
	}
	if errors.Is(err, pwsh.ErrUnsupportedPlatform) {
		stderrLogger(cmd)("warning: %v", err)
		return nil
	}
	return err
}
