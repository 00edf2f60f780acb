package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"azupgrade/internal/cache"
	"azupgrade/internal/project"
	"azupgrade/internal/pwsh"
)

func addConfigFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("config", "", "path to azupgrade.toml (default: search upwards from the working directory)")
	flags.String("from", "", "AzureRM version the scripts target (default 6.13.1)")
	flags.String("to", "", "Az version to migrate to (default latest)")
	flags.String("pwsh", "", "PowerShell executable")
	flags.String("module", "", "migration module name")
	flags.Bool("auto-install", false, "install the migration module when it is missing")
	flags.Bool("cache", false, "cache upgrade plans on disk")
	flags.String("cache-dir", "", "plan cache directory")
}

// loadConfig resolves defaults, the manifest and the flag overrides, in
// that order.
func loadConfig(cmd *cobra.Command) (project.Config, error) {
	flags := cmd.Root().PersistentFlags()
	manifestPath, err := flags.GetString("config")
	if err != nil {
		return project.Config{}, err
	}

	var cfg project.Config
	if manifestPath != "" {
		cfg, err = project.LoadConfig(manifestPath)
	} else {
		var wd string
		wd, err = os.Getwd()
		if err != nil {
			return project.Config{}, err
		}
		cfg, _, err = project.Resolve(wd)
	}
	if err != nil {
		return project.Config{}, err
	}
	if err := applyConfigFlags(cmd, &cfg); err != nil {
		return project.Config{}, err
	}
	return cfg, nil
}

// applyConfigFlags overrides cfg with every flag set on the command line.
func applyConfigFlags(cmd *cobra.Command, cfg *project.Config) error {
	flags := cmd.Root().PersistentFlags()
	str := func(name string, dst *string) error {
		if !flags.Changed(name) {
			return nil
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		v = strings.TrimSpace(v)
		if v == "" {
			return fmt.Errorf("--%s must not be empty", name)
		}
		*dst = v
		return nil
	}
	boolean := func(name string, dst *bool) error {
		if !flags.Changed(name) {
			return nil
		}
		v, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}

	if err := str("from", &cfg.Migration.From); err != nil {
		return err
	}
	if err := str("to", &cfg.Migration.To); err != nil {
		return err
	}
	if err := str("pwsh", &cfg.PowerShell.Executable); err != nil {
		return err
	}
	if err := str("module", &cfg.PowerShell.Module); err != nil {
		return err
	}
	if err := boolean("auto-install", &cfg.PowerShell.AutoInstall); err != nil {
		return err
	}
	if err := boolean("cache", &cfg.Cache.Enabled); err != nil {
		return err
	}
	if err := str("cache-dir", &cfg.Cache.Dir); err != nil {
		return err
	}
	if flags.Changed("cache-dir") {
		cfg.Cache.Enabled = true
	}
	return nil
}

// newSession builds the PowerShell session described by cfg.
func newSession(cfg project.Config, logf func(string, ...any)) *pwsh.Session {
	opts := pwsh.DefaultOptions()
	opts.Executable = cfg.PowerShell.Executable
	opts.ModulePaths = cfg.PowerShell.ModulePaths
	opts.Logf = logf
	return pwsh.NewSession(opts)
}

// newPlanner wraps session with the plan cache when it is enabled.
func newPlanner(cfg project.Config, session *pwsh.Session, logf func(string, ...any)) (cache.Planner, error) {
	if !cfg.Cache.Enabled {
		return session, nil
	}
	dc, err := openCache(cfg)
	if err != nil {
		return nil, err
	}
	return &cache.CachedPlanner{Next: session, Cache: dc, Logf: logf}, nil
}

func openCache(cfg project.Config) (*cache.DiskCache, error) {
	dir := cfg.Cache.Dir
	if dir == "" {
		var err error
		dir, err = cache.DefaultDir("azupgrade")
		if err != nil {
			return nil, fmt.Errorf("plan cache: %w", err)
		}
	}
	dc, err := cache.Open(dir, cfg.Cache.MaxAge.Duration)
	if err != nil {
		return nil, fmt.Errorf("plan cache: %w", err)
	}
	return dc, nil
}

// stderrLogger returns a logf that writes to the command's stderr unless
// --quiet is set.
func stderrLogger(cmd *cobra.Command) func(string, ...any) {
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	w := cmd.ErrOrStderr()
	return func(format string, args ...any) {
		if quiet {
			return
		}
		fmt.Fprintf(w, format+"\n", args...)
	}
}

// colorEnabled resolves --color; auto also honours NO_COLOR.
func colorEnabled(cmd *cobra.Command) (bool, error) {
	value, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, err
	}
	mode, err := readMode("color", value)
	if err != nil {
		return false, err
	}
	if mode == uiModeAuto && os.Getenv("NO_COLOR") != "" {
		return false, nil
	}
	return mode.resolve(), nil
}
