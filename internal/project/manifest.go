// Package project loads azupgrade.toml and merges it with defaults.
package project

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultFromVersion = "6.13.1"
	DefaultToVersion   = "latest"
	DefaultExecutable  = "pwsh"
	DefaultModule      = "Az.Tools.Migration"
)

// Config is the effective configuration of a run.
type Config struct {
	Migration  MigrationConfig  `toml:"migration"`
	PowerShell PowerShellConfig `toml:"powershell"`
	Cache      CacheConfig      `toml:"cache"`
}

// MigrationConfig selects the version pair passed to the planner.
type MigrationConfig struct {
	From string `toml:"from"`
	To   string `toml:"to"`
}

// PowerShellConfig describes the interpreter and the migration module.
type PowerShellConfig struct {
	Executable  string   `toml:"executable"`
	Module      string   `toml:"module"`
	AutoInstall bool     `toml:"auto_install"`
	ModulePaths []string `toml:"module_paths"`
}

// CacheConfig controls the on-disk plan cache.
type CacheConfig struct {
	Enabled bool     `toml:"enabled"`
	Dir     string   `toml:"dir"`
	MaxAge  Duration `toml:"max_age"`
}

// Duration decodes TOML strings such as "24h".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Migration: MigrationConfig{From: DefaultFromVersion, To: DefaultToVersion},
		PowerShell: PowerShellConfig{
			Executable: DefaultExecutable,
			Module:     DefaultModule,
		},
	}
}

// Manifest is a loaded azupgrade.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// LoadConfig decodes path on top of Defaults. Relative directories in the
// file are resolved against the manifest's directory.
func LoadConfig(path string) (Config, error) {
	cfg := Defaults()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("migration", "from") && strings.TrimSpace(cfg.Migration.From) == "" {
		return Config{}, fmt.Errorf("%s: [migration].from must not be empty", path)
	}
	if meta.IsDefined("migration", "to") && strings.TrimSpace(cfg.Migration.To) == "" {
		return Config{}, fmt.Errorf("%s: [migration].to must not be empty", path)
	}
	if meta.IsDefined("powershell", "module") && strings.TrimSpace(cfg.PowerShell.Module) == "" {
		return Config{}, fmt.Errorf("%s: [powershell].module must not be empty", path)
	}
	if cfg.PowerShell.Executable == "" {
		cfg.PowerShell.Executable = DefaultExecutable
	}

	root := filepath.Dir(path)
	for i, dir := range cfg.PowerShell.ModulePaths {
		cfg.PowerShell.ModulePaths[i] = resolve(root, dir)
	}
	if cfg.Cache.Dir != "" {
		cfg.Cache.Dir = resolve(root, cfg.Cache.Dir)
	}
	return cfg, nil
}

func resolve(root, dir string) string {
	dir = filepath.FromSlash(dir)
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, dir)
}

// LoadManifest finds azupgrade.toml from startDir upwards and loads it.
// ok is false when no manifest exists.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, true, nil
}

// Resolve returns the manifest config for startDir, or Defaults when
// there is no manifest.
func Resolve(startDir string) (Config, string, error) {
	m, ok, err := LoadManifest(startDir)
	if err != nil {
		return Config{}, "", err
	}
	if !ok {
		return Defaults(), "", nil
	}
	return m.Config, m.Path, nil
}
