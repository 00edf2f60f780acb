package pwsh

import (
	"os"
	"path/filepath"
	"strings"
)

// SearchPaths lists the directories PowerShell loads modules from on
// goos: the PSModulePath entries followed by the default user and system
// directories. Duplicates and empty entries are dropped.
func SearchPaths(goos, psModulePath, home string) ([]string, error) {
	var sep string
	var defaults []string
	switch goos {
	case "windows":
		sep = ";"
		if home != "" {
			defaults = append(defaults, home+`\Documents\PowerShell\Modules`)
		}
	case "linux", "darwin", "freebsd", "openbsd", "netbsd":
		sep = ":"
		if home != "" {
			defaults = append(defaults, home+"/.local/share/powershell/Modules")
		}
		defaults = append(defaults, "/usr/local/share/powershell/Modules")
	default:
		return nil, ErrUnsupportedPlatform
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(dir string) {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			return
		}
		if _, ok := seen[dir]; ok {
			return
		}
		seen[dir] = struct{}{}
		out = append(out, dir)
	}
	for _, dir := range strings.Split(psModulePath, sep) {
		add(dir)
	}
	for _, dir := range defaults {
		add(dir)
	}
	return out, nil
}

// moduleInstalled reports whether any dir has an entry named name.
func moduleInstalled(dirs []string, name string) bool {
	if name == "" {
		return false
	}
	for _, dir := range dirs {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}
