package lsp

import (
	"runtime"
	"testing"
)

func TestURIRoundTrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}
	tests := []struct {
		uri  string
		path string
	}{
		{"file:///tmp/scripts/deploy.ps1", "/tmp/scripts/deploy.ps1"},
		{"file:///tmp/with%20space/a.ps1", "/tmp/with space/a.ps1"},
		{"file://localhost/tmp/a.ps1", "/tmp/a.ps1"},
	}
	for _, tt := range tests {
		if got := uriToPath(tt.uri); got != tt.path {
			t.Fatalf("uriToPath(%q) = %q, want %q", tt.uri, got, tt.path)
		}
	}
	if got := pathToURI("/tmp/with space/a.ps1"); got != "file:///tmp/with%20space/a.ps1" {
		t.Fatalf("unexpected uri %q", got)
	}
}

func TestURIOtherSchemes(t *testing.T) {
	if got := uriToPath("untitled:Untitled-1"); got != "" {
		t.Fatalf("expected no path for untitled, got %q", got)
	}
	if got := canonicalURI("untitled:Untitled-1"); got != "untitled:Untitled-1" {
		t.Fatalf("non-file uris must be kept, got %q", got)
	}
}

func TestHasDriveLetter(t *testing.T) {
	for path, want := range map[string]bool{
		"/c:/scripts": true,
		"/C:":         true,
		"/tmp/x":      false,
		"c:/scripts":  false,
		"/1:/scripts": false,
		"":            false,
	} {
		if got := hasDriveLetter(path); got != want {
			t.Fatalf("hasDriveLetter(%q) = %v, want %v", path, got, want)
		}
	}
}
