package lsp

import (
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

// uriToPath converts a file URI to a local path. Other schemes yield "".
// Windows URIs such as file:///c%3A/x.ps1 keep their drive letter.
func uriToPath(uri string) string {
	if uri == "" {
		return ""
	}
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	var path string
	switch u.Scheme {
	case "file":
		path = u.Path
		if u.Host != "" && u.Host != "localhost" {
			path = "//" + u.Host + path
		}
	case "":
		path = uri
	default:
		return ""
	}
	if hasDriveLetter(path) {
		path = path[1:]
	}
	path = filepath.FromSlash(path)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path
}

// pathToURI converts a local path to a file URI.
func pathToURI(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	slashed := filepath.ToSlash(path)
	if runtime.GOOS == "windows" && !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	u := url.URL{Scheme: "file", Path: slashed}
	return u.String()
}

// hasDriveLetter matches "/C:" prefixes.
func hasDriveLetter(path string) bool {
	if len(path) < 3 || path[0] != '/' || path[2] != ':' {
		return false
	}
	c := path[1]
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// canonicalURI normalizes file URIs so the same document always maps to
// the same key. Other schemes are returned unchanged.
func canonicalURI(uri string) string {
	if uri == "" {
		return ""
	}
	path := uriToPath(uri)
	if path == "" {
		return uri
	}
	return pathToURI(path)
}
