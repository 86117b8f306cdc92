package repocontext

import (
	"path"
	"strings"
	"unicode/utf8"
)

// DefaultMaxFiles bounds how many files are fetched per repository.
const DefaultMaxFiles = 15

// MaxFileBytes is the per-file content cap applied after decoding.
const MaxFileBytes = 32 * 1024

const truncatedMarker = "\n[truncated]"

var allowedExtensions = map[string]bool{
	".md":   true,
	".js":   true,
	".ts":   true,
	".tsx":  true,
	".jsx":  true,
	".py":   true,
	".json": true,
	".go":   true,
	".rs":   true,
	".java": true,
	".rb":   true,
	".toml": true,
	".yaml": true,
	".yml":  true,
}

var manifestNames = map[string]bool{
	"package.json":     true,
	"go.mod":           true,
	"Cargo.toml":       true,
	"pyproject.toml":   true,
	"requirements.txt": true,
	"Dockerfile":       true,
	"Makefile":         true,
	"README":           true,
	"README.md":        true,
}

var lockFiles = map[string]bool{
	"package-lock.json":   true,
	"npm-shrinkwrap.json": true,
	"pnpm-lock.yaml":      true,
	"composer.lock":       true,
	"Pipfile.lock":        true,
	"deno.lock":           true,
}

var artifactDirs = []string{"node_modules/", "dist/", "build/", "vendor/", ".next/", "target/"}

// Eligible reports whether a tree path is worth sending as model context.
func Eligible(p string) bool {
	base := path.Base(p)
	if lockFiles[base] || strings.HasSuffix(base, ".min.js") {
		return false
	}
	for _, dir := range artifactDirs {
		if strings.HasPrefix(p, dir) || strings.Contains(p, "/"+dir) {
			return false
		}
	}
	if manifestNames[base] {
		return true
	}
	return allowedExtensions[strings.ToLower(path.Ext(base))]
}

// SelectFiles keeps eligible paths in tree order, at most max of them.
func SelectFiles(paths []string, max int) []string {
	selected := make([]string, 0, max)
	for _, p := range paths {
		if len(selected) >= max {
			break
		}
		if Eligible(p) {
			selected = append(selected, p)
		}
	}
	return selected
}

// Truncate cuts content to at most limit bytes on a rune boundary and marks the cut.
func Truncate(content string, limit int) (string, bool) {
	if len(content) <= limit {
		return content, false
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + truncatedMarker, true
}
