package repocontext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEligible(t *testing.T) {
	for _, p := range []string{
		"README.md", "README", "package.json", "go.mod", "Dockerfile", "Makefile",
		"src/app.tsx", "lib/util.py", "cmd/main.go", "config/app.YML", "Cargo.toml",
	} {
		assert.True(t, Eligible(p), p)
	}
	for _, p := range []string{
		"package-lock.json", "web/pnpm-lock.yaml", "logo.png", "yarn.lock", "go.sum",
		"node_modules/react/index.js", "web/node_modules/x/y.js", "dist/bundle.js",
		"static/jquery.min.js", "vendor/github.com/x/y.go",
	} {
		assert.False(t, Eligible(p), p)
	}
}

func TestSelectFiles(t *testing.T) {
	paths := []string{"a.png", "a.md", "b.lock", "b.go", "c.py", "d.rs"}
	assert.Equal(t, []string{"a.md", "b.go"}, SelectFiles(paths, 2))
	assert.Equal(t, []string{"a.md", "b.go", "c.py", "d.rs"}, SelectFiles(paths, 15))
	assert.Empty(t, SelectFiles(nil, 15))
}

func TestTruncate(t *testing.T) {
	out, cut := Truncate("short", 10)
	assert.False(t, cut)
	assert.Equal(t, "short", out)

	out, cut = Truncate(strings.Repeat("x", 20), 10)
	assert.True(t, cut)
	assert.Equal(t, strings.Repeat("x", 10)+truncatedMarker, out)

	// "€" is three bytes; a cut inside it backs off to the rune start.
	out, cut = Truncate("ab€cd", 4)
	assert.True(t, cut)
	assert.Equal(t, "ab"+truncatedMarker, out)
}

func TestParseSlug(t *testing.T) {
	s, err := ParseSlug(" octocat/Hello-World ")
	require.NoError(t, err)
	assert.Equal(t, Slug{Owner: "octocat", Name: "Hello-World"}, s)
	assert.Equal(t, "octocat/Hello-World", s.String())

	for _, bad := range []string{"", "octocat", "octocat/", "/repo", "a/b/c", "../etc", "oc tocat/x", "a/.."} {
		_, err := ParseSlug(bad)
		assert.ErrorIs(t, err, ErrInvalidSlug, bad)
	}
}

func TestParseRepoURL(t *testing.T) {
	for _, raw := range []string{
		"https://github.com/octocat/Hello-World",
		"https://github.com/octocat/Hello-World/",
		"https://www.github.com/octocat/Hello-World.git",
		"github.com/octocat/Hello-World",
	} {
		s, err := ParseRepoURL(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, Slug{Owner: "octocat", Name: "Hello-World"}, s)
	}

	for _, bad := range []string{"https://gitlab.com/a/b", "https://github.com/octocat", "https://github.com/a/b/tree/main", "not a url"} {
		_, err := ParseRepoURL(bad)
		assert.ErrorIs(t, err, ErrInvalidSlug, bad)
	}
}
