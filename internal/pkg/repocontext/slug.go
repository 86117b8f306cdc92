package repocontext

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Slug is a parsed "owner/repo" reference.
type Slug struct {
	Owner string
	Name  string
}

func (s Slug) String() string {
	return s.Owner + "/" + s.Name
}

// ParseSlug validates an "owner/repo" reference.
func ParseSlug(raw string) (Slug, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, "/")
	if len(parts) != 2 || !validName(parts[0]) || !validName(parts[1]) {
		return Slug{}, fmt.Errorf("%w: %q", ErrInvalidSlug, raw)
	}
	return Slug{Owner: parts[0], Name: parts[1]}, nil
}

// ParseRepoURL accepts "https://github.com/owner/name" (scheme optional,
// trailing ".git" and slash tolerated) and returns the slug.
func ParseRepoURL(raw string) (Slug, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Slug{}, fmt.Errorf("%w: %v", ErrInvalidSlug, err)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if host != "github.com" {
		return Slug{}, fmt.Errorf("%w: host %q", ErrInvalidSlug, u.Host)
	}
	path := strings.TrimSuffix(strings.Trim(u.Path, "/"), ".git")
	return ParseSlug(path)
}

func validName(s string) bool {
	return s != "" && s != "." && s != ".." && namePattern.MatchString(s)
}
