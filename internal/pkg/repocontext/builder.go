// Package repocontext turns an "owner/repo" reference into bounded text
// context: repository metadata plus a filtered, capped set of file contents.
package repocontext

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/go-github/v66/github"
	"golang.org/x/sync/errgroup"

	"github.com/makkara/makkara/internal/pkg/cache"
)

const cacheKeyPrefix = "repoctx:"

// Metadata is the canonical description of a repository.
type Metadata struct {
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	FullName      string `json:"fullName"`
	Description   string `json:"description"`
	Language      string `json:"language"`
	Stars         int    `json:"stars"`
	Forks         int    `json:"forks"`
	URL           string `json:"url"`
	DefaultBranch string `json:"defaultBranch"`
}

// File is one fetched, decoded file.
type File struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
}

// Context is the result of a build.
type Context struct {
	Metadata Metadata `json:"metadata"`
	Files    []File   `json:"files"`
}

// Cache stores built contexts. cache.JSONStore satisfies it.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Builder fetches repository context from GitHub.
type Builder struct {
	gh       *github.Client
	cache    Cache
	cacheTTL time.Duration
	maxFiles int
	maxBytes int
}

type Option func(*Builder)

// WithCache enables caching of successful builds.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(b *Builder) {
		b.cache = c
		b.cacheTTL = ttl
	}
}

// WithMaxFiles overrides DefaultMaxFiles.
func WithMaxFiles(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxFiles = n
		}
	}
}

// WithMaxFileBytes overrides MaxFileBytes.
func WithMaxFileBytes(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxBytes = n
		}
	}
}

func NewBuilder(gh *github.Client, opts ...Option) *Builder {
	b := &Builder{
		gh:       gh,
		maxFiles: DefaultMaxFiles,
		maxBytes: MaxFileBytes,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewGitHubClient returns an API client, authenticated when token is set.
func NewGitHubClient(token string) *github.Client {
	client := github.NewClient(&http.Client{Timeout: 20 * time.Second})
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return client
}

// Build resolves slug to metadata and the selected files.
func (b *Builder) Build(ctx context.Context, slug Slug) (*Context, error) {
	key := cacheKeyPrefix + slug.String()
	if b.cache != nil {
		var cached Context
		err := b.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			fiberlog.Warnf("[RepoContext] cache read for %s failed: %v", slug, err)
		}
	}

	meta, err := b.fetchMetadata(ctx, slug)
	if err != nil {
		return nil, err
	}

	tree, _, err := b.gh.Git.GetTree(ctx, slug.Owner, slug.Name, meta.DefaultBranch, true)
	if err != nil {
		return nil, fmt.Errorf("%w: tree of %s: %v", ErrUpstreamFetch, slug, err)
	}
	if tree.GetTruncated() {
		fiberlog.Infof("[RepoContext] tree of %s was truncated by the API", slug)
	}

	paths := make([]string, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		if entry.GetType() == "blob" {
			paths = append(paths, entry.GetPath())
		}
	}
	selected := SelectFiles(paths, b.maxFiles)

	result := &Context{
		Metadata: meta,
		Files:    b.fetchFiles(ctx, slug, meta.DefaultBranch, selected),
	}

	// A partial build is served once but never cached.
	if b.cache != nil && len(result.Files) == len(selected) {
		if err := b.cache.SetJSON(ctx, key, result, b.cacheTTL); err != nil {
			fiberlog.Warnf("[RepoContext] cache write for %s failed: %v", slug, err)
		}
	}
	return result, nil
}

func (b *Builder) fetchMetadata(ctx context.Context, slug Slug) (Metadata, error) {
	repo, resp, err := b.gh.Repositories.Get(ctx, slug.Owner, slug.Name)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return Metadata{}, fmt.Errorf("%w: %s", ErrRepositoryNotFound, slug)
		}
		return Metadata{}, fmt.Errorf("%w: metadata of %s: %v", ErrUpstreamFetch, slug, err)
	}

	branch := repo.GetDefaultBranch()
	if branch == "" {
		branch = "main"
	}
	return Metadata{
		Owner:         repo.GetOwner().GetLogin(),
		Name:          repo.GetName(),
		FullName:      repo.GetFullName(),
		Description:   repo.GetDescription(),
		Language:      repo.GetLanguage(),
		Stars:         repo.GetStargazersCount(),
		Forks:         repo.GetForksCount(),
		URL:           repo.GetHTMLURL(),
		DefaultBranch: branch,
	}, nil
}

// fetchFiles downloads all paths concurrently. A failing file is logged and
// left out; the result keeps tree order.
func (b *Builder) fetchFiles(ctx context.Context, slug Slug, ref string, paths []string) []File {
	type fetched struct {
		index int
		file  File
	}

	var (
		mu      sync.Mutex
		results = make([]fetched, 0, len(paths))
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		g.Go(func() error {
			content, err := b.fetchFile(gctx, slug, ref, p)
			if err != nil {
				fiberlog.Warnf("[RepoContext] skipping %s/%s: %v", slug, p, err)
				return nil
			}
			text, truncated := Truncate(content, b.maxBytes)
			mu.Lock()
			results = append(results, fetched{index: i, file: File{Path: p, Content: text, Truncated: truncated}})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].index < results[j].index })
	files := make([]File, 0, len(results))
	for _, r := range results {
		files = append(files, r.file)
	}
	return files
}

func (b *Builder) fetchFile(ctx context.Context, slug Slug, ref, p string) (string, error) {
	file, _, _, err := b.gh.Repositories.GetContents(ctx, slug.Owner, slug.Name, p, &github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return "", err
	}
	if file == nil {
		return "", fmt.Errorf("%s is not a file", p)
	}
	return file.GetContent()
}
