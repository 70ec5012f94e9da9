// Package toolset exposes the read-only code navigation operations the
// review agent calls as tools: file reads, windowed single-file search,
// repository-wide search, and a bounded dependency graph. Every
// operation is sandboxed to one working tree and degrades to an
// explicit fallback string instead of failing, so a bad tool call is
// always recoverable by the agent within the same turn.
package toolset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config tunes one toolset instance.
type Config struct {
	// SearchBinary is the external pattern-search executable. Empty
	// means "rg" resolved from PATH; "-" disables delegation entirely.
	SearchBinary string
	// SearchTimeout bounds one external search invocation.
	SearchTimeout time.Duration
	// MaxOutputBytes caps external process output.
	MaxOutputBytes int
	// CacheSize bounds the repository-search result cache.
	CacheSize int
	// IgnoreFileName is the per-project override file discovered under
	// the search scope.
	IgnoreFileName string
}

func (c *Config) applyDefaults() {
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = 30 * time.Second
	}
	if c.MaxOutputBytes <= 0 {
		c.MaxOutputBytes = 2 << 20
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 256
	}
	if c.IgnoreFileName == "" {
		c.IgnoreFileName = ".diffscopeignore"
	}
}

// Toolset is a per-run instance owning its own cache so separate runs
// never share mutable state and tests stay deterministic.
type Toolset struct {
	root  string
	cfg   Config
	cache *SearchCache
	log   zerolog.Logger

	// searchRuns counts repository scans (external or in-process) so
	// tests can assert that cache hits skip the scan.
	searchRuns int
}

// New creates a toolset sandboxed to root.
func New(root string, cfg Config, log zerolog.Logger) (*Toolset, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving toolset root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("toolset root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("toolset root %s is not a directory", abs)
	}

	cfg.applyDefaults()
	cache, err := NewSearchCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	return &Toolset{
		root:  abs,
		cfg:   cfg,
		cache: cache,
		log:   log.With().Str("component", "toolset").Logger(),
	}, nil
}

// Root returns the sandbox root.
func (t *Toolset) Root() string {
	return t.root
}

// resolve maps a tool-supplied relative path into the sandbox,
// rejecting anything that escapes the working tree.
func (t *Toolset) resolve(path string) (string, error) {
	cleaned := filepath.Clean(filepath.Join(t.root, filepath.FromSlash(path)))
	if cleaned != t.root && !strings.HasPrefix(cleaned, t.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the working tree", path)
	}
	return cleaned, nil
}

// relPath converts an absolute path back to the slash-separated form
// used in tool output.
func (t *Toolset) relPath(abs string) string {
	rel, err := filepath.Rel(t.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}
