package toolset

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// SearchCache memoizes formatted repository-search results. Keys cover
// the full normalized parameter tuple so two distinct searches can
// never collide; eviction only ever costs a re-scan, never correctness.
type SearchCache struct {
	entries *lru.Cache[string, string]
}

// NewSearchCache creates a cache bounded to capacity entries, evicting
// the least-recently-used on overflow.
func NewSearchCache(capacity int) (*SearchCache, error) {
	entries, err := lru.New[string, string](capacity)
	if err != nil {
		return nil, fmt.Errorf("creating search cache: %w", err)
	}
	return &SearchCache{entries: entries}, nil
}

// Get returns the cached result text. A hit is promoted to
// most-recently-used.
func (c *SearchCache) Get(key string) (string, bool) {
	return c.entries.Get(key)
}

// Put stores a result.
func (c *SearchCache) Put(key, result string) {
	c.entries.Add(key, result)
}

// Len reports the current entry count.
func (c *SearchCache) Len() int {
	return c.entries.Len()
}

// cacheKey builds a canonical key from normalized search parameters.
func cacheKey(query string, opts SearchOptions) string {
	return strings.Join([]string{
		"q=" + query,
		fmt.Sprintf("cs=%t", opts.CaseSensitive),
		fmt.Sprintf("re=%t", opts.Regex),
		fmt.Sprintf("wb=%t", opts.WordBoundary),
		"ext=" + strings.Join(opts.Extensions, ","),
		"paths=" + strings.Join(opts.Paths, ","),
		fmt.Sprintf("ctx=%d", opts.ContextLines),
		fmt.Sprintf("max=%d", opts.MaxResults),
	}, "\x1f")
}
