package toolset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchRepositoryBasics(t *testing.T) {
	ts := newTestToolset(t, map[string]string{
		"a.go":      "package a\n\nfunc Handle() {}\n",
		"sub/b.go":  "package b\n\nfunc Handle() {}\nfunc other() {}\n",
		"notes.txt": "Handle with care\n",
	})

	out := ts.SearchRepository(context.Background(), "Handle", SearchOptions{})
	assert.Contains(t, out, "a.go:")
	assert.Contains(t, out, "sub/b.go:")
	assert.Contains(t, out, "notes.txt:")
	assert.Contains(t, out, "> ")
}

func TestSearchRepositoryNoMatches(t *testing.T) {
	ts := newTestToolset(t, map[string]string{"a.go": "package a\n"})
	out := ts.SearchRepository(context.Background(), "zzz_nothing", SearchOptions{})
	assert.Equal(t, `no matches for "zzz_nothing"`, out)
}

func TestSearchRepositoryCaseAndRegex(t *testing.T) {
	ts := newTestToolset(t, map[string]string{
		"a.txt": "Widget\nwidget\nWIDGET\n",
	})
	ctx := context.Background()

	insensitive := ts.SearchRepository(ctx, "widget", SearchOptions{})
	assert.Contains(t, insensitive, "Widget")
	assert.Contains(t, insensitive, "WIDGET")

	// Non-matching case variants may still appear as context lines, so
	// assert on the > match marker rather than bare content.
	sensitive := ts.SearchRepository(ctx, "widget", SearchOptions{CaseSensitive: true})
	assert.Contains(t, sensitive, ">    2: widget")
	assert.NotContains(t, sensitive, ">    3: WIDGET")

	re := ts.SearchRepository(ctx, "^W[Ii]", SearchOptions{Regex: true, CaseSensitive: true})
	assert.Contains(t, re, ">    1: Widget")
	assert.NotContains(t, re, ">    2: widget")
}

func TestSearchRepositoryWordBoundary(t *testing.T) {
	ts := newTestToolset(t, map[string]string{
		"a.txt": "the cat sat\nconcatenate strings\ncategory theory\n",
	})

	out := ts.SearchRepository(context.Background(), "cat", SearchOptions{WordBoundary: true})
	assert.Contains(t, out, ">    1: the cat sat")
	assert.NotContains(t, out, ">    2:", "substring inside a word is not a match")
	assert.NotContains(t, out, ">    3:", "prefix of a longer word is not a match")
}

func TestSearchRepositoryExtensionAndPathScoping(t *testing.T) {
	ts := newTestToolset(t, map[string]string{
		"a.go":       "needle\n",
		"b.ts":       "needle\n",
		"deep/c.go":  "needle\n",
		"other/d.go": "needle\n",
	})
	ctx := context.Background()

	byExt := ts.SearchRepository(ctx, "needle", SearchOptions{Extensions: []string{".go"}})
	assert.Contains(t, byExt, "a.go:")
	assert.NotContains(t, byExt, "b.ts:")

	byPath := ts.SearchRepository(ctx, "needle", SearchOptions{Paths: []string{"deep"}})
	assert.Contains(t, byPath, "deep/c.go:")
	assert.NotContains(t, byPath, "other/d.go:")

	badScope := ts.SearchRepository(ctx, "needle", SearchOptions{Paths: []string{"missing-dir"}})
	assert.Contains(t, badScope, "error: scope missing-dir not found")
}

func TestSearchRepositoryResultCap(t *testing.T) {
	content := ""
	for i := 0; i < 50; i++ {
		content += "needle here\n"
	}
	ts := newTestToolset(t, map[string]string{"big.txt": content})

	out := ts.SearchRepository(context.Background(), "needle", SearchOptions{MaxResults: 10, ContextLines: 1})
	assert.Contains(t, out, "[truncated at 10 results]")
}

func TestSearchRepositoryCacheHitSkipsScan(t *testing.T) {
	ts := newTestToolset(t, map[string]string{"a.go": "needle\n"})
	ctx := context.Background()
	opts := SearchOptions{CaseSensitive: true, ContextLines: 2}

	first := ts.SearchRepository(ctx, "needle", opts)
	require.Equal(t, 1, ts.searchRuns)

	second := ts.SearchRepository(ctx, "needle", SearchOptions{CaseSensitive: true, ContextLines: 2})
	assert.Equal(t, first, second, "identical parameters return the cached text")
	assert.Equal(t, 1, ts.searchRuns, "cache hit runs no second scan")

	ts.SearchRepository(ctx, "needle", SearchOptions{CaseSensitive: false, ContextLines: 2})
	assert.Equal(t, 2, ts.searchRuns, "one differing option is a cache miss")
}

func TestSearchRepositoryIgnoresDefaults(t *testing.T) {
	ts := newTestToolset(t, map[string]string{
		"src/app.js":          "needle\n",
		"node_modules/x.js":   "needle\n",
		"dist/bundle.js":      "needle\n",
		"secrets/service.pem": "needle\n",
		"package-lock.json":   "needle\n",
	})

	out := ts.SearchRepository(context.Background(), "needle", SearchOptions{})
	assert.Contains(t, out, "src/app.js:")
	assert.NotContains(t, out, "node_modules")
	assert.NotContains(t, out, "dist/bundle.js")
	assert.NotContains(t, out, "service.pem")
	assert.NotContains(t, out, "package-lock.json")
}

func TestSearchRepositoryReincludeOverridesDefault(t *testing.T) {
	ts := newTestToolset(t, map[string]string{
		"lib/app.min.js":  "needle\n",
		"lib/core.min.js": "needle\n",
		".diffscopeignore": "# project overrides\n" +
			"!lib/app.min.js\n",
	})

	out := ts.SearchRepository(context.Background(), "needle", SearchOptions{})
	assert.Contains(t, out, "lib/app.min.js:",
		"later re-include pattern overrides the earlier default ignore")
	assert.NotContains(t, out, "core.min.js", "untouched default still applies")
}
