package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffscope/pkg/models"
)

func TestBuildLineMapCountersConsumedByContext(t *testing.T) {
	raw := "--- a/a.ts\n+++ b/a.ts\n@@ -1,2 +1,3 @@\n line1\n+line2\n line3\n"

	lineMap := BuildLineMap(raw)
	require.Contains(t, lineMap, "a.ts")
	assert.Equal(t, 2, lineMap.Lookup("a.ts", "+line2"),
		"context lines consume counters 1 and 3, added line lands on 2")
}

func TestBuildLineMapSequentialNumbering(t *testing.T) {
	raw := "--- a/f.go\n+++ b/f.go\n@@ -40,3 +40,6 @@\n keep\n+alpha\n+beta\n keep2\n-removed\n+gamma\n"

	entries := BuildLineMap(raw)["f.go"]
	require.Len(t, entries, 3)

	// Hunk starts at 40: context=40, alpha=41, beta=42, keep2=43,
	// removed does not advance, gamma=44.
	assert.Equal(t, models.LineEntry{Text: "+alpha", Line: 41}, entries[0])
	assert.Equal(t, models.LineEntry{Text: "+beta", Line: 42}, entries[1])
	assert.Equal(t, models.LineEntry{Text: "+gamma", Line: 44}, entries[2])

	// Assigned numbers strictly increase within the file.
	for i := 1; i < len(entries); i++ {
		assert.Greater(t, entries[i].Line, entries[i-1].Line)
	}
}

func TestBuildLineMapMultipleFiles(t *testing.T) {
	raw := "--- a/one.ts\n+++ b/one.ts\n@@ -1,1 +1,2 @@\n ctx\n+added one\n" +
		"--- a/two.ts\n+++ b/two.ts\n@@ -5,1 +5,2 @@\n ctx\n+added two\n"

	lineMap := BuildLineMap(raw)
	assert.Equal(t, 2, lineMap.Lookup("one.ts", "+added one"))
	assert.Equal(t, 6, lineMap.Lookup("two.ts", "+added two"))
}

func TestBuildLineMapSkipsDeletedFileTarget(t *testing.T) {
	raw := "--- a/gone.ts\n+++ /dev/null\n@@ -1,2 +0,0 @@\n-a\n-b\n"
	lineMap := BuildLineMap(raw)
	assert.Empty(t, lineMap)
}

func TestResolveBySubstring(t *testing.T) {
	raw := "--- a/a.ts\n+++ b/a.ts\n@@ -1,2 +1,3 @@\n line1\n+const total = add(a, b);\n line3\n"
	resolver := NewResolver(BuildLineMap(raw))

	f := &models.Finding{Path: "a.ts", QuotedLine: "+const total = add(a, b);"}
	resolver.Resolve(f)
	require.NotNil(t, f.ResolvedLine)
	assert.Equal(t, 2, *f.ResolvedLine)

	// A partial quote still anchors via substring containment.
	partial := &models.Finding{Path: "a.ts", QuotedLine: "+total = add"}
	resolver.Resolve(partial)
	require.NotNil(t, partial.ResolvedLine)
	assert.Equal(t, 2, *partial.ResolvedLine)
}

func TestResolveIdempotent(t *testing.T) {
	raw := "--- a/a.ts\n+++ b/a.ts\n@@ -1,1 +1,2 @@\n ctx\n+added\n"
	resolver := NewResolver(BuildLineMap(raw))

	f := &models.Finding{Path: "a.ts", QuotedLine: "+added"}
	resolver.Resolve(f)
	require.NotNil(t, f.ResolvedLine)
	first := *f.ResolvedLine

	resolver.Resolve(f)
	assert.Equal(t, first, *f.ResolvedLine)
}

func TestResolveDuplicateLinesPreferNearestUnused(t *testing.T) {
	raw := "--- a/a.ts\n+++ b/a.ts\n@@ -1,1 +1,5 @@\n ctx\n+return nil\n+x := 1\n+return nil\n+y := 2\n"
	resolver := NewResolver(BuildLineMap(raw))

	first := &models.Finding{Path: "a.ts", QuotedLine: "+return nil"}
	second := &models.Finding{Path: "a.ts", QuotedLine: "+return nil"}
	third := &models.Finding{Path: "a.ts", QuotedLine: "+return nil"}
	resolver.ResolveAll([]*models.Finding{first, second, third})

	require.NotNil(t, first.ResolvedLine)
	require.NotNil(t, second.ResolvedLine)
	require.NotNil(t, third.ResolvedLine)
	assert.Equal(t, 2, *first.ResolvedLine)
	assert.Equal(t, 4, *second.ResolvedLine, "second finding claims the next duplicate")
	assert.Equal(t, 2, *third.ResolvedLine, "all candidates claimed falls back to first match")
}

func TestResolveNoMatchLeavesNil(t *testing.T) {
	raw := "--- a/a.ts\n+++ b/a.ts\n@@ -1,1 +1,2 @@\n ctx\n+added\n"
	resolver := NewResolver(BuildLineMap(raw))

	f := &models.Finding{Path: "a.ts", QuotedLine: "+never appears"}
	resolver.Resolve(f)
	assert.Nil(t, f.ResolvedLine)

	other := &models.Finding{Path: "unknown.ts", QuotedLine: "+added"}
	resolver.Resolve(other)
	assert.Nil(t, other.ResolvedLine)
}
