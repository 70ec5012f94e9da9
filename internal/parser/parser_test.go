package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffscope/internal/parser"
	"github.com/diffscope/pkg/models"
)

func TestParseCompleteComment(t *testing.T) {
	raw := `Here is my review of the change.

<comment>
<severity>required</severity>
<file>b/src/auth.ts</file>
<line>+  const token = req.query.token;</line>
<message>Tokens must not be read from the query string.</message>
<suggestion>  const token = req.headers.authorization;</suggestion>
</comment>

Hope that helps!`

	resp := parser.NewScanParser().Parse(raw)
	require.Len(t, resp.Findings, 1)

	f := resp.Findings[0]
	assert.Equal(t, "src/auth.ts", f.Path, "diff prefix stripped")
	assert.Equal(t, "+  const token = req.query.token;", f.QuotedLine)
	assert.Equal(t, models.SeverityRequired, f.Severity)
	assert.Equal(t, "Tokens must not be read from the query string.", f.Message)
	assert.Equal(t, "const token = req.headers.authorization;", f.Suggestion)
	assert.Nil(t, f.ResolvedLine)
}

func TestParseDropsIncompleteRecord(t *testing.T) {
	raw := `<comment>
<severity>nit</severity>
<file>a.ts</file>
<line>+x = 1</line>
<message>Prefer const.</message>
</comment>
<comment>
<severity>required</severity>
<file>b.ts</file>
<line>+y = 2</line>
</comment>`

	resp := parser.NewScanParser().Parse(raw)
	require.Len(t, resp.Findings, 1, "record missing <message> is dropped")
	assert.Equal(t, "a.ts", resp.Findings[0].Path)
}

func TestParseUnknownSeverityDefaults(t *testing.T) {
	raw := `<comment><severity>blocker</severity><file>a.ts</file><line>+x</line><message>m</message></comment>`
	resp := parser.NewScanParser().Parse(raw)
	require.Len(t, resp.Findings, 1)
	assert.Equal(t, models.SeverityOptional, resp.Findings[0].Severity)
}

func TestParseUnescapesFields(t *testing.T) {
	raw := `<comment>
<severity>optional</severity>
<file>a.ts</file>
<line>+if (a &lt; b &amp;&amp; c &gt; d) {</line>
<message>Simplify: &quot;a &lt; b&quot; already implies this.</message>
</comment>`

	resp := parser.NewScanParser().Parse(raw)
	require.Len(t, resp.Findings, 1)
	assert.Equal(t, "+if (a < b && c > d) {", resp.Findings[0].QuotedLine)
	assert.Equal(t, `Simplify: "a < b" already implies this.`, resp.Findings[0].Message)
}

func TestParseResolvedRecords(t *testing.T) {
	raw := `<resolved>
<id>172553</id>
<path>src/db.ts</path>
<line>44</line>
<reason>Connection pooling added in this revision.</reason>
</resolved>
<resolved>
<path>orphan.ts</path>
<line>1</line>
</resolved>`

	resp := parser.NewScanParser().Parse(raw)
	require.Len(t, resp.Resolved, 1, "record missing id is dropped")

	r := resp.Resolved[0]
	assert.Equal(t, "172553", r.CommentID)
	assert.Equal(t, "src/db.ts", r.Path)
	assert.Equal(t, 44, r.Line)
	assert.Equal(t, "Connection pooling added in this revision.", r.Reason)
}

func TestParseEmptyAndProseOnly(t *testing.T) {
	resp := parser.NewScanParser().Parse("The change looks good overall, nothing to flag.")
	assert.Empty(t, resp.Findings)
	assert.Empty(t, resp.Resolved)
}

func TestParseTruncatedFinalRecord(t *testing.T) {
	raw := `<comment><severity>nit</severity><file>a.ts</file><line>+x</line><message>ok</message></comment>
<comment><severity>required</severity><file>b.ts</file><line>+y`

	resp := parser.NewScanParser().Parse(raw)
	require.Len(t, resp.Findings, 1, "truncated trailing record is dropped")
	assert.Equal(t, "a.ts", resp.Findings[0].Path)
}
