// Package prompts assembles the review prompt. Diff text and prior
// comments are interpolated with markup escaping applied so the
// response parser can unescape the same data on the way back.
package prompts

import (
	"fmt"
	"strings"

	"github.com/diffscope/internal/markup"
	"github.com/diffscope/pkg/models"
)

const instructions = `You are reviewing a version-control diff. For each issue you find,
emit one comment record in exactly this form:

<comment>
<severity>required|optional|nit|fyi|praise</severity>
<file>path/from/diff</file>
<line>the diff line you are commenting on, copied verbatim including its leading +</line>
<message>what is wrong and why</message>
<suggestion>optional replacement for the quoted line</suggestion>
</comment>

Only quote added lines (leading +). If a previously posted comment is
now addressed, emit:

<resolved>
<id>comment id</id>
<path>file path</path>
<line>line number</line>
<reason>why it is addressed</reason>
</resolved>

Severity meanings: required = must fix before merge, optional = worth
fixing, nit = style only, fyi = no action needed, praise = positive.
Do not invent file paths; use the paths exactly as they appear in the
diff headers below.`

// ToolInstructions is appended to the prompt when repository
// exploration tools are available.
const ToolInstructions = `

Before writing your review you may request repository context by
emitting tool records instead of comments:

<tool kind="read_files">{"paths": ["internal/server.go"]}</tool>
<tool kind="search_window">{"path": "internal/server.go", "text": "func Handle"}</tool>
<tool kind="search_repository">{"query": "HandleRequest", "word_boundary": true}</tool>
<tool kind="dependency_graph">{"path": "src/app.ts", "depth": 1}</tool>

Each result comes back in a <tool_result kind="..."> block. When you
have enough context, respond with comment records only.`

// BuildReview renders the prompt for a set of diff units, optionally
// listing prior comments the model may mark resolved.
func BuildReview(units []*models.DiffUnit, prior []models.ResolvedComment) string {
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\n")

	if len(prior) > 0 {
		b.WriteString("Previously posted comments:\n")
		for _, c := range prior {
			fmt.Fprintf(&b, "<prior id=\"%s\" path=\"%s\" line=\"%d\">%s</prior>\n",
				markup.Escape(c.CommentID), markup.Escape(c.Path), c.Line, markup.Escape(c.Reason))
		}
		b.WriteString("\n")
	}

	b.WriteString("The diff under review:\n\n")
	for _, u := range units {
		fmt.Fprintf(&b, "<diff file=\"%s\">\n%s\n</diff>\n\n",
			markup.Escape(u.FileName), markup.Escape(u.Text()))
	}

	return b.String()
}
