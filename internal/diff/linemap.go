package diff

import (
	"strings"

	"github.com/diffscope/pkg/models"
)

// BuildLineMap scans raw unified-diff text and records, for every added
// line, the line number it occupies in the target revision. The model
// only ever sees diff text, never real line numbers, so this map is the
// single source of truth for where a quoted line actually lives.
//
// Scanning rules: a "+++ b/<path>" header resets the current file, a
// hunk header sets the counter to its new-start, "+" lines (not "+++")
// record {full line incl. marker -> counter} then increment, context
// lines increment without recording, "-" lines do not touch the counter.
func BuildLineMap(diffText string) models.FileLineMap {
	lineMap := models.FileLineMap{}

	var currentFile string
	counter := 0

	for _, line := range strings.Split(diffText, "\n") {
		switch {
		case strings.HasPrefix(line, "+++ "):
			path := strings.TrimSpace(strings.TrimPrefix(line, "+++ "))
			if path == deletionSentinel {
				currentFile = ""
				continue
			}
			currentFile = StripPathPrefix(path)
			counter = 0

		case strings.HasPrefix(line, "@@ "):
			if metas := parseHunkHeaders(line); len(metas) > 0 {
				counter = metas[0].NewStart
			}

		case strings.HasPrefix(line, "+"):
			if currentFile != "" && counter > 0 {
				lineMap[currentFile] = append(lineMap[currentFile], models.LineEntry{
					Text: line,
					Line: counter,
				})
			}
			counter++

		case strings.HasPrefix(line, "-"), strings.HasPrefix(line, "--- "):
			// Removed line: does not exist in the target revision.

		case strings.HasPrefix(line, " "), line == "":
			// Context line consumes a target line number.
			if counter > 0 {
				counter++
			}
		}
	}

	return lineMap
}

// Resolver anchors findings onto concrete target-revision lines.
//
// When a hunk contains duplicate lines (repeated blank or boilerplate
// text) a plain first-match policy would stack every finding on the
// first occurrence, so the resolver prefers the lowest-numbered line
// not already claimed by an earlier finding in the same file, and only
// reuses a claimed line when no unclaimed candidate exists.
type Resolver struct {
	lineMap models.FileLineMap
	claimed map[string]map[int]bool
}

// NewResolver creates a resolver over a built line map.
func NewResolver(lineMap models.FileLineMap) *Resolver {
	return &Resolver{
		lineMap: lineMap,
		claimed: make(map[string]map[int]bool),
	}
}

// Resolve attaches a target line number to the finding. The finding's
// quoted line is stripped of its leading diff marker and matched as a
// substring against the file's added lines. No match leaves
// ResolvedLine nil; policy above the core decides whether to drop or
// demote the finding. A finding that already carries a resolved line is
// returned unchanged, so resolving twice is idempotent.
func (r *Resolver) Resolve(f *models.Finding) {
	if f == nil || f.ResolvedLine != nil {
		return
	}

	entries, ok := r.lineMap[f.Path]
	if !ok {
		return
	}

	needle := stripDiffMarker(f.QuotedLine)
	if needle == "" {
		return
	}

	first := 0
	found := false
	for _, e := range entries {
		if !strings.Contains(e.Text, needle) {
			continue
		}
		if !found {
			first = e.Line
			found = true
		}
		if !r.claimed[f.Path][e.Line] {
			r.claim(f.Path, e.Line)
			line := e.Line
			f.ResolvedLine = &line
			return
		}
	}

	if found {
		// Every candidate is claimed; fall back to the first match.
		line := first
		f.ResolvedLine = &line
	}
}

// ResolveAll resolves findings in order so earlier findings claim
// earlier duplicate lines.
func (r *Resolver) ResolveAll(findings []*models.Finding) {
	for _, f := range findings {
		r.Resolve(f)
	}
}

func (r *Resolver) claim(file string, line int) {
	if r.claimed[file] == nil {
		r.claimed[file] = make(map[int]bool)
	}
	r.claimed[file][line] = true
}

// stripDiffMarker drops the leading +, - or space the model copied from
// the diff, leaving the bare comparison string.
func stripDiffMarker(quoted string) string {
	if quoted == "" {
		return ""
	}
	switch quoted[0] {
	case '+', '-', ' ':
		return strings.TrimSpace(quoted[1:])
	}
	return strings.TrimSpace(quoted)
}
