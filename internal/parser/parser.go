// Package parser extracts typed review items from free-form model
// output. The model is asked for angle-bracket delimited records but
// routinely wraps them in prose, drops optional fields, or truncates
// the final record, so extraction is best effort: whatever parses
// cleanly is kept and the rest is dropped without failing the batch.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/diffscope/internal/markup"
	"github.com/diffscope/pkg/models"
)

// ResponseParser turns raw model text into structured review items.
// Kept as an interface so the tolerant scanner can be swapped for a
// stricter grammar-based parser without touching callers.
type ResponseParser interface {
	Parse(raw string) *models.ParsedResponse
}

// ScanParser is a regex-based tolerant record scanner.
type ScanParser struct{}

// NewScanParser creates the default response parser.
func NewScanParser() *ScanParser {
	return &ScanParser{}
}

var (
	commentBlockRe  = regexp.MustCompile(`(?s)<comment>(.*?)</comment>`)
	resolvedBlockRe = regexp.MustCompile(`(?s)<resolved>(.*?)</resolved>`)

	fieldRes = map[string]*regexp.Regexp{
		"severity":   fieldRe("severity"),
		"file":       fieldRe("file"),
		"line":       fieldRe("line"),
		"message":    fieldRe("message"),
		"suggestion": fieldRe("suggestion"),
		"id":         fieldRe("id"),
		"path":       fieldRe("path"),
		"reason":     fieldRe("reason"),
	}
)

func fieldRe(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?s)<` + name + `>(.*?)</` + name + `>`)
}

// Parse extracts zero or more comment and resolved records. A comment
// record missing file, line or message is dropped silently; partial
// model output must never abort the batch.
func (p *ScanParser) Parse(raw string) *models.ParsedResponse {
	resp := &models.ParsedResponse{}

	for _, m := range commentBlockRe.FindAllStringSubmatch(raw, -1) {
		if f := parseComment(m[1]); f != nil {
			resp.Findings = append(resp.Findings, f)
		}
	}

	for _, m := range resolvedBlockRe.FindAllStringSubmatch(raw, -1) {
		if r, ok := parseResolved(m[1]); ok {
			resp.Resolved = append(resp.Resolved, r)
		}
	}

	return resp
}

func parseComment(block string) *models.Finding {
	file := field(block, "file")
	quoted := rawField(block, "line")
	message := field(block, "message")
	if file == "" || quoted == "" || message == "" {
		return nil
	}

	return &models.Finding{
		Path:       diffPathKey(file),
		QuotedLine: markup.Unescape(quoted),
		Message:    message,
		Severity:   models.ParseSeverity(field(block, "severity")),
		Suggestion: field(block, "suggestion"),
	}
}

func parseResolved(block string) (models.ResolvedComment, bool) {
	id := field(block, "id")
	path := field(block, "path")
	if id == "" || path == "" {
		return models.ResolvedComment{}, false
	}

	line, _ := strconv.Atoi(field(block, "line"))
	return models.ResolvedComment{
		CommentID: id,
		Path:      diffPathKey(path),
		Line:      line,
		Reason:    field(block, "reason"),
	}, true
}

// field returns the trimmed, unescaped value of a nested field.
func field(block, name string) string {
	return markup.Unescape(strings.TrimSpace(rawFieldValue(block, name)))
}

// rawField preserves interior whitespace. Quoted diff lines keep their
// leading marker and indentation; only surrounding newlines are cut.
func rawField(block, name string) string {
	return strings.Trim(rawFieldValue(block, name), "\r\n")
}

func rawFieldValue(block, name string) string {
	re, ok := fieldRes[name]
	if !ok {
		return ""
	}
	m := re.FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	return m[1]
}

// diffPathKey normalizes a model-quoted path to the segmenter's lookup
// key form: unescaped, trimmed, diff prefix stripped.
func diffPathKey(path string) string {
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, "a/") || strings.HasPrefix(path, "b/") {
		path = path[2:]
	}
	return path
}
