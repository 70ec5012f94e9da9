package models

// Severity classifies how actionable a review finding is.
type Severity string

const (
	SeverityRequired Severity = "required"
	SeverityOptional Severity = "optional"
	SeverityNit      Severity = "nit"
	SeverityFYI      Severity = "fyi"
	SeverityPraise   Severity = "praise"
)

// ParseSeverity maps free-form model output to a known severity,
// defaulting to optional for anything unrecognized.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityRequired, SeverityOptional, SeverityNit, SeverityFYI, SeverityPraise:
		return Severity(s)
	}
	return SeverityOptional
}

// HunkMeta carries the old/new line ranges from a @@ header.
type HunkMeta struct {
	OldStart int `json:"old_start"`
	OldLines int `json:"old_lines"`
	NewStart int `json:"new_start"`
	NewLines int `json:"new_lines"`
}

// DiffUnit is one processable slice of a unified diff: either a whole
// changed file or a single hunk, depending on segmentation granularity.
// HeaderText+BodyText concatenated is itself a parseable unified diff.
type DiffUnit struct {
	FileName   string   `json:"file_name"`
	HeaderText string   `json:"header_text"`
	BodyText   string   `json:"body_text"`
	HunkMeta   HunkMeta `json:"hunk_meta"`
}

// Text returns the unit as diff text (round-trips through the segmenter).
func (u *DiffUnit) Text() string {
	return u.HeaderText + u.BodyText
}

// LineEntry associates one added diff line (marker included) with the
// line number it occupies in the target revision.
type LineEntry struct {
	Text string
	Line int
}

// FileLineMap maps a file name to its added-line entries, in the order
// the lines appear in the diff. Only added lines have entries: removed
// lines do not exist in the target revision and are never valid
// comment anchors.
type FileLineMap map[string][]LineEntry

// Lookup returns the target line for an exact added-line text, or 0.
func (m FileLineMap) Lookup(file, lineText string) int {
	for _, e := range m[file] {
		if e.Text == lineText {
			return e.Line
		}
	}
	return 0
}

// Finding is a candidate review comment produced by the response parser.
// QuotedLine holds the model's verbatim quote of a diff line, leading
// marker included, until the anchor resolver attaches ResolvedLine.
type Finding struct {
	Path         string   `json:"path"`
	QuotedLine   string   `json:"quoted_line"`
	ResolvedLine *int     `json:"resolved_line,omitempty"`
	Message      string   `json:"message"`
	Severity     Severity `json:"severity"`
	Suggestion   string   `json:"suggestion,omitempty"`
}

// ResolvedComment marks a previously posted comment as addressed.
type ResolvedComment struct {
	CommentID string `json:"comment_id"`
	Path      string `json:"path"`
	Line      int    `json:"line"`
	Reason    string `json:"reason"`
}

// ParsedResponse is everything extracted from one model response.
type ParsedResponse struct {
	Findings []*Finding        `json:"findings"`
	Resolved []ResolvedComment `json:"resolved"`
}

// DependencyNode describes one file's direct dependency edges. Computed
// on demand by the toolset, never persisted.
type DependencyNode struct {
	Path       string   `json:"path"`
	Imports    []string `json:"imports"`
	ImportedBy []string `json:"imported_by"`
}
