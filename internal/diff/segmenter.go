package diff

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/diffscope/pkg/models"
)

// ErrUnparsableDiff is returned when the input is not recognizable
// unified-diff text. The caller decides disposition.
var ErrUnparsableDiff = errors.New("unparsable diff")

// Granularity selects how a raw diff is segmented.
type Granularity int

const (
	// ByFile produces one unit per changed file with all hunks concatenated.
	ByFile Granularity = iota
	// ByHunk produces one unit per @@ block with the file header repeated.
	ByHunk
)

const deletionSentinel = "/dev/null"

var hunkHeaderRe = regexp.MustCompile(`(?m)^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Segmenter splits raw unified diffs into ordered DiffUnits.
type Segmenter struct {
	mode Granularity
}

// NewSegmenter creates a segmenter with the given granularity.
func NewSegmenter(mode Granularity) *Segmenter {
	return &Segmenter{mode: mode}
}

// Segment splits diffText into units. Binary and rename-only entries
// without hunks are skipped. A deleted file keeps its old name as
// identity. Returns ErrUnparsableDiff when the text has file sections
// that cannot be parsed, or is non-empty but contains no diff at all.
func (s *Segmenter) Segment(diffText string) ([]*models.DiffUnit, error) {
	if strings.TrimSpace(diffText) == "" {
		return nil, nil
	}

	sections := splitByFile(diffText)
	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: no file sections found", ErrUnparsableDiff)
	}

	var units []*models.DiffUnit
	for _, section := range sections {
		fileName, err := extractFileName(section)
		if err != nil {
			return nil, err
		}

		header, body := splitHeaderAndBody(section)
		if body == "" {
			// Binary or rename-only entry, nothing to review.
			continue
		}

		if s.mode == ByFile {
			unit := &models.DiffUnit{
				FileName:   fileName,
				HeaderText: header,
				BodyText:   body,
			}
			if metas := parseHunkHeaders(body); len(metas) > 0 {
				unit.HunkMeta = metas[0]
			}
			units = append(units, unit)
			continue
		}

		for _, hunk := range splitHunks(body) {
			metas := parseHunkHeaders(hunk)
			if len(metas) == 0 {
				continue
			}
			units = append(units, &models.DiffUnit{
				FileName:   fileName,
				HeaderText: header,
				BodyText:   hunk,
				HunkMeta:   metas[0],
			})
		}
	}

	return units, nil
}

// splitByFile splits a multi-file diff on "diff --git" boundaries.
func splitByFile(diffText string) []string {
	parts := strings.Split(diffText, "diff --git ")

	var sections []string
	for i, part := range parts {
		if i == 0 {
			// Preamble before the first header. Accept a bare single-file
			// diff that starts directly at "--- a/...".
			if strings.HasPrefix(part, "--- ") {
				sections = append(sections, part)
			}
			continue
		}
		sections = append(sections, "diff --git "+part)
	}
	return sections
}

// extractFileName pulls the target-revision path out of a file section,
// falling back to the old path for deletions. Path prefixes (a/, b/)
// are stripped so the result is usable as a lookup key.
func extractFileName(section string) (string, error) {
	var oldPath, newPath string
	for _, line := range strings.Split(section, "\n") {
		if strings.HasPrefix(line, "--- ") {
			oldPath = strings.TrimSpace(strings.TrimPrefix(line, "--- "))
		} else if strings.HasPrefix(line, "+++ ") {
			newPath = strings.TrimSpace(strings.TrimPrefix(line, "+++ "))
			break
		}
	}

	if newPath == "" && oldPath == "" {
		// Header-only section: fall back to the "diff --git a/x b/y" line.
		re := regexp.MustCompile(`diff --git a/(.*) b/(.*)`)
		if m := re.FindStringSubmatch(section); len(m) == 3 {
			return m[2], nil
		}
		return "", fmt.Errorf("%w: no file path in section", ErrUnparsableDiff)
	}

	path := newPath
	if path == deletionSentinel || path == "" {
		path = oldPath
	}
	if path == deletionSentinel {
		return "", fmt.Errorf("%w: both paths are %s", ErrUnparsableDiff, deletionSentinel)
	}
	return StripPathPrefix(path), nil
}

// StripPathPrefix removes the conventional a/ or b/ diff prefix.
func StripPathPrefix(path string) string {
	if strings.HasPrefix(path, "a/") || strings.HasPrefix(path, "b/") {
		return path[2:]
	}
	return path
}

// splitHeaderAndBody separates the file header lines from the hunk body.
func splitHeaderAndBody(section string) (header, body string) {
	idx := hunkHeaderRe.FindStringIndex(section)
	if idx == nil {
		return section, ""
	}
	return section[:idx[0]], section[idx[0]:]
}

// splitHunks splits a hunk body into individual @@ blocks.
func splitHunks(body string) []string {
	starts := hunkHeaderRe.FindAllStringIndex(body, -1)
	hunks := make([]string, 0, len(starts))
	for i, start := range starts {
		end := len(body)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		hunks = append(hunks, body[start[0]:end])
	}
	return hunks
}

// parseHunkHeaders extracts range metadata from every @@ header in text.
// A missing count defaults to 1 per the unified-diff grammar.
func parseHunkHeaders(text string) []models.HunkMeta {
	matches := hunkHeaderRe.FindAllStringSubmatch(text, -1)
	metas := make([]models.HunkMeta, 0, len(matches))
	for _, m := range matches {
		metas = append(metas, models.HunkMeta{
			OldStart: atoiDefault(m[1], 0),
			OldLines: atoiDefault(m[2], 1),
			NewStart: atoiDefault(m[3], 0),
			NewLines: atoiDefault(m[4], 1),
		})
	}
	return metas
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
