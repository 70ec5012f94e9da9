package toolset

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
)

// DefaultMaxResults caps matches when a tool call omits the parameter;
// MaxResultsCeiling is the hard upper bound regardless of request.
const (
	DefaultMaxResults = 200
	MaxResultsCeiling = 5000
)

// SearchOptions tunes one repository search. Zero values take the
// documented defaults during normalization.
type SearchOptions struct {
	CaseSensitive bool
	Regex         bool
	WordBoundary  bool
	Extensions    []string
	Paths         []string
	ContextLines  int
	MaxResults    int
}

func (o *SearchOptions) normalize() {
	if o.ContextLines < 0 {
		o.ContextLines = 0
	}
	if o.ContextLines == 0 {
		o.ContextLines = DefaultContextLines
	}
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	if o.MaxResults > MaxResultsCeiling {
		o.MaxResults = MaxResultsCeiling
	}
	for i, ext := range o.Extensions {
		o.Extensions[i] = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	}
	sort.Strings(o.Extensions)
	for i, p := range o.Paths {
		o.Paths[i] = filepath.ToSlash(strings.TrimSpace(p))
	}
	sort.Strings(o.Paths)
}

type fileMatch struct {
	path    string // slash-separated, relative to root
	lines   []string
	matches []int
}

// SearchRepository searches the whole working tree. The heavy scan is
// delegated to an external pattern-search process when available and
// falls back to an in-process walk with identical semantics and output
// shape. Results are memoized on the per-instance LRU keyed by the full
// normalized parameter tuple.
func (t *Toolset) SearchRepository(ctx context.Context, query string, opts SearchOptions) string {
	if query == "" {
		return "error: empty query"
	}
	opts.normalize()

	key := cacheKey(query, opts)
	if cached, ok := t.cache.Get(key); ok {
		t.log.Debug().Str("query", query).Msg("search cache hit")
		return cached
	}

	result := t.runSearch(ctx, query, opts)
	t.cache.Put(key, result)
	return result
}

func (t *Toolset) runSearch(ctx context.Context, query string, opts SearchOptions) string {
	t.searchRuns++

	matcher, err := compileQuery(query, opts)
	if err != nil {
		return fmt.Sprintf("error: invalid pattern: %v", err)
	}

	scopes, scopeErr := t.searchScopes(opts.Paths)
	if scopeErr != "" {
		return scopeErr
	}
	ignore := t.loadIgnoreMatcher(scopes)

	candidates, timedOut := t.candidateFiles(ctx, query, opts, scopes, ignore)
	if timedOut != "" {
		return timedOut
	}

	var b strings.Builder
	total := 0
	for _, fm := range candidates {
		if total >= opts.MaxResults {
			break
		}
		content, err := os.ReadFile(filepath.Join(t.root, filepath.FromSlash(fm)))
		if err != nil {
			continue
		}
		lines := strings.Split(string(content), "\n")
		var matches []int
		for i, line := range lines {
			if matcher(line) {
				matches = append(matches, i)
				total++
				if total >= opts.MaxResults {
					break
				}
			}
		}
		if len(matches) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(renderWindows(fm, lines, matches, opts.ContextLines))
	}

	if b.Len() == 0 {
		return fmt.Sprintf("no matches for %q", query)
	}
	if total >= opts.MaxResults {
		fmt.Fprintf(&b, "\n[truncated at %d results]\n", opts.MaxResults)
	}
	return b.String()
}

// compileQuery builds the per-line matcher. Word-boundary promotion
// wraps the query in boundary anchors, which forces regex matching
// even for literal queries.
func compileQuery(query string, opts SearchOptions) (func(string) bool, error) {
	pattern := query
	isRegex := opts.Regex

	if !isRegex && !opts.WordBoundary {
		if opts.CaseSensitive {
			return func(line string) bool { return strings.Contains(line, pattern) }, nil
		}
		lowered := strings.ToLower(pattern)
		return func(line string) bool {
			return strings.Contains(strings.ToLower(line), lowered)
		}, nil
	}

	if !isRegex {
		pattern = regexp.QuoteMeta(pattern)
	}
	if opts.WordBoundary {
		pattern = `\b(?:` + pattern + `)\b`
	}
	if !opts.CaseSensitive {
		pattern = `(?i)` + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return re.MatchString, nil
}

// searchScopes resolves the requested path scopes into absolute
// directories/files, defaulting to the sandbox root.
func (t *Toolset) searchScopes(paths []string) ([]string, string) {
	if len(paths) == 0 {
		return []string{t.root}, ""
	}
	scopes := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := t.resolve(p)
		if err != nil {
			return nil, fmt.Sprintf("error: %v", err)
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, fmt.Sprintf("error: scope %s not found", p)
		}
		scopes = append(scopes, abs)
	}
	return scopes, ""
}

// candidateFiles lists files that may contain the query, in sorted
// order. It prefers delegating the scan to the external search binary
// and falls back to an in-process walk when the binary is unavailable.
// The returned string is non-empty only on timeout.
func (t *Toolset) candidateFiles(ctx context.Context, query string, opts SearchOptions, scopes []string, ignore *ignoreMatcher) ([]string, string) {
	if bin := t.searchBinary(); bin != "" {
		files, err := t.delegateCandidates(ctx, bin, query, opts, scopes)
		if err == nil {
			return t.filterCandidates(files, opts, ignore), ""
		}
		if ctx.Err() == context.DeadlineExceeded || err == context.DeadlineExceeded {
			return nil, fmt.Sprintf("error: search timed out after %s", t.cfg.SearchTimeout)
		}
		t.log.Debug().Err(err).Msg("external search unavailable, falling back to in-process scan")
	}

	files := t.walkCandidates(scopes)
	return t.filterCandidates(files, opts, ignore), ""
}

func (t *Toolset) searchBinary() string {
	switch t.cfg.SearchBinary {
	case "-":
		return ""
	case "":
		bin, err := exec.LookPath("rg")
		if err != nil {
			return ""
		}
		return bin
	default:
		return t.cfg.SearchBinary
	}
}

// delegateCandidates asks the external process only for the names of
// files with matches; line collection and rendering stay in-process so
// both paths produce one output shape. The process is bounded by a
// wall-clock timeout and an output-size cap.
func (t *Toolset) delegateCandidates(ctx context.Context, bin, query string, opts SearchOptions, scopes []string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.SearchTimeout)
	defer cancel()

	args := []string{"--files-with-matches", "--no-ignore", "--hidden"}
	if !opts.CaseSensitive {
		args = append(args, "--ignore-case")
	}
	pattern := query
	if opts.WordBoundary {
		if !opts.Regex {
			pattern = regexp.QuoteMeta(pattern)
		}
		pattern = `\b(?:` + pattern + `)\b`
	} else if !opts.Regex {
		args = append(args, "--fixed-strings")
	}
	args = append(args, "--regexp", pattern)
	args = append(args, scopes...)

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = t.root
	var out bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &out, limit: t.cfg.MaxOutputBytes}
	cmd.Stderr = nil

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, context.DeadlineExceeded
	}
	if err != nil {
		// Exit code 1 means no matches; anything else is a real failure.
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(t.root, line)
		}
		files = append(files, t.relPath(line))
	}
	sort.Strings(files)
	return files, nil
}

// walkCandidates lists every regular file under the scopes.
func (t *Toolset) walkCandidates(scopes []string) []string {
	var files []string
	for _, scope := range scopes {
		info, err := os.Stat(scope)
		if err == nil && !info.IsDir() {
			files = append(files, t.relPath(scope))
			continue
		}
		_ = godirwalk.Walk(scope, &godirwalk.Options{
			Unsorted: false,
			Callback: func(osPathname string, de *godirwalk.Dirent) error {
				if de.IsDir() {
					return nil
				}
				files = append(files, t.relPath(osPathname))
				return nil
			},
			ErrorCallback: func(_ string, _ error) godirwalk.ErrorAction {
				return godirwalk.SkipNode
			},
		})
	}
	sort.Strings(files)
	return files
}

// filterCandidates applies extension scoping and ignore layering.
func (t *Toolset) filterCandidates(files []string, opts SearchOptions, ignore *ignoreMatcher) []string {
	extAllowed := func(string) bool { return true }
	if len(opts.Extensions) > 0 {
		allowed := make(map[string]bool, len(opts.Extensions))
		for _, ext := range opts.Extensions {
			allowed[ext] = true
		}
		extAllowed = func(rel string) bool {
			return allowed[strings.TrimPrefix(filepath.Ext(rel), ".")]
		}
	}

	out := files[:0]
	for _, rel := range files {
		if !extAllowed(rel) || ignore.Ignored(rel) {
			continue
		}
		out = append(out, rel)
	}
	return out
}

// limitedWriter discards everything past limit so a pathological match
// set cannot balloon process output.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if l.w.Len() >= l.limit {
		return len(p), nil
	}
	if remaining := l.limit - l.w.Len(); len(p) > remaining {
		l.w.Write(p[:remaining])
		return len(p), nil
	}
	return l.w.Write(p)
}
