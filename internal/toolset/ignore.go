package toolset

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/karrick/godirwalk"
)

// defaultIgnorePatterns are the built-in exclusions applied to every
// repository search: lockfiles, build output, caches, secrets, binary
// archives and language-specific artifacts. Project override files can
// re-include any of these with a later ! pattern.
var defaultIgnorePatterns = []string{
	// VCS and tooling state
	".git/**",
	".hg/**",
	".svn/**",
	// Lockfiles
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"Cargo.lock",
	"poetry.lock",
	"Gemfile.lock",
	"composer.lock",
	"go.sum",
	// Build output and dependency trees
	"node_modules/**",
	"vendor/**",
	"dist/**",
	"build/**",
	"out/**",
	"target/**",
	"*.min.js",
	"*.min.css",
	"*.map",
	// Caches
	".cache/**",
	"__pycache__/**",
	".pytest_cache/**",
	".mypy_cache/**",
	".next/**",
	".turbo/**",
	// Secrets
	".env",
	".env.*",
	"*.pem",
	"*.key",
	"*.p12",
	"*.pfx",
	"id_rsa",
	"id_ed25519",
	// Binary archives and artifacts
	"*.zip",
	"*.tar",
	"*.tar.gz",
	"*.tgz",
	"*.jar",
	"*.war",
	"*.7z",
	"*.o",
	"*.a",
	"*.so",
	"*.dylib",
	"*.dll",
	"*.exe",
	"*.bin",
	"*.class",
	"*.pyc",
	"*.pyo",
	"*.wasm",
	// Media blobs
	"*.png",
	"*.jpg",
	"*.jpeg",
	"*.gif",
	"*.ico",
	"*.pdf",
	"*.woff",
	"*.woff2",
	"*.ttf",
	"*.eot",
	"*.mp4",
	"*.mp3",
}

type ignorePattern struct {
	glob   string
	negate bool
}

// ignoreMatcher composes built-in defaults with project override
// patterns. Patterns are ordered; the last matching pattern decides, so
// a later, more-specific re-include overrides an earlier default.
type ignoreMatcher struct {
	patterns []ignorePattern
}

func newIgnoreMatcher() *ignoreMatcher {
	m := &ignoreMatcher{}
	for _, p := range defaultIgnorePatterns {
		m.patterns = append(m.patterns, ignorePattern{glob: p})
	}
	return m
}

// addPatterns appends override patterns: one glob per line, # comments
// and blanks skipped, leading ! marks a re-include.
func (m *ignoreMatcher) addPatterns(lines []string) {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		negate := strings.HasPrefix(line, "!")
		if negate {
			line = strings.TrimSpace(line[1:])
			if line == "" {
				continue
			}
		}
		m.patterns = append(m.patterns, ignorePattern{glob: line, negate: negate})
	}
}

// Ignored reports whether the slash-separated relative path is
// excluded from search.
func (m *ignoreMatcher) Ignored(rel string) bool {
	ignored := false
	for _, p := range m.patterns {
		if matchGlob(p.glob, rel) {
			ignored = !p.negate
		}
	}
	return ignored
}

// matchGlob matches rel against one glob. A bare pattern with no slash
// applies to any path segment, mirroring how ignore files convention-
// ally treat basename patterns.
func matchGlob(glob, rel string) bool {
	if ok, err := doublestar.Match(glob, rel); err == nil && ok {
		return true
	}
	if !strings.Contains(glob, "/") {
		for _, segment := range strings.Split(rel, "/") {
			if ok, err := doublestar.Match(glob, segment); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// loadIgnoreMatcher builds the layered matcher for a search scope:
// built-in defaults first, then every override file discovered under
// the scope in walk order.
func (t *Toolset) loadIgnoreMatcher(scopes []string) *ignoreMatcher {
	m := newIgnoreMatcher()

	for _, scope := range scopes {
		err := godirwalk.Walk(scope, &godirwalk.Options{
			Unsorted: false,
			Callback: func(osPathname string, de *godirwalk.Dirent) error {
				if de.IsDir() {
					if de.Name() == ".git" || de.Name() == "node_modules" {
						return filepath.SkipDir
					}
					return nil
				}
				if de.Name() != t.cfg.IgnoreFileName {
					return nil
				}
				lines, err := readLines(osPathname)
				if err != nil {
					t.log.Warn().Err(err).Str("file", osPathname).Msg("skipping unreadable ignore file")
					return nil
				}
				m.addPatterns(lines)
				return nil
			},
			ErrorCallback: func(_ string, _ error) godirwalk.ErrorAction {
				return godirwalk.SkipNode
			},
		})
		if err != nil {
			t.log.Warn().Err(err).Str("scope", scope).Msg("ignore discovery walk failed")
		}
	}

	return m
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}
