package toolset

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/diffscope/pkg/models"
)

// importRes recognize relative-path static imports. External package
// imports are excluded: without a module resolver they cannot be mapped
// to files in the working tree.
var importRes = []*regexp.Regexp{
	// import defaultExport, { a, b } from './x'
	regexp.MustCompile(`(?m)^\s*import\s+(?:[\w$]+\s*,\s*)?(?:[\w$*{}\s,]+\s+from\s+)?['"](\.{1,2}/[^'"]+)['"]`),
	// export { a } from './x', export * from './x'
	regexp.MustCompile(`(?m)^\s*export\s+[\w$*{}\s,]+\s+from\s+['"](\.{1,2}/[^'"]+)['"]`),
	// const x = require('./x')
	regexp.MustCompile(`require\(\s*['"](\.{1,2}/[^'"]+)['"]\s*\)`),
	// dynamic import('./x')
	regexp.MustCompile(`import\(\s*['"](\.{1,2}/[^'"]+)['"]\s*\)`),
}

// resolveExtensions is the fixed search order for extensionless import
// specifiers, followed by index files inside a directory specifier.
var resolveExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}

// sourceExtensions marks files considered when scanning for importers.
var sourceExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
}

// DependencyGraph reports, for the given file, everything it imports
// and everything importing it, recursing both directions up to depth
// hops. Each file is visited once (cycle safe). Importer discovery
// scans every candidate source file per hop, which is O(depth ×
// totalFiles × avgFileSize); acceptable because depth is bounded small
// on CI-sized working trees.
func (t *Toolset) DependencyGraph(startPath string, depth int) string {
	if depth < 1 {
		depth = 1
	}

	start, err := t.resolve(startPath)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	if _, err := os.Stat(start); err != nil {
		return fmt.Sprintf("file %s not found in working tree", startPath)
	}
	startRel := t.relPath(start)

	sources := t.sourceFiles()
	importsByFile := make(map[string][]string, len(sources))
	for _, rel := range sources {
		importsByFile[rel] = t.extractImports(rel)
	}

	visited := map[string]bool{startRel: true}
	frontier := []string{startRel}
	var nodes []*models.DependencyNode

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []string
		for _, rel := range frontier {
			node := &models.DependencyNode{
				Path:       rel,
				Imports:    importsByFile[rel],
				ImportedBy: importersOf(rel, sources, importsByFile),
			}
			nodes = append(nodes, node)

			for _, neighbor := range append(append([]string{}, node.Imports...), node.ImportedBy...) {
				if !visited[neighbor] {
					visited[neighbor] = true
					next = append(next, neighbor)
				}
			}
		}
		frontier = next
	}

	return renderDependencyNodes(nodes)
}

// extractImports returns the resolved relative-path imports of one file.
func (t *Toolset) extractImports(rel string) []string {
	content, err := os.ReadFile(filepath.Join(t.root, filepath.FromSlash(rel)))
	if err != nil {
		return nil
	}

	seen := map[string]bool{}
	var imports []string
	for _, re := range importRes {
		for _, m := range re.FindAllStringSubmatch(string(content), -1) {
			resolved := t.resolveImport(rel, m[1])
			if resolved != "" && !seen[resolved] {
				seen[resolved] = true
				imports = append(imports, resolved)
			}
		}
	}
	sort.Strings(imports)
	return imports
}

// resolveImport maps a relative specifier to a concrete file via the
// fixed extension and index-file search order.
func (t *Toolset) resolveImport(fromRel, spec string) string {
	base := path.Join(path.Dir(fromRel), spec)

	candidates := []string{base}
	for _, ext := range resolveExtensions {
		candidates = append(candidates, base+ext)
	}
	for _, ext := range resolveExtensions {
		candidates = append(candidates, path.Join(base, "index"+ext))
	}

	for _, candidate := range candidates {
		abs := filepath.Join(t.root, filepath.FromSlash(candidate))
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			return path.Clean(candidate)
		}
	}
	return ""
}

// importersOf finds every source file whose resolved imports include rel.
func importersOf(rel string, sources []string, importsByFile map[string][]string) []string {
	var importers []string
	for _, candidate := range sources {
		if candidate == rel {
			continue
		}
		for _, imp := range importsByFile[candidate] {
			if imp == rel {
				importers = append(importers, candidate)
				break
			}
		}
	}
	sort.Strings(importers)
	return importers
}

// sourceFiles lists candidate source files under the sandbox root,
// honoring the default ignore set so dependency scans skip build
// output and vendored trees.
func (t *Toolset) sourceFiles() []string {
	ignore := newIgnoreMatcher()
	var files []string
	_ = godirwalk.Walk(t.root, &godirwalk.Options{
		Unsorted: false,
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				if de.Name() == ".git" || de.Name() == "node_modules" {
					return filepath.SkipDir
				}
				return nil
			}
			if !sourceExtensions[filepath.Ext(osPathname)] {
				return nil
			}
			rel := t.relPath(osPathname)
			if ignore.Ignored(rel) {
				return nil
			}
			files = append(files, rel)
			return nil
		},
		ErrorCallback: func(_ string, _ error) godirwalk.ErrorAction {
			return godirwalk.SkipNode
		},
	})
	sort.Strings(files)
	return files
}

func renderDependencyNodes(nodes []*models.DependencyNode) string {
	var b strings.Builder
	for i, node := range nodes {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s\n", node.Path)
		b.WriteString("  imports:\n")
		writeList(&b, node.Imports)
		b.WriteString("  imported by:\n")
		writeList(&b, node.ImportedBy)
	}
	return b.String()
}

func writeList(b *strings.Builder, items []string) {
	if len(items) == 0 {
		b.WriteString("    (none)\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "    - %s\n", item)
	}
}
