package toolset

import (
	"fmt"
	"os"
	"strings"
)

// ReadFiles returns the concatenated contents of every requested path.
// An unreadable or out-of-tree path contributes an error line in its
// place instead of aborting the batch, so one bad path never hides the
// rest.
func (t *Toolset) ReadFiles(paths []string) string {
	if len(paths) == 0 {
		return "error: no paths given"
	}

	var b strings.Builder
	for i, path := range paths {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "==== %s ====\n", path)

		abs, err := t.resolve(path)
		if err != nil {
			fmt.Fprintf(&b, "error: %v\n", err)
			continue
		}

		content, err := os.ReadFile(abs)
		if err != nil {
			fmt.Fprintf(&b, "error: could not read %s: %v\n", path, err)
			continue
		}

		b.Write(content)
		if len(content) > 0 && content[len(content)-1] != '\n' {
			b.WriteString("\n")
		}
	}
	return b.String()
}
