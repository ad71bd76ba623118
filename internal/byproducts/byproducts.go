// Package byproducts removes the converted-figure files that typesetting
// leaves behind, sparing any that existed before the run.
package byproducts

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"latex-length/internal/logger"
)

// Suffix marks PDFs that epstopdf writes next to converted EPS figures.
const Suffix = "-eps-converted-to.pdf"

// DefaultDepth is how many directory levels below a root are searched, so
// figure subdirectories of a document are covered.
const DefaultDepth = 2

// Tracker remembers which byproducts existed when it was created.
type Tracker struct {
	mu       sync.Mutex
	depth    int
	roots    []string
	existing map[string]bool
}

// NewTracker snapshots the byproducts under roots.
func NewTracker(depth int, roots ...string) *Tracker {
	t := &Tracker{depth: depth, existing: make(map[string]bool)}
	seen := make(map[string]bool)
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			abs = root
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		t.roots = append(t.roots, abs)
		for _, p := range t.scan(abs) {
			t.existing[p] = true
		}
	}
	logger.Debug("byproduct snapshot",
		logger.Int("roots", len(t.roots)),
		logger.Int("existing", len(t.existing)))
	return t
}

// Existing lists the byproducts present at snapshot time.
func (t *Tracker) Existing() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.existing))
	for p := range t.existing {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Cleanup removes byproducts created since the snapshot and returns their
// paths. Removal failures are logged and skipped.
func (t *Tracker) Cleanup() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed []string
	for _, root := range t.roots {
		for _, p := range t.scan(root) {
			if t.existing[p] {
				continue
			}
			if err := os.Remove(p); err != nil {
				if !os.IsNotExist(err) {
					logger.Warn("failed to remove byproduct", logger.String("path", p), logger.Err(err))
				}
				continue
			}
			removed = append(removed, p)
		}
	}
	if len(removed) > 0 {
		logger.Info("removed byproducts", logger.Int("count", len(removed)))
	}
	return removed
}

func (t *Tracker) scan(root string) []string {
	var found []string
	base := strings.Count(root, string(filepath.Separator))
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if path != root && (strings.HasPrefix(d.Name(), ".") ||
				strings.Count(path, string(filepath.Separator))-base > t.depth) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), Suffix) {
			found = append(found, path)
		}
		return nil
	})
	return found
}
