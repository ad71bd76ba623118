package estimator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"latex-length/internal/types"
)

// FigureExtensions are tried in order when resolving an image file.
var FigureExtensions = []string{"", ".pdf", ".eps", ".png"}

// Resolver maps a figure name from the source to the image file on disk.
type Resolver struct {
	// GraphicsPath is prepended to every name.
	GraphicsPath string
	// Vars are literal substitutions applied in order after the prefix.
	Vars []types.Var
	// BaseDir anchors relative names, normally the document directory.
	BaseDir string
}

// Name applies the graphics path and substitutions without touching the
// filesystem.
func (r *Resolver) Name(name string) string {
	name = r.GraphicsPath + name
	for _, v := range r.Vars {
		if v.Key != "" && strings.Contains(name, v.Key) {
			name = strings.ReplaceAll(name, v.Key, v.Value)
		}
	}
	return name
}

// Resolve returns the single file matching the substituted name under one
// of FigureExtensions. No match and several matches are both errors.
func (r *Resolver) Resolve(name string) (string, error) {
	base := r.Name(name)
	if !filepath.IsAbs(base) && r.BaseDir != "" {
		base = filepath.Join(r.BaseDir, base)
	}

	var found []string
	seen := make(map[string]bool)
	for _, ext := range FigureExtensions {
		matches, err := filepath.Glob(base + ext)
		if err != nil {
			return "", types.NewAppErrorWithDetails(types.ErrConfig, "invalid figure file pattern", base+ext, err)
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			if info, err := os.Stat(m); err != nil || info.IsDir() {
				continue
			}
			seen[m] = true
			found = append(found, m)
		}
	}

	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return "", types.NewAppErrorWithDetails(types.ErrFileNotFound,
			"missing picture file", fmt.Sprintf("%s (tried extensions %q)", base, FigureExtensions), nil)
	default:
		return "", types.NewAppErrorWithDetails(types.ErrAmbiguousReference,
			"ambiguous picture file", fmt.Sprintf("%s matches %s", base, strings.Join(found, ", ")), nil)
	}
}
