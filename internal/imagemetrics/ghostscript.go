package imagemetrics

import (
	"context"
	"os"
	"strings"

	"latex-length/internal/runner"
	"latex-length/internal/types"
)

// DefaultGhostscript is the Ghostscript executable.
const DefaultGhostscript = "gs"

// Ghostscript measures PDF/EPS figures with the bbox device, in points.
type Ghostscript struct {
	tool   string
	runner runner.Runner
}

// NewGhostscript creates a gs backend.
func NewGhostscript(tool string, r runner.Runner) *Ghostscript {
	if tool == "" {
		tool = DefaultGhostscript
	}
	return &Ghostscript{tool: tool, runner: r}
}

func (b *Ghostscript) Name() string { return BackendGS }

// Size feeds the file to `gs -q -dSAFER -dBATCH -sDEVICE=bbox -` and reads
// the bounding box it prints on stderr.
func (b *Ghostscript) Size(ctx context.Context, path string) (float64, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, types.NewAppErrorWithDetails(types.ErrFileNotFound, "cannot open picture file", path, err)
	}
	defer f.Close()

	res, err := b.runner.Run(ctx, runner.Command{
		Name:  b.tool,
		Args:  []string{"-q", "-dSAFER", "-dBATCH", "-sDEVICE=bbox", "-"},
		Stdin: f,
	})
	if err != nil {
		return 0, 0, err
	}
	return ParseBoundingBox(string(res.Stderr), path)
}

// ParseBoundingBox reads the first "%%BoundingBox: llx lly urx ury" line and
// returns urx and ury as width and height. Figures are expected to sit at
// the origin, as cropped EPS/PDF figures do.
func ParseBoundingBox(out, path string) (float64, float64, error) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "%%BoundingBox:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			// "%%BoundingBox: (atend)" defers the box to the trailer.
			continue
		}
		w, err := parseDim(fields[3], "bounding box width", path)
		if err != nil {
			return 0, 0, err
		}
		h, err := parseDim(fields[4], "bounding box height", path)
		if err != nil {
			return 0, 0, err
		}
		return w, h, nil
	}
	return 0, 0, types.NewAppErrorWithDetails(types.ErrExternalTool,
		"no bounding box reported", path, nil)
}
