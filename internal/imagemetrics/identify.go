package imagemetrics

import (
	"context"
	"regexp"
	"strings"

	"latex-length/internal/runner"
	"latex-length/internal/types"
)

// DefaultIdentify is the ImageMagick identify executable.
const DefaultIdentify = "identify"

// geometry matches the WIDTHxHEIGHT field of identify output.
var geometry = regexp.MustCompile(`\s(\d+(?:\.\d+)?)x(\d+(?:\.\d+)?)(?:\s|$)`)

// Identify measures images with `identify <file>`, in pixels.
type Identify struct {
	tool   string
	runner runner.Runner
}

// NewIdentify creates an identify backend.
func NewIdentify(tool string, r runner.Runner) *Identify {
	if tool == "" {
		tool = DefaultIdentify
	}
	return &Identify{tool: tool, runner: r}
}

func (b *Identify) Name() string { return BackendIdentify }

func (b *Identify) Size(ctx context.Context, path string) (float64, float64, error) {
	res, err := b.runner.Run(ctx, runner.Command{Name: b.tool, Args: []string{path}})
	if err != nil {
		return 0, 0, err
	}
	return ParseIdentify(string(res.Stdout), path)
}

// ParseIdentify extracts the geometry from the first line of identify
// output, e.g. "fig.png PNG 640x480 640x480+0+0 8-bit sRGB 12KB".
func ParseIdentify(out, path string) (float64, float64, error) {
	first, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	m := geometry.FindStringSubmatch(first)
	if m == nil {
		return 0, 0, types.NewAppErrorWithDetails(types.ErrExternalTool,
			"identify printed no geometry", path+": "+first, nil)
	}
	w, err := parseDim(m[1], "width", path)
	if err != nil {
		return 0, 0, err
	}
	h, err := parseDim(m[2], "height", path)
	if err != nil {
		return 0, 0, err
	}
	return w, h, nil
}
