// Package detex runs the external markup-stripping tool and returns its plain
// text output as lines.
package detex

import (
	"context"
	"strings"

	"latex-length/internal/logger"
	"latex-length/internal/runner"
)

// DefaultTool is the detex executable name.
const DefaultTool = "detex"

// DefaultEnvs lists the environments stripped by default.
var DefaultEnvs = []string{"abstract", "acknowledgements", "displaymath", "equation", "eqnarray", "thebibliography"}

// PicturePrefix marks an image placeholder line in detex output, e.g.
// "<Picture fig1>".
const PicturePrefix = "<Picture"

// Extractor produces detexed lines for a document.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]string, error)
}

// Detex is an Extractor backed by the detex command.
type Detex struct {
	Tool   string
	Envs   []string
	Runner runner.Runner
}

// New creates a Detex extractor. Empty arguments select the defaults.
func New(tool string, envs []string, r runner.Runner) *Detex {
	if tool == "" {
		tool = DefaultTool
	}
	if len(envs) == 0 {
		envs = DefaultEnvs
	}
	return &Detex{Tool: tool, Envs: envs, Runner: r}
}

// Extract runs `detex -e env1,env2 path`. A non-zero exit is an error rather
// than an empty text.
func (d *Detex) Extract(ctx context.Context, path string) ([]string, error) {
	res, err := d.Runner.Run(ctx, runner.Command{
		Name: d.Tool,
		Args: []string{"-e", strings.Join(d.Envs, ","), path},
	})
	if err != nil {
		return nil, err
	}
	lines := SplitOutput(string(res.Stdout))
	logger.Debug("detex finished", logger.String("path", path), logger.Int("lines", len(lines)))
	return lines, nil
}

// SplitOutput trims the whole output and splits it on newlines, keeping
// interior blank lines.
func SplitOutput(out string) []string {
	out = strings.TrimSpace(strings.ReplaceAll(out, "\r\n", "\n"))
	return strings.Split(out, "\n")
}

// IsPicture reports whether a detexed line is an image placeholder.
func IsPicture(line string) bool {
	return strings.Contains(line, PicturePrefix)
}

// PictureName returns the file token of a placeholder line: the second
// field once the surrounding angle brackets are removed.
func PictureName(line string) (string, bool) {
	s := strings.TrimSpace(line)
	if len(s) < 2 {
		return "", false
	}
	fields := strings.Fields(s[1 : len(s)-1])
	if len(fields) < 2 {
		return "", false
	}
	return fields[1], true
}
