// Package compiler drives the LaTeX/BibTeX round trip that feeds the
// wordcount macro.
package compiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"latex-length/internal/logger"
	"latex-length/internal/runner"
	"latex-length/internal/types"
)

const (
	// CompilerPDFLaTeX is the pdflatex compiler
	CompilerPDFLaTeX = "pdflatex"
	// DefaultBibTeX is the bibtex executable
	DefaultBibTeX = "bibtex"
)

// Fixed file names inside the scratch directory.
const (
	ScratchBase   = "scratch"
	WordcountBase = "wordcount"
)

// Pass records the outcome of one tool invocation.
type Pass struct {
	Name     string
	ExitCode int
	Warning  string
}

// Result is the outcome of a round trip.
type Result struct {
	// Log is the content of wordcount.log.
	Log    string
	Passes []Pass
}

// RoundTrip typesets a prepared document and runs the wordcount macro on it.
type RoundTrip struct {
	compiler string
	bibtex   string
	runner   runner.Runner
}

// NewRoundTrip creates a RoundTrip. Empty names select pdflatex and bibtex.
func NewRoundTrip(compiler, bibtex string, r runner.Runner) *RoundTrip {
	if compiler == "" {
		compiler = CompilerPDFLaTeX
	}
	if bibtex == "" {
		bibtex = DefaultBibTeX
	}
	return &RoundTrip{compiler: compiler, bibtex: bibtex, runner: r}
}

// Run processes workDir/scratch.tex with latex, bibtex, latex, latex and then
// feeds it to the wordcount macro. docDir is added to the TeX and BibTeX
// search paths so figures, styles and .bib files next to the manuscript are
// found. Non-zero exits of the typesetting passes are only warnings; the macro
// pass must leave wordcount.log behind.
func (c *RoundTrip) Run(ctx context.Context, workDir, docDir, macroPath string) (*Result, error) {
	if err := copyFile(macroPath, filepath.Join(workDir, WordcountBase+".tex")); err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrConfig, "cannot stage wordcount macro", macroPath, err)
	}

	texEnv := []string{searchPath("TEXINPUTS", ".", docDir)}
	bibEnv := []string{searchPath("BIBINPUTS", docDir), searchPath("BSTINPUTS", docDir)}
	texFile := ScratchBase + ".tex"

	steps := []struct {
		name string
		cmd  runner.Command
	}{
		{"first pass", c.latex(workDir, texEnv, "-interaction=nonstopmode", texFile)},
		{"bibtex", runner.Command{Name: c.bibtex, Args: []string{ScratchBase}, Dir: workDir, Env: bibEnv}},
		{"second pass", c.latex(workDir, texEnv, "-interaction=nonstopmode", texFile)},
		{"third pass", c.latex(workDir, texEnv, "-interaction=nonstopmode", texFile)},
	}

	result := &Result{}
	for _, step := range steps {
		logger.Debug("round trip step", logger.String("step", step.name), logger.String("command", step.cmd.String()))
		pass, err := c.run(ctx, step.name, step.cmd)
		if err != nil {
			return nil, err
		}
		result.Passes = append(result.Passes, pass)
	}

	// The macro asks for the file name on the terminal, so it must not run in
	// nonstop mode.
	macro := c.latex(workDir, texEnv, "-interaction=scrollmode", WordcountBase+".tex")
	macro.Stdin = strings.NewReader(texFile + "\n")
	pass, err := c.run(ctx, "wordcount", macro)
	if err != nil {
		return nil, err
	}
	result.Passes = append(result.Passes, pass)

	logPath := filepath.Join(workDir, WordcountBase+".log")
	data, err := os.ReadFile(logPath)
	if err != nil {
		details := logPath
		if pass.Warning != "" {
			details += ": " + pass.Warning
		}
		return nil, types.NewAppErrorWithDetails(types.ErrExternalTool,
			"wordcount macro produced no log", details, err)
	}
	result.Log = string(data)
	return result, nil
}

func (c *RoundTrip) latex(dir string, env []string, args ...string) runner.Command {
	return runner.Command{Name: c.compiler, Args: args, Dir: dir, Env: env}
}

// run executes one step. A tool that ran to completion with a non-zero exit
// becomes a warning; anything else (missing tool, timeout, cancellation) is
// returned.
func (c *RoundTrip) run(ctx context.Context, name string, cmd runner.Command) (Pass, error) {
	res, err := c.runner.Run(ctx, cmd)
	pass := Pass{Name: name}
	if res != nil {
		pass.ExitCode = res.ExitCode
	}
	if err == nil {
		return pass, nil
	}
	if ctx.Err() != nil {
		return pass, types.NewAppError(types.ErrExternalTool, fmt.Sprintf("%s interrupted", name), ctx.Err())
	}
	if res == nil || res.ExitCode <= 0 {
		return pass, err
	}
	pass.Warning = err.Error()
	logger.Warn("typesetting pass reported errors",
		logger.String("step", name),
		logger.String("tool", cmd.Name),
		logger.Int("exitCode", res.ExitCode))
	return pass, nil
}

// searchPath builds a kpathsea variable; the trailing separator keeps the
// default search path.
func searchPath(name string, dirs ...string) string {
	sep := string(filepath.ListSeparator)
	return name + "=" + strings.Join(dirs, sep) + sep
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
