package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"latex-length/internal/byproducts"
	"latex-length/internal/compiler"
	"latex-length/internal/detex"
	"latex-length/internal/document"
	"latex-length/internal/estimator"
	"latex-length/internal/imagemetrics"
	"latex-length/internal/logger"
	"latex-length/internal/maintext"
	"latex-length/internal/report"
	"latex-length/internal/runner"
	"latex-length/internal/types"
)

// App runs the length analysis for one or more manuscripts.
// It wires the text extractor, main-text counter, image metrics backend and
// word-cost models together and owns batch and cleanup policy.
type App struct {
	config  *types.Config
	journal types.Journal
	runID   string
	log     logger.Logger

	extractor detex.Extractor
	counter   maintext.Counter
	sizer     estimator.ImageSizer
}

// NewApp builds an App from a resolved configuration.
func NewApp(cfg *types.Config, journal types.Journal) (*App, error) {
	r := runner.NewExec(cfg.Timeout)

	sizer, err := imagemetrics.New(cfg.Figs, imagemetrics.Tools{
		Identify:    cfg.Identify,
		Ghostscript: cfg.Ghostscript,
	}, r)
	if err != nil {
		return nil, err
	}

	counter, err := maintext.New(cfg.Method, maintext.Options{
		RoundTrip:    compiler.NewRoundTrip(cfg.LaTeX, cfg.BibTeX, r),
		MacroPath:    cfg.WordcountMacro,
		ExcludedEnvs: cfg.WordcountEnvs,
	})
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	return &App{
		config:    cfg,
		journal:   journal,
		runID:     runID,
		log:       logger.GetLogger().With(logger.String("run", runID[:8])),
		extractor: detex.New(cfg.Detex, cfg.Env, r),
		counter:   counter,
		sizer:     sizer,
	}, nil
}

// outcome is the result for one document, kept in input order.
type outcome struct {
	path   string
	report *report.Report
	err    error
}

// Run analyses paths and writes the reports to stdout. Without KeepGoing the
// first failing document stops the batch; with it every document is tried
// and failures are summarised on stderr. The returned error carries the
// exit status.
func (a *App) Run(ctx context.Context, paths []string, stdout, stderr io.Writer) error {
	tracker := a.trackByproducts(paths)
	defer tracker.cleanup()

	a.log.Info("starting batch",
		logger.Int("documents", len(paths)),
		logger.String("method", string(a.config.Method)),
		logger.String("figs", a.config.Figs),
		logger.String("journal", a.journal.Name),
		logger.Int("jobs", a.config.Jobs))
	a.checkTools()

	outcomes := make([]outcome, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.Jobs)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i] = outcome{path: path, err: err}
				return nil
			}
			rep, err := a.Analyze(gctx, path)
			outcomes[i] = outcome{path: path, report: rep, err: err}
			if err != nil {
				a.log.Debug("document failed", logger.String("document", path), logger.Err(err))
				if !a.config.KeepGoing {
					return &types.DocumentError{Path: path, Err: err}
				}
			}
			return nil
		})
	}
	batchErr := g.Wait()

	var reports []*report.Report
	var failures []outcome
	for _, o := range outcomes {
		if o.err != nil {
			if !a.config.KeepGoing {
				break
			}
			failures = append(failures, o)
			continue
		}
		reports = append(reports, o.report)
	}

	if len(reports) > 0 {
		if err := report.Render(stdout, a.config.Format, reports...); err != nil {
			return types.NewAppError(types.ErrInternal, "failed to write report", err)
		}
	}

	if batchErr != nil {
		return batchErr
	}
	if len(failures) > 0 {
		fmt.Fprintf(stderr, "%d of %d documents failed:\n", len(failures), len(paths))
		for _, f := range failures {
			fmt.Fprintf(stderr, "  %s: %v\n", f.path, f.err)
		}
		return &types.DocumentError{Path: failures[0].path, Err: failures[0].err}
	}
	return ctx.Err()
}

// Analyze produces the report for a single manuscript.
func (a *App) Analyze(ctx context.Context, path string) (*report.Report, error) {
	log := a.log.With(logger.String("document", path))

	doc, err := document.Load(path)
	if err != nil {
		return nil, err
	}

	abstract, err := report.CountAbstractChars(doc.Lines)
	if err != nil {
		return nil, fmt.Errorf("abstract: %w", err)
	}

	detexed, err := a.extractor.Extract(ctx, doc.Path)
	if err != nil {
		return nil, fmt.Errorf("detex: %w", err)
	}

	mainWords, err := a.counter.Count(ctx, doc, detexed)
	if err != nil {
		return nil, fmt.Errorf("main text: %w", err)
	}
	log.Info("main text counted", logger.Int("words", mainWords))

	eqBlocks, eqWords, err := estimator.CountEquations(doc.Lines)
	if err != nil {
		return nil, fmt.Errorf("equations: %w", err)
	}

	figures := &estimator.FigureCounter{Sizer: a.sizer, Vars: a.config.Vars, Scale: a.config.ScaleFigs}
	figBlocks, figWords, err := figures.Count(ctx, doc, detexed)
	if err != nil {
		return nil, fmt.Errorf("figures: %w", err)
	}

	tabBlocks, tabWords, err := estimator.CountTables(doc.Lines)
	if err != nil {
		return nil, fmt.Errorf("tables: %w", err)
	}

	rep := report.Assemble(report.Input{
		Document:       path,
		Method:         a.config.Method,
		Journal:        a.journal,
		AbstractChars:  abstract,
		MainText:       mainWords,
		Equations:      eqWords,
		Figures:        figWords,
		Tables:         tabWords,
		EquationBlocks: eqBlocks,
		TableBlocks:    tabBlocks,
		FigureBlocks:   figBlocks,
	})
	log.Info("document analysed",
		logger.Int("total", rep.Total),
		logger.Int("limit", rep.Limit),
		logger.String("status", rep.Status))
	return rep, nil
}

// requiredTools lists the external executables the configured pipeline runs.
func (a *App) requiredTools() []string {
	tools := []string{a.config.Detex}
	if a.config.Method == types.MethodWordcount {
		tools = append(tools, a.config.LaTeX, a.config.BibTeX)
	}
	switch a.config.Figs {
	case imagemetrics.BackendIdentify:
		tools = append(tools, a.config.Identify)
	case imagemetrics.BackendGS:
		tools = append(tools, a.config.Ghostscript)
	}
	return tools
}

// checkTools logs whether each required executable is on PATH. A missing
// tool still fails later with its own error.
func (a *App) checkTools() {
	for _, tool := range a.requiredTools() {
		a.log.Debug("tool lookup", logger.String("tool", tool), logger.Bool("found", runner.Available(tool)))
	}
}

type byproductSet []*byproducts.Tracker

func (s byproductSet) cleanup() {
	for _, t := range s {
		t.Cleanup()
	}
}

// trackByproducts snapshots converted figures in the working directory and
// around each document before anything is typeset.
func (a *App) trackByproducts(paths []string) byproductSet {
	var set byproductSet
	if cwd, err := os.Getwd(); err == nil {
		set = append(set, byproducts.NewTracker(0, cwd))
	}

	seen := make(map[string]bool)
	var dirs []string
	for _, p := range paths {
		dir := filepath.Dir(p)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	set = append(set, byproducts.NewTracker(byproducts.DefaultDepth, dirs...))

	for _, t := range set {
		if existing := t.Existing(); len(existing) > 0 {
			a.log.Debug("keeping existing byproducts", logger.String("files", strings.Join(existing, ",")))
		}
	}
	return set
}

// exitInterrupted is the conventional status after SIGINT.
const exitInterrupted = 130

// exitStatus maps a run error to the process exit code.
func exitStatus(err error) int {
	if errors.Is(err, context.Canceled) {
		return exitInterrupted
	}
	return types.ExitCode(err)
}
