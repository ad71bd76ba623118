package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"latex-length/internal/config"
	"latex-length/internal/logger"
	"latex-length/internal/types"
)

// options holds the command-line flags. Only flags the user set override
// the configuration.
type options struct {
	configPath     string
	vars           []string
	env            string
	method         string
	figs           string
	scaleFigs      float64
	journal        string
	latex          string
	bibtex         string
	detex          string
	identify       string
	ghostscript    string
	wordcountMacro string
	wordcountEnvs  string
	format         string
	logFile        string
	verbose        bool
	timeout        time.Duration
	jobs           int
	keepGoing      bool
	listJournals   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	args, err := normalizeVarArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "latex-length: %v\n", err)
		return types.ExitConfig
	}

	var runErr error
	opts := &options{}
	cmd := newRootCommand(opts, func(cmd *cobra.Command, paths []string) error {
		runErr = execute(cmd.Context(), cmd, opts, paths, stdout, stderr)
		return runErr
	})
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "latex-length: %v\n", err)
		if runErr == nil {
			// flag parsing or argument validation
			return types.ExitConfig
		}
		return exitStatus(err)
	}
	return types.ExitOK
}

func newRootCommand(opts *options, runE func(cmd *cobra.Command, args []string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "latex-length [flags] file.tex...",
		Short: "Estimate the length of an APS manuscript written in LaTeX",
		Long: `Estimate the length of a LaTeX manuscript the way APS journals count it:
main-text words plus word equivalents for displayed math, figures and tables,
compared with the selected journal's limit.`,
		Example: `  latex-length paper.tex
  latex-length -m detex -f identify --var \figdir figs paper.tex
  latex-length --jobs 4 --keep-going --format json a.tex b.tex`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !opts.listJournals {
				return errors.New("at least one .tex file is required")
			}
			return nil
		},
		RunE: runE,
	}

	defaults := config.DefaultConfig()
	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "configuration file (JSON or YAML)")
	f.StringArrayVarP(&opts.vars, "var", "v", nil, "substitute KEY with VALUE in figure file names (--var KEY VALUE, repeatable)")
	f.StringVarP(&opts.env, "env", "e", strings.Join(defaults.Env, ","), "environments ignored by detex")
	f.StringVarP(&opts.method, "method", "m", string(defaults.Method), "main-text counting method (detex | wordcount)")
	f.StringVarP(&opts.figs, "figs", "f", defaults.Figs, "figure size backend (identify | gs | native)")
	f.Float64Var(&opts.scaleFigs, "scale-figs", defaults.ScaleFigs, "scale factor applied to the figure word count")
	f.StringVarP(&opts.journal, "journal", "j", defaults.Journal, "journal word-limit profile")
	f.StringVarP(&opts.latex, "latex", "l", defaults.LaTeX, "LaTeX executable")
	f.StringVar(&opts.bibtex, "bibtex", defaults.BibTeX, "BibTeX executable")
	f.StringVar(&opts.detex, "detex", defaults.Detex, "detex executable")
	f.StringVar(&opts.identify, "identify", defaults.Identify, "ImageMagick identify executable")
	f.StringVar(&opts.ghostscript, "gs", defaults.Ghostscript, "Ghostscript executable")
	f.StringVar(&opts.wordcountMacro, "wordcount-macro", "", "path to wordcount.tex (default: next to the document, then the working directory)")
	f.StringVar(&opts.wordcountEnvs, "wordcount-envs", strings.Join(defaults.WordcountEnvs, ","), "environments commented out before the wordcount pass")
	f.StringVar(&opts.format, "format", string(defaults.Format), "report format (text | json | yaml)")
	f.StringVar(&opts.logFile, "log-file", "", "also write log entries to this file")
	f.BoolVar(&opts.verbose, "verbose", false, "log debug details to stderr")
	f.DurationVar(&opts.timeout, "timeout", defaults.Timeout, "limit for each external tool invocation")
	f.IntVar(&opts.jobs, "jobs", defaults.Jobs, "documents analysed in parallel")
	f.BoolVar(&opts.keepGoing, "keep-going", false, "analyse every document even if one fails")
	f.BoolVar(&opts.listJournals, "list-journals", false, "print the known journals and their limits")
	return cmd
}

// execute loads configuration, applies flags and runs the analysis.
func execute(ctx context.Context, cmd *cobra.Command, opts *options, paths []string, stdout, stderr io.Writer) error {
	cm, err := config.NewConfigManager(opts.configPath)
	if err != nil {
		return err
	}
	if err := cm.Load(); err != nil {
		return err
	}
	cfg := cm.GetConfig()
	if err := applyFlags(cmd, opts, cfg); err != nil {
		return err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return types.NewAppError(types.ErrConfig, "invalid log level", err)
	}
	if err := logger.Init(&logger.Config{LogFilePath: cfg.LogFile, Level: level, Console: stderr}); err != nil {
		return types.NewAppError(types.ErrConfig, "failed to initialise logging", err)
	}
	defer logger.Close()

	if opts.listJournals {
		for _, j := range config.Journals(cfg) {
			fmt.Fprintf(stdout, "%-10s %5d\n", j.Name, j.Limit)
		}
		return nil
	}

	journal, err := config.Resolve(cfg)
	if err != nil {
		return err
	}

	app, err := NewApp(cfg, journal)
	if err != nil {
		return err
	}
	return app.Run(ctx, paths, stdout, stderr)
}

// applyFlags copies explicitly set flags over cfg.
func applyFlags(cmd *cobra.Command, opts *options, cfg *types.Config) error {
	f := cmd.Flags()
	set := func(name string, apply func()) {
		if f.Changed(name) {
			apply()
		}
	}

	set("env", func() { cfg.Env = splitList(opts.env) })
	set("method", func() { cfg.Method = types.Method(opts.method) })
	set("figs", func() { cfg.Figs = opts.figs })
	set("scale-figs", func() { cfg.ScaleFigs = opts.scaleFigs })
	set("journal", func() { cfg.Journal = opts.journal })
	set("latex", func() { cfg.LaTeX = opts.latex })
	set("bibtex", func() { cfg.BibTeX = opts.bibtex })
	set("detex", func() { cfg.Detex = opts.detex })
	set("identify", func() { cfg.Identify = opts.identify })
	set("gs", func() { cfg.Ghostscript = opts.ghostscript })
	set("wordcount-macro", func() { cfg.WordcountMacro = opts.wordcountMacro })
	set("wordcount-envs", func() { cfg.WordcountEnvs = splitList(opts.wordcountEnvs) })
	set("format", func() { cfg.Format = types.Format(opts.format) })
	set("log-file", func() { cfg.LogFile = opts.logFile })
	set("timeout", func() { cfg.Timeout = opts.timeout })
	set("jobs", func() { cfg.Jobs = opts.jobs })
	set("keep-going", func() { cfg.KeepGoing = opts.keepGoing })
	if opts.verbose {
		cfg.LogLevel = "debug"
	}

	for _, v := range opts.vars {
		key, value, ok := strings.Cut(v, "=")
		if !ok {
			return types.NewAppErrorWithDetails(types.ErrConfig, "malformed --var", v, nil)
		}
		cfg.Vars = append(cfg.Vars, types.Var{Key: key, Value: value})
	}
	return nil
}

// normalizeVarArgs rewrites the two-token form "--var KEY VALUE" into
// "--var=KEY=VALUE" so the flag parser sees a single value. Arguments after
// "--" are left alone.
func normalizeVarArgs(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return append(out, args[i:]...), nil
		}
		if arg != "--var" && arg != "-v" {
			out = append(out, arg)
			continue
		}
		if i+2 >= len(args) {
			return nil, types.NewAppError(types.ErrConfig, arg+" needs KEY and VALUE", nil)
		}
		key, value := args[i+1], args[i+2]
		if strings.Contains(key, "=") {
			return nil, types.NewAppErrorWithDetails(types.ErrConfig, "--var key must not contain '='", key, nil)
		}
		out = append(out, "--var="+key+"="+value)
		i += 2
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
