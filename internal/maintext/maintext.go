// Package maintext counts the words of a manuscript's main text, either by
// slicing the detexed text after the title block or by running the
// wordcount macro over a typeset copy of the document.
package maintext

import (
	"context"
	"fmt"
	"strings"

	"latex-length/internal/compiler"
	"latex-length/internal/document"
	"latex-length/internal/types"
)

// Counter counts main-text words of a document.
type Counter interface {
	Count(ctx context.Context, doc *document.Document, detexed []string) (int, error)
}

// Options configures the counters built by New.
type Options struct {
	RoundTrip *compiler.RoundTrip
	// MacroPath is the configured wordcount.tex; empty searches next to the
	// document and then in the working directory.
	MacroPath string
	// ScratchRoot is the parent of per-run scratch directories; empty means
	// the system temp directory.
	ScratchRoot string
	// ExcludedEnvs overrides the environments commented out before
	// typesetting; nil selects ExcludedEnvs.
	ExcludedEnvs []string
}

// New returns the counter for method.
func New(method types.Method, opts Options) (Counter, error) {
	switch method {
	case types.MethodDetex:
		return &DetexCounter{}, nil
	case types.MethodWordcount:
		if opts.RoundTrip == nil {
			return nil, types.NewAppError(types.ErrInternal, "wordcount method needs a round trip", nil)
		}
		envs := opts.ExcludedEnvs
		if envs == nil {
			envs = ExcludedEnvs
		}
		return &WordcountCounter{
			RoundTrip:   opts.RoundTrip,
			MacroPath:   opts.MacroPath,
			ScratchRoot: opts.ScratchRoot,
			Envs:        envs,
		}, nil
	}
	return nil, types.NewAppErrorWithDetails(types.ErrConfig,
		fmt.Sprintf("unsupported method %q", method),
		fmt.Sprintf("choose %s or %s", types.MethodDetex, types.MethodWordcount), nil)
}

// CountWords counts whitespace-separated tokens after turning hyphens into
// spaces, so hyphenated compounds count once per part.
func CountWords(lines []string) int {
	n := 0
	for _, line := range lines {
		n += len(strings.Fields(strings.ReplaceAll(line, "-", " ")))
	}
	return n
}
