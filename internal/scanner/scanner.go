// Package scanner locates LaTeX environment spans by scanning raw source lines.
//
// Markers are matched as substrings, not parsed: `\begin{equation` matches
// both equation and equation*, and the first `\end{...}` after a begin closes
// it. Environments of the same kind must not nest.
package scanner

import (
	"fmt"
	"strings"

	"latex-length/internal/types"
)

// LineBreak is the explicit line-break marker counted by the cost models.
const LineBreak = `\\`

// Span is an environment occurrence covering lines Begin..End inclusive.
type Span struct {
	Env     string `json:"env" yaml:"env"`
	Begin   int    `json:"begin" yaml:"begin"`
	End     int    `json:"end" yaml:"end"`
	Starred bool   `json:"starred" yaml:"starred"`
}

// BeginMarker returns the begin marker prefix for an environment pattern.
func BeginMarker(pattern string) string {
	return `\begin{` + pattern
}

// EndMarker returns the end marker prefix for an environment pattern.
func EndMarker(pattern string) string {
	return `\end{` + pattern
}

// FindBegins returns the indices of lines containing a begin marker for any
// of patterns.
func FindBegins(lines []string, patterns ...string) []int {
	var idx []int
	for i, line := range lines {
		if _, ok := matchMarker(line, BeginMarker, patterns); ok {
			idx = append(idx, i)
		}
	}
	return idx
}

// FindEnd returns the first line at or after start containing an end marker
// for any of patterns.
func FindEnd(lines []string, start int, patterns ...string) (int, error) {
	for i := start; i < len(lines); i++ {
		if _, ok := matchMarker(lines[i], EndMarker, patterns); ok {
			return i, nil
		}
	}
	return -1, types.NewAppErrorWithDetails(types.ErrMalformedDocument,
		fmt.Sprintf("missing %s}", EndMarker(strings.Join(patterns, "|"))),
		fmt.Sprintf("no end marker between line %d and the end of the document", start+1), nil)
}

// FindBackward returns the nearest line at or before start containing a begin
// marker for pattern.
func FindBackward(lines []string, start int, pattern string) (int, error) {
	marker := BeginMarker(pattern)
	if start >= len(lines) {
		start = len(lines) - 1
	}
	for i := start; i >= 0; i-- {
		if strings.Contains(lines[i], marker) {
			return i, nil
		}
	}
	return -1, types.NewAppErrorWithDetails(types.ErrMalformedDocument,
		fmt.Sprintf("missing %s}", marker),
		fmt.Sprintf("no enclosing environment before line %d", start+1), nil)
}

// EnvName extracts the environment name following the begin marker on line,
// e.g. "figure*" for `\begin{figure*}[t]`.
func EnvName(line string) string {
	_, rest, ok := strings.Cut(line, `\begin{`)
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, "}")
	return name
}

// IsStarred reports whether the begin marker on line is the starred
// (two-column) variant of env.
func IsStarred(line, env string) bool {
	return strings.Contains(line, BeginMarker(env+"*"))
}

// SpanOptions tunes how Spans pairs begin and end markers.
type SpanOptions struct {
	// SkipBeginLine starts the end search on the line after the begin
	// marker, so an end marker on the begin line is not seen.
	SkipBeginLine bool
	// EndPatterns closes a span at the first end marker of any of them.
	// Empty means the pattern that matched the begin marker.
	EndPatterns []string
}

// Spans returns the spans of every environment matching one of patterns, in
// document order. Each begin line opens its own span; a begin without a
// later end is an error.
func Spans(lines []string, opts SpanOptions, patterns ...string) ([]Span, error) {
	var spans []Span
	for i, line := range lines {
		pattern, ok := matchMarker(line, BeginMarker, patterns)
		if !ok {
			continue
		}
		start := i
		if opts.SkipBeginLine {
			start = i + 1
		}
		ends := opts.EndPatterns
		if len(ends) == 0 {
			ends = []string{pattern}
		}
		end, err := FindEnd(lines, start, ends...)
		if err != nil {
			return nil, err
		}
		spans = append(spans, newSpan(line, pattern, i, end))
	}
	return spans, nil
}

// Enclosing returns the pattern environment around line: the nearest begin
// at or before line, closed by the first end at or after it.
func Enclosing(lines []string, line int, pattern string) (Span, error) {
	begin, err := FindBackward(lines, line, pattern)
	if err != nil {
		return Span{}, err
	}
	end, err := FindEnd(lines, line, pattern)
	if err != nil {
		return Span{}, err
	}
	return newSpan(lines[begin], pattern, begin, end), nil
}

// newSpan names the span after the begin marker that matched pattern, which
// need not be the first \begin on the line.
func newSpan(line, pattern string, begin, end int) Span {
	name := EnvName(line[strings.Index(line, BeginMarker(pattern)):])
	return Span{
		Env:     name,
		Begin:   begin,
		End:     end,
		Starred: IsStarred(line, strings.TrimSuffix(name, "*")),
	}
}

func matchMarker(line string, marker func(string) string, patterns []string) (string, bool) {
	for _, p := range patterns {
		if strings.Contains(line, marker(p)) {
			return p, true
		}
	}
	return "", false
}
