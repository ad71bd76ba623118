// Package report assembles the per-document length report and renders it as
// text, JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"latex-length/internal/estimator"
	"latex-length/internal/types"
)

// AbstractGuide is the recommended abstract length in characters.
const AbstractGuide = 600

// Limit comparison outcomes.
const (
	StatusOver  = "OVER"
	StatusUnder = "UNDER"
)

// Report is the length estimate of one manuscript.
type Report struct {
	Document       string                    `json:"document" yaml:"document"`
	Method         types.Method              `json:"method" yaml:"method"`
	Journal        string                    `json:"journal" yaml:"journal"`
	Limit          int                       `json:"limit" yaml:"limit"`
	AbstractChars  int                       `json:"abstract_chars" yaml:"abstract_chars"`
	MainText       int                       `json:"main_text" yaml:"main_text"`
	Equations      int                       `json:"equations" yaml:"equations"`
	Figures        int                       `json:"figures" yaml:"figures"`
	Tables         int                       `json:"tables" yaml:"tables"`
	Total          int                       `json:"total" yaml:"total"`
	Delta          int                       `json:"delta" yaml:"delta"`
	Percent        float64                   `json:"percent" yaml:"percent"`
	Status         string                    `json:"status" yaml:"status"`
	EquationBlocks []estimator.EquationBlock `json:"equation_blocks,omitempty" yaml:"equation_blocks,omitempty"`
	TableBlocks    []estimator.TableBlock    `json:"table_blocks,omitempty" yaml:"table_blocks,omitempty"`
	FigureBlocks   []estimator.FigureBlock   `json:"figure_blocks,omitempty" yaml:"figure_blocks,omitempty"`
}

// Input carries the component results for Assemble.
type Input struct {
	Document      string
	Method        types.Method
	Journal       types.Journal
	AbstractChars int
	MainText      int
	Equations     int
	Figures       int
	Tables        int

	EquationBlocks []estimator.EquationBlock
	TableBlocks    []estimator.TableBlock
	FigureBlocks   []estimator.FigureBlock
}

// Assemble totals the components and compares the total with the journal
// limit. A total equal to the limit is UNDER.
func Assemble(in Input) *Report {
	r := &Report{
		Document:       in.Document,
		Method:         in.Method,
		Journal:        in.Journal.Name,
		Limit:          in.Journal.Limit,
		AbstractChars:  in.AbstractChars,
		MainText:       in.MainText,
		Equations:      in.Equations,
		Figures:        in.Figures,
		Tables:         in.Tables,
		EquationBlocks: in.EquationBlocks,
		TableBlocks:    in.TableBlocks,
		FigureBlocks:   in.FigureBlocks,
	}
	r.Total = r.MainText + r.Equations + r.Figures + r.Tables
	r.Delta = r.Total - r.Limit
	if r.Limit > 0 {
		r.Percent = float64(r.Delta) / float64(r.Limit) * 100
	}
	r.Status = StatusUnder
	if r.Total > r.Limit {
		r.Status = StatusOver
	}
	return r
}

// Summary is the one-line verdict.
func (r *Report) Summary() string {
	return fmt.Sprintf("Manuscript %s is currently %d words (%.1f%%) %s limit of %d words for journal %s",
		r.Document, abs(r.Delta), abs64(r.Percent), r.Status, r.Limit, r.Journal)
}

// Render writes reports in format. Text reports are separated by a blank
// line; JSON and YAML emit a single report as an object and several as a
// list.
func Render(w io.Writer, format types.Format, reports ...*Report) error {
	switch format {
	case types.FormatText, "":
		for i, r := range reports {
			if i > 0 {
				if _, err := io.WriteString(w, "\n"); err != nil {
					return err
				}
			}
			if err := renderText(w, r); err != nil {
				return err
			}
		}
		return nil
	case types.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(reports) == 1 {
			return enc.Encode(reports[0])
		}
		return enc.Encode(reports)
	case types.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		if len(reports) == 1 {
			return enc.Encode(reports[0])
		}
		return enc.Encode(reports)
	}
	return types.NewAppErrorWithDetails(types.ErrConfig,
		fmt.Sprintf("unknown output format %q", format), "choose text, json or yaml", nil)
}

func renderText(w io.Writer, r *Report) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Processing TeX file: %s\n\n", r.Document)
	fmt.Fprintf(&sb, "Abstract:       %6d chars (max %d)\n", r.AbstractChars, AbstractGuide)
	fmt.Fprintf(&sb, "Method:         %s\n", r.Method)

	for i, eq := range r.EquationBlocks {
		fmt.Fprintf(&sb, "Equation %d: %6d words (%s, lines %d-%d, %d rows",
			i+1, eq.Words, eq.Env, eq.Begin+1, eq.End+1, eq.Lines)
		if eq.ArrayRows > 0 {
			fmt.Fprintf(&sb, " x %d array rows", eq.ArrayRows)
		}
		sb.WriteString(")\n")
	}
	for i, tb := range r.TableBlocks {
		layout := "Single-column"
		if tb.Starred {
			layout = "Two-column"
		}
		fmt.Fprintf(&sb, "Table %d:    %6d words (%s table with %d lines)\n", i+1, tb.Words, layout, tb.Rows)
	}
	for i, fb := range r.FigureBlocks {
		fmt.Fprintf(&sb, "Figure %d:   %6d words (%.0fx%.0f aspect %.2f, %s)\n",
			i+1, int(fb.Words), fb.Width, fb.Height, fb.Aspect, fb.Path)
	}
	if len(r.EquationBlocks)+len(r.TableBlocks)+len(r.FigureBlocks) > 0 {
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "Main text:      %6d words\n", r.MainText)
	fmt.Fprintf(&sb, "Displayed Math: %6d words\n", r.Equations)
	fmt.Fprintf(&sb, "Figures:        %6d words\n", r.Figures)
	fmt.Fprintf(&sb, "Tables:         %6d words\n", r.Tables)
	fmt.Fprintf(&sb, "TOTAL:          %6d words\n", r.Total)
	sb.WriteString(r.Summary())
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func abs64(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
