// Package estimator converts displayed equations, tables and figures into
// word equivalents following the publisher's length guide.
package estimator

import (
	"strings"

	"latex-length/internal/logger"
	"latex-length/internal/scanner"
)

// Words per displayed-equation line.
const (
	EquationWordsSingle = 16
	EquationWordsDouble = 32
)

// EquationEnvs are the equation-like environments (prefix matched).
var EquationEnvs = []string{"equation", "eqnarray", "align", "displaymath"}

const (
	arrayBegin = `\begin{array}`
	arrayEnd   = `\end{array}`
)

// EquationBlock is one displayed equation and its word equivalent.
type EquationBlock struct {
	scanner.Span `yaml:",inline"`
	Lines        int `json:"lines" yaml:"lines"`
	ArrayRows    int `json:"array_rows" yaml:"array_rows"`
	Words        int `json:"words" yaml:"words"`
}

// CountEquations returns every equation block in lines and their summed word
// equivalent.
func CountEquations(lines []string) ([]EquationBlock, int, error) {
	spans, err := scanner.Spans(lines, scanner.SpanOptions{SkipBeginLine: true, EndPatterns: EquationEnvs}, EquationEnvs...)
	if err != nil {
		return nil, 0, err
	}

	var blocks []EquationBlock
	total := 0
	for _, span := range spans {
		block := measureEquation(lines[span.Begin+1 : span.End])
		block.Span = span

		perLine := EquationWordsSingle
		if block.Starred {
			perLine = EquationWordsDouble
		}
		rows := block.Lines
		if block.ArrayRows != 0 {
			rows *= block.ArrayRows
		}
		block.Words = rows * perLine

		logger.Debug("equation",
			logger.Int("line", span.Begin+1),
			logger.Int("lines", block.Lines),
			logger.Int("arrayRows", block.ArrayRows),
			logger.Int("words", block.Words))
		blocks = append(blocks, block)
		total += block.Words
	}
	return blocks, total, nil
}

// measureEquation counts line breaks in an equation body. Breaks inside an
// array go to ArrayRows instead; each new array restarts that count.
func measureEquation(body []string) EquationBlock {
	b := EquationBlock{Lines: 1}
	inArray := false
	for _, line := range body {
		if strings.Contains(line, scanner.LineBreak) {
			if inArray {
				b.ArrayRows++
			} else {
				b.Lines++
			}
		}
		if strings.Contains(line, arrayBegin) {
			inArray = true
			b.ArrayRows = 0
		}
		if strings.Contains(line, arrayEnd) {
			inArray = false
		}
	}
	return b
}
