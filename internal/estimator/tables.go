package estimator

import (
	"strings"

	"latex-length/internal/logger"
	"latex-length/internal/scanner"
)

// TableEnv matches table and table*.
const TableEnv = "tabl"

// TableBlock is one table and its word equivalent.
type TableBlock struct {
	scanner.Span `yaml:",inline"`
	Rows         int `json:"rows" yaml:"rows"`
	Words        int `json:"words" yaml:"words"`
}

// TableWords converts a row count to words: 13*rows+26 for two-column
// tables, 6.5*rows+13 otherwise, truncated.
func TableWords(rows int, twoColumn bool) int {
	if twoColumn {
		return int(13.0*float64(rows) + 26.0)
	}
	return int(6.5*float64(rows) + 13.0)
}

// CountTables returns every table block and their summed word equivalent.
// Rows start at one and grow by one per line break from the begin line up to
// the end line.
func CountTables(lines []string) ([]TableBlock, int, error) {
	spans, err := scanner.Spans(lines, scanner.SpanOptions{EndPatterns: []string{"table"}}, TableEnv)
	if err != nil {
		return nil, 0, err
	}

	var blocks []TableBlock
	total := 0
	for _, span := range spans {
		rows := 1
		for _, line := range lines[span.Begin:span.End] {
			if strings.Contains(line, scanner.LineBreak) {
				rows++
			}
		}
		block := TableBlock{
			Span:  span,
			Rows:  rows,
			Words: TableWords(rows, span.Starred),
		}
		logger.Debug("table",
			logger.Int("line", span.Begin+1),
			logger.Bool("twoColumn", span.Starred),
			logger.Int("rows", rows),
			logger.Int("words", block.Words))
		blocks = append(blocks, block)
		total += block.Words
	}
	return blocks, total, nil
}
