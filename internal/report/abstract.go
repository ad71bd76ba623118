package report

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"latex-length/internal/types"
)

const (
	abstractBegin = `\begin{abstract}`
	abstractEnd   = `\end{abstract}`
)

// CountAbstractChars counts the characters of the abstract body: the lines
// strictly between \begin{abstract} and \end{abstract} that do not start with
// '%', each counted with its line terminator. Both markers must appear
// exactly once.
func CountAbstractChars(lines []string) (int, error) {
	begin, err := uniqueLine(lines, abstractBegin)
	if err != nil {
		return 0, err
	}
	end, err := uniqueLine(lines, abstractEnd)
	if err != nil {
		return 0, err
	}
	if end < begin {
		return 0, types.NewAppErrorWithDetails(types.ErrMalformedDocument,
			abstractEnd+" before "+abstractBegin,
			fmt.Sprintf("lines %d and %d", end+1, begin+1), nil)
	}

	n := 0
	for _, line := range lines[begin+1 : end] {
		if strings.HasPrefix(line, "%") {
			continue
		}
		n += utf8.RuneCountInString(line) + 1
	}
	return n, nil
}

func uniqueLine(lines []string, marker string) (int, error) {
	found := -1
	for i, line := range lines {
		if !strings.Contains(line, marker) {
			continue
		}
		if found >= 0 {
			return -1, types.NewAppErrorWithDetails(types.ErrMalformedDocument,
				"more than one "+marker, fmt.Sprintf("lines %d and %d", found+1, i+1), nil)
		}
		found = i
	}
	if found < 0 {
		return -1, types.NewAppError(types.ErrMalformedDocument, "missing "+marker, nil)
	}
	return found, nil
}
