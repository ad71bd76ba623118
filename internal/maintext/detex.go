package maintext

import (
	"context"
	"fmt"
	"strings"

	"latex-length/internal/detex"
	"latex-length/internal/document"
	"latex-length/internal/logger"
	"latex-length/internal/types"
)

// TitleMarker ends the title block.
const TitleMarker = `\maketitle`

// DetexCounter counts the detexed text from the first paragraph after
// \maketitle to the end.
type DetexCounter struct{}

func (c *DetexCounter) Count(ctx context.Context, doc *document.Document, detexed []string) (int, error) {
	text := filterDetexed(detexed)

	first, err := FirstContentLine(doc.Lines)
	if err != nil {
		return 0, err
	}

	want := strings.TrimSpace(doc.Lines[first])
	start := -1
	for i, line := range text {
		if strings.TrimSpace(line) == want {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, types.NewAppErrorWithDetails(types.ErrMalformedDocument,
			"first main-text line not found in detexed text",
			fmt.Sprintf("line %d: %q", first+1, want), nil)
	}

	words := CountWords(text[start:])
	logger.Debug("main text sliced from detex output",
		logger.Int("firstLine", first+1),
		logger.Int("detexLine", start),
		logger.Int("words", words))
	return words, nil
}

// FirstContentLine returns the index of the first raw line after the single
// \maketitle that is non-blank and contains no '%'.
func FirstContentLine(lines []string) (int, error) {
	title := -1
	for i, line := range lines {
		if !strings.Contains(line, TitleMarker) {
			continue
		}
		if title >= 0 {
			return -1, types.NewAppErrorWithDetails(types.ErrMalformedDocument,
				`more than one \maketitle`,
				fmt.Sprintf("lines %d and %d", title+1, i+1), nil)
		}
		title = i
	}
	if title < 0 {
		return -1, types.NewAppError(types.ErrMalformedDocument, `missing \maketitle`, nil)
	}

	for i := title + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "" && !strings.Contains(lines[i], "%") {
			return i, nil
		}
	}
	return -1, types.NewAppErrorWithDetails(types.ErrMalformedDocument,
		`no text after \maketitle`, fmt.Sprintf("line %d", title+1), nil)
}

func filterDetexed(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" || detex.IsPicture(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}
