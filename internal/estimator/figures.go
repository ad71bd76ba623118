package estimator

import (
	"context"
	"fmt"
	"strings"

	"latex-length/internal/detex"
	"latex-length/internal/document"
	"latex-length/internal/logger"
	"latex-length/internal/scanner"
	"latex-length/internal/types"
)

// DefaultFigureScale inflates the summed figure estimate by 10%.
const DefaultFigureScale = 1.1

// ImageSizer reports the width and height of an image file.
type ImageSizer interface {
	Size(ctx context.Context, path string) (width, height float64, err error)
}

// FigureBlock is one included image and its word equivalent.
type FigureBlock struct {
	scanner.Span `yaml:",inline"`
	Name         string  `json:"name" yaml:"name"`
	Path         string  `json:"path" yaml:"path"`
	IncludeLine  int     `json:"include_line" yaml:"include_line"`
	Width        float64 `json:"width" yaml:"width"`
	Height       float64 `json:"height" yaml:"height"`
	Aspect       float64 `json:"aspect" yaml:"aspect"`
	Subfigure    bool    `json:"subfigure" yaml:"subfigure"`
	InlineBreak  bool    `json:"inline_break" yaml:"inline_break"`
	Words        float64 `json:"words" yaml:"words"`
}

// FigureWords converts an aspect ratio to words: 300/(0.5*aspect)+40 for
// two-column figures, 150/aspect+20 otherwise.
func FigureWords(aspect float64, twoColumn bool) float64 {
	if twoColumn {
		return 300.0/(0.5*aspect) + 40.0
	}
	return 150.0/aspect + 20.0
}

// FigureCounter estimates figure words for a document.
type FigureCounter struct {
	Sizer ImageSizer
	Vars  []types.Var
	Scale float64
}

// Count walks the picture placeholders of the detexed text in order and
// returns the figure blocks plus the scaled, truncated total.
func (f *FigureCounter) Count(ctx context.Context, doc *document.Document, detexed []string) ([]FigureBlock, int, error) {
	scale := f.Scale
	if scale == 0 {
		scale = DefaultFigureScale
	}
	resolver := &Resolver{GraphicsPath: doc.GraphicsPath(), Vars: f.Vars, BaseDir: doc.Dir}

	var blocks []FigureBlock
	sum := 0.0
	for _, line := range detexed {
		if !detex.IsPicture(line) {
			continue
		}
		name, ok := detex.PictureName(line)
		if !ok {
			return nil, 0, types.NewAppErrorWithDetails(types.ErrMalformedDocument,
				"unreadable picture placeholder", strings.TrimSpace(line), nil)
		}

		block, err := f.figure(ctx, doc, resolver, name)
		if err != nil {
			return nil, 0, fmt.Errorf("figure %d (%s): %w", len(blocks)+1, name, err)
		}

		logger.Info("figure",
			logger.Int("index", len(blocks)+1),
			logger.Int("words", int(block.Words)),
			logger.Float64("width", block.Width),
			logger.Float64("height", block.Height),
			logger.Float64("aspect", block.Aspect),
			logger.String("path", block.Path))
		blocks = append(blocks, block)
		sum += block.Words
	}
	return blocks, int(sum * scale), nil
}

func (f *FigureCounter) figure(ctx context.Context, doc *document.Document, resolver *Resolver, name string) (FigureBlock, error) {
	include, err := includeLine(doc.Lines, name)
	if err != nil {
		return FigureBlock{}, err
	}
	span, err := scanner.Enclosing(doc.Lines, include, "figure")
	if err != nil {
		return FigureBlock{}, err
	}

	block := FigureBlock{
		Span:        span,
		Name:        name,
		IncludeLine: include,
		Subfigure:   strings.Contains(doc.Lines[include], "subfloat"),
		InlineBreak: strings.Contains(doc.Lines[include], scanner.LineBreak),
	}

	block.Path, err = resolver.Resolve(name)
	if err != nil {
		return FigureBlock{}, err
	}

	block.Width, block.Height, err = f.Sizer.Size(ctx, block.Path)
	if err != nil {
		return FigureBlock{}, err
	}
	if block.Width <= 0 || block.Height <= 0 {
		return FigureBlock{}, types.NewAppErrorWithDetails(types.ErrExternalTool,
			"image metrics returned an empty size",
			fmt.Sprintf("%s: %gx%g", block.Path, block.Width, block.Height), nil)
	}

	block.Aspect = block.Width / block.Height
	block.Words = FigureWords(block.Aspect, span.Starred)
	return block, nil
}

// includeLine finds the only raw line that mentions name together with an
// input or includegraphics directive.
func includeLine(lines []string, name string) (int, error) {
	var found []int
	for i, line := range lines {
		if !strings.Contains(line, name) {
			continue
		}
		if strings.Contains(line, "input") || strings.Contains(line, "includegraphics") {
			found = append(found, i)
		}
	}
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return -1, types.NewAppErrorWithDetails(types.ErrAmbiguousReference,
			"no include line for picture", name, nil)
	default:
		lineNos := make([]string, len(found))
		for i, n := range found {
			lineNos[i] = fmt.Sprint(n + 1)
		}
		return -1, types.NewAppErrorWithDetails(types.ErrAmbiguousReference,
			"several include lines for picture",
			fmt.Sprintf("%s on lines %s", name, strings.Join(lineNos, ", ")), nil)
	}
}
