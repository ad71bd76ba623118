package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"latex-length/internal/estimator"
	"latex-length/internal/scanner"
	"latex-length/internal/types"
)

var prl = types.Journal{Name: "PRL", Limit: 3500}

func TestAssembleLimitComparison(t *testing.T) {
	tests := []struct {
		name    string
		in      Input
		total   int
		status  string
		summary string
	}{
		{
			name:    "over",
			in:      Input{Document: "paper.tex", Journal: prl, MainText: 3000, Equations: 200, Figures: 300, Tables: 100},
			total:   3600,
			status:  StatusOver,
			summary: "Manuscript paper.tex is currently 100 words (2.9%) OVER limit of 3500 words for journal PRL",
		},
		{
			name:    "under",
			in:      Input{Document: "paper.tex", Journal: prl, MainText: 3000},
			total:   3000,
			status:  StatusUnder,
			summary: "Manuscript paper.tex is currently 500 words (14.3%) UNDER limit of 3500 words for journal PRL",
		},
		{
			name:    "exactly at limit",
			in:      Input{Document: "paper.tex", Journal: prl, MainText: 3500},
			total:   3500,
			status:  StatusUnder,
			summary: "Manuscript paper.tex is currently 0 words (0.0%) UNDER limit of 3500 words for journal PRL",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Assemble(tt.in)
			assert.Equal(t, tt.total, r.Total)
			assert.Equal(t, tt.total-3500, r.Delta)
			assert.Equal(t, tt.status, r.Status)
			assert.Equal(t, tt.summary, r.Summary())
		})
	}
}

func sampleReport() *Report {
	return Assemble(Input{
		Document:      "paper.tex",
		Method:        types.MethodDetex,
		Journal:       prl,
		AbstractChars: 412,
		MainText:      2800,
		Equations:     48,
		Figures:       104,
		Tables:        45,
		EquationBlocks: []estimator.EquationBlock{
			{Span: scanner.Span{Env: "equation", Begin: 20, End: 22}, Lines: 1, Words: 16},
			{Span: scanner.Span{Env: "align*", Begin: 30, End: 33, Starred: true}, Lines: 1, Words: 32},
		},
		TableBlocks: []estimator.TableBlock{
			{Span: scanner.Span{Env: "table", Begin: 40, End: 48}, Rows: 5, Words: 45},
		},
		FigureBlocks: []estimator.FigureBlock{
			{Span: scanner.Span{Env: "figure", Begin: 50, End: 54}, Name: "fig1", Path: "figs/fig1.pdf", Width: 400, Height: 200, Aspect: 2, Words: 95},
		},
	})
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, types.FormatText, sampleReport()))
	out := buf.String()

	for _, want := range []string{
		"Processing TeX file: paper.tex\n",
		"Abstract:          412 chars (max 600)\n",
		"Method:         detex\n",
		"Equation 1:     16 words (equation, lines 21-23, 1 rows)\n",
		"Equation 2:     32 words (align*, lines 31-34, 1 rows)\n",
		"Table 1:        45 words (Single-column table with 5 lines)\n",
		"Figure 1:       95 words (400x200 aspect 2.00, figs/fig1.pdf)\n",
		"Main text:        2800 words\n",
		"Displayed Math:     48 words\n",
		"Figures:           104 words\n",
		"Tables:             45 words\n",
		"TOTAL:            2997 words\n",
		"Manuscript paper.tex is currently 503 words (14.4%) UNDER limit of 3500 words for journal PRL\n",
	} {
		assert.Contains(t, out, want)
	}
}

func TestRenderTextSeveral(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, types.FormatText, sampleReport(), sampleReport()))
	assert.Equal(t, 2, strings.Count(buf.String(), "Processing TeX file"))
	assert.Contains(t, buf.String(), "PRL\n\nProcessing TeX file")
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, types.FormatJSON, sampleReport()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "UNDER", got["status"])
	assert.Equal(t, float64(2997), got["total"])
	eqs := got["equation_blocks"].([]any)
	require.Len(t, eqs, 2)
	assert.Equal(t, "align*", eqs[1].(map[string]any)["env"])

	buf.Reset()
	require.NoError(t, Render(&buf, types.FormatJSON, sampleReport(), sampleReport()))
	var list []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &list))
	assert.Len(t, list, 2)
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, types.FormatYAML, sampleReport()))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "PRL", got["journal"])
	assert.Equal(t, 3500, got["limit"])
	figs := got["figure_blocks"].([]any)
	assert.Equal(t, "figs/fig1.pdf", figs[0].(map[string]any)["path"])
	assert.Equal(t, 50, figs[0].(map[string]any)["begin"])
}

func TestRenderUnknownFormat(t *testing.T) {
	err := Render(&bytes.Buffer{}, "xml", sampleReport())
	assert.Equal(t, types.ErrConfig, types.CodeOf(err))
}

func TestCountAbstractChars(t *testing.T) {
	lines := []string{
		`\begin{abstract}`,
		`Short one.`,
		`% a comment`,
		`Naïve.`,
		`\end{abstract}`,
	}
	n, err := CountAbstractChars(lines)
	require.NoError(t, err)
	// "Short one.\n" + "Naïve.\n"
	assert.Equal(t, 11+7, n)
}

func TestCountAbstractCharsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{"no begin", []string{`text`, `\end{abstract}`}, `missing \begin{abstract}`},
		{"no end", []string{`\begin{abstract}`, `text`}, `missing \end{abstract}`},
		{"two begins", []string{`\begin{abstract}`, `\begin{abstract}`, `\end{abstract}`}, `more than one \begin{abstract}`},
		{"reversed", []string{`\end{abstract}`, `\begin{abstract}`}, `\end{abstract} before`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CountAbstractChars(tt.lines)
			require.Error(t, err)
			assert.Equal(t, types.ErrMalformedDocument, types.CodeOf(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
