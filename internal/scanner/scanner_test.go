package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"latex-length/internal/types"
)

var sample = []string{
	`\documentclass[aps,prl]{revtex4-1}`, // 0
	`\begin{document}`,                   // 1
	`\begin{equation}`,                   // 2
	`E = mc^2`,                           // 3
	`\end{equation}`,                     // 4
	`\begin{figure*}[t]`,                 // 5
	`\includegraphics{fig1}`,             // 6
	`\end{figure*}`,                      // 7
	`\begin{align*} a \\ b \end{align*}`, // 8
	`\end{document}`,                     // 9
}

func TestFindBegins(t *testing.T) {
	assert.Equal(t, []int{2, 8}, FindBegins(sample, "equation", "align"))
	assert.Equal(t, []int{5}, FindBegins(sample, "figure"))
	assert.Empty(t, FindBegins(sample, "table"))
}

func TestFindEnd(t *testing.T) {
	end, err := FindEnd(sample, 3, "equation")
	require.NoError(t, err)
	assert.Equal(t, 4, end)

	// Prefix match: figure closes figure*.
	end, err = FindEnd(sample, 5, "figure")
	require.NoError(t, err)
	assert.Equal(t, 7, end)

	_, err = FindEnd(sample, 0, "table")
	require.Error(t, err)
	assert.Equal(t, types.ErrMalformedDocument, types.CodeOf(err))
}

func TestFindBackward(t *testing.T) {
	begin, err := FindBackward(sample, 6, "figure")
	require.NoError(t, err)
	assert.Equal(t, 5, begin)

	_, err = FindBackward(sample, 3, "figure")
	assert.Equal(t, types.ErrMalformedDocument, types.CodeOf(err))
}

func TestEnvNameAndStar(t *testing.T) {
	assert.Equal(t, "figure*", EnvName(`\begin{figure*}[t]`))
	assert.Equal(t, "equation", EnvName(`  \begin{equation}\label{eq:1}`))
	assert.Equal(t, "", EnvName(`no marker here`))
	assert.True(t, IsStarred(`\begin{table*}`, "table"))
	assert.False(t, IsStarred(`\begin{table}`, "table"))
}

func TestSpans(t *testing.T) {
	spans, err := Spans(sample, SpanOptions{}, "equation", "align", "figure")
	require.NoError(t, err)
	assert.Equal(t, []Span{
		{Env: "equation", Begin: 2, End: 4},
		{Env: "figure*", Begin: 5, End: 7, Starred: true},
		{Env: "align*", Begin: 8, End: 8, Starred: true},
	}, spans)
}

func TestSpansMissingEnd(t *testing.T) {
	lines := []string{`\begin{table}`, `a & b \\`}
	_, err := Spans(lines, SpanOptions{}, "table")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing \end{table}`)
}

func TestSpansOptions(t *testing.T) {
	lines := []string{
		`\begin{equation} a \end{equation}`, // 0
		`b`,                                 // 1
		`\end{align}`,                       // 2
		`\begin{table*}[t]`,                 // 3
		`\end{table*}`,                      // 4
	}

	spans, err := Spans(lines, SpanOptions{SkipBeginLine: true, EndPatterns: []string{"equation", "align"}}, "equation")
	require.NoError(t, err)
	assert.Equal(t, []Span{{Env: "equation", Begin: 0, End: 2}}, spans)

	spans, err = Spans(lines, SpanOptions{EndPatterns: []string{"table"}}, "tabl")
	require.NoError(t, err)
	assert.Equal(t, []Span{{Env: "table*", Begin: 3, End: 4, Starred: true}}, spans)
}

func TestSpansNamesMatchedEnvironment(t *testing.T) {
	lines := []string{`\begin{center}\begin{table*}`, `\end{table*}\end{center}`}
	spans, err := Spans(lines, SpanOptions{}, "table")
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "table*", spans[0].Env)
	assert.True(t, spans[0].Starred)
}

func TestEnclosing(t *testing.T) {
	span, err := Enclosing(sample, 6, "figure")
	require.NoError(t, err)
	assert.Equal(t, Span{Env: "figure*", Begin: 5, End: 7, Starred: true}, span)

	_, err = Enclosing(sample, 3, "figure")
	assert.Equal(t, types.ErrMalformedDocument, types.CodeOf(err))

	_, err = Enclosing([]string{`\begin{figure}`, `\includegraphics{a}`}, 1, "figure")
	assert.Equal(t, types.ErrMalformedDocument, types.CodeOf(err))
}
