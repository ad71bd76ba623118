package maintext

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"latex-length/internal/compiler"
	"latex-length/internal/document"
	"latex-length/internal/runner"
	"latex-length/internal/types"
)

func TestCountWords(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  int
	}{
		{"hyphenated compound", []string{"state-of-the-art"}, 4},
		{"compound in a phrase", []string{"a state-of-the-art method"}, 6},
		{"multiple lines", []string{"We study  the", "\tproblem."}, 4},
		{"empty", nil, 0},
		{"lone hyphen", []string{"a - b"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountWords(tt.lines))
		})
	}
}

func TestNew(t *testing.T) {
	c, err := New(types.MethodDetex, Options{})
	require.NoError(t, err)
	assert.IsType(t, &DetexCounter{}, c)

	c, err = New(types.MethodWordcount, Options{RoundTrip: compiler.NewRoundTrip("", "", nil)})
	require.NoError(t, err)
	assert.IsType(t, &WordcountCounter{}, c)

	c, err = New(types.MethodWordcount, Options{RoundTrip: compiler.NewRoundTrip("", "", nil)})
	require.NoError(t, err)
	assert.Equal(t, ExcludedEnvs, c.(*WordcountCounter).Envs)

	c, err = New(types.MethodWordcount, Options{RoundTrip: compiler.NewRoundTrip("", "", nil), ExcludedEnvs: []string{"figure"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"figure"}, c.(*WordcountCounter).Envs)

	_, err = New("texcount", Options{})
	assert.Equal(t, types.ErrConfig, types.CodeOf(err))
}

var paper = []string{
	`\documentclass[aps,prl]{revtex4-1}`,
	`\begin{document}`,
	`\title{On things}`,
	`\begin{abstract}`,
	`Short abstract.`,
	`\end{abstract}`,
	`\maketitle`,
	``,
	`% opening remarks`,
	`We study a well-known problem.`,
	`It has \emph{two} parts.`,
	`\begin{equation}`,
	`E = mc^2`,
	`\end{equation}`,
	`\acknowledgments{We thank everyone.}`,
	`\bibliography{refs}`,
	`\end{document}`,
}

func TestDetexCounter(t *testing.T) {
	doc := document.FromLines("paper.tex", paper)
	detexed := []string{
		"On things",
		"",
		"We study a well-known problem.",
		"<Picture fig1>",
		"It has two parts.",
		"We thank everyone.",
	}

	n, err := (&DetexCounter{}).Count(context.Background(), doc, detexed)
	require.NoError(t, err)
	// 6 + 4 + 3
	assert.Equal(t, 13, n)
}

func TestDetexCounterMalformed(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		detexed []string
		want    string
	}{
		{"no maketitle", []string{`\begin{document}`, `Text.`}, []string{"Text."}, `missing \maketitle`},
		{"two maketitle", []string{`\maketitle`, `Text.`, `\maketitle`}, []string{"Text."}, `more than one \maketitle`},
		{"nothing after title", []string{`\maketitle`, ``, `% only a comment`}, []string{"x"}, `no text after \maketitle`},
		{"line not in detex output", []string{`\maketitle`, `Plain text.`}, []string{"Something else."}, "first main-text line not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := document.FromLines("paper.tex", tt.lines)
			_, err := (&DetexCounter{}).Count(context.Background(), doc, tt.detexed)
			require.Error(t, err)
			assert.Equal(t, types.ErrMalformedDocument, types.CodeOf(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPrepareDocument(t *testing.T) {
	got := PrepareDocument(paper, ExcludedEnvs)

	assert.Equal(t, `\documentclass[nofootinbib, aps,prl]{revtex4-1}`, got[0])
	assert.Equal(t, `% \begin{abstract}`, got[3])
	assert.Equal(t, `% Short abstract.`, got[4])
	assert.Equal(t, `% \end{abstract}`, got[5])
	assert.Equal(t, `%\maketitle`, got[6])
	assert.Equal(t, `We study a well-known problem.`, got[9])
	assert.Equal(t, `% \begin{equation}`, got[11])
	assert.Equal(t, `% E = mc^2`, got[12])
	assert.Equal(t, `% \end{equation}`, got[13])
	assert.Equal(t, `\end{document}`, got[14])
	assert.Equal(t, `\acknowledgments{We thank everyone.}`, got[15])
	assert.Len(t, got, len(paper)+1)

	// input untouched
	assert.Equal(t, `\maketitle`, paper[6])
}

func TestPrepareDocumentStarredAndBibliographyFirst(t *testing.T) {
	lines := []string{
		`\maketitle`,
		`Text.`,
		`\begin{align*} a &= b \end{align*}`,
		`\begin{eqnarray*}`,
		`x \\`,
		`\end{eqnarray*}`,
		`More text.`,
		`\bibliography{refs}`,
		`\begin{acknowledgments}`,
		`Thanks.`,
		`\end{acknowledgments}`,
	}
	got := PrepareDocument(lines, ExcludedEnvs)

	assert.Equal(t, `% \begin{align*} a &= b \end{align*}`, got[2])
	assert.Equal(t, []string{`% \begin{eqnarray*}`, `% x \\`, `% \end{eqnarray*}`}, got[3:6])
	assert.Equal(t, `More text.`, got[6])
	assert.Equal(t, `\end{document}`, got[7])
	assert.Equal(t, `\bibliography{refs}`, got[8])
	assert.Equal(t, `% \end{acknowledgments}`, got[11])
}

func TestPrepareDocumentClassOptions(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"existing options", `\documentclass[aps,prl]{revtex4-1}`, `\documentclass[nofootinbib, aps,prl]{revtex4-1}`},
		{"no options", `\documentclass{revtex4-1}`, `\documentclass[nofootinbib]{revtex4-1}`},
		{"not a class line", `\usepackage{graphicx}`, `\usepackage{graphicx}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PrepareDocument([]string{tt.line, `\maketitle`, `Text.`}, ExcludedEnvs)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func TestPrepareDocumentConfiguredEnvs(t *testing.T) {
	lines := []string{
		`\begin{abstract}`, `Kept.`, `\end{abstract}`,
		`\begin{figure}`, `\caption{Dropped.}`, `\end{figure}`,
	}
	got := PrepareDocument(lines, []string{"figure"})

	assert.Equal(t, lines[:3], got[:3])
	assert.Equal(t, []string{`% \begin{figure}`, `% \caption{Dropped.}`, `% \end{figure}`}, got[3:])
}

func TestCountSentinels(t *testing.T) {
	log := "\\tenrm W\n.\\glue 3.08633\n.\\glue 3.08635 plus 1.0\n.\\glue 3.33333\n\n.\\glue 3.08633\n"
	assert.Equal(t, 3, CountSentinels(log))
	assert.Equal(t, 0, CountSentinels(""))
}

func TestLocateMacro(t *testing.T) {
	docDir := t.TempDir()
	_, err := LocateMacro("", docDir)
	// a wordcount.tex in the test working directory would be found instead
	if err != nil {
		assert.Equal(t, types.ErrConfig, types.CodeOf(err))
	}

	local := filepath.Join(docDir, MacroFile)
	require.NoError(t, os.WriteFile(local, []byte("%"), 0644))
	got, err := LocateMacro("", docDir)
	require.NoError(t, err)
	assert.Equal(t, local, got)

	got, err = LocateMacro(local, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, local, got)

	_, err = LocateMacro(filepath.Join(docDir, "nope.tex"), docDir)
	assert.Equal(t, types.ErrConfig, types.CodeOf(err))
}

type macroRunner struct {
	scratch string
	tex     string
}

func (m *macroRunner) Run(ctx context.Context, cmd runner.Command) (*runner.Result, error) {
	m.scratch = cmd.Dir
	if data, err := os.ReadFile(filepath.Join(cmd.Dir, "scratch.tex")); err == nil {
		m.tex = string(data)
	}
	if cmd.Args[len(cmd.Args)-1] == "wordcount.tex" {
		log := ".\\glue 3.08633\n.\\glue 3.08633\n.\\glue 3.08635\n"
		if err := os.WriteFile(filepath.Join(cmd.Dir, "wordcount.log"), []byte(log), 0644); err != nil {
			return nil, err
		}
	}
	return &runner.Result{}, nil
}

func TestWordcountCounter(t *testing.T) {
	docDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docDir, MacroFile), []byte("%"), 0644))
	doc := document.FromLines(filepath.Join(docDir, "paper.tex"), paper)

	mr := &macroRunner{}
	scratchRoot := t.TempDir()
	c := &WordcountCounter{RoundTrip: compiler.NewRoundTrip("", "", mr), ScratchRoot: scratchRoot}

	n, err := c.Count(context.Background(), doc, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Contains(t, mr.tex, "%\\maketitle")
	assert.Equal(t, scratchRoot, filepath.Dir(mr.scratch))

	_, err = os.Stat(mr.scratch)
	assert.True(t, os.IsNotExist(err), "scratch directory removed")
}

func TestWordcountCounterUniqueScratch(t *testing.T) {
	docDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docDir, MacroFile), []byte("%"), 0644))
	doc := document.FromLines(filepath.Join(docDir, "paper.tex"), paper)
	root := t.TempDir()

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		mr := &macroRunner{}
		c := &WordcountCounter{RoundTrip: compiler.NewRoundTrip("", "", mr), ScratchRoot: root}
		_, err := c.Count(context.Background(), doc, nil)
		require.NoError(t, err)
		assert.False(t, seen[mr.scratch])
		seen[mr.scratch] = true
	}
}
