package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"latex-length/internal/types"
)

func TestLoadUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.tex")
	require.NoError(t, os.WriteFile(path, []byte("\\begin{document}\r\nHello\n\\end{document}\n"), 0644))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{`\begin{document}`, "Hello", `\end{document}`}, doc.Lines)
	assert.Equal(t, EncodingUTF8, doc.Encoding)
	assert.Equal(t, filepath.Dir(path), doc.Dir)
}

func TestLoadLegacyEncodings(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		enc  string
		want []string
	}{
		{"utf8 bom", []byte("\xEF\xBB\xBFcaf\xC3\xA9\n"), EncodingUTF8BOM, []string{"café"}},
		{"utf16le", []byte{0xFF, 0xFE, 'a', 0, '\n', 0, 'b', 0}, EncodingUTF16LE, []string{"a", "b"}},
		{"utf16be", []byte{0xFE, 0xFF, 0, 'x'}, EncodingUTF16BE, []string{"x"}},
		{"latin1", []byte("na\xEFve\n"), EncodingCP1252, []string{"naïve"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "doc.tex")
			require.NoError(t, os.WriteFile(path, tt.data, 0644))

			doc, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, tt.enc, doc.Encoding)
			assert.Equal(t, tt.want, doc.Lines)
		})
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.tex"))
	require.Error(t, err)
	assert.Equal(t, types.ErrFileNotFound, types.CodeOf(err))
}

func TestGraphicsPath(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{"none", []string{`\usepackage{graphicx}`}, ""},
		{"single", []string{`\graphicspath{{figures/}}`}, "figures/"},
		{"last group wins", []string{`\graphicspath{{a/}{b/}}`}, "b/"},
		{"first line wins", []string{`\graphicspath{{one/}}`, `\graphicspath{{two/}}`}, "one/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromLines("p.tex", tt.lines).GraphicsPath())
		})
	}
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, SplitLines(""))
	assert.Equal(t, []string{"a", "", "b"}, SplitLines("a\n\nb\n"))
}
