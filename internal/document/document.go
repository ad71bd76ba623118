// Package document loads a LaTeX manuscript as an immutable sequence of lines.
package document

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"latex-length/internal/logger"
	"latex-length/internal/types"
)

// Encoding names reported by DetectEncoding.
const (
	EncodingUTF8    = "UTF-8"
	EncodingUTF8BOM = "UTF-8-BOM"
	EncodingUTF16LE = "UTF-16LE"
	EncodingUTF16BE = "UTF-16BE"
	EncodingCP1252  = "Windows-1252"
)

// Document is a manuscript snapshot. Lines are 0-based and carry no line
// terminators.
type Document struct {
	Path     string
	Dir      string
	Lines    []string
	Encoding string
}

// Load reads a manuscript, converting it to UTF-8 when needed.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.NewAppErrorWithDetails(types.ErrFileNotFound, "document not found", path, err)
		}
		return nil, types.NewAppError(types.ErrInternal, "failed to read document", err)
	}

	enc := DetectEncoding(data)
	text, err := decode(data, enc)
	if err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrMalformedDocument,
			fmt.Sprintf("failed to decode %s text", enc), path, err)
	}
	if enc != EncodingUTF8 {
		logger.Info("converted document encoding", logger.String("path", path), logger.String("from", enc))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &Document{
		Path:     path,
		Dir:      filepath.Dir(abs),
		Lines:    SplitLines(text),
		Encoding: enc,
	}, nil
}

// FromLines builds an in-memory document, mainly for tests.
func FromLines(path string, lines []string) *Document {
	return &Document{Path: path, Dir: filepath.Dir(path), Lines: lines, Encoding: EncodingUTF8}
}

// DetectEncoding inspects BOM markers and UTF-8 validity.
func DetectEncoding(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return EncodingUTF8BOM
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return EncodingUTF16LE
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return EncodingUTF16BE
	case utf8.Valid(data):
		return EncodingUTF8
	}
	// Legacy 8-bit sources are almost always Latin-1 supersets.
	return EncodingCP1252
}

func decode(data []byte, enc string) (string, error) {
	var dec *encoding.Decoder
	switch enc {
	case EncodingUTF8:
		return string(data), nil
	case EncodingUTF8BOM:
		return string(data[3:]), nil
	case EncodingUTF16LE:
		dec = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	case EncodingUTF16BE:
		dec = unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
	default:
		dec = charmap.Windows1252.NewDecoder()
	}
	out, err := dec.Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// SplitLines splits text into lines, dropping "\r\n"/"\n" terminators. A
// trailing newline does not produce an empty last line.
func SplitLines(text string) []string {
	text = strings.TrimSuffix(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// GraphicsPath returns the directory prefix declared by the first
// \graphicspath line, or "" when the document has none. Only the last
// brace group is used: \graphicspath{{a/}{figs/}} yields "figs/".
func (d *Document) GraphicsPath() string {
	for _, line := range d.Lines {
		if !strings.Contains(line, "graphicspath") {
			continue
		}
		parts := strings.Split(line, "{")
		last := parts[len(parts)-1]
		path, _, _ := strings.Cut(last, "}")
		return path
	}
	return ""
}
