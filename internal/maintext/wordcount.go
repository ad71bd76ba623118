package maintext

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"latex-length/internal/compiler"
	"latex-length/internal/document"
	"latex-length/internal/logger"
	"latex-length/internal/scanner"
	"latex-length/internal/types"
)

// MacroFile is the wordcount macro's file name.
const MacroFile = "wordcount.tex"

// Sentinels are the glue widths the wordcount macro logs once per word.
var Sentinels = []string{"3.08633", "3.08635"}

// ExcludedEnvs are the environments commented out before typesetting unless
// configured otherwise. Matching is by prefix, so starred variants are
// included.
var ExcludedEnvs = []string{
	"equation", "eqnarray", "align", "displaymath",
	"acknowledgments", "acknowledgements", "abstract", "thebibliography",
}

const (
	endDocument   = `\end{document}`
	documentClass = `\documentclass`
)

// WordcountCounter typesets a trimmed copy of the document in a private
// scratch directory and counts the words the wordcount macro reports.
type WordcountCounter struct {
	RoundTrip   *compiler.RoundTrip
	MacroPath   string
	ScratchRoot string
	// Envs are commented out before typesetting.
	Envs []string
}

func (c *WordcountCounter) Count(ctx context.Context, doc *document.Document, _ []string) (int, error) {
	macro, err := LocateMacro(c.MacroPath, doc.Dir)
	if err != nil {
		return 0, err
	}

	root := c.ScratchRoot
	if root == "" {
		root = os.TempDir()
	}
	work := filepath.Join(root, "latex-length-"+uuid.NewString())
	if err := os.MkdirAll(work, 0755); err != nil {
		return 0, types.NewAppError(types.ErrInternal, "failed to create scratch directory", err)
	}
	defer func() {
		if err := os.RemoveAll(work); err != nil {
			logger.Warn("failed to remove scratch directory", logger.String("dir", work), logger.Err(err))
		}
	}()

	prepared := PrepareDocument(doc.Lines, c.Envs)
	texPath := filepath.Join(work, compiler.ScratchBase+".tex")
	if err := os.WriteFile(texPath, []byte(strings.Join(prepared, "\n")+"\n"), 0644); err != nil {
		return 0, types.NewAppError(types.ErrInternal, "failed to write scratch document", err)
	}
	logger.Debug("prepared scratch document",
		logger.String("dir", work),
		logger.String("macro", macro),
		logger.Int("lines", len(prepared)))

	res, err := c.RoundTrip.Run(ctx, work, doc.Dir, macro)
	if err != nil {
		return 0, err
	}
	return CountSentinels(res.Log), nil
}

// LocateMacro finds wordcount.tex: the configured path, else next to the
// document, else in the working directory.
func LocateMacro(configured, docDir string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", types.NewAppErrorWithDetails(types.ErrConfig, "wordcount macro not found", configured, err)
		}
		return configured, nil
	}

	candidates := []string{filepath.Join(docDir, MacroFile)}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, MacroFile))
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", types.NewAppErrorWithDetails(types.ErrConfig, "wordcount macro not found",
		"looked for "+strings.Join(candidates, ", ")+"; set --wordcount-macro", nil)
}

// PrepareDocument returns a copy of lines ready for the wordcount macro:
// \maketitle is commented out, the nofootinbib class option is added, the
// document ends before the bibliography or acknowledgments, and every
// environment in envs is commented out line by line.
func PrepareDocument(lines, envs []string) []string {
	out := make([]string, 0, len(lines)+1)
	for _, line := range lines {
		line = strings.ReplaceAll(line, TitleMarker, "%"+TitleMarker)
		line = addClassOption(line)
		out = append(out, line)
	}

	if cut := backMatterLine(out); cut >= 0 {
		out = append(out[:cut], append([]string{endDocument}, out[cut:]...)...)
	}

	for i := 0; i < len(out); i++ {
		env, ok := excludedBegin(out[i], envs)
		if !ok {
			continue
		}
		end, err := scanner.FindEnd(out, i, env)
		if err != nil {
			end = len(out) - 1
		}
		for j := i; j <= end; j++ {
			out[j] = "% " + out[j]
		}
		i = end
	}
	return out
}

// CountSentinels counts log lines carrying a word sentinel.
func CountSentinels(log string) int {
	n := 0
	for _, line := range strings.Split(log, "\n") {
		for _, s := range Sentinels {
			if strings.Contains(line, s) {
				n++
				break
			}
		}
	}
	return n
}

// addClassOption adds nofootinbib to the \documentclass options, creating
// the option list when the class has none.
func addClassOption(line string) string {
	switch {
	case strings.Contains(line, documentClass+"["):
		return strings.Replace(line, documentClass+"[", documentClass+"[nofootinbib, ", 1)
	case strings.Contains(line, documentClass+"{"):
		return strings.Replace(line, documentClass+"{", documentClass+"[nofootinbib]{", 1)
	}
	return line
}

func backMatterLine(lines []string) int {
	for i, line := range lines {
		if strings.Contains(line, `\bibliography{`) || strings.Contains(line, `\acknowle`) {
			return i
		}
	}
	return -1
}

func excludedBegin(line string, envs []string) (string, bool) {
	for _, env := range envs {
		if strings.Contains(line, scanner.BeginMarker(env)) {
			return env, true
		}
	}
	return "", false
}
