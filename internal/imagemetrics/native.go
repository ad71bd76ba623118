package imagemetrics

import (
	"bufio"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	ledongthucpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"latex-length/internal/logger"
	"latex-length/internal/types"
)

// epsHeaderLimit bounds how much of an EPS file is searched for its
// bounding box.
const epsHeaderLimit = 1 << 20

// Native measures figures without external tools: PDF page boxes in points,
// EPS bounding boxes in points and raster images in pixels.
type Native struct{}

// NewNative creates a native backend.
func NewNative() *Native { return &Native{} }

func (b *Native) Name() string { return BackendNative }

// Size dispatches on the detected content type of path.
func (b *Native) Size(ctx context.Context, path string) (float64, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, types.NewAppErrorWithDetails(types.ErrFileNotFound, "missing picture file", path, err)
		}
		return 0, 0, types.NewAppErrorWithDetails(types.ErrExternalTool, "cannot read picture file", path, err)
	}
	logger.Debug("detected figure type", logger.String("path", path), logger.String("mime", mtype.String()))

	switch {
	case mtype.Is("application/pdf"):
		return pdfSize(path)
	case mtype.Is("application/postscript"), strings.EqualFold(filepath.Ext(path), ".eps"):
		return epsSize(path)
	case strings.HasPrefix(mtype.String(), "image/"):
		return rasterSize(path)
	}
	return 0, 0, types.NewAppErrorWithDetails(types.ErrExternalTool,
		fmt.Sprintf("unsupported figure type %s", mtype.String()), path, nil)
}

// pdfSize returns the media box of the first page. pdfcpu is tried first;
// files it rejects are retried with the more lenient ledongthuc reader.
func pdfSize(path string) (float64, float64, error) {
	pdfCtx, err := api.ReadContextFile(path)
	if err == nil {
		dims, dimErr := pdfCtx.PageDims()
		if dimErr == nil && len(dims) > 0 {
			return dims[0].Width, dims[0].Height, nil
		}
		err = dimErr
	}
	logger.Debug("pdfcpu could not size figure, falling back", logger.String("path", path), logger.Err(err))

	w, h, fbErr := mediaBoxWithLedongthuc(path)
	if fbErr != nil {
		return 0, 0, types.NewAppErrorWithDetails(types.ErrExternalTool, "cannot read PDF page size", path, fbErr)
	}
	return w, h, nil
}

func mediaBoxWithLedongthuc(path string) (float64, float64, error) {
	f, r, err := ledongthucpdf.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	if r.NumPage() < 1 {
		return 0, 0, fmt.Errorf("no pages")
	}
	page := r.Page(1)
	box := page.V.Key("MediaBox")
	if box.Kind() != ledongthucpdf.Array {
		box = page.V.Key("Parent").Key("MediaBox")
	}
	if box.Kind() != ledongthucpdf.Array || box.Len() < 4 {
		return 0, 0, fmt.Errorf("no MediaBox on first page")
	}
	w := box.Index(2).Float64() - box.Index(0).Float64()
	h := box.Index(3).Float64() - box.Index(1).Float64()
	return w, h, nil
}

// epsSize reads the %%BoundingBox comment, reporting urx and ury like the
// gs backend.
func epsSize(path string) (float64, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, types.NewAppErrorWithDetails(types.ErrFileNotFound, "cannot open picture file", path, err)
	}
	defer f.Close()

	var sb strings.Builder
	sc := bufio.NewScanner(io.LimitReader(f, epsHeaderLimit))
	sc.Buffer(make([]byte, 64*1024), epsHeaderLimit)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "%%BoundingBox:") {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return ParseBoundingBox(sb.String(), path)
}

func rasterSize(path string) (float64, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, types.NewAppErrorWithDetails(types.ErrFileNotFound, "cannot open picture file", path, err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, types.NewAppErrorWithDetails(types.ErrExternalTool, "cannot decode image header", path, err)
	}
	logger.Debug("decoded image header", logger.String("path", path), logger.String("format", format))
	return float64(cfg.Width), float64(cfg.Height), nil
}
