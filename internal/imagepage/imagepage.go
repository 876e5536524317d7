// Package imagepage converts raster images into single-page PDFs.
package imagepage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	// Decoders for image.Decode
	_ "image/gif"
	_ "image/jpeg"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/jackzampolin/collate/internal/diag"
	"github.com/jackzampolin/collate/internal/pages"
	"github.com/jackzampolin/collate/internal/source"
)

// DefaultDPI is the resolution used when Normalizer.DPI is unset.
const DefaultDPI = 100

// Normalizer renders one image as one page.
//
// Images are flattened onto an opaque white RGB canvas, so any alpha channel
// is lost. The page measures pixels*72/DPI points and the image fills it.
type Normalizer struct {
	DPI        int          // Page resolution (default 100)
	ScratchDir string       // Root for per-conversion scratch dirs (default os.TempDir())
	Validation string       // pdfcpu validation mode
	Logger     *slog.Logger // Optional logger
}

// Normalize converts src to a PageUnit. Every failure is a *diag.Error of kind
// UnreadableImage. The scratch directory used for the conversion is removed
// before Normalize returns, on success and on failure.
func (n *Normalizer) Normalize(ctx context.Context, src source.InputSource) (pages.PageUnit, error) {
	log := n.Logger
	if log == nil {
		log = slog.Default()
	}
	input := src.Token
	if input == "" {
		input = src.Path
	}
	fail := func(format string, args ...any) (pages.PageUnit, error) {
		return pages.PageUnit{}, diag.Errorf(diag.UnreadableImage, input, format, args...)
	}

	if err := ctx.Err(); err != nil {
		return pages.PageUnit{}, err
	}

	data, err := os.ReadFile(src.Path)
	if err != nil {
		return fail("failed to read image: %v", err)
	}

	// Sniff before decoding so a mislabeled file gets a useful message.
	if mt := mimetype.Detect(data); !strings.HasPrefix(mt.String(), "image/") {
		return fail("content is %s, not an image", mt.String())
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fail("failed to decode image: %v", err)
	}
	rgb := Flatten(img)
	log.Debug("normalizing image", "file", src.Path, "format", format,
		"width", rgb.Bounds().Dx(), "height", rgb.Bounds().Dy())

	pdf, err := n.render(rgb)
	if err != nil {
		return fail("%v", err)
	}
	return pages.PageUnit{Source: input, PDF: pdf}, nil
}

// render writes img into a fresh scratch directory and imports it into a new
// single-page PDF there, returning the PDF bytes.
func (n *Normalizer) render(img *image.RGBA) ([]byte, error) {
	root := n.ScratchDir
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch root: %w", err)
	}
	tmpDir, err := os.MkdirTemp(root, "collate-img-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	imgPath := filepath.Join(tmpDir, "page.png")
	if err := writePNG(imgPath, img); err != nil {
		return nil, err
	}

	dpi := n.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	b := img.Bounds()
	imp := pdfcpu.DefaultImportConfig()
	imp.PageDim = &types.Dim{
		Width:  float64(b.Dx()) * 72 / float64(dpi),
		Height: float64(b.Dy()) * 72 / float64(dpi),
	}
	imp.UserDim = true
	imp.Pos = types.Center
	imp.Scale = 1.0
	imp.ScaleAbs = false

	pdfPath := filepath.Join(tmpDir, "page.pdf")
	if err := api.ImportImagesFile([]string{imgPath}, pdfPath, imp, pages.NewConfig(n.Validation)); err != nil {
		return nil, fmt.Errorf("failed to convert image to PDF: %w", err)
	}

	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read converted page: %w", err)
	}
	return data, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create scratch image: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode scratch image: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write scratch image: %w", err)
	}
	return nil
}

// Flatten returns an opaque RGB copy of img composited over white,
// with bounds starting at the origin.
func Flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}
