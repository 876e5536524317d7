// Package testutil builds on-disk fixtures (raster images and multi-page PDFs) for tests.
package testutil

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackzampolin/collate/internal/compose"
	"github.com/jackzampolin/collate/internal/imagepage"
	"github.com/jackzampolin/collate/internal/pages"
	"github.com/jackzampolin/collate/internal/source"
)

// FixtureDPI is the resolution fixtures are built with. At 72 dpi one pixel is one point,
// so a page built from a w-pixel-wide image is w points wide.
const FixtureDPI = 72

// Logger returns a logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Solid returns a w x h image filled with c.
func Solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// WritePNG writes a solid grey w x h PNG to dir/name and returns its path.
func WritePNG(t testing.TB, dir, name string, w, h int) string {
	t.Helper()
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("failed to create %s: %v", p, err)
	}
	defer f.Close()
	if err := png.Encode(f, Solid(w, h, color.Gray{Y: 200})); err != nil {
		t.Fatalf("failed to encode %s: %v", p, err)
	}
	return p
}

// WritePDF writes a PDF to dir/name with one page per entry in widths.
// Page i is widths[i] points wide, which lets tests identify pages by width.
func WritePDF(t testing.TB, dir, name string, widths ...int) string {
	t.Helper()
	scratch := t.TempDir()
	norm := &imagepage.Normalizer{DPI: FixtureDPI, ScratchDir: scratch, Logger: Logger()}

	var c compose.Composer
	for i, w := range widths {
		img := WritePNG(t, scratch, "fixture.png", w, 10+i)
		unit, err := norm.Normalize(context.Background(), source.InputSource{Path: img, Kind: source.Image})
		if err != nil {
			t.Fatalf("failed to build fixture page %d: %v", i, err)
		}
		c.Append(unit)
	}

	data, err := c.Serialize(context.Background())
	if err != nil {
		t.Fatalf("failed to build fixture PDF: %v", err)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", p, err)
	}
	return p
}

// PageWidths returns the page widths of a PDF rounded to whole points.
func PageWidths(t testing.TB, data []byte) []int {
	t.Helper()
	dims, err := pages.Dims(data, "")
	if err != nil {
		t.Fatalf("failed to read page dimensions: %v", err)
	}
	widths := make([]int, len(dims))
	for i, d := range dims {
		widths[i] = int(math.Round(d.Width))
	}
	return widths
}

// UnitWidths returns the width of each unit's single page.
func UnitWidths(t testing.TB, units []pages.PageUnit) []int {
	t.Helper()
	widths := make([]int, len(units))
	for i, u := range units {
		w := PageWidths(t, u.PDF)
		if len(w) != 1 {
			t.Fatalf("unit %d has %d pages, want 1", i, len(w))
		}
		widths[i] = w[0]
	}
	return widths
}
