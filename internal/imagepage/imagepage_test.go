package imagepage

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/jackzampolin/collate/internal/diag"
	"github.com/jackzampolin/collate/internal/pages"
	"github.com/jackzampolin/collate/internal/source"
)

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func writeImage(t *testing.T, dir, name string, img image.Image) source.InputSource {
	t.Helper()
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	switch filepath.Ext(name) {
	case ".jpg":
		err = jpeg.Encode(f, img, nil)
	case ".bmp":
		err = bmp.Encode(f, img)
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		t.Fatal(err)
	}
	return source.InputSource{Token: p, Path: p, Kind: source.Image}
}

func assertScratchEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch dir should be empty, found %d entries", len(entries))
	}
}

func TestNormalize(t *testing.T) {
	dir := t.TempDir()
	scratch := filepath.Join(t.TempDir(), "scratch")
	n := &Normalizer{ScratchDir: scratch}

	tests := []struct {
		name string
		img  image.Image
	}{
		{"page.png", solid(200, 100, color.RGBA{R: 255, A: 255})},
		{"photo.jpg", solid(64, 48, color.RGBA{G: 200, A: 255})},
		{"scan.bmp", solid(30, 40, color.RGBA{B: 200, A: 255})},
		{"transparent.png", solid(50, 50, color.NRGBA{R: 10, A: 0})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := writeImage(t, dir, tt.name, tt.img)

			unit, err := n.Normalize(context.Background(), src)
			if err != nil {
				t.Fatalf("Normalize failed: %v", err)
			}
			if unit.Source != src.Token || unit.Page != 0 {
				t.Errorf("unexpected unit metadata: %+v", unit)
			}

			count, err := pages.Count(unit.PDF, "")
			if err != nil {
				t.Fatalf("output is not a readable PDF: %v", err)
			}
			if count != 1 {
				t.Errorf("expected 1 page, got %d", count)
			}
			assertScratchEmpty(t, scratch)
		})
	}

	// Nothing may be left next to the source either
	entries, _ := os.ReadDir(dir)
	if len(entries) != len(tests) {
		t.Errorf("expected only the %d source images in %s, found %d entries", len(tests), dir, len(entries))
	}
}

func TestNormalize_PageSizeFollowsDPI(t *testing.T) {
	src := writeImage(t, t.TempDir(), "wide.png", solid(200, 100, color.White))
	scratch := t.TempDir()

	widthAt := func(dpi int) (float64, float64) {
		unit, err := (&Normalizer{DPI: dpi, ScratchDir: scratch}).Normalize(context.Background(), src)
		if err != nil {
			t.Fatalf("Normalize at %d dpi failed: %v", dpi, err)
		}
		dims, err := pages.Dims(unit.PDF, "")
		if err != nil {
			t.Fatal(err)
		}
		return dims[0].Width, dims[0].Height
	}

	w100, h100 := widthAt(100)
	w50, _ := widthAt(50)

	if math.Abs(w100/h100-2) > 0.01 {
		t.Errorf("page aspect should match image aspect 2:1, got %.2f x %.2f", w100, h100)
	}
	if math.Abs(w50/w100-2) > 0.01 {
		t.Errorf("halving dpi should double page width, got %.2f vs %.2f", w50, w100)
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	src := writeImage(t, t.TempDir(), "same.png", solid(120, 80, color.Gray{Y: 128}))
	n := &Normalizer{ScratchDir: t.TempDir()}

	a, err := n.Normalize(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	b, err := n.Normalize(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}

	da, _ := pages.Dims(a.PDF, "")
	db, _ := pages.Dims(b.PDF, "")
	if len(da) != 1 || len(db) != 1 || da[0] != db[0] {
		t.Errorf("normalizing twice should give identical pages, got %v and %v", da, db)
	}
}

func TestNormalize_Unreadable(t *testing.T) {
	dir := t.TempDir()
	scratch := filepath.Join(t.TempDir(), "scratch")
	n := &Normalizer{ScratchDir: scratch}

	textAsPNG := filepath.Join(dir, "notes.png")
	if err := os.WriteFile(textAsPNG, []byte("definitely not an image\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	good := writeImage(t, dir, "good.png", solid(40, 40, color.Black))
	data, _ := os.ReadFile(good.Path)
	truncated := filepath.Join(dir, "truncated.png")
	if err := os.WriteFile(truncated, data[:len(data)/2], 0o644); err != nil {
		t.Fatal(err)
	}

	paths := []string{textAsPNG, truncated, filepath.Join(dir, "missing.png")}
	for _, p := range paths {
		t.Run(filepath.Base(p), func(t *testing.T) {
			_, err := n.Normalize(context.Background(), source.InputSource{Token: p, Path: p, Kind: source.Image})
			rec, ok := diag.AsRecord(err)
			if !ok {
				t.Fatalf("expected *diag.Error, got %v", err)
			}
			if rec.Kind != diag.UnreadableImage {
				t.Errorf("got kind %s, want UnreadableImage", rec.Kind)
			}
			assertScratchEmpty(t, scratch)
		})
	}
}

func TestNormalize_Canceled(t *testing.T) {
	src := writeImage(t, t.TempDir(), "a.png", solid(10, 10, color.White))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Normalizer{ScratchDir: t.TempDir()}).Normalize(ctx, src)
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFlatten(t *testing.T) {
	img := image.NewNRGBA(image.Rect(5, 5, 7, 6))
	img.Set(5, 5, color.NRGBA{R: 255, A: 255})
	img.Set(6, 5, color.NRGBA{G: 255, A: 0})

	out := Flatten(img)

	if out.Bounds() != image.Rect(0, 0, 2, 1) {
		t.Errorf("expected bounds at origin, got %v", out.Bounds())
	}
	if !out.Opaque() {
		t.Error("flattened image should be opaque")
	}
	if got := out.RGBAAt(0, 0); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("opaque pixel changed: %v", got)
	}
	if got := out.RGBAAt(1, 0); got != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("transparent pixel should become white, got %v", got)
	}
}
