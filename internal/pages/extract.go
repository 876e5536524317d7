package pages

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/jackzampolin/collate/internal/diag"
	"github.com/jackzampolin/collate/internal/pagespec"
	"github.com/jackzampolin/collate/internal/source"
)

// Extractor yields the selected pages of a document source.
type Extractor struct {
	Validation string       // pdfcpu validation mode: "relaxed" (default) or "strict"
	Logger     *slog.Logger // Optional logger for progress updates
}

// Extraction is the outcome of extracting one document.
type Extraction struct {
	Units     []PageUnit
	Skipped   []diag.SkipRecord
	Requested int // Pages asked for: len(selector), or the page count when no selector
}

// Extract opens the document, counts its pages, and emits one unit per in-range
// selector entry in selector order. Out-of-range entries become InvalidPage
// records and a page that cannot be extracted becomes an UnreadableDocument
// record; neither stops the remaining entries. If the document cannot be read
// at all the returned error is a *diag.Error of kind UnreadableDocument.
// Only context cancellation is returned as a plain error.
func (e *Extractor) Extract(ctx context.Context, src source.InputSource) (*Extraction, error) {
	log := e.Logger
	if log == nil {
		log = slog.Default()
	}
	input := src.Token
	if input == "" {
		input = src.Path
	}

	// The file handle is released before any page is processed.
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, diag.Errorf(diag.UnreadableDocument, input, "failed to read PDF: %v", err)
	}

	total, err := api.PageCount(bytes.NewReader(data), NewConfig(e.Validation))
	if err != nil {
		return nil, diag.Errorf(diag.UnreadableDocument, input, "failed to get page count: %v", err)
	}

	sel := src.Selector
	if sel == nil {
		sel = pagespec.All(total)
	}
	log.Debug("extracting PDF", "file", src.Path, "pages", total, "selected", sel.String())

	out := &Extraction{Requested: len(sel)}
	cache := make(map[int][]byte)
	failed := make(map[int]error)
	for _, idx := range sel {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if idx < 0 || idx >= total {
			out.Skipped = append(out.Skipped, diag.SkipRecord{
				Input:  input,
				Kind:   diag.InvalidPage,
				Detail: fmt.Sprintf("page %d out of range (document has %d pages)", idx+1, total),
			})
			continue
		}

		page, ok := cache[idx]
		if !ok {
			terr, seen := failed[idx]
			if !seen {
				page, terr = trim(data, idx+1, e.Validation)
			}
			if terr != nil {
				failed[idx] = terr
				out.Skipped = append(out.Skipped, diag.SkipRecord{
					Input:  input,
					Kind:   diag.UnreadableDocument,
					Detail: fmt.Sprintf("failed to extract page %d: %v", idx+1, terr),
				})
				continue
			}
			cache[idx] = page
		}
		out.Units = append(out.Units, PageUnit{Source: input, Page: idx + 1, PDF: page})
	}

	return out, nil
}

// trim is swapped out in tests.
var trim = trimPage

// trimPage returns a single-page PDF holding page pageNr (one-based) of data.
func trimPage(data []byte, pageNr int, validation string) ([]byte, error) {
	var buf bytes.Buffer
	if err := api.Trim(bytes.NewReader(data), &buf, []string{strconv.Itoa(pageNr)}, NewConfig(validation)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Count returns the number of pages in a PDF.
func Count(data []byte, validation string) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), NewConfig(validation))
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return n, nil
}

// Dims returns the dimensions of every page of a PDF, in points.
func Dims(data []byte, validation string) ([]types.Dim, error) {
	dims, err := api.PageDims(bytes.NewReader(data), NewConfig(validation))
	if err != nil {
		return nil, fmt.Errorf("failed to get page dimensions: %w", err)
	}
	return dims, nil
}
