// Package compose assembles page units into one PDF.
package compose

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/jackzampolin/collate/internal/pages"
)

var (
	// ErrEmpty is returned by Serialize when no page was appended.
	ErrEmpty = errors.New("composition is empty: no pages to write")

	// ErrUnwritable is returned when the output destination cannot be written.
	ErrUnwritable = errors.New("output is not writable")
)

// Composer accumulates page units in append order.
type Composer struct {
	Validation string
	units      []pages.PageUnit
}

// Append adds a unit after all previously appended units.
func (c *Composer) Append(unit pages.PageUnit) {
	c.units = append(c.units, unit)
}

// Len returns the number of appended units.
func (c *Composer) Len() int {
	return len(c.units)
}

// Serialize merges every appended unit into a single PDF.
func (c *Composer) Serialize(ctx context.Context) ([]byte, error) {
	if len(c.units) == 0 {
		return nil, ErrEmpty
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	readers := make([]io.ReadSeeker, len(c.units))
	for i, u := range c.units {
		readers[i] = u.Reader()
	}

	var buf bytes.Buffer
	if err := api.MergeRaw(readers, &buf, false, pages.NewConfig(c.Validation)); err != nil {
		return nil, fmt.Errorf("failed to merge %d pages: %w", len(c.units), err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes data to path atomically: a temp file in the same directory
// is renamed over path. The temp file never survives a failed write.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnwritable, path, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %s: %v", ErrUnwritable, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnwritable, path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnwritable, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnwritable, path, err)
	}
	committed = true
	return nil
}
