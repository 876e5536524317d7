// Package pages extracts individual pages from PDF documents.
package pages

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageUnit is one ready-to-compose page: a single-page PDF plus where it came from.
type PageUnit struct {
	Source string // Input identifier (token or path)
	Page   int    // One-based page number in the source; 0 for images
	PDF    []byte // Single-page PDF
}

// Reader returns a fresh reader over the unit's PDF bytes.
func (u PageUnit) Reader() io.ReadSeeker {
	return bytes.NewReader(u.PDF)
}

var warmOnce sync.Once

// NewConfig returns a fresh pdfcpu configuration for one operation.
// pdfcpu mutates its configuration while working, so configurations are never shared.
// validation is "strict" or anything else for relaxed.
func NewConfig(validation string) *model.Configuration {
	// The first call may create pdfcpu's config dir; do it once before any concurrent use.
	warmOnce.Do(func() { _ = model.NewDefaultConfiguration() })

	conf := model.NewDefaultConfiguration()
	if strings.EqualFold(validation, "strict") {
		conf.ValidationMode = model.ValidationStrict
	} else {
		conf.ValidationMode = model.ValidationRelaxed
	}
	return conf
}
