// Package source turns raw input tokens into typed, validated input sources.
package source

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jackzampolin/collate/internal/diag"
	"github.com/jackzampolin/collate/internal/home"
	"github.com/jackzampolin/collate/internal/pagespec"
)

// Kind is the type of an input source.
type Kind string

const (
	Document Kind = "document"
	Image    Kind = "image"
)

// DocumentSuffix is the one supported document format.
const DocumentSuffix = ".pdf"

// ImageSuffixes lists supported raster formats. Matching is case-insensitive.
var ImageSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// InputSource is one resolved input. Selector is nil for "all pages" and is
// always nil for images.
type InputSource struct {
	Token    string
	Path     string
	Kind     Kind
	Selector pagespec.Selector
}

// Classify returns the kind for path based on its suffix.
func Classify(path string) (Kind, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == DocumentSuffix {
		return Document, true
	}
	for _, s := range ImageSuffixes {
		if ext == s {
			return Image, true
		}
	}
	return "", false
}

// tokenPattern splits "<path>" or "<path> [<spec>]". The spec group only
// matches a trailing bracket pair with no nested brackets.
var tokenPattern = regexp.MustCompile(`^(?P<path>.*?\S)\s*(?P<spec>\[[^\[\]]*\])?$`)

// SplitToken separates a merge-mode token into its path and optional spec text.
// Brackets left in the path must balance; "a.pdf [1,2" is malformed while
// "scan [v2].pdf" is a plain path.
func SplitToken(token string) (path, spec string, err error) {
	m := tokenPattern.FindStringSubmatch(token)
	if m == nil {
		return "", "", fmt.Errorf("%w: empty input", pagespec.ErrMalformed)
	}
	path = m[tokenPattern.SubexpIndex("path")]
	spec = m[tokenPattern.SubexpIndex("spec")]

	if !balanced(path) {
		return "", "", fmt.Errorf("%w: unbalanced brackets in %q", pagespec.ErrMalformed, token)
	}
	return path, spec, nil
}

func balanced(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// Resolver resolves tokens and paths to input sources.
type Resolver struct {
	Logger *slog.Logger
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Resolve resolves a merge-mode token, which may carry a page spec.
// Failures are *diag.Error values naming the token.
func (r *Resolver) Resolve(token string) (InputSource, error) {
	path, specText, err := SplitToken(token)
	if err != nil {
		return InputSource{}, &diag.Error{Kind: diag.MalformedSpec, Input: token, Err: err}
	}

	var sel pagespec.Selector
	if specText != "" {
		sel, err = pagespec.Parse(specText)
		if err != nil {
			return InputSource{}, &diag.Error{Kind: diag.MalformedSpec, Input: token, Err: err}
		}
	}

	src, err := r.resolve(token, path)
	if err != nil {
		return InputSource{}, err
	}

	switch {
	case src.Kind == Document && specText != "":
		src.Selector = sel
	case src.Kind == Image && specText != "":
		r.logger().Debug("ignoring page spec on image", "input", token, "spec", specText)
	}
	return src, nil
}

// ResolvePath resolves a bare path. Used by blob mode, where no spec is accepted.
func (r *Resolver) ResolvePath(path string) (InputSource, error) {
	return r.resolve(path, path)
}

func (r *Resolver) resolve(token, path string) (InputSource, error) {
	abs, err := home.ExpandPath(path)
	if err != nil {
		return InputSource{}, &diag.Error{Kind: diag.MissingFile, Input: token, Err: err}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return InputSource{}, diag.Errorf(diag.MissingFile, token, "file not found: %s", abs)
	}
	if info.IsDir() {
		return InputSource{}, diag.Errorf(diag.UnsupportedType, token, "%s is a directory", abs)
	}

	kind, ok := Classify(abs)
	if !ok {
		return InputSource{}, diag.Errorf(diag.UnsupportedType, token, "unsupported file type %q", filepath.Ext(abs))
	}

	return InputSource{Token: token, Path: abs, Kind: kind}, nil
}
