// Package pagespec parses the bracketed page-range mini-language.
//
// A spec looks like "[1,3:5]": a comma-separated list of one-based page
// numbers and inclusive a:b ranges. Parsing yields zero-based indices in the
// order written, duplicates included. Bounds are checked later against the
// actual document, so one Selector can be applied to documents of any length.
package pagespec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned for any spec that does not follow the grammar.
var ErrMalformed = errors.New("malformed page spec")

// MaxSelected caps how many indices one spec may expand to.
const MaxSelected = 1 << 16

// Selector is an ordered list of zero-based page indices.
type Selector []int

// Parse converts spec into a Selector.
func Parse(spec string) (Selector, error) {
	if !strings.HasPrefix(spec, "[") || !strings.HasSuffix(spec, "]") || len(spec) < 2 {
		return nil, fmt.Errorf("%w: %q must be wrapped in [ and ]", ErrMalformed, spec)
	}

	inner := strings.TrimSpace(spec[1 : len(spec)-1])
	if inner == "" {
		return nil, fmt.Errorf("%w: %q selects no pages", ErrMalformed, spec)
	}

	sel := Selector{}
	for _, part := range strings.Split(inner, ",") {
		part = strings.TrimSpace(part)
		start, end, isRange, err := parseToken(part)
		if err != nil {
			return nil, err
		}
		if !isRange {
			end = start
		}
		// An end before the start selects nothing.
		if n := end - start + 1; n > 0 && len(sel)+n > MaxSelected {
			return nil, fmt.Errorf("%w: %q selects more than %d pages", ErrMalformed, spec, MaxSelected)
		}
		for p := start; p <= end; p++ {
			sel = append(sel, p-1)
		}
	}
	return sel, nil
}

// parseToken parses "n" or "a:b".
func parseToken(part string) (start, end int, isRange bool, err error) {
	if part == "" {
		return 0, 0, false, fmt.Errorf("%w: empty page entry", ErrMalformed)
	}

	lo, hi, found := strings.Cut(part, ":")
	if !found {
		n, err := parsePage(part)
		return n, n, false, err
	}
	if strings.Contains(hi, ":") {
		return 0, 0, false, fmt.Errorf("%w: %q has more than one colon", ErrMalformed, part)
	}

	if start, err = parsePage(strings.TrimSpace(lo)); err != nil {
		return 0, 0, false, err
	}
	if end, err = parsePage(strings.TrimSpace(hi)); err != nil {
		return 0, 0, false, err
	}
	return start, end, true, nil
}

func parsePage(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a page number", ErrMalformed, s)
	}
	return n, nil
}

// String renders the selector as one-based page numbers, e.g. "[1,3,4,5]".
func (s Selector) String() string {
	parts := make([]string, len(s))
	for i, idx := range s {
		parts[i] = strconv.Itoa(idx + 1)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// All returns the selector 0..total-1.
func All(total int) Selector {
	sel := make(Selector, total)
	for i := range sel {
		sel[i] = i
	}
	return sel
}
