// Package merge drives a composition run: it resolves every input, turns it
// into page units, and commits them to one composed PDF in input order.
//
// Per-input failures are recorded and skipped. A run only fails when nothing
// could be composed (compose.ErrEmpty), when a blob directory is missing
// (ErrNotDirectory), or when the context is canceled.
package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/jackzampolin/collate/internal/compose"
	"github.com/jackzampolin/collate/internal/diag"
	"github.com/jackzampolin/collate/internal/home"
	"github.com/jackzampolin/collate/internal/imagepage"
	"github.com/jackzampolin/collate/internal/pages"
	"github.com/jackzampolin/collate/internal/source"
)

// ErrNotDirectory is returned by Blob when the directory does not exist or is not a directory.
var ErrNotDirectory = errors.New("blob directory not found")

// Mode names the way inputs were supplied.
type Mode string

const (
	ModeMerge Mode = "merge"
	ModeBlob  Mode = "blob"
)

// Config holds the settings for an Orchestrator.
type Config struct {
	Workers    int          // Inputs processed concurrently; <= 1 is sequential
	DPI        int          // Image page resolution (default 100)
	ScratchDir string       // Root for image conversion scratch dirs (default os.TempDir())
	Validation string       // pdfcpu validation mode
	Logger     *slog.Logger // Optional logger
}

// Result is the outcome of one run.
type Result struct {
	RunID     string            `json:"run_id" yaml:"run_id"`
	Mode      Mode              `json:"mode" yaml:"mode"`
	Output    string            `json:"output,omitempty" yaml:"output,omitempty"`
	Inputs    int               `json:"inputs" yaml:"inputs"`
	Requested int               `json:"requested" yaml:"requested"`
	Pages     int               `json:"pages" yaml:"pages"`
	Skipped   []diag.SkipRecord `json:"skipped" yaml:"skipped"`
	Data      []byte            `json:"-" yaml:"-"`
}

// Orchestrator runs merge and blob compositions. It holds no per-run state,
// so concurrent runs on one Orchestrator are independent.
type Orchestrator struct {
	cfg        Config
	log        *slog.Logger
	resolver   *source.Resolver
	extractor  *pages.Extractor
	normalizer *imagepage.Normalizer
}

// New creates an Orchestrator.
func New(cfg Config) *Orchestrator {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		cfg:       cfg,
		log:       log,
		resolver:  &source.Resolver{Logger: log},
		extractor: &pages.Extractor{Validation: cfg.Validation, Logger: log},
		normalizer: &imagepage.Normalizer{
			DPI:        cfg.DPI,
			ScratchDir: cfg.ScratchDir,
			Validation: cfg.Validation,
			Logger:     log,
		},
	}
}

// item is one input awaiting processing.
type item struct {
	input string
	bare  bool // blob mode: a path that never carries a page spec
}

// outcome is everything one item contributes to the run.
type outcome struct {
	units     []pages.PageUnit
	skipped   []diag.SkipRecord
	requested int
	err       error // *diag.Error for a skipped item, anything else is fatal
}

func (o outcome) fatal() bool {
	if o.err == nil {
		return false
	}
	_, ok := diag.AsRecord(o.err)
	return !ok
}

// Merge composes tokens in the given order. Each token is a path optionally
// followed by a page spec, e.g. "/scans/a.pdf [1,3:5]".
// The Result is returned even when err is non-nil so callers can report skips.
func (o *Orchestrator) Merge(ctx context.Context, tokens []string) (*Result, error) {
	items := make([]item, len(tokens))
	for i, tok := range tokens {
		items[i] = item{input: tok}
	}
	return o.run(ctx, ModeMerge, items)
}

// Blob composes every PDF and image directly inside dir in ascending name
// order. Subdirectories and files of other types are ignored. Paths listed in
// exclude (typically the output file) are ignored too.
func (o *Orchestrator) Blob(ctx context.Context, dir string, exclude ...string) (*Result, error) {
	abs, err := home.ExpandPath(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	// os.ReadDir returns entries sorted by filename.
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", abs, err)
	}

	skip := make(map[string]bool, len(exclude))
	for _, p := range exclude {
		if ep, err := home.ExpandPath(p); err == nil {
			skip[ep] = true
		}
	}

	var items []item
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		p := filepath.Join(abs, entry.Name())
		if skip[p] {
			continue
		}
		if _, ok := source.Classify(p); !ok {
			o.log.Debug("ignoring unsupported file", "file", p)
			continue
		}
		items = append(items, item{input: p, bare: true})
	}

	return o.run(ctx, ModeBlob, items)
}

func (o *Orchestrator) run(ctx context.Context, mode Mode, items []item) (*Result, error) {
	res := &Result{
		RunID:  uuid.New().String(),
		Mode:   mode,
		Inputs: len(items),
	}
	log := o.log.With("run_id", res.RunID, "mode", mode)
	log.Info("starting run", "inputs", len(items), "workers", o.workers())

	outcomes := o.processAll(ctx, items)

	// Commit strictly in input order.
	skips := diag.NewLog(log)
	comp := &compose.Composer{Validation: o.cfg.Validation}
	for _, out := range outcomes {
		if out.err != nil {
			// An item that failed as a whole counts as one requested page.
			if err := skips.AddError(out.err); err != nil {
				res.Skipped = skips.Records()
				return res, err
			}
			res.Requested++
			continue
		}
		for _, u := range out.units {
			comp.Append(u)
		}
		skips.Merge(out.skipped)
		res.Requested += out.requested
	}
	res.Skipped = skips.Records()
	res.Pages = comp.Len()

	data, err := comp.Serialize(ctx)
	if err != nil {
		if errors.Is(err, compose.ErrEmpty) {
			log.Error("nothing to compose", "skipped", len(res.Skipped))
		}
		return res, err
	}
	res.Data = data

	log.Info("run complete", "pages", res.Pages, "skipped", len(res.Skipped), "bytes", len(data))
	return res, nil
}

func (o *Orchestrator) workers() int {
	if o.cfg.Workers < 1 {
		return 1
	}
	return o.cfg.Workers
}

// processAll processes items, concurrently when configured, and returns
// their outcomes indexed like items.
func (o *Orchestrator) processAll(ctx context.Context, items []item) []outcome {
	outcomes := make([]outcome, len(items))

	workers := o.workers()
	if workers == 1 {
		for i, it := range items {
			outcomes[i] = o.process(ctx, it)
			if outcomes[i].fatal() {
				break
			}
		}
		return outcomes
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for i, it := range items {
		sem <- struct{}{} // acquire
		wg.Add(1)
		go func(i int, it item) {
			defer wg.Done()
			defer func() { <-sem }() // release
			outcomes[i] = o.process(ctx, it)
		}(i, it)
	}
	wg.Wait()
	return outcomes
}

// process takes one item through resolve -> extract/normalize.
func (o *Orchestrator) process(ctx context.Context, it item) outcome {
	if err := ctx.Err(); err != nil {
		return outcome{err: err}
	}

	var (
		src source.InputSource
		err error
	)
	if it.bare {
		src, err = o.resolver.ResolvePath(it.input)
	} else {
		src, err = o.resolver.Resolve(it.input)
	}
	if err != nil {
		return outcome{err: err}
	}

	switch src.Kind {
	case source.Image:
		unit, err := o.normalizer.Normalize(ctx, src)
		if err != nil {
			return outcome{err: err}
		}
		return outcome{units: []pages.PageUnit{unit}, requested: 1}

	default:
		ext, err := o.extractor.Extract(ctx, src)
		if err != nil {
			return outcome{err: err}
		}
		return outcome{units: ext.Units, skipped: ext.Skipped, requested: ext.Requested}
	}
}
