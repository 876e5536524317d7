package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/jackzampolin/collate/internal/compose"
	"github.com/jackzampolin/collate/internal/config"
	"github.com/jackzampolin/collate/internal/home"
	"github.com/jackzampolin/collate/internal/merge"
	"github.com/jackzampolin/collate/internal/output"
)

// runEnv is what every composing command needs: home dir, config and a logger.
type runEnv struct {
	home    *home.Dir
	configs *config.Manager
	logger  *slog.Logger
}

func newRunEnv() (*runEnv, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}

	file := cfgFile
	if file == "" && homeDir != "" && h.ConfigExists() {
		file = h.ConfigPath()
	}
	mgr, err := config.NewManager(file)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: mgr.Get().SlogLevel(),
	}))

	return &runEnv{home: h, configs: mgr, logger: logger}, nil
}

// orchestrator builds an Orchestrator from the current config.
// workers overrides the configured worker count when positive.
func (e *runEnv) orchestrator(workers int) *merge.Orchestrator {
	cfg := e.configs.Get()
	if workers <= 0 {
		workers = cfg.Workers
	}
	return merge.New(merge.Config{
		Workers:    workers,
		DPI:        cfg.Image.DPI,
		ScratchDir: e.home.ScratchPath(),
		Validation: cfg.PDF.Validation,
		Logger:     e.logger,
	})
}

// finish writes a successful run to outPath and prints the report.
// The report is printed for failed runs too, so skips are never silent.
func finish(res *merge.Result, runErr error, outPath string) error {
	if runErr == nil {
		if err := compose.WriteFile(outPath, res.Data); err != nil {
			runErr = err
		} else {
			res.Output = outPath
		}
	}
	if res != nil {
		if err := output.Print(res); err != nil {
			return errors.Join(runErr, err)
		}
	}
	return runErr
}
