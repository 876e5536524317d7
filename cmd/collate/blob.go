package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/collate/internal/config"
	"github.com/jackzampolin/collate/internal/home"
	"github.com/jackzampolin/collate/internal/watch"
)

var (
	blobOutput  string
	blobWorkers int
	blobWatch   bool
)

var blobCmd = &cobra.Command{
	Use:   "blob <dir>",
	Short: "Compose every PDF and image in a directory into one PDF",
	Long: `Compose every PDF and image directly inside a directory, in name order.

Subdirectories are not searched and other file types are ignored. Every PDF
contributes all of its pages.

With --watch, the output is rebuilt whenever the directory changes until
interrupted. Config file changes are picked up between rebuilds.

Examples:
  collate blob ~/scans -o book.pdf
  collate blob ~/scans -o ~/scans/book.pdf --watch`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		if blobOutput == "" {
			return fmt.Errorf("no output path: use -o/--output")
		}
		outPath, err := home.ExpandPath(blobOutput)
		if err != nil {
			return err
		}

		env, err := newRunEnv()
		if err != nil {
			return err
		}

		build := func(ctx context.Context) error {
			res, err := env.orchestrator(blobWorkers).Blob(ctx, dir, outPath)
			return finish(res, err, outPath)
		}

		if !blobWatch {
			return build(cmd.Context())
		}

		watchDir, err := home.ExpandPath(dir)
		if err != nil {
			return err
		}
		env.configs.OnChange(func(cfg *config.Config) {
			env.logger.Info("config reloaded", "dpi", cfg.Image.DPI, "workers", cfg.Workers)
		})
		env.configs.WatchConfig()

		w := &watch.Watcher{
			Dir:      watchDir,
			Debounce: env.configs.Get().Debounce(),
			Ignore:   []string{outPath},
			Rebuild:  build,
			Logger:   env.logger,
		}
		env.logger.Info("watching for changes", "dir", watchDir, "output", outPath)
		return w.Run(cmd.Context())
	},
}

func init() {
	blobCmd.Flags().StringVarP(&blobOutput, "output", "o", "", "output PDF path")
	blobCmd.Flags().IntVar(&blobWorkers, "workers", 0, "inputs processed concurrently (default from config)")
	blobCmd.Flags().BoolVar(&blobWatch, "watch", false, "rebuild the output whenever the directory changes")

	rootCmd.AddCommand(blobCmd)
}
