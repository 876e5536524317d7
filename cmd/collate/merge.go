package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/collate/internal/home"
	"github.com/jackzampolin/collate/internal/merge"
)

var (
	mergeOutput   string
	mergeManifest string
	mergeWorkers  int
)

var mergeCmd = &cobra.Command{
	Use:   "merge [input...]",
	Short: "Compose an explicit list of inputs into one PDF",
	Long: `Compose an ordered list of inputs into one PDF.

Each input is a PDF or image path. A PDF may be followed by a page spec in
brackets: one-based page numbers and inclusive ranges, e.g. "[1,3:5]".
Quote inputs that contain a page spec or spaces.

Inputs can also come from a manifest (YAML or JSON):

  output: book.pdf
  inputs:
    - cover.png
    - path: scans/part-1.pdf
      pages: "[1,3:5]"
    - "scans/part-2.pdf [2]"

Examples:
  collate merge "/scans/a.pdf [1,3:5]" cover.jpg b.pdf -o out.pdf
  collate merge --manifest book.yaml
  collate merge --manifest book.yaml extra.pdf -o other.pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tokens := args
		outPath := mergeOutput

		if mergeManifest != "" {
			m, err := merge.LoadManifest(mergeManifest)
			if err != nil {
				return err
			}
			tokens = append(m.Tokens(), args...)
			if outPath == "" {
				outPath = m.Output
			}
		}
		if len(tokens) == 0 {
			return fmt.Errorf("no inputs: pass inputs as arguments or use --manifest")
		}
		if outPath == "" {
			return fmt.Errorf("no output path: use -o/--output")
		}
		outPath, err := home.ExpandPath(outPath)
		if err != nil {
			return err
		}

		env, err := newRunEnv()
		if err != nil {
			return err
		}

		res, err := env.orchestrator(mergeWorkers).Merge(cmd.Context(), tokens)
		return finish(res, err, outPath)
	},
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "output PDF path")
	mergeCmd.Flags().StringVar(&mergeManifest, "manifest", "", "YAML or JSON manifest listing inputs")
	mergeCmd.Flags().IntVar(&mergeWorkers, "workers", 0, "inputs processed concurrently (default from config)")

	rootCmd.AddCommand(mergeCmd)
}
