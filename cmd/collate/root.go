package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/collate/internal/output"
	"github.com/jackzampolin/collate/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "collate",
	Short: "Compose PDFs, page selections, and images into one PDF",
	Long: `Collate assembles a single PDF from a list of inputs: whole PDFs,
selected pages of PDFs, and raster images (each image becomes one page).

Inputs that cannot be used are skipped and reported; the run only fails
when nothing at all could be composed.

Modes:
  - merge: an explicit, ordered list of inputs with optional page specs
  - blob:  every PDF and image in a directory, in name order`,
	Version:      version.GitRelease,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.collate/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "collate home directory (default: ~/.collate)",
	)
	rootCmd.PersistentFlags().StringVar(
		&outputFormat, "format", "yaml", "report format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return output.SetFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
