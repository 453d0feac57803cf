// Package cli wires the pag-fetch command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/retea-se/pag/internal/config"
	"github.com/retea-se/pag/internal/logger"
	"github.com/retea-se/pag/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	flagConfig    string
	flagOutputDir string
	flagVerbose   bool
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pag-fetch",
		Short: "Aggregate event listings from the Globen-area arenas",
		Long: `Fetches event listings from the Stockholm Live arena websites,
scrapes dates and times from the detail pages, reconciles against the
previous run, and writes the snapshot, RSS, iCal and JSON Feed files.

Exit codes: 0 full success, 1 fatal failure (a listing fetch failed or
the run timed out), 2 partial success (some detail scrapes failed).`,
		SilenceUsage: true,
		RunE:         runFetch,
	}

	cmd.Flags().StringVar(&flagConfig, "config", "", "Path to YAML config (defaults to the built-in arena table)")
	cmd.Flags().StringVar(&flagOutputDir, "output-dir", "", "Output directory (overrides config and PAG_OUTPUT_DIR)")
	cmd.Flags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	return cmd
}

func runFetch(cmd *cobra.Command, args []string) error {
	if flagVerbose {
		logger.SetDefault(logger.New(logger.LevelDebug, os.Stdout))
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagOutputDir != "" {
		cfg.OutputDir = flagOutputDir
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}

	os.Exit(p.Run(context.Background()))
	return nil
}

// Execute runs the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(pipeline.ExitFatal)
	}
}
