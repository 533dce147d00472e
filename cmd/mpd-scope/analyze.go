package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alevsk/mpd-scope/internal/ingestor"
)

var (
	analyzeOpts = &runOptions{}
	previous    string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [manifest]",
	Short: "Analyze a DASH manifest",
	Long: `Analyze a DASH manifest from a local file or a remote URL. The manifest is
normalized and checked by the rule engine. With --previous the manifest is also
compared against an earlier refresh of the same stream.

Examples:
  # Analyze a local manifest
  mpd-scope analyze manifest.mpd

  # Analyze a live manifest against its previous refresh
  mpd-scope analyze https://cdn.example.com/live/manifest.mpd --previous prev.mpd

  # Render the findings as JSON and a PDF report
  mpd-scope analyze manifest.mpd -o json --pdf report.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := analyzeOpts.ingestorOptions()
		if err != nil {
			return err
		}

		ing := ingestor.New(opts)
		result, err := ing.Ingest(cmd.Context(), args[0], previous)
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}
		return analyzeOpts.emit(cmd.OutOrStdout(), result)
	},
}

func init() {
	analyzeOpts.bind(analyzeCmd.Flags())
	analyzeOpts.bindPDF(analyzeCmd.Flags())
	analyzeCmd.Flags().StringVar(&previous, "previous", "",
		"previous refresh of the manifest to compare against")
}
