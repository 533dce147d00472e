package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alevsk/mpd-scope/internal/ingestor"
)

var validateOpts = &runOptions{}

var validateCmd = &cobra.Command{
	Use:   "validate [source] [ssai]",
	Short: "Validate an SSAI manifest against its source",
	Long: `Validate the SSAI stitched manifest against the source manifest it was built
from. The SSAI manifest runs through the rule engine with the source as its
previous refresh, then both are compared structurally and checked for
compliance, ad period continuity, bandwidth, timing and DRM consistency.

Examples:
  # Validate a stitched manifest
  mpd-scope validate source.mpd ssai.mpd

  # Only show high and very high findings
  mpd-scope validate source.mpd https://ssai.example.com/manifest.mpd --min-severity high`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := validateOpts.ingestorOptions()
		if err != nil {
			return err
		}

		ing := ingestor.New(opts)
		result, err := ing.Pair(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		return validateOpts.emit(cmd.OutOrStdout(), result)
	},
}

func init() {
	validateOpts.bind(validateCmd.Flags())
	validateOpts.bindPDF(validateCmd.Flags())
}
