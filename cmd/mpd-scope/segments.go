package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alevsk/mpd-scope/internal/ingestor"
	"github.com/alevsk/mpd-scope/internal/segments"
)

var (
	segmentsOpts  = &runOptions{}
	downloadsPath string
	validateVOD   bool
)

var segmentsCmd = &cobra.Command{
	Use:   "segments [manifest]",
	Short: "Check segment durations and download times",
	Long: `Enumerate the segments of a manifest and check them against the runtime
policy: segment duration bounds and, when download times are provided, the
download time to duration ratio.

The downloads file is a JSON object of download times in seconds keyed by
"period/representationId/segmentIndex", where period is the period id or,
for a period without one, its index:

  {"live-1/video-1/3": 2.4, "live-1/audio-1/3": 0.3}

Examples:
  mpd-scope segments live.mpd --downloads downloads.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := segmentsOpts.ingestorOptions()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("validate-vod") {
			opts.Segments.ValidateVOD = validateVOD
		}

		var downloads map[string]float64
		if downloadsPath != "" {
			downloads, err = segments.LoadDownloads(downloadsPath)
			if err != nil {
				return err
			}
		}

		ing := ingestor.New(opts)
		result, _, err := ing.Segments(cmd.Context(), args[0], downloads)
		if err != nil {
			return fmt.Errorf("segment check failed: %w", err)
		}
		return segmentsOpts.emit(cmd.OutOrStdout(), result)
	},
}

func init() {
	segmentsOpts.bind(segmentsCmd.Flags())
	segmentsOpts.bindPDF(segmentsCmd.Flags())
	segmentsCmd.Flags().StringVar(&downloadsPath, "downloads", "",
		"JSON file with observed download times")
	segmentsCmd.Flags().BoolVar(&validateVOD, "validate-vod", false,
		"apply the download ratio check to static manifests too")
}
