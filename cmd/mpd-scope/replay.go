package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alevsk/mpd-scope/internal/ingestor"
)

var replayOpts = &runOptions{}

var replayCmd = &cobra.Command{
	Use:   "replay [directory]",
	Short: "Replay a capture of successive manifest refreshes",
	Long: `Replay a directory of captured manifest refreshes. Files are taken in name
order and each one is analyzed against the one before it.

Examples:
  mpd-scope replay ./captures/channel-1/ -o ndjson`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := replayOpts.ingestorOptions()
		if err != nil {
			return err
		}

		ing := ingestor.New(opts)
		results, err := ing.Replay(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("replay failed: %w", err)
		}

		failed := 0
		for _, res := range results {
			fmt.Fprint(cmd.OutOrStdout(), res.OutputFormatted)
			if !res.Success {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("replay failed: %d of %d manifests could not be analyzed", failed, len(results))
		}
		return nil
	},
}

func init() {
	replayOpts.bind(replayCmd.Flags())
}
