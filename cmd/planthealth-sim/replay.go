package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"planthealth-sim/internal/logging"
	"planthealth-sim/internal/sim"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
	replayDBPath    string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay an event log file",
	Long:  "replay feeds event rows from a JSONL log (plain or .zst) back into GreptimeDB, SQLite or STDOUT.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		log := logging.FromContext(cmd.Context())
		out, err := newWriters(nil, writerOptions{printOnly: replayPrintOnly, dbPath: replayDBPath}, log)
		if err != nil {
			return err
		}
		defer out.Close()
		log.Info("replaying event log", "input", replayInput, "speed", replaySpeed)
		return sim.ReplayLogFile(replayInput, out.multi, replaySpeed)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to event log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (0 disables pacing)")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print events to STDOUT instead of writing to GreptimeDB")
	replayCmd.Flags().StringVar(&replayDBPath, "db", "", "Also store replayed events in this SQLite database")
	replayCmd.MarkFlagRequired("input")
}
