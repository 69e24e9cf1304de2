package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"planthealth-sim/internal/persistence"
)

var (
	historyDBPath string
	historyRun    string
	historyType   string
	historyZone   string
	historyLimit  int
	historyZones  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect runs stored in a SQLite database",
	Long:  "history lists stored runs, the events of one run when --run is given, or a zone's snapshots with --zones.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := persistence.Open(historyDBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		if historyRun == "" {
			return printRuns(cmd.Context(), cmd.OutOrStdout(), store)
		}
		if historyZones {
			if historyZone == "" {
				return fmt.Errorf("--zones needs --zone")
			}
			return printZoneHistory(cmd.Context(), cmd.OutOrStdout(), store, historyRun, historyZone)
		}
		return printEvents(cmd.Context(), cmd.OutOrStdout(), store, persistence.EventFilter{
			RunID:  historyRun,
			Type:   historyType,
			ZoneID: historyZone,
			Limit:  historyLimit,
		})
	},
}

func printRuns(ctx context.Context, w io.Writer, store *persistence.Store) error {
	runs, err := store.Runs(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tFIRST TICK\tLAST TICK\tEVENTS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", r.RunID, r.FirstTick, r.LastTick, r.Events)
	}
	return tw.Flush()
}

func printEvents(ctx context.Context, w io.Writer, store *persistence.Store, f persistence.EventFilter) error {
	rows, err := store.Events(ctx, f)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TICK\tTYPE\tZONE\tPAYLOAD")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.Tick, r.Type, r.ZoneID, r.Payload)
	}
	return tw.Flush()
}

func printZoneHistory(ctx context.Context, w io.Writer, store *persistence.Store, runID, zoneID string) error {
	rows, err := store.ZoneHistory(ctx, runID, zoneID)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TICK\tPLANTS\tDISEASES\tPESTS\tPENDING\tAPPLIED\tREENTRY\tPRE-HARVEST")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\t%s\t%s\n", r.Tick, r.Plants, r.Diseases, r.Pests,
			r.PendingTreatments, r.AppliedTreatments,
			untilTick(r.ReentryRestrictedUntilTick), untilTick(r.PreHarvestRestrictedUntilTick))
	}
	return tw.Flush()
}

func untilTick(t int64) string {
	if t < 0 {
		return "-"
	}
	return fmt.Sprint(t)
}

func init() {
	historyCmd.Flags().StringVar(&historyDBPath, "db", "planthealth.db", "Path to the SQLite database")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "Run id to list events for")
	historyCmd.Flags().StringVar(&historyType, "type", "", "Only events of this type (e.g. pest.detected)")
	historyCmd.Flags().StringVar(&historyZone, "zone", "", "Only events of this zone")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Maximum number of events (0 for all)")
	historyCmd.Flags().BoolVar(&historyZones, "zones", false, "Show zone snapshots of --zone instead of events")
}
