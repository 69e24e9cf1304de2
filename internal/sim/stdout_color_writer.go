// ColorStdoutWriter prints human-friendly, colorized health output to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"planthealth-sim/internal/config"
	"planthealth-sim/internal/health"
	"planthealth-sim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

// ColorStdoutWriter prints events and zone summaries using ANSI colors.
// Per-affliction rows are too noisy for a terminal and are skipped.
type ColorStdoutWriter struct {
	cfg        *config.SimulationConfig
	out        io.Writer
	once       sync.Once
	mu         sync.Mutex
	zoneColors map[string]string
	colorIdx   int
}

var zonePalette = []string{colorGreen, colorYellow, colorBlue, colorMagenta, colorCyan}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.SimulationConfig) *ColorStdoutWriter {
	return &ColorStdoutWriter{
		cfg:        cfg,
		out:        os.Stdout,
		zoneColors: make(map[string]string),
	}
}

func (w *ColorStdoutWriter) zoneColor(id string) string {
	if c, ok := w.zoneColors[id]; ok {
		return c
	}
	c := zonePalette[w.colorIdx%len(zonePalette)]
	w.zoneColors[id] = c
	w.colorIdx++
	return c
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}

	fmt.Fprintln(w.out, "Simulation Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Tick Length (min):\t%.0f\n", w.cfg.Simulation.TickLengthMinutes)
	fmt.Fprintf(tw, "Ticks Per Day:\t%d\n", health.TicksPerDay(w.cfg.Simulation.TickLengthMinutes))
	fmt.Fprintf(tw, "Ticks:\t%d\n", w.cfg.Simulation.Ticks)
	fmt.Fprintf(tw, "Scenario:\t%s\n", w.cfg.Scenario)
	fmt.Fprintf(tw, "Outbreaks:\t%d\n", len(w.cfg.Outbreaks))
	tw.Flush()

	fmt.Fprintln(w.out, "\nZones:")
	tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tName\tRoom\n")
	for _, s := range w.cfg.World.Structures {
		for _, r := range s.Rooms {
			for _, z := range r.Zones {
				fmt.Fprintf(tw, "%s%s%s\t%s\t%s\n", w.zoneColor(z.ID), z.ID, colorReset, z.Name, r.ID)
			}
		}
	}
	tw.Flush()

	fmt.Fprintln(w.out, "\nTreatments:")
	tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tCategory\tTargets\n")
	for _, o := range w.cfg.TreatmentOptions {
		fmt.Fprintf(tw, "%s\t%s\t%v\n", o.ID, o.Category, o.Targets)
	}
	tw.Flush()
	fmt.Fprintln(w.out)
}

// WriteEvent prints an engine event.
func (w *ColorStdoutWriter) WriteEvent(row telemetry.EventRow) error {
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()

	label, col := "EVENT", colorGray
	switch row.Type {
	case health.EventPestDetected:
		label, col = "PEST", colorRed
	case health.EventTreatmentApplied:
		label, col = "TREAT", colorGreen
	}
	fmt.Fprintf(w.out, "%s[%s]%s %s%-5s%s tick=%d %szone=%s%s %s\n",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		col, label, colorReset, row.Tick,
		w.zoneColor(row.ZoneID), row.ZoneID, colorReset, row.Payload)
	return nil
}

// WriteEvents prints multiple events.
func (w *ColorStdoutWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, r := range rows {
		_ = w.WriteEvent(r)
	}
	return nil
}

// WriteZone prints a zone summary. Zones without afflictions or queued work are skipped.
func (w *ColorStdoutWriter) WriteZone(row telemetry.ZoneRow) error {
	if row.Diseases == 0 && row.Pests == 0 && row.PendingTreatments == 0 {
		return nil
	}
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()

	fmt.Fprintf(w.out, "%s[%s]%s %sZONE %s tick=%d %szone=%s%s ",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorBlue, colorReset, row.Tick,
		w.zoneColor(row.ZoneID), row.ZoneID, colorReset)
	fmt.Fprintf(w.out, "%sdiseases=%d%s ", colorMagenta, row.Diseases, colorReset)
	fmt.Fprintf(w.out, "%spests=%d%s ", colorYellow, row.Pests, colorReset)
	fmt.Fprintf(w.out, "%spending=%d applied=%d%s", colorCyan, row.PendingTreatments, row.AppliedTreatments, colorReset)
	if row.ReentryRestrictedUntilTick >= 0 {
		fmt.Fprintf(w.out, " %sreentry<%d%s", colorRed, row.ReentryRestrictedUntilTick, colorReset)
	}
	if row.PreHarvestRestrictedUntilTick >= 0 {
		fmt.Fprintf(w.out, " %sphi<%d%s", colorRed, row.PreHarvestRestrictedUntilTick, colorReset)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteZones prints multiple zone summaries.
func (w *ColorStdoutWriter) WriteZones(rows []telemetry.ZoneRow) error {
	for _, r := range rows {
		_ = w.WriteZone(r)
	}
	return nil
}
