package sim

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"planthealth-sim/internal/events"
	"planthealth-sim/internal/health"
	"planthealth-sim/internal/logging"
	"planthealth-sim/internal/telemetry"
)

// Run starts the simulation loop and stops when the context is done or the
// configured tick count is reached.
func (s *Simulator) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Info("starting simulator", "run_id", s.runID, "tick_interval", s.tickInterval, "tick_length_minutes", s.tickLength)
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Step(ctx); err != nil {
				log.Error("tick write failed", "err", err)
			}
			if s.done() {
				log.Info("simulation finished", "ticks", s.Tick())
				return
			}
		case <-ctx.Done():
			log.Info("stopping simulator")
			return
		}
	}
}

// RunTicks advances n ticks without pacing. Write errors stop the run.
func (s *Simulator) RunTicks(ctx context.Context, n int64) error {
	for i := int64(0); i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) done() bool {
	return s.maxTicks > 0 && s.Tick() >= s.maxTicks
}

// Step simulates one tick: scenario interventions, the four health passes in
// order, then output. Writer errors are returned joined; the tick itself
// always completes.
func (s *Simulator) Step(ctx context.Context) error {
	log := logging.FromContext(ctx)
	ts := s.now().UTC()

	s.mu.Lock()
	tick := s.tick
	if s.runner != nil {
		s.applyScenario(log, tick)
	}

	col := events.NewCollector()
	s.engine.Step(&health.PhaseContext{
		State:             s.state,
		Tick:              tick,
		TickLengthMinutes: s.tickLength,
		Events:            col,
	})
	evs := col.Drain()

	if s.runner != nil {
		if next, ok := s.runner.Observe(tick, evs); ok {
			log.Info("scenario phase changed", "phase", next, "tick", tick)
		}
	}

	var eventRows []telemetry.EventRow
	for _, ev := range evs {
		row, err := telemetry.FromEvent(s.runID, ev, ts)
		if err != nil {
			log.Error("event encode failed", "type", ev.Type, "err", err)
			continue
		}
		eventRows = append(eventRows, row)
	}
	s.remember(eventRows)

	var zones []telemetry.ZoneRow
	var rows []telemetry.AfflictionRow
	if tick%s.snapshotEvery == 0 {
		zones, rows = telemetry.Snapshot(s.state, s.runID, tick, ts)
	}
	s.tick++
	s.mu.Unlock()

	return s.write(eventRows, zones, rows)
}

func (s *Simulator) applyScenario(log *slog.Logger, tick int64) {
	due := s.runner.Due(tick)
	for _, o := range due.Seeds {
		id, err := o.Apply(s.state, tick)
		if err != nil {
			log.Warn("scenario seed skipped", "zone_id", o.ZoneID, "plant_id", o.PlantID, "agent", o.AgentID, "err", err)
			continue
		}
		log.Debug("scenario seeded outbreak", "zone_id", o.ZoneID, "plant_id", o.PlantID, "id", id, "tick", tick)
	}
	for _, t := range due.Treatments {
		zone, _ := s.state.FindZone(t.ZoneID)
		if err := s.scheduleLocked(t.ZoneID, t.Pending(zone, tick)); err != nil {
			log.Warn("scenario treatment skipped", "zone_id", t.ZoneID, "option_id", t.OptionID, "err", err)
		}
	}
}

func (s *Simulator) remember(rows []telemetry.EventRow) {
	s.recent = append(s.recent, rows...)
	if extra := len(s.recent) - recentEventLimit; extra > 0 {
		s.recent = append(s.recent[:0], s.recent[extra:]...)
	}
}

func (s *Simulator) write(eventRows []telemetry.EventRow, zones []telemetry.ZoneRow, rows []telemetry.AfflictionRow) error {
	var errs []error
	if s.eventWriter != nil && len(eventRows) > 0 {
		errs = append(errs, writeEvents(s.eventWriter, eventRows))
	}
	if s.zoneWriter != nil && len(zones) > 0 {
		errs = append(errs, writeZones(s.zoneWriter, zones))
	}
	if s.snapshotWriter != nil && len(rows) > 0 {
		errs = append(errs, writeSnapshots(s.snapshotWriter, rows))
	}
	return errors.Join(errs...)
}

// Batch support if writer implements the batch interface
func writeEvents(w EventWriter, rows []telemetry.EventRow) error {
	if bw, ok := w.(batchEventWriter); ok {
		return bw.WriteEvents(rows)
	}
	for _, r := range rows {
		if err := w.WriteEvent(r); err != nil {
			return err
		}
	}
	return nil
}

func writeZones(w ZoneWriter, rows []telemetry.ZoneRow) error {
	if bw, ok := w.(batchZoneWriter); ok {
		return bw.WriteZones(rows)
	}
	for _, r := range rows {
		if err := w.WriteZone(r); err != nil {
			return err
		}
	}
	return nil
}

func writeSnapshots(w SnapshotWriter, rows []telemetry.AfflictionRow) error {
	if bw, ok := w.(batchSnapshotWriter); ok {
		return bw.WriteSnapshots(rows)
	}
	for _, r := range rows {
		if err := w.WriteSnapshot(r); err != nil {
			return err
		}
	}
	return nil
}
