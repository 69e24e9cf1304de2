// Simulator driving the plant health engine tick by tick
package sim

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"planthealth-sim/internal/config"
	"planthealth-sim/internal/health"
	"planthealth-sim/internal/scenario"
	"planthealth-sim/internal/state"
	"planthealth-sim/internal/telemetry"
)

// EventWriter receives engine events.
type EventWriter interface {
	WriteEvent(telemetry.EventRow) error
}

// SnapshotWriter receives per-tick affliction rows.
type SnapshotWriter interface {
	WriteSnapshot(telemetry.AfflictionRow) error
}

// ZoneWriter receives per-tick zone summaries.
type ZoneWriter interface {
	WriteZone(telemetry.ZoneRow) error
}

// Optional: writers may support batch mode
type batchEventWriter interface {
	WriteEvents([]telemetry.EventRow) error
}

type batchSnapshotWriter interface {
	WriteSnapshots([]telemetry.AfflictionRow) error
}

type batchZoneWriter interface {
	WriteZones([]telemetry.ZoneRow) error
}

// Validation errors returned by ScheduleTreatment.
var (
	ErrUnknownZone   = errors.New("unknown zone")
	ErrUnknownPlant  = errors.New("unknown plant")
	ErrUnknownOption = errors.New("unknown treatment option")
	ErrUnsupported   = errors.New("treatment option does not support target")
)

const recentEventLimit = 100

// Options wires the simulator's outputs and collaborators. Nil writers are skipped.
type Options struct {
	RunID     string
	Events    EventWriter
	Snapshots SnapshotWriter
	Zones     ZoneWriter
	Scenario  *scenario.Scenario
	Logger    *slog.Logger
	// SnapshotEvery writes snapshot rows every n ticks; 0 means every tick.
	SnapshotEvery int64
	Now           func() time.Time
}

// Simulator owns the world tree and is the only caller of the health engine.
type Simulator struct {
	runID          string
	cfg            *config.SimulationConfig
	engine         *health.Engine
	catalog        health.TreatmentCatalog
	state          *state.GameState
	tick           int64
	tickLength     float64
	tickInterval   time.Duration
	maxTicks       int64
	snapshotEvery  int64
	runner         *scenario.Runner
	eventWriter    EventWriter
	snapshotWriter SnapshotWriter
	zoneWriter     ZoneWriter
	recent         []telemetry.EventRow
	now            func() time.Time
	mu             sync.Mutex
}

// NewRunID returns a unique run id prefixed with label.
func NewRunID(label string) string {
	if label == "" {
		return uuid.NewString()
	}
	return label + "-" + uuid.NewString()
}

// NewSimulator builds the world from cfg and seeds its outbreaks.
func NewSimulator(cfg *config.SimulationConfig, opts Options) (*Simulator, error) {
	gs, err := cfg.BuildState()
	if err != nil {
		return nil, err
	}
	engineOpts := cfg.EngineOptions()
	engineOpts.Logger = opts.Logger
	runID := opts.RunID
	if runID == "" {
		runID = NewRunID(cfg.Simulation.RunLabel)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	every := opts.SnapshotEvery
	if every <= 0 {
		every = 1
	}
	interval := cfg.Simulation.TickInterval
	if interval <= 0 {
		interval = time.Second
	}
	s := &Simulator{
		runID:          runID,
		cfg:            cfg,
		engine:         health.NewEngine(engineOpts),
		catalog:        engineOpts.TreatmentOptions,
		state:          gs,
		tickLength:     cfg.Simulation.TickLengthMinutes,
		tickInterval:   interval,
		maxTicks:       cfg.Simulation.Ticks,
		snapshotEvery:  every,
		eventWriter:    opts.Events,
		snapshotWriter: opts.Snapshots,
		zoneWriter:     opts.Zones,
		now:            now,
	}
	if opts.Scenario != nil {
		s.runner = scenario.NewRunner(opts.Scenario, 0)
	}
	return s, nil
}

// RunID returns the id stamped on every row of this run.
func (s *Simulator) RunID() string { return s.runID }

// Tick returns the next tick to be simulated.
func (s *Simulator) Tick() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// TickLengthMinutes returns the simulated duration of one tick.
func (s *Simulator) TickLengthMinutes() float64 { return s.tickLength }

// Catalog returns the treatment catalog the engine uses.
func (s *Simulator) Catalog() health.TreatmentCatalog { return s.catalog }

// ScenarioPhase returns the current scenario phase, or "" without a scenario.
func (s *Simulator) ScenarioPhase() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runner == nil {
		return ""
	}
	return s.runner.Phase()
}

// ScheduleTreatment queues a treatment for a zone. An empty plant list means
// every plant of the zone; a scheduled tick in the past becomes the current one.
func (s *Simulator) ScheduleTreatment(zoneID string, p state.PendingTreatmentApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduleLocked(zoneID, p)
}

func (s *Simulator) scheduleLocked(zoneID string, p state.PendingTreatmentApplication) error {
	zone, ok := s.state.FindZone(zoneID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownZone, zoneID)
	}
	option, ok := s.catalog.Lookup(p.OptionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOption, p.OptionID)
	}
	if !option.Supports(p.Target) {
		return fmt.Errorf("%w: %s/%s", ErrUnsupported, option.ID, p.Target)
	}
	if len(p.PlantIDs) == 0 {
		for _, plant := range zone.Plants {
			p.PlantIDs = append(p.PlantIDs, plant.ID)
		}
	}
	for _, id := range p.PlantIDs {
		if _, ok := zone.FindPlant(id); !ok {
			return fmt.Errorf("%w: %s in zone %s", ErrUnknownPlant, id, zoneID)
		}
	}
	if p.ScheduledTick < s.tick {
		p.ScheduledTick = s.tick
	}
	zh := zone.EnsureHealth()
	zh.PendingTreatments = append(zh.PendingTreatments, p)
	return nil
}

// ZoneSnapshot returns a deep copy of every zone.
func (s *Simulator) ZoneSnapshot() ([]*state.Zone, error) {
	s.mu.Lock()
	var zones []*state.Zone
	s.state.EachZone(func(z *state.Zone) { zones = append(zones, z) })
	data, err := json.Marshal(zones)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var out []*state.Zone
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RecentEvents returns the most recent event rows, oldest first.
func (s *Simulator) RecentEvents() []telemetry.EventRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]telemetry.EventRow, len(s.recent))
	copy(out, s.recent)
	return out
}

// Digest hashes the tick counter and the full world tree. Two runs with the
// same inputs produce the same digest at the same tick.
func (s *Simulator) Digest() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(s.state)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	fmt.Fprintf(h, "tick=%d\n", s.tick)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
