// Package health simulates disease and pest outbreaks on plants: detection,
// rate-based progression, spread between co-located plants and the effect
// of queued treatments.
//
// The engine consumes no randomness. Given the same world tree, balancing
// and tick sequence it produces identical results, which long regression
// runs rely on.
package health

import (
	"log/slog"
	"math"

	"planthealth-sim/internal/events"
	"planthealth-sim/internal/state"
)

// Fixed thresholds of the outbreak model.
const (
	DiseaseDetectionThreshold = 0.18
	PestDetectionThreshold    = 0.22
	DiseaseSpreadThreshold    = 0.6
	PestSpreadThreshold       = 0.6
)

// Event types emitted by the engine.
const (
	EventPestDetected     = "pest.detected"
	EventTreatmentApplied = "treatment.applied"
)

const (
	defaultTreatmentDurationDays = 1.0
	minEffectiveInfectionRate    = 0.0
	maxEffectiveInfectionRate    = 10.0
	maxSymptomDelayDays          = 30.0

	spreadDiseaseSeverity  = 0.05
	spreadDiseaseInfection = 0.12
	spreadPestPopulation   = 0.15
	spreadPestDamage       = 0.05
)

// PhaseContext is what the tick scheduler hands to every pass.
type PhaseContext struct {
	State             *state.GameState
	Tick              int64
	TickLengthMinutes float64
	Events            events.Queue
}

func (c *PhaseContext) queue(eventType string, payload any) {
	if c.Events == nil {
		return
	}
	c.Events.Queue(eventType, payload, c.Tick)
}

// PhaseHandler is a single pass invoked once per tick.
type PhaseHandler func(*PhaseContext)

// PestDetectedPayload is the payload of pest.detected.
type PestDetectedPayload struct {
	ZoneID        string `json:"zoneId"`
	PlantID       string `json:"plantId"`
	PestID        string `json:"pestId"`
	InfestationID string `json:"infestationId"`
}

// TreatmentAppliedPayload is the payload of treatment.applied.
type TreatmentAppliedPayload struct {
	ZoneID                        string             `json:"zoneId"`
	PlantIDs                      []string           `json:"plantIds"`
	OptionID                      string             `json:"optionId"`
	Target                        state.HealthTarget `json:"target"`
	ReentryRestrictedUntilTick    *int64             `json:"reentryRestrictedUntilTick,omitempty"`
	PreHarvestRestrictedUntilTick *int64             `json:"preHarvestRestrictedUntilTick,omitempty"`
}

// Options configures an Engine.
type Options struct {
	DiseaseBalancing DiseaseBalancing
	PestBalancing    PestBalancing
	TreatmentOptions TreatmentCatalog
	// Logger receives debug output about dropped treatment requests.
	Logger *slog.Logger
}

// Engine runs the plant health passes.
type Engine struct {
	disease DiseaseBalancing
	pest    PestBalancing
	options TreatmentCatalog
	log     *slog.Logger
}

// NewEngine builds an engine from validated balancing data.
func NewEngine(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	options := opts.TreatmentOptions
	if options == nil {
		options = TreatmentCatalog{}
	}
	return &Engine{
		disease: opts.DiseaseBalancing,
		pest:    opts.PestBalancing,
		options: options,
		log:     log.With("component", "health"),
	}
}

// DetectionPhase returns the detection pass as a phase handler.
func (e *Engine) DetectionPhase() PhaseHandler { return e.RunDetection }

// ProgressionPhase returns the progression pass as a phase handler.
func (e *Engine) ProgressionPhase() PhaseHandler { return e.RunProgression }

// SpreadPhase returns the spread pass as a phase handler.
func (e *Engine) SpreadPhase() PhaseHandler { return e.RunSpread }

// TreatmentPhase returns the treatment application pass as a phase handler.
func (e *Engine) TreatmentPhase() PhaseHandler { return e.RunTreatmentApplication }

// Phases returns the four passes in the order they must run within a tick.
func (e *Engine) Phases() []PhaseHandler {
	return []PhaseHandler{
		e.DetectionPhase(),
		e.ProgressionPhase(),
		e.SpreadPhase(),
		e.TreatmentPhase(),
	}
}

// Step runs all four passes for one tick.
func (e *Engine) Step(ctx *PhaseContext) {
	for _, phase := range e.Phases() {
		phase(ctx)
	}
}

// syncZoneHealth makes sure every plant in the zone has a health record.
func syncZoneHealth(zone *state.Zone) *state.ZoneHealthState {
	zh := zone.EnsureHealth()
	for _, plant := range zone.Plants {
		ensurePlantHealth(zh, plant.ID)
	}
	return zh
}

func ensurePlantHealth(zh *state.ZoneHealthState, plantID string) *state.PlantHealthState {
	if ph, ok := zh.PlantHealth[plantID]; ok && ph != nil {
		return ph
	}
	ph := &state.PlantHealthState{}
	zh.PlantHealth[plantID] = ph
	return ph
}

func tickHours(tickLengthMinutes float64) float64 {
	return math.Max(tickLengthMinutes, 0) / 60
}

// TickFractionOfDay returns the share of a day one tick represents.
func TickFractionOfDay(tickLengthMinutes float64) float64 {
	hours := tickHours(tickLengthMinutes)
	if hours <= 0 {
		return 0
	}
	return hours / 24
}

// TicksPerDay returns how many ticks make up a day, at least one.
func TicksPerDay(tickLengthMinutes float64) int64 {
	hours := tickHours(tickLengthMinutes)
	if hours <= 0 {
		return 24
	}
	return int64(math.Max(1, math.Round(24/hours)))
}

func daysToTicks(days float64, ticksPerDay int64) int64 {
	return int64(math.Max(1, math.Round(days*float64(ticksPerDay))))
}

func (e *Engine) symptomDelayTicks(ticksPerDay int64) int64 {
	d := e.disease.Global.SymptomDelayDays
	avg := clamp((d.Min+d.Max)/2, 0, maxSymptomDelayDays)
	return daysToTicks(avg, ticksPerDay)
}

func effectDurationTicks(option TreatmentOption, ticksPerDay int64) int64 {
	days := defaultTreatmentDurationDays
	switch {
	case option.EffectDurationDays != nil:
		days = *option.EffectDurationDays
	case option.CooldownDays != nil:
		days = *option.CooldownDays
	}
	return daysToTicks(days, ticksPerDay)
}

func canSpread(lastSpreadTick *int64, cooldownTicks, tick int64) bool {
	if cooldownTicks <= 0 || lastSpreadTick == nil {
		return true
	}
	return tick-*lastSpreadTick >= cooldownTicks
}

// pruneExpired drops effects with expiresTick <= tick, reusing the backing array.
func pruneExpired[T any](effects []T, tick int64, expires func(T) int64) []T {
	kept := effects[:0]
	for _, eff := range effects {
		if expires(eff) > tick {
			kept = append(kept, eff)
		}
	}
	var zero T
	for i := len(kept); i < len(effects); i++ {
		effects[i] = zero
	}
	return kept
}
