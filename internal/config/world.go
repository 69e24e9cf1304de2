package config

import (
	"errors"
	"fmt"

	"planthealth-sim/internal/state"
)

// Seeding errors.
var (
	// ErrAlreadyHosted is returned when seeding an agent the plant already carries.
	ErrAlreadyHosted = errors.New("plant already hosts this agent")
	// ErrDuplicateID is returned when the record id is already taken on the plant.
	ErrDuplicateID = errors.New("affliction id already used on plant")
)

// Build materialises the world tree. Zones start with an empty health record
// for every plant.
func (w World) Build() *state.GameState {
	gs := &state.GameState{}
	for _, s := range w.Structures {
		structure := &state.Structure{ID: s.ID, Name: s.Name}
		for _, r := range s.Rooms {
			room := &state.Room{ID: r.ID, Name: r.Name}
			for _, z := range r.Zones {
				zone := &state.Zone{ID: z.ID, Name: z.Name, Health: state.NewZoneHealthState()}
				for _, p := range z.plants() {
					zone.Plants = append(zone.Plants, &state.Plant{ID: p.ID, StrainID: p.StrainID, Stage: p.Stage})
					zone.Health.PlantHealth[p.ID] = &state.PlantHealthState{}
				}
				room.Zones = append(room.Zones, zone)
			}
			structure.Rooms = append(structure.Rooms, room)
		}
		gs.Structures = append(gs.Structures, structure)
	}
	return gs
}

func (z ZoneSpec) plants() []PlantSpec {
	out := make([]PlantSpec, 0, len(z.Plants)+z.PlantCount)
	for _, p := range z.Plants {
		if p.Stage == "" {
			p.Stage = z.stage()
		}
		if p.StrainID == "" {
			p.StrainID = z.StrainID
		}
		out = append(out, p)
	}
	for i := 1; i <= z.PlantCount; i++ {
		out = append(out, PlantSpec{
			ID:       fmt.Sprintf("%s-plant-%02d", z.ID, i),
			StrainID: z.StrainID,
			Stage:    z.stage(),
		})
	}
	return out
}

func (z ZoneSpec) stage() state.PlantStage {
	if z.Stage == "" {
		return state.StageVegetative
	}
	return z.Stage
}

// Apply seeds the outbreak into gs. The record id defaults to
// <agent>-<plant>-<tick>.
func (o Outbreak) Apply(gs *state.GameState, tick int64) (string, error) {
	zone, ok := gs.FindZone(o.ZoneID)
	if !ok {
		return "", fmt.Errorf("unknown zone %q", o.ZoneID)
	}
	plant, ok := zone.FindPlant(o.PlantID)
	if !ok {
		return "", fmt.Errorf("zone %q has no plant %q", o.ZoneID, o.PlantID)
	}
	zh := zone.EnsureHealth()
	ph := zh.PlantHealth[plant.ID]
	if ph == nil {
		ph = &state.PlantHealthState{}
		zh.PlantHealth[plant.ID] = ph
	}
	id := o.ID
	if id == "" {
		id = fmt.Sprintf("%s-%s-%d", o.AgentID, plant.ID, tick)
	}
	if hasAffliction(ph, id) {
		return "", fmt.Errorf("%s on %s: %w", id, plant.ID, ErrDuplicateID)
	}

	switch o.Kind {
	case state.TargetDisease:
		if ph.HasPathogen(o.AgentID) {
			return "", fmt.Errorf("%s on %s: %w", o.AgentID, plant.ID, ErrAlreadyHosted)
		}
		ph.Diseases = append(ph.Diseases, &state.DiseaseState{
			ID:                         id,
			PathogenID:                 o.AgentID,
			Infection:                  o.Level,
			Severity:                   o.Harm,
			SymptomTimerTicks:          o.SymptomDelayTicks,
			SpreadCooldownTicks:        o.SpreadCooldownTicks,
			BaseInfectionRatePerDay:    o.Rates.Infection,
			BaseRecoveryRatePerDay:     o.Rates.Recovery,
			BaseDegenerationRatePerDay: o.Rates.Degeneration,
			PhaseOverride:              o.PhaseOverride,
			ActiveTreatments:           []state.DiseaseTreatmentEffect{},
		})
	case state.TargetPest:
		if ph.HasPest(o.AgentID) {
			return "", fmt.Errorf("%s on %s: %w", o.AgentID, plant.ID, ErrAlreadyHosted)
		}
		ph.Pests = append(ph.Pests, &state.PestState{
			ID:                         id,
			PestID:                     o.AgentID,
			Population:                 o.Level,
			Damage:                     o.Harm,
			SymptomTimerTicks:          o.SymptomDelayTicks,
			SpreadCooldownTicks:        o.SpreadCooldownTicks,
			BaseReproductionRatePerDay: o.Rates.Reproduction,
			BaseMortalityRatePerDay:    o.Rates.Mortality,
			BaseDamageRatePerDay:       o.Rates.Damage,
			PhaseOverride:              o.PhaseOverride,
			ActiveTreatments:           []state.PestTreatmentEffect{},
		})
	default:
		return "", fmt.Errorf("unknown kind %q", o.Kind)
	}
	return id, nil
}

func hasAffliction(ph *state.PlantHealthState, id string) bool {
	for _, d := range ph.Diseases {
		if d.ID == id {
			return true
		}
	}
	for _, p := range ph.Pests {
		if p.ID == id {
			return true
		}
	}
	return false
}

// BuildState builds the world and seeds the configured outbreaks at tick 0.
func (c *SimulationConfig) BuildState() (*state.GameState, error) {
	gs := c.World.Build()
	for i, o := range c.Outbreaks {
		if _, err := o.Apply(gs, 0); err != nil {
			return nil, fmt.Errorf("outbreaks[%d]: %w", i, err)
		}
	}
	return gs, nil
}
