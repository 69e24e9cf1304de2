package health

import (
	"fmt"
	"math"

	"planthealth-sim/internal/state"
)

// RunSpread lets advanced afflictions seed one new infection or
// infestation on the first eligible plant of the same zone.
func (e *Engine) RunSpread(ctx *PhaseContext) {
	tick := ctx.Tick
	ticksPerDay := TicksPerDay(ctx.TickLengthMinutes)
	diseaseDelay := e.symptomDelayTicks(ticksPerDay)
	pestDelay := int64(math.Max(1, math.Round(float64(ticksPerDay)*0.5)))

	ctx.State.EachZone(func(zone *state.Zone) {
		zh := syncZoneHealth(zone)
		for _, plant := range zone.Plants {
			ph := ensurePlantHealth(zh, plant.ID)

			for _, d := range ph.Diseases {
				if d.Infection < DiseaseSpreadThreshold {
					continue
				}
				if !canSpread(d.LastSpreadTick, d.SpreadCooldownTicks, tick) {
					continue
				}
				target, ok := findSpreadTarget(zone, zh, plant.ID, func(h *state.PlantHealthState) bool {
					return len(h.Diseases) >= e.disease.Global.MaxConcurrentDiseases || h.HasPathogen(d.PathogenID)
				})
				if !ok {
					continue
				}
				th := ensurePlantHealth(zh, target.ID)
				th.Diseases = append(th.Diseases, &state.DiseaseState{
					ID:                         fmt.Sprintf("%s-%s-%d", d.PathogenID, target.ID, tick),
					PathogenID:                 d.PathogenID,
					Severity:                   spreadDiseaseSeverity,
					Infection:                  spreadDiseaseInfection,
					SymptomTimerTicks:          diseaseDelay,
					SpreadCooldownTicks:        d.SpreadCooldownTicks,
					BaseInfectionRatePerDay:    d.BaseInfectionRatePerDay,
					BaseRecoveryRatePerDay:     d.BaseRecoveryRatePerDay,
					BaseDegenerationRatePerDay: d.BaseDegenerationRatePerDay,
					PhaseOverride:              d.PhaseOverride,
					ActiveTreatments:           []state.DiseaseTreatmentEffect{},
				})
				d.LastSpreadTick = state.Tick(tick)
			}

			for _, p := range ph.Pests {
				if p.Population < PestSpreadThreshold {
					continue
				}
				if !canSpread(p.LastSpreadTick, p.SpreadCooldownTicks, tick) {
					continue
				}
				target, ok := findSpreadTarget(zone, zh, plant.ID, func(h *state.PlantHealthState) bool {
					return len(h.Pests) >= e.pest.Global.MaxConcurrentPests || h.HasPest(p.PestID)
				})
				if !ok {
					continue
				}
				th := ensurePlantHealth(zh, target.ID)
				th.Pests = append(th.Pests, &state.PestState{
					ID:                         fmt.Sprintf("%s-%s-%d", p.PestID, target.ID, tick),
					PestID:                     p.PestID,
					Population:                 spreadPestPopulation,
					Damage:                     spreadPestDamage,
					SymptomTimerTicks:          pestDelay,
					SpreadCooldownTicks:        p.SpreadCooldownTicks,
					BaseReproductionRatePerDay: p.BaseReproductionRatePerDay,
					BaseMortalityRatePerDay:    p.BaseMortalityRatePerDay,
					BaseDamageRatePerDay:       p.BaseDamageRatePerDay,
					PhaseOverride:              p.PhaseOverride,
					ActiveTreatments:           []state.PestTreatmentEffect{},
				})
				p.LastSpreadTick = state.Tick(tick)
			}
		}
	})
}

// findSpreadTarget scans the zone's plants in slice order and returns the
// first one other than the source that is not rejected.
func findSpreadTarget(zone *state.Zone, zh *state.ZoneHealthState, sourceID string, rejected func(*state.PlantHealthState) bool) (*state.Plant, bool) {
	for _, candidate := range zone.Plants {
		if candidate.ID == sourceID {
			continue
		}
		h := zh.PlantHealth[candidate.ID]
		if h == nil {
			h = &state.PlantHealthState{}
		}
		if rejected(h) {
			continue
		}
		return candidate, true
	}
	return nil, false
}
