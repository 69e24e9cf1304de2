package health

import (
	"math"

	"planthealth-sim/internal/state"
)

// PhaseKey buckets plant growth stages for rate multipliers.
type PhaseKey string

const (
	PhaseSeedling    PhaseKey = "seedling"
	PhaseVegetation  PhaseKey = "vegetation"
	PhaseEarlyFlower PhaseKey = "earlyFlower"
	PhaseLateFlower  PhaseKey = "lateFlower"
	PhaseRipening    PhaseKey = "ripening"
)

// PhaseKeys lists every phase key in growth order.
var PhaseKeys = []PhaseKey{PhaseSeedling, PhaseVegetation, PhaseEarlyFlower, PhaseLateFlower, PhaseRipening}

// PhaseForStage maps a plant stage onto its phase key.
func PhaseForStage(stage state.PlantStage) PhaseKey {
	switch stage {
	case state.StageSeedling:
		return PhaseSeedling
	case state.StageVegetative:
		return PhaseVegetation
	case state.StageFlowering:
		return PhaseEarlyFlower
	case state.StageRipening, state.StageHarvestReady:
		return PhaseRipening
	default:
		return PhaseLateFlower
	}
}

func resolvePhase(override string, stage state.PlantStage) PhaseKey {
	if override != "" {
		return PhaseKey(override)
	}
	return PhaseForStage(stage)
}

func (e *Engine) diseasePhase(key PhaseKey) DiseasePhaseMultipliers {
	if m, ok := e.disease.PhaseMultipliers[key]; ok {
		return m
	}
	return DiseasePhaseMultipliers{Infection: 1, Degeneration: 1, Recovery: 1}
}

func (e *Engine) pestPhase(key PhaseKey) PestPhaseMultipliers {
	if m, ok := e.pest.PhaseMultipliers[key]; ok {
		return m
	}
	return PestPhaseMultipliers{Reproduction: 1, Mortality: 1, Damage: 1}
}

// clamp bounds v to [lo, hi]; NaN and infinities collapse to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}
