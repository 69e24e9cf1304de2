package health

import "planthealth-sim/internal/state"

// RunProgression drops expired treatment effects and integrates every
// affliction forward by one tick. A non-positive tick length is a no-op.
func (e *Engine) RunProgression(ctx *PhaseContext) {
	fraction := TickFractionOfDay(ctx.TickLengthMinutes)
	if fraction <= 0 {
		return
	}
	tick := ctx.Tick
	ctx.State.EachZone(func(zone *state.Zone) {
		zh := syncZoneHealth(zone)
		for _, plant := range zone.Plants {
			ph := ensurePlantHealth(zh, plant.ID)
			for _, d := range ph.Diseases {
				d.ActiveTreatments = pruneExpired(d.ActiveTreatments, tick, func(t state.DiseaseTreatmentEffect) int64 { return t.ExpiresTick })
				e.progressDisease(d, plant, fraction)
			}
			for _, p := range ph.Pests {
				p.ActiveTreatments = pruneExpired(p.ActiveTreatments, tick, func(t state.PestTreatmentEffect) int64 { return t.ExpiresTick })
				e.progressPest(p, plant, fraction)
			}
		}
	})
}

// DiseaseRates are effective daily rates for one disease at one tick.
type DiseaseRates struct {
	Infection    float64
	Recovery     float64
	Degeneration float64
}

// PestRates are effective daily rates for one pest at one tick.
type PestRates struct {
	Reproduction float64
	Mortality    float64
	Damage       float64
}

// DiseaseRates computes the clamped effective daily rates of d on plant.
func (e *Engine) DiseaseRates(d *state.DiseaseState, plant *state.Plant) DiseaseRates {
	phase := e.diseasePhase(resolvePhase(d.PhaseOverride, plant.Stage))
	treat := combineDiseaseTreatments(d.ActiveTreatments)
	g := e.disease.Global
	caps := e.disease.Caps
	return DiseaseRates{
		Infection: clamp(
			d.BaseInfectionRatePerDay*g.BaseDailyInfectionMultiplier*phase.Infection*treat.Infection,
			minEffectiveInfectionRate, maxEffectiveInfectionRate),
		Recovery: clamp(
			d.BaseRecoveryRatePerDay*g.BaseRecoveryMultiplier*phase.Recovery*treat.Recovery,
			caps.MinDailyRecovery, caps.MaxDailyRecovery),
		Degeneration: clamp(
			d.BaseDegenerationRatePerDay*phase.Degeneration*treat.Degeneration,
			caps.MinDailyDegeneration, caps.MaxDailyDegeneration),
	}
}

// PestRates computes the clamped effective daily rates of p on plant.
func (e *Engine) PestRates(p *state.PestState, plant *state.Plant) PestRates {
	phase := e.pestPhase(resolvePhase(p.PhaseOverride, plant.Stage))
	treat := combinePestTreatments(p.ActiveTreatments)
	g := e.pest.Global
	caps := e.pest.Caps
	return PestRates{
		Reproduction: clamp(
			p.BaseReproductionRatePerDay*g.BaseDailyReproductionMultiplier*phase.Reproduction*treat.Reproduction,
			caps.MinDailyReproduction, caps.MaxDailyReproduction),
		Mortality: clamp(
			p.BaseMortalityRatePerDay*g.BaseDailyMortalityMultiplier*phase.Mortality*treat.Mortality,
			caps.MinDailyMortality, caps.MaxDailyMortality),
		Damage: clamp(
			p.BaseDamageRatePerDay*g.BaseDamageMultiplier*phase.Damage*treat.Damage,
			caps.MinDailyDamage, caps.MaxDailyDamage),
	}
}

// Forward Euler, one step per tick. Infection is updated before severity
// so severity sees the new infection level.
func (e *Engine) progressDisease(d *state.DiseaseState, plant *state.Plant, fraction float64) {
	r := e.DiseaseRates(d, plant)

	growth := r.Infection * (1 - d.Infection)
	reduction := r.Recovery * d.Infection
	d.Infection = clamp01(d.Infection + (growth-reduction)*fraction)

	d.Severity = clamp01(d.Severity + (r.Degeneration*d.Infection-r.Recovery)*fraction)
}

func (e *Engine) progressPest(p *state.PestState, plant *state.Plant, fraction float64) {
	r := e.PestRates(p, plant)

	growth := r.Reproduction * (1 - p.Population)
	reduction := r.Mortality * p.Population
	p.Population = clamp01(p.Population + (growth-reduction)*fraction)

	p.Damage = clamp01(p.Damage + r.Damage*p.Population*fraction)
}

func combineDiseaseTreatments(effects []state.DiseaseTreatmentEffect) DiseaseRates {
	out := DiseaseRates{Infection: 1, Recovery: 1, Degeneration: 1}
	for _, eff := range effects {
		out.Infection *= eff.InfectionMultiplier
		out.Degeneration *= eff.DegenerationMultiplier
		out.Recovery *= eff.RecoveryMultiplier
	}
	return out
}

func combinePestTreatments(effects []state.PestTreatmentEffect) PestRates {
	out := PestRates{Reproduction: 1, Mortality: 1, Damage: 1}
	for _, eff := range effects {
		out.Reproduction *= eff.ReproductionMultiplier
		out.Mortality *= eff.MortalityMultiplier
		out.Damage *= eff.DamageMultiplier
	}
	return out
}
