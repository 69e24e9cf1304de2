package health

import (
	"slices"

	"planthealth-sim/internal/state"
)

// RunTreatmentApplication applies due pending treatments. Due entries leave
// the queue whether or not they matched anything; entries naming an unknown
// option or an unsupported target are dropped without an event.
func (e *Engine) RunTreatmentApplication(ctx *PhaseContext) {
	tick := ctx.Tick
	ticksPerDay := TicksPerDay(ctx.TickLengthMinutes)

	ctx.State.EachZone(func(zone *state.Zone) {
		zh := syncZoneHealth(zone)
		queue := zh.PendingTreatments
		remaining := queue[:0]
		for _, pending := range queue {
			if pending.ScheduledTick > tick {
				remaining = append(remaining, pending)
				continue
			}
			e.applyPending(ctx, zone, zh, pending, ticksPerDay)
		}
		for i := len(remaining); i < len(queue); i++ {
			queue[i] = state.PendingTreatmentApplication{}
		}
		zh.PendingTreatments = remaining
	})
}

func (e *Engine) applyPending(ctx *PhaseContext, zone *state.Zone, zh *state.ZoneHealthState, pending state.PendingTreatmentApplication, ticksPerDay int64) {
	tick := ctx.Tick
	option, ok := e.options.Lookup(pending.OptionID)
	if !ok {
		e.log.Debug("dropping treatment with unknown option", "zone_id", zone.ID, "option_id", pending.OptionID, "tick", tick)
		return
	}
	if !option.Supports(pending.Target) {
		e.log.Debug("dropping treatment for unsupported target", "zone_id", zone.ID, "option_id", option.ID, "target", pending.Target, "tick", tick)
		return
	}

	duration := effectDurationTicks(option, ticksPerDay)
	reentry := intervalTicks(pending.ReentryIntervalTicks, option.ReentryIntervalTicks)
	preHarvest := intervalTicks(pending.PreHarvestIntervalTicks, option.PreHarvestIntervalTicks)

	var treated []string
	for _, plantID := range pending.PlantIDs {
		plant, ok := zone.FindPlant(plantID)
		if !ok {
			continue
		}
		ph := ensurePlantHealth(zh, plant.ID)
		var applied bool
		switch pending.Target {
		case state.TargetDisease:
			applied = e.treatDiseases(ph, pending, option, tick+duration)
		case state.TargetPest:
			applied = e.treatPests(ph, pending, option, tick+duration)
		}
		if applied {
			treated = append(treated, plant.ID)
		}
	}
	if len(treated) == 0 {
		return
	}

	record := state.AppliedTreatmentRecord{
		OptionID:    option.ID,
		Target:      pending.Target,
		PlantIDs:    treated,
		AppliedTick: tick,
	}
	if reentry > 0 {
		until := tick + reentry
		zh.ReentryRestrictedUntilTick = advance(zh.ReentryRestrictedUntilTick, until)
		record.ReentryRestrictedUntilTick = state.Tick(until)
	}
	if preHarvest > 0 {
		until := tick + preHarvest
		zh.PreHarvestRestrictedUntilTick = advance(zh.PreHarvestRestrictedUntilTick, until)
		record.PreHarvestRestrictedUntilTick = state.Tick(until)
	}
	zh.AppliedTreatments = append(zh.AppliedTreatments, record)

	ctx.queue(EventTreatmentApplied, TreatmentAppliedPayload{
		ZoneID:                        zone.ID,
		PlantIDs:                      slices.Clone(treated),
		OptionID:                      option.ID,
		Target:                        pending.Target,
		ReentryRestrictedUntilTick:    copyTick(zh.ReentryRestrictedUntilTick),
		PreHarvestRestrictedUntilTick: copyTick(zh.PreHarvestRestrictedUntilTick),
	})
}

func (e *Engine) treatDiseases(ph *state.PlantHealthState, pending state.PendingTreatmentApplication, option TreatmentOption, expires int64) bool {
	var targets []*state.DiseaseState
	for _, d := range ph.Diseases {
		if len(pending.DiseaseIDs) == 0 || slices.Contains(pending.DiseaseIDs, d.ID) || slices.Contains(pending.DiseaseIDs, d.PathogenID) {
			targets = append(targets, d)
		}
	}
	if len(targets) == 0 {
		return false
	}

	base := e.disease.TreatmentEfficacy[option.Category]
	var own DiseaseEfficacy
	if option.Efficacy != nil && option.Efficacy.Disease != nil {
		own = *option.Efficacy.Disease
	}
	effect := state.DiseaseTreatmentEffect{
		OptionID:               option.ID,
		ExpiresTick:            expires,
		InfectionMultiplier:    factor(base.InfectionMultiplier) * factor(own.InfectionMultiplier),
		DegenerationMultiplier: factor(base.DegenerationMultiplier) * factor(own.DegenerationMultiplier),
		RecoveryMultiplier:     factor(base.RecoveryMultiplier) * factor(own.RecoveryMultiplier),
	}
	for _, d := range targets {
		d.ActiveTreatments = append(d.ActiveTreatments, effect)
	}
	return true
}

func (e *Engine) treatPests(ph *state.PlantHealthState, pending state.PendingTreatmentApplication, option TreatmentOption, expires int64) bool {
	var targets []*state.PestState
	for _, p := range ph.Pests {
		if len(pending.PestIDs) == 0 || slices.Contains(pending.PestIDs, p.ID) || slices.Contains(pending.PestIDs, p.PestID) {
			targets = append(targets, p)
		}
	}
	if len(targets) == 0 {
		return false
	}

	base := e.pest.ControlEfficacy[option.Category]
	var own PestEfficacy
	if option.Efficacy != nil && option.Efficacy.Pest != nil {
		own = *option.Efficacy.Pest
	}
	effect := state.PestTreatmentEffect{
		OptionID:               option.ID,
		ExpiresTick:            expires,
		ReproductionMultiplier: factor(base.ReproductionMultiplier) * factor(own.ReproductionMultiplier),
		MortalityMultiplier:    factor(base.MortalityMultiplier) * factor(own.MortalityMultiplier),
		DamageMultiplier:       factor(base.DamageMultiplier) * factor(own.DamageMultiplier),
	}
	for _, p := range targets {
		p.ActiveTreatments = append(p.ActiveTreatments, effect)
	}
	return true
}

// intervalTicks picks the request override, then the option default, then 0.
func intervalTicks(override, fallback *int64) int64 {
	if override != nil {
		return *override
	}
	if fallback != nil {
		return *fallback
	}
	return 0
}

// advance returns max(cur, until); restriction markers never move backwards.
func advance(cur *int64, until int64) *int64 {
	if cur != nil && *cur >= until {
		return cur
	}
	return state.Tick(until)
}

func copyTick(t *int64) *int64 {
	if t == nil {
		return nil
	}
	return state.Tick(*t)
}
