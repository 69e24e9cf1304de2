package health

import "planthealth-sim/internal/state"

// RunDetection advances symptom timers and flags afflictions as detected.
// Disease detection is silent; the first pest detection emits pest.detected.
func (e *Engine) RunDetection(ctx *PhaseContext) {
	tick := ctx.Tick
	ctx.State.EachZone(func(zone *state.Zone) {
		zh := syncZoneHealth(zone)
		for _, plant := range zone.Plants {
			ph := ensurePlantHealth(zh, plant.ID)

			for _, d := range ph.Diseases {
				if d.Infection <= 0 {
					continue
				}
				d.SymptomTimerTicks = max(d.SymptomTimerTicks-1, 0)
				if d.Detected {
					continue
				}
				if d.SymptomTimerTicks <= 0 || d.Severity >= DiseaseDetectionThreshold {
					d.Detected = true
					d.DetectionTick = state.Tick(tick)
				}
			}

			for _, p := range ph.Pests {
				if p.Population <= 0 {
					continue
				}
				p.SymptomTimerTicks = max(p.SymptomTimerTicks-1, 0)
				if p.Detected {
					continue
				}
				if p.SymptomTimerTicks <= 0 || p.Population >= PestDetectionThreshold {
					p.Detected = true
					p.DetectionTick = state.Tick(tick)
					ctx.queue(EventPestDetected, PestDetectedPayload{
						ZoneID:        zone.ID,
						PlantID:       plant.ID,
						PestID:        p.PestID,
						InfestationID: p.ID,
					})
				}
			}
		}
	})
}
