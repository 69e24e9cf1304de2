package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	"planthealth-sim/internal/events"
	"planthealth-sim/internal/state"
)

// Snapshot flattens the world into rows. Zones follow the structure/room
// order, plants their slice order, and afflictions their record order.
func Snapshot(gs *state.GameState, runID string, tick int64, ts time.Time) ([]ZoneRow, []AfflictionRow) {
	var zones []ZoneRow
	var rows []AfflictionRow
	gs.EachZone(func(z *state.Zone) {
		zr := ZoneRow{
			RunID:                         runID,
			ZoneID:                        z.ID,
			Tick:                          tick,
			Plants:                        len(z.Plants),
			ReentryRestrictedUntilTick:    -1,
			PreHarvestRestrictedUntilTick: -1,
			Timestamp:                     ts,
		}
		zh := z.Health
		if zh != nil {
			zr.PendingTreatments = len(zh.PendingTreatments)
			zr.AppliedTreatments = len(zh.AppliedTreatments)
			if zh.ReentryRestrictedUntilTick != nil {
				zr.ReentryRestrictedUntilTick = *zh.ReentryRestrictedUntilTick
			}
			if zh.PreHarvestRestrictedUntilTick != nil {
				zr.PreHarvestRestrictedUntilTick = *zh.PreHarvestRestrictedUntilTick
			}
		}
		for _, p := range z.Plants {
			if zh == nil || zh.PlantHealth[p.ID] == nil {
				continue
			}
			ph := zh.PlantHealth[p.ID]
			for _, d := range ph.Diseases {
				zr.Diseases++
				rows = append(rows, AfflictionRow{
					RunID: runID, ZoneID: z.ID, PlantID: p.ID, Kind: KindDisease,
					AfflictionID: d.ID, AgentID: d.PathogenID, Tick: tick,
					Level: d.Infection, Harm: d.Severity, Detected: d.Detected,
					ActiveTreatments: len(d.ActiveTreatments), Timestamp: ts,
				})
			}
			for _, ps := range ph.Pests {
				zr.Pests++
				rows = append(rows, AfflictionRow{
					RunID: runID, ZoneID: z.ID, PlantID: p.ID, Kind: KindPest,
					AfflictionID: ps.ID, AgentID: ps.PestID, Tick: tick,
					Level: ps.Population, Harm: ps.Damage, Detected: ps.Detected,
					ActiveTreatments: len(ps.ActiveTreatments), Timestamp: ts,
				})
			}
		}
		zones = append(zones, zr)
	})
	return zones, rows
}

// FromEvent encodes an engine event as a row. The zone id is read from the
// payload's zoneId field when present.
func FromEvent(runID string, ev events.Event, ts time.Time) (EventRow, error) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return EventRow{}, fmt.Errorf("encode %s payload: %w", ev.Type, err)
	}
	var head struct {
		ZoneID string `json:"zoneId"`
	}
	// Payloads that are not JSON objects simply carry no zone.
	_ = json.Unmarshal(payload, &head)
	return EventRow{
		RunID:     runID,
		Type:      ev.Type,
		ZoneID:    head.ZoneID,
		Tick:      ev.Tick,
		Payload:   string(payload),
		Timestamp: ts,
	}, nil
}
