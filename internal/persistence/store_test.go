package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"planthealth-sim/internal/telemetry"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "health.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreEvents(t *testing.T) {
	s := openTestStore(t)
	ts := time.UnixMilli(1700000000123).UTC()
	rows := []telemetry.EventRow{
		{RunID: "a", Type: "pest.detected", ZoneID: "z1", Tick: 1, Payload: `{"zoneId":"z1"}`, Timestamp: ts},
		{RunID: "a", Type: "treatment.applied", ZoneID: "z1", Tick: 2, Payload: `{"zoneId":"z1"}`, Timestamp: ts},
		{RunID: "a", Type: "pest.detected", ZoneID: "z2", Tick: 3, Payload: `{"zoneId":"z2"}`, Timestamp: ts},
		{RunID: "b", Type: "pest.detected", ZoneID: "z1", Tick: 0, Payload: `{}`, Timestamp: ts},
	}
	if err := s.WriteEvents(rows); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}

	ctx := context.Background()
	cases := []struct {
		name   string
		filter EventFilter
		want   int
	}{
		{"all", EventFilter{}, 4},
		{"run", EventFilter{RunID: "a"}, 3},
		{"type", EventFilter{RunID: "a", Type: "pest.detected"}, 2},
		{"zone", EventFilter{ZoneID: "z2"}, 1},
		{"limit", EventFilter{Limit: 2}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Events(ctx, tc.filter)
			if err != nil {
				t.Fatalf("Events: %v", err)
			}
			if len(got) != tc.want {
				t.Fatalf("got %d rows, want %d", len(got), tc.want)
			}
		})
	}

	got, _ := s.Events(ctx, EventFilter{RunID: "a"})
	if got[1].Type != "treatment.applied" || got[1].Tick != 2 || !got[1].Timestamp.Equal(ts) {
		t.Errorf("row not round-tripped: %+v", got[1])
	}
}

func TestStoreZoneHistoryReplacesTick(t *testing.T) {
	s := openTestStore(t)
	ts := time.Unix(0, 0)
	rows := []telemetry.ZoneRow{
		{RunID: "r", ZoneID: "z1", Tick: 0, Plants: 3, ReentryRestrictedUntilTick: -1, PreHarvestRestrictedUntilTick: -1, Timestamp: ts},
		{RunID: "r", ZoneID: "z1", Tick: 1, Plants: 3, Pests: 1, ReentryRestrictedUntilTick: 7, PreHarvestRestrictedUntilTick: -1, Timestamp: ts},
		{RunID: "r", ZoneID: "z2", Tick: 1, Plants: 5, Timestamp: ts},
	}
	if err := s.WriteZones(rows); err != nil {
		t.Fatalf("WriteZones: %v", err)
	}
	if err := s.WriteZone(telemetry.ZoneRow{RunID: "r", ZoneID: "z1", Tick: 1, Plants: 3, Pests: 2, ReentryRestrictedUntilTick: 9, Timestamp: ts}); err != nil {
		t.Fatalf("WriteZone: %v", err)
	}
	hist, err := s.ZoneHistory(context.Background(), "r", "z1")
	if err != nil {
		t.Fatalf("ZoneHistory: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("rows = %d, want 2", len(hist))
	}
	if hist[1].Pests != 2 || hist[1].ReentryRestrictedUntilTick != 9 {
		t.Errorf("latest row not kept: %+v", hist[1])
	}
	if hist[0].PreHarvestRestrictedUntilTick != -1 {
		t.Errorf("unset marker lost: %+v", hist[0])
	}
}

func TestStoreSnapshotsAndRuns(t *testing.T) {
	s := openTestStore(t)
	ts := time.Unix(0, 0)
	if err := s.WriteSnapshots([]telemetry.AfflictionRow{
		{RunID: "r", ZoneID: "z1", PlantID: "p1", Kind: telemetry.KindPest, AfflictionID: "m1", AgentID: "mites", Tick: 0, Level: 0.3, Detected: true, Timestamp: ts},
		{RunID: "r", ZoneID: "z1", PlantID: "p1", Kind: telemetry.KindPest, AfflictionID: "m1", AgentID: "mites", Tick: 1, Level: 0.31, Detected: true, Timestamp: ts},
	}); err != nil {
		t.Fatalf("WriteSnapshots: %v", err)
	}
	if err := s.WriteEvents(nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if err := s.WriteEvent(telemetry.EventRow{RunID: "old", Type: "x", Tick: 4, Payload: "{}", Timestamp: ts}); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	if err := s.WriteEvents([]telemetry.EventRow{
		{RunID: "new", Type: "x", Tick: 2, Payload: "{}", Timestamp: ts},
		{RunID: "new", Type: "x", Tick: 8, Payload: "{}", Timestamp: ts},
	}); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	runs, err := s.Runs(context.Background())
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "new" {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if runs[0].FirstTick != 2 || runs[0].LastTick != 8 || runs[0].Events != 2 {
		t.Errorf("unexpected summary: %+v", runs[0])
	}

	var n int
	if err := s.conn.Get(&n, "SELECT COUNT(*) FROM affliction_snapshots WHERE detected = 1"); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("affliction rows = %d, want 2", n)
	}
}

func TestStoreSnapshotsKeepZonesApart(t *testing.T) {
	s := openTestStore(t)
	ts := time.Unix(0, 0)
	// Both zones host plant p1 with an outbreak seeded on the same tick, so
	// the affliction ids collide.
	rows := []telemetry.AfflictionRow{
		{RunID: "r", ZoneID: "z1", PlantID: "p1", Kind: telemetry.KindPest, AfflictionID: "mite-p1-0", AgentID: "mite", Tick: 3, Level: 0.2, Timestamp: ts},
		{RunID: "r", ZoneID: "z2", PlantID: "p1", Kind: telemetry.KindPest, AfflictionID: "mite-p1-0", AgentID: "mite", Tick: 3, Level: 0.4, Timestamp: ts},
	}
	if err := s.WriteSnapshots(rows); err != nil {
		t.Fatalf("WriteSnapshots: %v", err)
	}
	var n int
	if err := s.conn.Get(&n, "SELECT COUNT(*) FROM affliction_snapshots WHERE run_id = 'r' AND tick = 3"); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("stored rows = %d, want 2", n)
	}
	var level float64
	if err := s.conn.Get(&level, "SELECT level FROM affliction_snapshots WHERE zone_id = 'z2'"); err != nil {
		t.Fatalf("level: %v", err)
	}
	if level != 0.4 {
		t.Errorf("z2 level = %v, want 0.4", level)
	}

	// Rewriting the same zone, plant and tick still replaces.
	rows[0].Level = 0.25
	if err := s.WriteSnapshot(rows[0]); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if err := s.conn.Get(&n, "SELECT COUNT(*) FROM affliction_snapshots"); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("rows after rewrite = %d, want 2", n)
	}
}
