package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"

	"planthealth-sim/internal/telemetry"
)

type mockGreptimeClient struct {
	table *table.Table
	calls int
	err   error
}

func (m *mockGreptimeClient) Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error) {
	m.calls++
	if len(tables) > 0 {
		m.table = tables[0]
	}
	return &gpb.GreptimeResponse{}, m.err
}

func newMockGreptimeWriter(m *mockGreptimeClient) *GreptimeDBWriter {
	return &GreptimeDBWriter{
		client:          m,
		afflictionTable: "plant_afflictions",
		zoneTable:       "zone_health",
		eventTable:      "health_events",
	}
}

func TestGreptimeWriterEventsJSON(t *testing.T) {
	ts := time.Unix(0, 0).UTC()
	rows := []telemetry.EventRow{{
		RunID:     "r1",
		Type:      "treatment.applied",
		ZoneID:    "z1",
		Tick:      7,
		Payload:   `{"zoneId":"z1"}`,
		Timestamp: ts,
	}}

	m := &mockGreptimeClient{}
	w := newMockGreptimeWriter(m)
	if err := w.WriteEvents(rows); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	if m.table == nil {
		t.Fatalf("expected table to be captured")
	}

	schema := m.table.GetRows().Schema
	if len(schema) != 6 {
		t.Fatalf("unexpected schema length: %d", len(schema))
	}
	if schema[4].Datatype != gpb.ColumnDataType_JSON {
		t.Fatalf("payload column type = %v, want %v", schema[4].Datatype, gpb.ColumnDataType_JSON)
	}
	if schema[0].SemanticType != gpb.SemanticType_TAG || schema[5].SemanticType != gpb.SemanticType_TIMESTAMP {
		t.Fatalf("unexpected semantic types: %v / %v", schema[0].SemanticType, schema[5].SemanticType)
	}
	row := m.table.GetRows().Rows[0]
	if got := row.Values[2].GetStringValue(); got != "z1" {
		t.Fatalf("zone_id = %s", got)
	}
	if got := row.Values[3].GetI64Value(); got != 7 {
		t.Fatalf("tick = %d", got)
	}
}

func TestGreptimeWriterZones(t *testing.T) {
	m := &mockGreptimeClient{}
	w := newMockGreptimeWriter(m)
	err := w.WriteZone(telemetry.ZoneRow{
		RunID: "r1", ZoneID: "z1", Tick: 3, Plants: 4, Pests: 1,
		ReentryRestrictedUntilTick: 15, PreHarvestRestrictedUntilTick: -1,
		Timestamp: time.Unix(0, 0),
	})
	if err != nil {
		t.Fatalf("WriteZone: %v", err)
	}
	row := m.table.GetRows().Rows[0]
	if got := row.Values[3].GetI64Value(); got != 4 {
		t.Errorf("plants = %d", got)
	}
	if got := row.Values[8].GetI64Value(); got != 15 {
		t.Errorf("reentry = %d", got)
	}
	if got := row.Values[9].GetI64Value(); got != -1 {
		t.Errorf("phi = %d", got)
	}
}

func TestGreptimeWriterSnapshots(t *testing.T) {
	m := &mockGreptimeClient{}
	w := newMockGreptimeWriter(m)
	rows := []telemetry.AfflictionRow{
		{RunID: "r1", ZoneID: "z1", PlantID: "p1", Kind: telemetry.KindDisease, AfflictionID: "d1", AgentID: "mildew", Level: 0.4, Harm: 0.1, Detected: true, Timestamp: time.Unix(0, 0)},
		{RunID: "r1", ZoneID: "z1", PlantID: "p2", Kind: telemetry.KindPest, AfflictionID: "x1", AgentID: "mites", Level: 0.2, Timestamp: time.Unix(0, 0)},
	}
	if err := w.WriteSnapshots(rows); err != nil {
		t.Fatalf("WriteSnapshots: %v", err)
	}
	if m.calls != 1 {
		t.Fatalf("expected a single batched write, got %d", m.calls)
	}
	got := m.table.GetRows().Rows
	if len(got) != 2 {
		t.Fatalf("rows = %d", len(got))
	}
	if v := got[0].Values[7].GetF64Value(); v != 0.4 {
		t.Errorf("level = %v", v)
	}
	if !got[0].Values[9].GetBoolValue() || got[1].Values[9].GetBoolValue() {
		t.Errorf("detected flags wrong")
	}
}

func TestGreptimeWriterSkipsEmptyAndReportsErrors(t *testing.T) {
	m := &mockGreptimeClient{err: errors.New("unavailable")}
	w := newMockGreptimeWriter(m)
	if err := w.WriteEvents(nil); err != nil || m.calls != 0 {
		t.Fatalf("empty batch should not write: err=%v calls=%d", err, m.calls)
	}
	if err := w.WriteEvent(telemetry.EventRow{Type: "x", Payload: "{}"}); err == nil {
		t.Fatal("expected client error")
	}
}
