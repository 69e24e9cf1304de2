package sim

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"planthealth-sim/internal/health"
	"planthealth-sim/internal/telemetry"
)

func TestJSONStdoutWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	w := &JSONStdoutWriter{out: buf}
	row := telemetry.EventRow{RunID: "r1", Type: health.EventPestDetected, ZoneID: "z1", Tick: 2, Payload: "{}", Timestamp: time.Unix(0, 0)}
	if err := w.WriteEvent(row); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := w.WriteZones([]telemetry.ZoneRow{{ZoneID: "z1"}, {ZoneID: "z2"}}); err != nil {
		t.Fatalf("write zones failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	var got telemetry.EventRow
	if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
		t.Fatalf("first line is not JSON: %v", err)
	}
	if got.Type != health.EventPestDetected || got.Tick != 2 {
		t.Fatalf("decoded row = %+v", got)
	}
}

func TestColorStdoutWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	w := &ColorStdoutWriter{cfg: testConfig(t), out: buf, zoneColors: make(map[string]string)}
	row := telemetry.EventRow{Type: health.EventTreatmentApplied, ZoneID: "z1", Tick: 4, Payload: `{"optionId":"soap"}`, Timestamp: time.Unix(0, 0)}
	if err := w.WriteEvent(row); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "Simulation Configuration:") || !strings.Contains(output, "Treatments:") {
		t.Fatalf("overview not printed: %q", output)
	}
	if !strings.Contains(output, "TREAT") || !strings.Contains(output, "\x1b[") {
		t.Fatalf("expected colored treatment line: %q", output)
	}

	buf.Reset()
	if err := w.WriteEvent(row); err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if strings.Contains(buf.String(), "Simulation Configuration:") {
		t.Fatalf("overview printed more than once")
	}
}

func TestColorStdoutWriterZones(t *testing.T) {
	buf := &bytes.Buffer{}
	w := &ColorStdoutWriter{out: buf, zoneColors: make(map[string]string)}
	quiet := telemetry.ZoneRow{ZoneID: "z1", ReentryRestrictedUntilTick: -1, PreHarvestRestrictedUntilTick: -1}
	if err := w.WriteZone(quiet); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("quiet zone should be skipped, got %q", buf.String())
	}
	busy := telemetry.ZoneRow{ZoneID: "z1", Tick: 9, Pests: 1, PendingTreatments: 1, ReentryRestrictedUntilTick: 15, PreHarvestRestrictedUntilTick: -1}
	if err := w.WriteZone(busy); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "pests=1") || !strings.Contains(out, "reentry<15") {
		t.Fatalf("unexpected zone line: %q", out)
	}
	if strings.Contains(out, "phi<") {
		t.Fatalf("unset pre-harvest restriction printed: %q", out)
	}
}
