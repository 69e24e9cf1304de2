package sim

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"planthealth-sim/internal/telemetry"
)

func TestFileWriter(t *testing.T) {
	dir := t.TempDir()
	ts := time.Unix(0, 0).UTC()
	eRow := telemetry.EventRow{RunID: "r", Type: "pest.detected", ZoneID: "z1", Tick: 4, Payload: `{"zoneId":"z1"}`, Timestamp: ts}
	zRow := telemetry.ZoneRow{RunID: "r", ZoneID: "z1", Tick: 4, Pests: 2, ReentryRestrictedUntilTick: -1, PreHarvestRestrictedUntilTick: 9, Timestamp: ts}
	aRow := telemetry.AfflictionRow{RunID: "r", ZoneID: "z1", PlantID: "p1", Kind: telemetry.KindPest, AgentID: "mites", Level: 0.4, Timestamp: ts}

	eventPath := filepath.Join(dir, "events.jsonl")
	zonePath := filepath.Join(dir, "zones.jsonl")
	snapPath := filepath.Join(dir, "snapshots.jsonl")
	fw, err := NewFileWriter(eventPath, zonePath, snapPath)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	if err := fw.WriteEvents([]telemetry.EventRow{eRow, eRow}); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	if err := fw.WriteZone(zRow); err != nil {
		t.Fatalf("WriteZone: %v", err)
	}
	if err := fw.WriteSnapshot(aRow); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if n := countLines(t, eventPath); n != 2 {
		t.Errorf("event lines = %d, want 2", n)
	}

	var gotZone telemetry.ZoneRow
	readFirst(t, zonePath, &gotZone)
	if gotZone.Pests != 2 || gotZone.PreHarvestRestrictedUntilTick != 9 || gotZone.ReentryRestrictedUntilTick != -1 {
		t.Errorf("unexpected zone row: %+v", gotZone)
	}
	var gotSnap telemetry.AfflictionRow
	readFirst(t, snapPath, &gotSnap)
	if gotSnap.AgentID != "mites" || gotSnap.Level != 0.4 {
		t.Errorf("unexpected affliction row: %+v", gotSnap)
	}
}

func TestFileWriterOptionalLogs(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFileWriter(filepath.Join(dir, "events.jsonl"), "", "")
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	if err := fw.WriteZone(telemetry.ZoneRow{ZoneID: "z1"}); err != nil {
		t.Fatalf("WriteZone without zone log: %v", err)
	}
	if err := fw.WriteSnapshot(telemetry.AfflictionRow{}); err != nil {
		t.Fatalf("WriteSnapshot without snapshot log: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected only the event log, got %d files", len(entries))
	}
}

func TestFileWriterZstd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl.zst")
	fw, err := NewFileWriter(path, "", "")
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	if err := fw.WriteEvent(telemetry.EventRow{Type: "treatment.applied", Tick: 12}); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer zr.Close()
	var got telemetry.EventRow
	if err := json.NewDecoder(zr).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != "treatment.applied" || got.Tick != 12 {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		n++
	}
	return n
}

func readFirst(t *testing.T, path string, v any) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
}
