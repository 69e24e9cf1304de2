package sim

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"planthealth-sim/internal/telemetry"
)

func TestReplayLog(t *testing.T) {
	ts := time.Unix(0, 0).UTC()
	rows := []telemetry.EventRow{
		{Type: "pest.detected", Tick: 1, Timestamp: ts},
		{Type: "treatment.applied", Tick: 2, Timestamp: ts.Add(10 * time.Millisecond)},
	}
	var b strings.Builder
	enc := json.NewEncoder(&b)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}

	w := &MockWriter{}
	start := time.Now()
	if err := ReplayLog(strings.NewReader(b.String()), w, 1); err != nil {
		t.Fatalf("ReplayLog: %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Error("replay did not honour timestamps")
	}
	if len(w.Events) != 2 || w.Events[1].Type != "treatment.applied" {
		t.Fatalf("unexpected replayed rows: %+v", w.Events)
	}
}

func TestReplayLogRejectsGarbage(t *testing.T) {
	if err := ReplayLog(strings.NewReader("{not json"), &MockWriter{}, 0); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestReplayLogFileZstd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl.zst")
	fw, err := NewFileWriter(path, "", "")
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	for i := int64(0); i < 3; i++ {
		if err := fw.WriteEvent(telemetry.EventRow{Type: "pest.detected", Tick: i}); err != nil {
			t.Fatalf("WriteEvent: %v", err)
		}
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	w := &MockWriter{}
	if err := ReplayLogFile(path, w, 0); err != nil {
		t.Fatalf("ReplayLogFile: %v", err)
	}
	if len(w.Events) != 3 || w.Events[2].Tick != 2 {
		t.Fatalf("unexpected replayed rows: %+v", w.Events)
	}
}

func TestReplayLogFileMissing(t *testing.T) {
	if err := ReplayLogFile(filepath.Join(t.TempDir(), "nope.jsonl"), &MockWriter{}, 0); !os.IsNotExist(err) {
		t.Fatalf("err = %v, want not-exist", err)
	}
}
