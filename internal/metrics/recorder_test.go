package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"planthealth-sim/internal/telemetry"
)

func TestRecorderCountsEvents(t *testing.T) {
	r := NewRecorder()
	for _, row := range []telemetry.EventRow{
		{Type: "pest.detected", ZoneID: "z1"},
		{Type: "pest.detected", ZoneID: "z1"},
		{Type: "treatment.applied", ZoneID: "z2"},
	} {
		if err := r.WriteEvent(row); err != nil {
			t.Fatalf("WriteEvent: %v", err)
		}
	}
	if got := testutil.ToFloat64(r.events.WithLabelValues("pest.detected", "z1")); got != 2 {
		t.Errorf("pest.detected z1 = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.events.WithLabelValues("treatment.applied", "z2")); got != 1 {
		t.Errorf("treatment.applied z2 = %v, want 1", got)
	}
}

func TestRecorderZoneGauges(t *testing.T) {
	r := NewRecorder()
	_ = r.WriteZone(telemetry.ZoneRow{ZoneID: "z1", Tick: 4, Pests: 3, ReentryRestrictedUntilTick: 10, PreHarvestRestrictedUntilTick: -1})
	_ = r.WriteZone(telemetry.ZoneRow{ZoneID: "z1", Tick: 5, Pests: 1, ReentryRestrictedUntilTick: 10, PreHarvestRestrictedUntilTick: -1})
	if got := testutil.ToFloat64(r.pests.WithLabelValues("z1")); got != 1 {
		t.Errorf("pests = %v, want latest value 1", got)
	}
	if got := testutil.ToFloat64(r.tick); got != 5 {
		t.Errorf("tick = %v", got)
	}
	if got := testutil.ToFloat64(r.preHarvest.WithLabelValues("z1")); got != -1 {
		t.Errorf("pre-harvest = %v", got)
	}
}

func TestRecorderHandler(t *testing.T) {
	r := NewRecorder()
	_ = r.WriteEvent(telemetry.EventRow{Type: "pest.detected", ZoneID: "z1"})
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `planthealth_events_total{type="pest.detected",zone_id="z1"} 1`) {
		t.Fatalf("metric missing from exposition:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("runtime collectors not registered")
	}
}
