package health

import (
	"testing"

	"planthealth-sim/internal/events"
	"planthealth-sim/internal/state"
)

func TestDetectionAsymmetry(t *testing.T) {
	gs, zone := newTestWorld("p1")
	ph := plantHealth(zone, "p1")
	ph.Diseases = []*state.DiseaseState{{ID: "d1", PathogenID: "mildew", Infection: 0.4, Severity: 0.18, SymptomTimerTicks: 10}}
	ph.Pests = []*state.PestState{{ID: "i1", PestID: "thrips", Population: 0.22, SymptomTimerTicks: 10}}

	col := events.NewCollector()
	newTestEngine().RunDetection(&PhaseContext{State: gs, Tick: 7, TickLengthMinutes: 60, Events: col})

	d, p := ph.Diseases[0], ph.Pests[0]
	if !d.Detected || d.DetectionTick == nil || *d.DetectionTick != 7 {
		t.Fatalf("disease not detected at tick 7: %+v", d)
	}
	if !p.Detected || p.DetectionTick == nil || *p.DetectionTick != 7 {
		t.Fatalf("pest not detected at tick 7: %+v", p)
	}
	evs := col.Events()
	if len(evs) != 1 || evs[0].Type != EventPestDetected {
		t.Fatalf("expected a single pest.detected event, got %+v", evs)
	}
	payload, ok := evs[0].Payload.(PestDetectedPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", evs[0].Payload)
	}
	want := PestDetectedPayload{ZoneID: "zone-1", PlantID: "p1", PestID: "thrips", InfestationID: "i1"}
	if payload != want {
		t.Fatalf("payload = %+v, want %+v", payload, want)
	}
	if evs[0].Tick != 7 {
		t.Fatalf("event tick = %d", evs[0].Tick)
	}
}

func TestDetectionBySymptomTimer(t *testing.T) {
	gs, zone := newTestWorld("p1")
	ph := plantHealth(zone, "p1")
	ph.Diseases = []*state.DiseaseState{{ID: "d1", PathogenID: "mildew", Infection: 0.1, SymptomTimerTicks: 2}}
	e := newTestEngine()

	e.RunDetection(&PhaseContext{State: gs, Tick: 1, TickLengthMinutes: 60})
	if ph.Diseases[0].Detected {
		t.Fatal("detected before symptom timer elapsed")
	}
	if ph.Diseases[0].SymptomTimerTicks != 1 {
		t.Fatalf("timer = %d, want 1", ph.Diseases[0].SymptomTimerTicks)
	}
	e.RunDetection(&PhaseContext{State: gs, Tick: 2, TickLengthMinutes: 60})
	if !ph.Diseases[0].Detected || *ph.Diseases[0].DetectionTick != 2 {
		t.Fatalf("expected detection at tick 2: %+v", ph.Diseases[0])
	}
}

func TestDetectionIsIdempotent(t *testing.T) {
	gs, zone := newTestWorld("p1")
	ph := plantHealth(zone, "p1")
	ph.Pests = []*state.PestState{{ID: "i1", PestID: "aphid", Population: 0.5}}
	e := newTestEngine()
	col := events.NewCollector()

	for tick := int64(0); tick < 5; tick++ {
		e.RunDetection(&PhaseContext{State: gs, Tick: tick, TickLengthMinutes: 60, Events: col})
	}
	if n := col.Count(EventPestDetected); n != 1 {
		t.Fatalf("pest.detected emitted %d times", n)
	}
	if *ph.Pests[0].DetectionTick != 0 {
		t.Fatalf("detection tick moved to %d", *ph.Pests[0].DetectionTick)
	}
}

func TestDetectionSkipsInactiveAfflictions(t *testing.T) {
	gs, zone := newTestWorld("p1")
	ph := plantHealth(zone, "p1")
	ph.Diseases = []*state.DiseaseState{{ID: "d1", PathogenID: "mildew", Infection: 0, Severity: 0.5, SymptomTimerTicks: 3}}
	ph.Pests = []*state.PestState{{ID: "i1", PestID: "aphid", Population: 0, SymptomTimerTicks: 3}}

	newTestEngine().RunDetection(&PhaseContext{State: gs, Tick: 1, TickLengthMinutes: 60})

	if ph.Diseases[0].Detected || ph.Diseases[0].SymptomTimerTicks != 3 {
		t.Fatalf("zero infection disease touched: %+v", ph.Diseases[0])
	}
	if ph.Pests[0].Detected || ph.Pests[0].SymptomTimerTicks != 3 {
		t.Fatalf("zero population pest touched: %+v", ph.Pests[0])
	}
}
