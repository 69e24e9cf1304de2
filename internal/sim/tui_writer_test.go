package sim

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"planthealth-sim/internal/config"
	"planthealth-sim/internal/health"
	"planthealth-sim/internal/state"
	"planthealth-sim/internal/telemetry"
)

type fakeProgram struct{ msgs []tea.Msg }

func (f *fakeProgram) Send(msg tea.Msg) { f.msgs = append(f.msgs, msg) }

func tuiTestConfig() *config.SimulationConfig {
	return &config.SimulationConfig{
		Simulation: config.Simulation{TickLengthMinutes: 60},
		World: config.World{Structures: []config.StructureSpec{{
			ID: "s1",
			Rooms: []config.RoomSpec{{
				ID:    "r1",
				Zones: []config.ZoneSpec{{ID: "z1", Name: "alpha beta gamma delta epsilon zeta"}},
			}},
		}}},
	}
}

func TestTUIWriterMessages(t *testing.T) {
	p := &fakeProgram{}
	w := &TUIWriter{program: p, zoneColors: map[string]string{}}
	ts := time.Unix(0, 0).UTC()
	if err := w.WriteEvent(telemetry.EventRow{Type: health.EventPestDetected, ZoneID: "z1", Timestamp: ts}); err != nil {
		t.Fatalf("event: %v", err)
	}
	if _, ok := p.msgs[0].(logMsg); !ok {
		t.Fatalf("expected logMsg, got %T", p.msgs[0])
	}
	if err := w.WriteEvent(telemetry.EventRow{Type: health.EventTreatmentApplied, ZoneID: "z1", Timestamp: ts}); err != nil {
		t.Fatalf("event: %v", err)
	}
	if _, ok := p.msgs[1].(treatmentMsg); !ok {
		t.Fatalf("expected treatmentMsg, got %T", p.msgs[1])
	}
	if err := w.WriteZone(telemetry.ZoneRow{ZoneID: "z1"}); err != nil {
		t.Fatalf("zone: %v", err)
	}
	if _, ok := p.msgs[2].(zoneMsg); !ok {
		t.Fatalf("expected zoneMsg, got %T", p.msgs[2])
	}
	w.SetAdminStatus(true)
	if _, ok := p.msgs[3].(adminMsg); !ok {
		t.Fatalf("expected adminMsg, got %T", p.msgs[3])
	}
}

func TestWrapToggle(t *testing.T) {
	m := newTUIModel(tuiTestConfig(), map[string]string{"z1": colorBlue})
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 30})
	m = mi.(tuiModel)
	mi, _ = m.Update(logMsg{line: "one two three four five six"})
	m = mi.(tuiModel)
	lines := strings.Split(m.vp.View(), "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[1]) != "" {
		t.Fatalf("expected single line before wrap")
	}
	before := m.header
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'w'}})
	m = mi.(tuiModel)
	if !m.wrap {
		t.Fatalf("wrap not toggled")
	}
	lines = strings.Split(m.vp.View(), "\n")
	if strings.TrimSpace(lines[1]) == "" {
		t.Fatalf("expected wrapped content on second line")
	}
	if strings.Count(m.header, "\n") <= strings.Count(before, "\n") {
		t.Fatalf("expected zone name to wrap")
	}
}

func TestScrollToggle(t *testing.T) {
	m := newTUIModel(tuiTestConfig(), nil)
	if !m.autoscroll {
		t.Fatal("autoscroll should default on")
	}
	mi, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	m = mi.(tuiModel)
	if m.autoscroll {
		t.Fatal("autoscroll not toggled")
	}
}

func TestZoneTableTracksRows(t *testing.T) {
	m := newTUIModel(tuiTestConfig(), nil)
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = mi.(tuiModel)
	mi, _ = m.Update(zoneMsg{telemetry.ZoneRow{ZoneID: "z1", Tick: 5, Pests: 2, ReentryRestrictedUntilTick: 11, PreHarvestRestrictedUntilTick: -1}})
	m = mi.(tuiModel)
	if m.tick != 5 {
		t.Fatalf("tick = %d", m.tick)
	}
	rows := m.zoneTable.Rows()
	if len(rows) != 1 || rows[0][2] != "2" || rows[0][5] != "11" || rows[0][6] != "-" {
		t.Fatalf("unexpected zone table rows: %v", rows)
	}
	if !strings.Contains(m.renderBottom(), "pests=2") {
		t.Errorf("status line missing pest count: %q", m.renderBottom())
	}
}

func TestTreatmentDialogSchedules(t *testing.T) {
	var gotZone, gotOption string
	var gotTarget state.HealthTarget
	m := newTUIModel(tuiTestConfig(), nil)
	mi, _ := m.Update(setSchedulerMsg{fn: func(zoneID, optionID string, target state.HealthTarget) error {
		gotZone, gotOption, gotTarget = zoneID, optionID, target
		return nil
	}})
	m = mi.(tuiModel)
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	m = mi.(tuiModel)
	if !m.dialog {
		t.Fatal("dialog not opened")
	}
	m.input.SetValue("z1, soap, pest")
	mi, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = mi.(tuiModel)
	if m.dialog {
		t.Fatal("dialog still open")
	}
	if cmd == nil {
		t.Fatal("expected schedule command")
	}
	msg := cmd()
	if res, ok := msg.(scheduleResultMsg); !ok || !strings.Contains(res.line, "scheduled soap") {
		t.Fatalf("unexpected result %#v", msg)
	}
	if gotZone != "z1" || gotOption != "soap" || gotTarget != state.TargetPest {
		t.Fatalf("scheduler got %s %s %s", gotZone, gotOption, gotTarget)
	}
}

func TestParseTreatmentInput(t *testing.T) {
	cases := []struct {
		in      string
		target  state.HealthTarget
		wantErr bool
	}{
		{"z1,sulfur", state.TargetDisease, false},
		{"z1,soap,pest", state.TargetPest, false},
		{"z1", "", true},
		{",soap", "", true},
		{"z1,soap,fungus", "", true},
	}
	for _, tc := range cases {
		_, _, target, err := parseTreatmentInput(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("%q: err = %v", tc.in, err)
			continue
		}
		if !tc.wantErr && target != tc.target {
			t.Errorf("%q: target = %s, want %s", tc.in, target, tc.target)
		}
	}
}
