package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"planthealth-sim/internal/health"
	"planthealth-sim/internal/state"
)

const schemaPath = "../../schemas/simulation.cue"

const minimalYAML = `
simulation:
  tick_length_minutes: 30
  ticks: 48
disease_balancing:
  global:
    base_daily_infection_multiplier: 1
    base_recovery_multiplier: 1
    max_concurrent_diseases: 2
    symptom_delay_days: { min: 1, max: 2 }
  phase_multipliers:
    earlyFlower: { infection: 1.5, degeneration: 1, recovery: 1 }
  caps:
    min_daily_degeneration: 0
    max_daily_degeneration: 1
    min_daily_recovery: 0
    max_daily_recovery: 1
pest_balancing:
  global:
    base_daily_reproduction_multiplier: 1
    base_daily_mortality_multiplier: 1
    base_damage_multiplier: 1
    max_concurrent_pests: 1
  caps:
    min_daily_reproduction: 0
    max_daily_reproduction: 1
    min_daily_mortality: 0
    max_daily_mortality: 1
    min_daily_damage: 0
    max_daily_damage: 1
treatment_options:
  - id: neem
    category: biological
    targets: [pest]
    efficacy:
      pest: { reproduction_multiplier: 0.5 }
    effect_duration_days: 2
world:
  structures:
    - id: s1
      rooms:
        - id: r1
          zones:
            - id: z1
              plant_count: 2
              stage: flowering
              plants:
                - id: mother
                  stage: vegetative
outbreaks:
  - zone: z1
    plant: z1-plant-02
    kind: pest
    agent: aphid
    level: 0.3
    rates: { reproduction: 0.4 }
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "simulation.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	cfg, err := Load(writeTemp(t, minimalYAML), schemaPath)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Simulation.TickLengthMinutes != 30 || cfg.Simulation.Ticks != 48 {
		t.Errorf("unexpected simulation section: %+v", cfg.Simulation)
	}
	if cfg.Simulation.TickInterval != time.Second || cfg.Simulation.RunLabel != "planthealth" {
		t.Errorf("defaults not applied: %+v", cfg.Simulation)
	}
	if got := cfg.DiseaseBalancing.PhaseMultipliers[health.PhaseEarlyFlower].Infection; got != 1.5 {
		t.Errorf("phase multiplier = %v", got)
	}
	opt, ok := cfg.Catalog().Lookup("neem")
	if !ok || opt.Efficacy == nil || opt.Efficacy.Pest == nil || *opt.Efficacy.Pest.ReproductionMultiplier != 0.5 {
		t.Fatalf("treatment option not decoded: %+v", opt)
	}
	if !opt.Supports(state.TargetPest) || opt.Supports(state.TargetDisease) {
		t.Errorf("targets decoded wrong: %v", opt.Targets)
	}
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load("../../config/simulation.yaml", schemaPath)
	if err != nil {
		t.Fatalf("shipped config does not load: %v", err)
	}
	gs, err := cfg.BuildState()
	if err != nil {
		t.Fatalf("BuildState: %v", err)
	}
	if _, ok := gs.FindZone("zone-flower"); !ok {
		t.Fatal("zone-flower missing")
	}
}

func TestLoadRejectsSchemaViolation(t *testing.T) {
	bad := strings.Replace(minimalYAML, "category: biological", "category: voodoo", 1)
	if _, err := Load(writeTemp(t, bad), schemaPath); err == nil {
		t.Fatal("expected schema error for unknown category")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TICK_INTERVAL", "250ms")
	t.Setenv("RUN_LABEL", "nightly")
	cfg, err := Load(writeTemp(t, minimalYAML), schemaPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Simulation.TickInterval != 250*time.Millisecond || cfg.Simulation.RunLabel != "nightly" {
		t.Fatalf("env not applied: %+v", cfg.Simulation)
	}
}

func TestValidateCrossReferences(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := map[string]func(c *SimulationConfig){
		"unknown zone":     func(c *SimulationConfig) { c.Outbreaks[0].ZoneID = "nowhere" },
		"unknown plant":    func(c *SimulationConfig) { c.Outbreaks[0].PlantID = "ghost" },
		"duplicate option": func(c *SimulationConfig) { c.TreatmentOptions = append(c.TreatmentOptions, c.TreatmentOptions[0]) },
		"inverted caps":    func(c *SimulationConfig) { c.PestBalancing.Caps.MinDailyDamage = 2 },
		"unknown phase": func(c *SimulationConfig) {
			c.PestBalancing.PhaseMultipliers = map[health.PhaseKey]health.PestPhaseMultipliers{"winter": {}}
		},
		"duplicate zone": func(c *SimulationConfig) {
			rooms := c.World.Structures[0].Rooms
			rooms[0].Zones = append(rooms[0].Zones, rooms[0].Zones[0])
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := Parse([]byte(minimalYAML))
			mutate(c)
			if err := c.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestBuildStateSeedsOutbreaks(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	gs, err := cfg.BuildState()
	if err != nil {
		t.Fatalf("BuildState: %v", err)
	}
	zone, ok := gs.FindZone("z1")
	if !ok {
		t.Fatal("zone z1 missing")
	}
	if len(zone.Plants) != 3 || zone.Plants[0].ID != "mother" || zone.Plants[0].Stage != state.StageVegetative {
		t.Fatalf("unexpected plants: %+v", zone.Plants)
	}
	if zone.Plants[1].ID != "z1-plant-01" || zone.Plants[1].Stage != state.StageFlowering {
		t.Fatalf("generated plant wrong: %+v", zone.Plants[1])
	}
	pests := zone.Health.PlantHealth["z1-plant-02"].Pests
	if len(pests) != 1 || pests[0].ID != "aphid-z1-plant-02-0" || pests[0].Population != 0.3 || pests[0].BaseReproductionRatePerDay != 0.4 {
		t.Fatalf("outbreak not seeded: %+v", pests)
	}
}

func TestOutbreakApplyRejectsDuplicates(t *testing.T) {
	cfg, _ := Parse([]byte(minimalYAML))
	gs, err := cfg.BuildState()
	if err != nil {
		t.Fatalf("BuildState: %v", err)
	}
	_, err = cfg.Outbreaks[0].Apply(gs, 5)
	if !errors.Is(err, ErrAlreadyHosted) {
		t.Fatalf("expected ErrAlreadyHosted, got %v", err)
	}
}

func TestOutbreakCheckFields(t *testing.T) {
	valid := Outbreak{ZoneID: "z1", PlantID: "p1", Kind: state.TargetPest, AgentID: "mite", Level: 0.2}
	if err := valid.CheckFields(); err != nil {
		t.Fatalf("valid outbreak rejected: %v", err)
	}
	cases := map[string]func(o *Outbreak){
		"level above one":   func(o *Outbreak) { o.Level = 1.5 },
		"negative harm":     func(o *Outbreak) { o.Harm = -0.1 },
		"unknown kind":      func(o *Outbreak) { o.Kind = "fungus" },
		"missing agent":     func(o *Outbreak) { o.AgentID = "" },
		"missing plant":     func(o *Outbreak) { o.PlantID = "" },
		"negative cooldown": func(o *Outbreak) { o.SpreadCooldownTicks = -1 },
		"negative rate":     func(o *Outbreak) { o.Rates.Mortality = -0.2 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			o := valid
			mutate(&o)
			if err := o.CheckFields(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCheckOutbreakAgainstWorld(t *testing.T) {
	cfg, _ := Parse([]byte(minimalYAML))
	o := Outbreak{ZoneID: "z1", PlantID: "mother", Kind: state.TargetDisease, AgentID: "mildew", Level: 0.1}
	if err := cfg.CheckOutbreak(o); err != nil {
		t.Fatalf("CheckOutbreak: %v", err)
	}
	o.PlantID = "ghost"
	if err := cfg.CheckOutbreak(o); err == nil {
		t.Fatal("expected unknown plant error")
	}
}

func TestOutbreakApplyRejectsDuplicateID(t *testing.T) {
	cfg, _ := Parse([]byte(minimalYAML))
	gs, err := cfg.BuildState()
	if err != nil {
		t.Fatalf("BuildState: %v", err)
	}
	first := Outbreak{ID: "hotspot", ZoneID: "z1", PlantID: "mother", Kind: state.TargetPest, AgentID: "aphid", Level: 0.1}
	if _, err := first.Apply(gs, 1); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	second := first
	second.AgentID = "thrips"
	if _, err := second.Apply(gs, 2); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	disease := first
	disease.Kind = state.TargetDisease
	disease.AgentID = "mildew"
	if _, err := disease.Apply(gs, 3); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID across kinds, got %v", err)
	}
	zone, _ := gs.FindZone("z1")
	ph := zone.Health.PlantHealth["mother"]
	if len(ph.Pests) != 1 || len(ph.Diseases) != 0 {
		t.Fatalf("duplicate record seeded: %+v", ph)
	}
}
