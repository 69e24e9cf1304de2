// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"planthealth-sim/internal/health"
	"planthealth-sim/internal/state"
)

// Simulation holds clock and run settings.
type Simulation struct {
	TickLengthMinutes float64       `yaml:"tick_length_minutes"`
	Ticks             int64         `yaml:"ticks"`
	TickInterval      time.Duration `yaml:"tick_interval"`
	RunLabel          string        `yaml:"run_label"`
}

// PlantSpec describes one plant.
type PlantSpec struct {
	ID       string           `yaml:"id"`
	StrainID string           `yaml:"strain_id"`
	Stage    state.PlantStage `yaml:"stage"`
}

// ZoneSpec describes a cultivation zone. PlantCount generates plants named
// <zone>-plant-NN with the given stage in addition to the listed ones.
type ZoneSpec struct {
	ID         string           `yaml:"id"`
	Name       string           `yaml:"name"`
	Plants     []PlantSpec      `yaml:"plants"`
	PlantCount int              `yaml:"plant_count"`
	Stage      state.PlantStage `yaml:"stage"`
	StrainID   string           `yaml:"strain_id"`
}

// RoomSpec groups zones.
type RoomSpec struct {
	ID    string     `yaml:"id"`
	Name  string     `yaml:"name"`
	Zones []ZoneSpec `yaml:"zones"`
}

// StructureSpec is a building with rooms.
type StructureSpec struct {
	ID    string     `yaml:"id"`
	Name  string     `yaml:"name"`
	Rooms []RoomSpec `yaml:"rooms"`
}

// World is the facility layout.
type World struct {
	Structures []StructureSpec `yaml:"structures"`
}

// OutbreakRates are the base daily rates of a seeded affliction. Diseases read
// the first three, pests the last three.
type OutbreakRates struct {
	Infection    float64 `yaml:"infection" json:"infection,omitempty"`
	Recovery     float64 `yaml:"recovery" json:"recovery,omitempty"`
	Degeneration float64 `yaml:"degeneration" json:"degeneration,omitempty"`
	Reproduction float64 `yaml:"reproduction" json:"reproduction,omitempty"`
	Mortality    float64 `yaml:"mortality" json:"mortality,omitempty"`
	Damage       float64 `yaml:"damage" json:"damage,omitempty"`
}

// Outbreak seeds a disease or pest on a plant.
type Outbreak struct {
	ID                  string             `yaml:"id" json:"id,omitempty"`
	ZoneID              string             `yaml:"zone" json:"zone"`
	PlantID             string             `yaml:"plant" json:"plant"`
	Kind                state.HealthTarget `yaml:"kind" json:"kind"`
	AgentID             string             `yaml:"agent" json:"agent"`
	Level               float64            `yaml:"level" json:"level"`
	Harm                float64            `yaml:"harm" json:"harm,omitempty"`
	SymptomDelayTicks   int64              `yaml:"symptom_delay_ticks" json:"symptomDelayTicks,omitempty"`
	SpreadCooldownTicks int64              `yaml:"spread_cooldown_ticks" json:"spreadCooldownTicks,omitempty"`
	PhaseOverride       string             `yaml:"phase_override" json:"phaseOverride,omitempty"`
	Rates               OutbreakRates      `yaml:"rates" json:"rates"`
}

// SimulationConfig is the root configuration.
type SimulationConfig struct {
	Simulation       Simulation               `yaml:"simulation"`
	DiseaseBalancing health.DiseaseBalancing  `yaml:"disease_balancing"`
	PestBalancing    health.PestBalancing     `yaml:"pest_balancing"`
	TreatmentOptions []health.TreatmentOption `yaml:"treatment_options"`
	World            World                    `yaml:"world"`
	Outbreaks        []Outbreak               `yaml:"outbreaks"`
	Scenario         string                   `yaml:"scenario"`
}

// Load loads YAML config and validates it against a CUE schema.
func Load(configPath, cueSchemaPath string) (*SimulationConfig, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML without schema validation and applies defaults.
func Parse(data []byte) (*SimulationConfig, error) {
	var cfg SimulationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal YAML config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *SimulationConfig) applyDefaults() {
	if c.Simulation.TickLengthMinutes == 0 {
		c.Simulation.TickLengthMinutes = 60
	}
	if c.Simulation.TickInterval == 0 {
		c.Simulation.TickInterval = time.Second
	}
	if c.Simulation.RunLabel == "" {
		c.Simulation.RunLabel = "planthealth"
	}
}

// applyEnv lets TICK_INTERVAL and RUN_LABEL override the file.
func (c *SimulationConfig) applyEnv() error {
	if v := os.Getenv("TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TICK_INTERVAL: %w", err)
		}
		c.Simulation.TickInterval = d
	}
	if v := os.Getenv("RUN_LABEL"); v != "" {
		c.Simulation.RunLabel = v
	}
	return nil
}

// Catalog indexes the configured treatment options.
func (c *SimulationConfig) Catalog() health.TreatmentCatalog {
	return health.NewTreatmentCatalog(c.TreatmentOptions)
}

// EngineOptions returns the health engine options described by the config.
func (c *SimulationConfig) EngineOptions() health.Options {
	return health.Options{
		DiseaseBalancing: c.DiseaseBalancing,
		PestBalancing:    c.PestBalancing,
		TreatmentOptions: c.Catalog(),
	}
}
