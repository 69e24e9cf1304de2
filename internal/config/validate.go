// CUE schema validation code
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	"planthealth-sim/internal/health"
	"planthealth-sim/internal/state"
)

// ValidateWithCue validates a YAML configuration file using a CUE schema file.
func ValidateWithCue(configFile, cueFile string) error {
	ctx := cuecontext.New()

	yamlBytes, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("cannot read YAML config: %w", err)
	}
	file, err := yaml.Extract(configFile, yamlBytes)
	if err != nil {
		return fmt.Errorf("cannot parse YAML config: %w", err)
	}
	configVal := ctx.BuildFile(file)
	if configVal.Err() != nil {
		return fmt.Errorf("cannot build YAML config: %w", configVal.Err())
	}

	schemaBytes, err := os.ReadFile(cueFile)
	if err != nil {
		return fmt.Errorf("cannot read CUE schema: %w", err)
	}
	schemaVal := ctx.CompileBytes(schemaBytes, cue.Filename(cueFile))
	if schemaVal.Err() != nil {
		return fmt.Errorf("cannot compile CUE schema: %w", schemaVal.Err())
	}

	// Merge values with schema
	final := schemaVal.Unify(configVal)
	if final.Err() != nil {
		return fmt.Errorf("schema unify failed: %w", final.Err())
	}
	if err := final.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// Validate checks cross references the schema cannot express.
func (c *SimulationConfig) Validate() error {
	var errs []error
	if c.Simulation.TickLengthMinutes <= 0 {
		errs = append(errs, fmt.Errorf("simulation.tick_length_minutes must be positive"))
	}
	if c.Simulation.Ticks < 0 {
		errs = append(errs, fmt.Errorf("simulation.ticks must not be negative"))
	}
	errs = append(errs, c.validateBalancing()...)
	errs = append(errs, c.validateTreatments()...)

	zones, zoneErrs := c.World.index()
	errs = append(errs, zoneErrs...)
	for i, o := range c.Outbreaks {
		if err := o.validate(zones); err != nil {
			errs = append(errs, fmt.Errorf("outbreaks[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (c *SimulationConfig) validateBalancing() []error {
	var errs []error
	d, p := c.DiseaseBalancing, c.PestBalancing
	if d.Global.SymptomDelayDays.Min > d.Global.SymptomDelayDays.Max {
		errs = append(errs, fmt.Errorf("disease_balancing.global.symptom_delay_days: min > max"))
	}
	bands := []struct {
		name     string
		min, max float64
	}{
		{"disease recovery", d.Caps.MinDailyRecovery, d.Caps.MaxDailyRecovery},
		{"disease degeneration", d.Caps.MinDailyDegeneration, d.Caps.MaxDailyDegeneration},
		{"pest reproduction", p.Caps.MinDailyReproduction, p.Caps.MaxDailyReproduction},
		{"pest mortality", p.Caps.MinDailyMortality, p.Caps.MaxDailyMortality},
		{"pest damage", p.Caps.MinDailyDamage, p.Caps.MaxDailyDamage},
	}
	for _, b := range bands {
		if b.min > b.max {
			errs = append(errs, fmt.Errorf("%s caps: min %v > max %v", b.name, b.min, b.max))
		}
	}
	for key := range d.PhaseMultipliers {
		if !slices.Contains(health.PhaseKeys, key) {
			errs = append(errs, fmt.Errorf("disease_balancing.phase_multipliers: unknown phase %q", key))
		}
	}
	for key := range p.PhaseMultipliers {
		if !slices.Contains(health.PhaseKeys, key) {
			errs = append(errs, fmt.Errorf("pest_balancing.phase_multipliers: unknown phase %q", key))
		}
	}
	return errs
}

func (c *SimulationConfig) validateTreatments() []error {
	var errs []error
	seen := make(map[string]bool, len(c.TreatmentOptions))
	for _, o := range c.TreatmentOptions {
		if o.ID == "" {
			errs = append(errs, fmt.Errorf("treatment option without id"))
			continue
		}
		if seen[o.ID] {
			errs = append(errs, fmt.Errorf("duplicate treatment option %q", o.ID))
		}
		seen[o.ID] = true
		if len(o.Targets) == 0 {
			errs = append(errs, fmt.Errorf("treatment option %q has no targets", o.ID))
		}
		for _, t := range o.Targets {
			if t != state.TargetDisease && t != state.TargetPest {
				errs = append(errs, fmt.Errorf("treatment option %q: unknown target %q", o.ID, t))
			}
		}
	}
	return errs
}

// index maps zone ids to their plant id sets and reports duplicates.
func (w World) index() (map[string]map[string]bool, []error) {
	var errs []error
	zones := make(map[string]map[string]bool)
	for _, s := range w.Structures {
		for _, r := range s.Rooms {
			for _, z := range r.Zones {
				if z.ID == "" {
					errs = append(errs, fmt.Errorf("zone without id in room %q", r.ID))
					continue
				}
				if _, dup := zones[z.ID]; dup {
					errs = append(errs, fmt.Errorf("duplicate zone %q", z.ID))
					continue
				}
				plants := make(map[string]bool)
				for _, p := range z.plants() {
					if plants[p.ID] {
						errs = append(errs, fmt.Errorf("zone %q: duplicate plant %q", z.ID, p.ID))
					}
					plants[p.ID] = true
				}
				zones[z.ID] = plants
			}
		}
	}
	return zones, errs
}

func (o Outbreak) validate(zones map[string]map[string]bool) error {
	if err := o.CheckFields(); err != nil {
		return err
	}
	plants, ok := zones[o.ZoneID]
	if !ok {
		return fmt.Errorf("unknown zone %q", o.ZoneID)
	}
	if !plants[o.PlantID] {
		return fmt.Errorf("zone %q has no plant %q", o.ZoneID, o.PlantID)
	}
	return nil
}

// CheckFields applies the bounds the CUE schema puts on an outbreak, for
// outbreaks that never pass through the schema.
func (o Outbreak) CheckFields() error {
	var errs []error
	if o.ZoneID == "" {
		errs = append(errs, fmt.Errorf("zone is required"))
	}
	if o.PlantID == "" {
		errs = append(errs, fmt.Errorf("plant is required"))
	}
	if o.Kind != state.TargetDisease && o.Kind != state.TargetPest {
		errs = append(errs, fmt.Errorf("unknown kind %q", o.Kind))
	}
	if o.AgentID == "" {
		errs = append(errs, fmt.Errorf("agent is required"))
	}
	if o.Level < 0 || o.Level > 1 {
		errs = append(errs, fmt.Errorf("level %v outside [0,1]", o.Level))
	}
	if o.Harm < 0 || o.Harm > 1 {
		errs = append(errs, fmt.Errorf("harm %v outside [0,1]", o.Harm))
	}
	if o.SymptomDelayTicks < 0 || o.SpreadCooldownTicks < 0 {
		errs = append(errs, fmt.Errorf("symptom delay and spread cooldown must not be negative"))
	}
	r := o.Rates
	if r.Infection < 0 || r.Recovery < 0 || r.Degeneration < 0 || r.Reproduction < 0 || r.Mortality < 0 || r.Damage < 0 {
		errs = append(errs, fmt.Errorf("rates must not be negative"))
	}
	return errors.Join(errs...)
}

// CheckOutbreak validates o against the configured world.
func (c *SimulationConfig) CheckOutbreak(o Outbreak) error {
	zones, _ := c.World.index()
	return o.validate(zones)
}

// CheckZone reports an error unless zoneID exists and hosts every plant in plantIDs.
func (c *SimulationConfig) CheckZone(zoneID string, plantIDs ...string) error {
	zones, _ := c.World.index()
	plants, ok := zones[zoneID]
	if !ok {
		return fmt.Errorf("unknown zone %q", zoneID)
	}
	for _, id := range plantIDs {
		if !plants[id] {
			return fmt.Errorf("zone %q has no plant %q", zoneID, id)
		}
	}
	return nil
}
