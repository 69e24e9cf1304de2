package scenario

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"planthealth-sim/internal/config"
	"planthealth-sim/internal/state"
)

// Trigger event types understood besides engine event names.
const EventTimeElapsed = "time_elapsed"

// Scenario defines a grow-room storyline with ordered phases and an overall description.
type Scenario struct {
	Name        string  `yaml:"name,omitempty"`
	Description string  `yaml:"description,omitempty"`
	Phases      []Phase `yaml:"phases"`
}

// Phase describes a stage of the storyline with its interventions and the
// triggers that end it.
type Phase struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Seeds       []Seed      `yaml:"seeds,omitempty"`
	Treatments  []Treatment `yaml:"treatments,omitempty"`
	Triggers    []Trigger   `yaml:"triggers,omitempty"`
}

// Seed introduces an outbreak DelayTicks after the phase starts.
type Seed struct {
	DelayTicks      int64 `yaml:"delay_ticks"`
	config.Outbreak `yaml:",inline"`
}

// Treatment queues a treatment DelayTicks after the phase starts. An empty
// plant list treats every plant of the zone.
type Treatment struct {
	DelayTicks              int64              `yaml:"delay_ticks"`
	ZoneID                  string             `yaml:"zone"`
	OptionID                string             `yaml:"option"`
	Target                  state.HealthTarget `yaml:"target"`
	PlantIDs                []string           `yaml:"plants,omitempty"`
	DiseaseIDs              []string           `yaml:"diseases,omitempty"`
	PestIDs                 []string           `yaml:"pests,omitempty"`
	ReentryIntervalTicks    *int64             `yaml:"reentry_interval_ticks,omitempty"`
	PreHarvestIntervalTicks *int64             `yaml:"pre_harvest_interval_ticks,omitempty"`
}

// Pending converts the treatment into a queue entry due at tick.
func (t Treatment) Pending(zone *state.Zone, tick int64) state.PendingTreatmentApplication {
	plants := append([]string(nil), t.PlantIDs...)
	if len(plants) == 0 && zone != nil {
		for _, p := range zone.Plants {
			plants = append(plants, p.ID)
		}
	}
	return state.PendingTreatmentApplication{
		OptionID:                t.OptionID,
		Target:                  t.Target,
		PlantIDs:                plants,
		ScheduledTick:           tick,
		DiseaseIDs:              append([]string(nil), t.DiseaseIDs...),
		PestIDs:                 append([]string(nil), t.PestIDs...),
		ReentryIntervalTicks:    t.ReentryIntervalTicks,
		PreHarvestIntervalTicks: t.PreHarvestIntervalTicks,
	}
}

// Trigger moves the scenario to another phase based on an event.
type Trigger struct {
	Event string `yaml:"event"`
	Value int    `yaml:"value"`
	Next  string `yaml:"next"`
}

// Event represents a runtime occurrence that may advance the scenario.
type Event struct {
	Type  string
	Value int
}

// Load reads a YAML scenario definition from disk.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Resolve returns the built-in scenario with the given name, or loads it
// from disk when no built-in matches.
func Resolve(nameOrPath string) (*Scenario, error) {
	if sc, ok := BuiltIn()[nameOrPath]; ok {
		return &sc, nil
	}
	return Load(nameOrPath)
}

// Validate checks that phases exist, triggers point at known phases and
// every seed and treatment is well formed.
func (s *Scenario) Validate() error {
	if len(s.Phases) == 0 {
		return fmt.Errorf("scenario %q has no phases", s.Name)
	}
	names := make(map[string]bool, len(s.Phases))
	for _, p := range s.Phases {
		if names[p.Name] {
			return fmt.Errorf("scenario %q: duplicate phase %q", s.Name, p.Name)
		}
		names[p.Name] = true
	}
	var errs []error
	for _, p := range s.Phases {
		for _, tr := range p.Triggers {
			if !names[tr.Next] {
				errs = append(errs, fmt.Errorf("scenario %q: phase %q triggers unknown phase %q", s.Name, p.Name, tr.Next))
			}
		}
		for i, sd := range p.Seeds {
			if sd.DelayTicks < 0 {
				errs = append(errs, fmt.Errorf("scenario %q: phase %q seeds[%d]: negative delay", s.Name, p.Name, i))
			}
			if err := sd.CheckFields(); err != nil {
				errs = append(errs, fmt.Errorf("scenario %q: phase %q seeds[%d]: %w", s.Name, p.Name, i, err))
			}
		}
		for i, t := range p.Treatments {
			if err := t.check(); err != nil {
				errs = append(errs, fmt.Errorf("scenario %q: phase %q treatments[%d]: %w", s.Name, p.Name, i, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (t Treatment) check() error {
	var errs []error
	if t.ZoneID == "" {
		errs = append(errs, fmt.Errorf("zone is required"))
	}
	if t.OptionID == "" {
		errs = append(errs, fmt.Errorf("option is required"))
	}
	if t.Target != state.TargetDisease && t.Target != state.TargetPest {
		errs = append(errs, fmt.Errorf("unknown target %q", t.Target))
	}
	if t.DelayTicks < 0 {
		errs = append(errs, fmt.Errorf("negative delay"))
	}
	if (t.ReentryIntervalTicks != nil && *t.ReentryIntervalTicks < 0) ||
		(t.PreHarvestIntervalTicks != nil && *t.PreHarvestIntervalTicks < 0) {
		errs = append(errs, fmt.Errorf("restriction intervals must not be negative"))
	}
	return errors.Join(errs...)
}

// CheckWorld verifies that seeds and treatments reference zones, plants and
// treatment options that exist in cfg.
func (s *Scenario) CheckWorld(cfg *config.SimulationConfig) error {
	catalog := cfg.Catalog()
	var errs []error
	for _, p := range s.Phases {
		for i, sd := range p.Seeds {
			if err := cfg.CheckOutbreak(sd.Outbreak); err != nil {
				errs = append(errs, fmt.Errorf("scenario %q: phase %q seeds[%d]: %w", s.Name, p.Name, i, err))
			}
		}
		for i, t := range p.Treatments {
			option, ok := catalog.Lookup(t.OptionID)
			switch {
			case !ok:
				errs = append(errs, fmt.Errorf("scenario %q: phase %q treatments[%d]: unknown option %q", s.Name, p.Name, i, t.OptionID))
			case !option.Supports(t.Target):
				errs = append(errs, fmt.Errorf("scenario %q: phase %q treatments[%d]: option %q does not treat %s", s.Name, p.Name, i, t.OptionID, t.Target))
			}
			if err := cfg.CheckZone(t.ZoneID, t.PlantIDs...); err != nil {
				errs = append(errs, fmt.Errorf("scenario %q: phase %q treatments[%d]: %w", s.Name, p.Name, i, err))
			}
		}
	}
	return errors.Join(errs...)
}

// NextPhase returns the name of the next phase given the current phase and event.
// If no trigger matches, ok will be false.
func (s *Scenario) NextPhase(current string, ev Event) (next string, ok bool) {
	for _, p := range s.Phases {
		if p.Name != current {
			continue
		}
		for _, tr := range p.Triggers {
			if tr.Event == ev.Type && ev.Value >= tr.Value {
				return tr.Next, true
			}
		}
	}
	return "", false
}

func (s *Scenario) phase(name string) (Phase, bool) {
	for _, p := range s.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return Phase{}, false
}
