package scenario

import (
	"planthealth-sim/internal/config"
	"planthealth-sim/internal/state"
)

// BuiltIn returns predefined outbreak storylines. They target the zones of the
// default greenhouse layout in config/simulation.yaml.
func BuiltIn() map[string]Scenario {
	return map[string]Scenario{
		"powdery-mildew": {
			Name:        "Powdery Mildew",
			Description: "A mildew flare-up in the flowering zone is caught late and knocked back with sulfur.",
			Phases: []Phase{
				{
					Name:        "incubation",
					Description: "Spores settle on a second flowering plant.",
					Seeds: []Seed{{Outbreak: config.Outbreak{
						ZoneID: "zone-flower", PlantID: "zone-flower-plant-05", Kind: state.TargetDisease,
						AgentID: "powdery-mildew", Level: 0.15, SymptomDelayTicks: 48, SpreadCooldownTicks: 24,
						Rates: config.OutbreakRates{Infection: 0.7, Recovery: 0.04, Degeneration: 0.3},
					}}},
					Triggers: []Trigger{{Event: EventTimeElapsed, Value: 72, Next: "outbreak"}},
				},
				{
					Name:        "outbreak",
					Description: "Growers inspect the room and apply sulfur to the whole zone.",
					Treatments: []Treatment{{
						DelayTicks: 6, ZoneID: "zone-flower", OptionID: "sulfur-spray",
						Target: state.TargetDisease, DiseaseIDs: []string{"powdery-mildew"},
					}},
					Triggers: []Trigger{{Event: "treatment.applied", Value: 1, Next: "recovery"}},
				},
				{
					Name:        "recovery",
					Description: "A UV-C pass follows once the sulfur has worn off.",
					Treatments: []Treatment{{
						DelayTicks: 72, ZoneID: "zone-flower", OptionID: "uv-c", Target: state.TargetDisease,
					}},
				},
			},
		},
		"spider-mite-pressure": {
			Name:        "Spider Mite Pressure",
			Description: "Mites hitch a ride into the vegetation zone and are countered with predators.",
			Phases: []Phase{
				{
					Name:        "infestation",
					Description: "A second colony appears at the far end of the bench.",
					Seeds: []Seed{{DelayTicks: 12, Outbreak: config.Outbreak{
						ZoneID: "zone-veg", PlantID: "zone-veg-plant-06", Kind: state.TargetPest,
						AgentID: "spider-mite", Level: 0.12, SymptomDelayTicks: 24, SpreadCooldownTicks: 12,
						Rates: config.OutbreakRates{Reproduction: 0.9, Mortality: 0.1, Damage: 0.25},
					}}},
					Triggers: []Trigger{{Event: "pest.detected", Value: 2, Next: "control"}},
				},
				{
					Name:        "control",
					Description: "Predatory mites are released across the zone.",
					Treatments: []Treatment{{
						ZoneID: "zone-veg", OptionID: "predatory-mites", Target: state.TargetPest,
					}},
					Triggers: []Trigger{{Event: EventTimeElapsed, Value: 168, Next: "follow-up"}},
				},
				{
					Name:        "follow-up",
					Description: "Leaves with residual webbing are pruned.",
					Treatments: []Treatment{{
						ZoneID: "zone-veg", OptionID: "leaf-pruning", Target: state.TargetPest,
					}},
				},
			},
		},
		"mixed-pressure": {
			Name:        "Mixed Pressure",
			Description: "Mildew and mites strike both zones while the crew works through a treatment plan.",
			Phases: []Phase{
				{
					Name:        "onset",
					Description: "Both zones pick up a second outbreak.",
					Seeds: []Seed{
						{Outbreak: config.Outbreak{
							ZoneID: "zone-veg", PlantID: "zone-veg-plant-01", Kind: state.TargetDisease,
							AgentID: "powdery-mildew", Level: 0.1, SymptomDelayTicks: 48, SpreadCooldownTicks: 24,
							Rates: config.OutbreakRates{Infection: 0.5, Recovery: 0.05, Degeneration: 0.2},
						}},
						{DelayTicks: 24, Outbreak: config.Outbreak{
							ZoneID: "zone-flower", PlantID: "zone-flower-plant-08", Kind: state.TargetPest,
							AgentID: "spider-mite", Level: 0.08, SymptomDelayTicks: 24, SpreadCooldownTicks: 12,
							Rates: config.OutbreakRates{Reproduction: 0.8, Mortality: 0.12, Damage: 0.2},
						}},
					},
					Triggers: []Trigger{
						{Event: "pest.detected", Value: 1, Next: "response"},
						{Event: EventTimeElapsed, Value: 96, Next: "response"},
					},
				},
				{
					Name:        "response",
					Description: "Sulfur in flowering, predators in vegetation.",
					Treatments: []Treatment{
						{ZoneID: "zone-flower", OptionID: "sulfur-spray", Target: state.TargetDisease},
						{DelayTicks: 4, ZoneID: "zone-veg", OptionID: "predatory-mites", Target: state.TargetPest},
						{DelayTicks: 8, ZoneID: "zone-flower", OptionID: "predatory-mites", Target: state.TargetPest},
					},
					Triggers: []Trigger{{Event: "treatment.applied", Value: 3, Next: "watch"}},
				},
				{
					Name:        "watch",
					Description: "The crew keeps pruning while restrictions run out.",
					Treatments: []Treatment{
						{DelayTicks: 48, ZoneID: "zone-veg", OptionID: "leaf-pruning", Target: state.TargetDisease},
					},
				},
			},
		},
	}
}
