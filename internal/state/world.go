// Package state holds the world tree the health engine walks each tick.
package state

// PlantStage is the growth stage of a plant.
type PlantStage string

const (
	StageSeedling     PlantStage = "seedling"
	StageVegetative   PlantStage = "vegetative"
	StageFlowering    PlantStage = "flowering"
	StageRipening     PlantStage = "ripening"
	StageHarvestReady PlantStage = "harvestReady"
	StageDrying       PlantStage = "drying"
	StageCured        PlantStage = "cured"
	StageDead         PlantStage = "dead"
)

// GameState is the root of the simulated facility.
type GameState struct {
	Structures []*Structure `json:"structures"`
}

// Structure is a building containing rooms.
type Structure struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Rooms []*Room `json:"rooms"`
}

// Room groups cultivation zones.
type Room struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Zones []*Zone `json:"zones"`
}

// Zone is a cultivation area with its plants and health record.
type Zone struct {
	ID     string           `json:"id"`
	Name   string           `json:"name"`
	Plants []*Plant         `json:"plants"`
	Health *ZoneHealthState `json:"health"`
}

// Plant is the part of a plant the health engine reads.
type Plant struct {
	ID       string     `json:"id"`
	StrainID string     `json:"strainId,omitempty"`
	Stage    PlantStage `json:"stage"`
}

// EachZone calls fn for every zone in structure/room/zone order.
func (g *GameState) EachZone(fn func(z *Zone)) {
	if g == nil {
		return
	}
	for _, s := range g.Structures {
		for _, r := range s.Rooms {
			for _, z := range r.Zones {
				fn(z)
			}
		}
	}
}

// FindZone returns the zone with the given id.
func (g *GameState) FindZone(id string) (*Zone, bool) {
	var found *Zone
	g.EachZone(func(z *Zone) {
		if found == nil && z.ID == id {
			found = z
		}
	})
	return found, found != nil
}

// FindPlant returns the plant with the given id, scanning in slice order.
func (z *Zone) FindPlant(id string) (*Plant, bool) {
	for _, p := range z.Plants {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// EnsureHealth returns the zone health record, creating it when missing.
func (z *Zone) EnsureHealth() *ZoneHealthState {
	if z.Health == nil {
		z.Health = NewZoneHealthState()
	}
	if z.Health.PlantHealth == nil {
		z.Health.PlantHealth = make(map[string]*PlantHealthState)
	}
	return z.Health
}
