// Telemetry structs with greptime tags
package telemetry

import (
	"os"
	"time"
)

// Affliction kinds.
const (
	KindDisease = "disease"
	KindPest    = "pest"
)

// AfflictionRow is the per-tick state of one disease or pest record.
type AfflictionRow struct {
	RunID            string    `json:"run_id"`        // TAG
	ZoneID           string    `json:"zone_id"`       // TAG
	PlantID          string    `json:"plant_id"`      // TAG
	Kind             string    `json:"kind"`          // TAG
	AfflictionID     string    `json:"affliction_id"` // TAG
	AgentID          string    `json:"agent_id"`      // FIELD pathogen or pest id
	Tick             int64     `json:"tick"`          // FIELD
	Level            float64   `json:"level"`         // FIELD infection or population
	Harm             float64   `json:"harm"`          // FIELD severity or damage
	Detected         bool      `json:"detected"`      // FIELD
	ActiveTreatments int       `json:"active_treatments"`
	Timestamp        time.Time `json:"ts"` // TIME INDEX
}

// ZoneRow is the per-tick health summary of a zone.
type ZoneRow struct {
	RunID                         string    `json:"run_id"`  // TAG
	ZoneID                        string    `json:"zone_id"` // TAG
	Tick                          int64     `json:"tick"`
	Plants                        int       `json:"plants"`
	Diseases                      int       `json:"diseases"`
	Pests                         int       `json:"pests"`
	PendingTreatments             int       `json:"pending_treatments"`
	AppliedTreatments             int       `json:"applied_treatments"`
	ReentryRestrictedUntilTick    int64     `json:"reentry_restricted_until_tick"`     // -1 when unset
	PreHarvestRestrictedUntilTick int64     `json:"pre_harvest_restricted_until_tick"` // -1 when unset
	Timestamp                     time.Time `json:"ts"`
}

// EventRow is one engine event with its payload encoded as JSON.
type EventRow struct {
	RunID     string    `json:"run_id"`  // TAG
	Type      string    `json:"type"`    // TAG
	ZoneID    string    `json:"zone_id"` // TAG
	Tick      int64     `json:"tick"`
	Payload   string    `json:"payload"`
	Timestamp time.Time `json:"ts"`
}

func tableName(env, fallback string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return fallback
}

// Table names used when writing to GreptimeDB, overridable per environment.
var (
	AfflictionTableName = tableName("AFFLICTION_TABLE", "plant_afflictions")
	ZoneTableName       = tableName("ZONE_TABLE", "zone_health")
	EventTableName      = tableName("HEALTH_EVENT_TABLE", "health_events")
)

func (AfflictionRow) TableName() string { return AfflictionTableName }
func (ZoneRow) TableName() string       { return ZoneTableName }
func (EventRow) TableName() string      { return EventTableName }
