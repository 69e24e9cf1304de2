// Package persistence stores simulation output in SQLite so past runs can be
// queried after the process exits.
package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"planthealth-sim/internal/telemetry"
)

// Store wraps a SQLite connection holding events and snapshots of one or more runs.
type Store struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS health_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		type TEXT NOT NULL,
		zone_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		payload TEXT NOT NULL,
		ts INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS zone_snapshots (
		run_id TEXT NOT NULL,
		zone_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		plants INTEGER NOT NULL,
		diseases INTEGER NOT NULL,
		pests INTEGER NOT NULL,
		pending_treatments INTEGER NOT NULL,
		applied_treatments INTEGER NOT NULL,
		reentry_until INTEGER NOT NULL,
		pre_harvest_until INTEGER NOT NULL,
		ts INTEGER NOT NULL,
		PRIMARY KEY (run_id, zone_id, tick)
	);

	CREATE TABLE IF NOT EXISTS affliction_snapshots (
		run_id TEXT NOT NULL,
		zone_id TEXT NOT NULL,
		plant_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		affliction_id TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		level REAL NOT NULL,
		harm REAL NOT NULL,
		detected INTEGER NOT NULL,
		active_treatments INTEGER NOT NULL,
		ts INTEGER NOT NULL,
		PRIMARY KEY (run_id, zone_id, plant_id, affliction_id, tick)
	);

	CREATE INDEX IF NOT EXISTS idx_events_run_tick ON health_events(run_id, tick);
	CREATE INDEX IF NOT EXISTS idx_events_type ON health_events(type);
	`
	_, err := s.conn.Exec(schema)
	return err
}

type eventRecord struct {
	ID      int64  `db:"id"`
	RunID   string `db:"run_id"`
	Type    string `db:"type"`
	ZoneID  string `db:"zone_id"`
	Tick    int64  `db:"tick"`
	Payload string `db:"payload"`
	TS      int64  `db:"ts"`
}

func (r eventRecord) row() telemetry.EventRow {
	return telemetry.EventRow{
		RunID:     r.RunID,
		Type:      r.Type,
		ZoneID:    r.ZoneID,
		Tick:      r.Tick,
		Payload:   r.Payload,
		Timestamp: time.UnixMilli(r.TS).UTC(),
	}
}

type zoneRecord struct {
	RunID           string `db:"run_id"`
	ZoneID          string `db:"zone_id"`
	Tick            int64  `db:"tick"`
	Plants          int    `db:"plants"`
	Diseases        int    `db:"diseases"`
	Pests           int    `db:"pests"`
	Pending         int    `db:"pending_treatments"`
	Applied         int    `db:"applied_treatments"`
	ReentryUntil    int64  `db:"reentry_until"`
	PreHarvestUntil int64  `db:"pre_harvest_until"`
	TS              int64  `db:"ts"`
}

func (r zoneRecord) row() telemetry.ZoneRow {
	return telemetry.ZoneRow{
		RunID:                         r.RunID,
		ZoneID:                        r.ZoneID,
		Tick:                          r.Tick,
		Plants:                        r.Plants,
		Diseases:                      r.Diseases,
		Pests:                         r.Pests,
		PendingTreatments:             r.Pending,
		AppliedTreatments:             r.Applied,
		ReentryRestrictedUntilTick:    r.ReentryUntil,
		PreHarvestRestrictedUntilTick: r.PreHarvestUntil,
		Timestamp:                     time.UnixMilli(r.TS).UTC(),
	}
}

// WriteEvent stores a single event row.
func (s *Store) WriteEvent(row telemetry.EventRow) error {
	return s.WriteEvents([]telemetry.EventRow{row})
}

// WriteEvents stores event rows in one transaction.
func (s *Store) WriteEvents(rows []telemetry.EventRow) error {
	return s.insert(`INSERT INTO health_events (run_id, type, zone_id, tick, payload, ts)
		VALUES (?, ?, ?, ?, ?, ?)`, len(rows), func(i int) []any {
		r := rows[i]
		return []any{r.RunID, r.Type, r.ZoneID, r.Tick, r.Payload, r.Timestamp.UnixMilli()}
	})
}

// WriteZone stores a single zone row.
func (s *Store) WriteZone(row telemetry.ZoneRow) error {
	return s.WriteZones([]telemetry.ZoneRow{row})
}

// WriteZones stores zone rows in one transaction. A repeated (run, zone, tick) replaces the older row.
func (s *Store) WriteZones(rows []telemetry.ZoneRow) error {
	return s.insert(`INSERT OR REPLACE INTO zone_snapshots
		(run_id, zone_id, tick, plants, diseases, pests, pending_treatments, applied_treatments,
		 reentry_until, pre_harvest_until, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, len(rows), func(i int) []any {
		r := rows[i]
		return []any{r.RunID, r.ZoneID, r.Tick, r.Plants, r.Diseases, r.Pests,
			r.PendingTreatments, r.AppliedTreatments,
			r.ReentryRestrictedUntilTick, r.PreHarvestRestrictedUntilTick, r.Timestamp.UnixMilli()}
	})
}

// WriteSnapshot stores a single affliction row.
func (s *Store) WriteSnapshot(row telemetry.AfflictionRow) error {
	return s.WriteSnapshots([]telemetry.AfflictionRow{row})
}

// WriteSnapshots stores affliction rows in one transaction.
func (s *Store) WriteSnapshots(rows []telemetry.AfflictionRow) error {
	return s.insert(`INSERT OR REPLACE INTO affliction_snapshots
		(run_id, zone_id, plant_id, kind, affliction_id, agent_id, tick, level, harm,
		 detected, active_treatments, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, len(rows), func(i int) []any {
		r := rows[i]
		detected := 0
		if r.Detected {
			detected = 1
		}
		return []any{r.RunID, r.ZoneID, r.PlantID, r.Kind, r.AfflictionID, r.AgentID,
			r.Tick, r.Level, r.Harm, detected, r.ActiveTreatments, r.Timestamp.UnixMilli()}
	})
}

func (s *Store) insert(query string, n int, args func(int) []any) error {
	if n == 0 {
		return nil
	}
	tx, err := s.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := 0; i < n; i++ {
		if _, err := stmt.Exec(args(i)...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// EventFilter narrows an event query. Empty fields match everything.
type EventFilter struct {
	RunID  string
	Type   string
	ZoneID string
	Limit  int
}

// Events returns stored events in insertion order.
func (s *Store) Events(ctx context.Context, f EventFilter) ([]telemetry.EventRow, error) {
	var where []string
	var args []any
	if f.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, f.RunID)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}
	if f.ZoneID != "" {
		where = append(where, "zone_id = ?")
		args = append(args, f.ZoneID)
	}
	q := "SELECT id, run_id, type, zone_id, tick, payload, ts FROM health_events"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	var recs []eventRecord
	if err := s.conn.SelectContext(ctx, &recs, q, args...); err != nil {
		return nil, err
	}
	out := make([]telemetry.EventRow, len(recs))
	for i, r := range recs {
		out[i] = r.row()
	}
	return out, nil
}

// ZoneHistory returns the stored zone rows of a run, ordered by tick.
func (s *Store) ZoneHistory(ctx context.Context, runID, zoneID string) ([]telemetry.ZoneRow, error) {
	var recs []zoneRecord
	err := s.conn.SelectContext(ctx, &recs, `SELECT run_id, zone_id, tick, plants, diseases, pests,
		pending_treatments, applied_treatments, reentry_until, pre_harvest_until, ts
		FROM zone_snapshots WHERE run_id = ? AND zone_id = ? ORDER BY tick`, runID, zoneID)
	if err != nil {
		return nil, err
	}
	out := make([]telemetry.ZoneRow, len(recs))
	for i, r := range recs {
		out[i] = r.row()
	}
	return out, nil
}

// RunSummary aggregates what was stored for one run.
type RunSummary struct {
	RunID     string `db:"run_id"`
	FirstTick int64  `db:"first_tick"`
	LastTick  int64  `db:"last_tick"`
	Events    int    `db:"events"`
}

// Runs lists the runs that have stored events, most recent first.
func (s *Store) Runs(ctx context.Context) ([]RunSummary, error) {
	var out []RunSummary
	err := s.conn.SelectContext(ctx, &out, `SELECT run_id, MIN(tick) AS first_tick, MAX(tick) AS last_tick,
		COUNT(*) AS events FROM health_events GROUP BY run_id ORDER BY MAX(id) DESC`)
	return out, err
}
