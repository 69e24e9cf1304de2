package sim

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"planthealth-sim/internal/telemetry"
)

const writeTimeout = 10 * time.Second

// greptimeClient is the subset of the ingester client used by the writer.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes health rows to GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	client          greptimeClient
	afflictionTable string
	zoneTable       string
	eventTable      string
	log             *slog.Logger
}

// NewGreptimeDBWriter connects to endpoint (host or host:port) and writes into database.
func NewGreptimeDBWriter(endpoint, database string, log *slog.Logger) (*GreptimeDBWriter, error) {
	host, port := endpoint, 0
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		host = h
		if port, err = strconv.Atoi(p); err != nil {
			return nil, err
		}
	}
	cfg := greptime.NewConfig(host).WithDatabase(database)
	if port > 0 {
		cfg = cfg.WithPort(port)
	}
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &GreptimeDBWriter{
		client:          client,
		afflictionTable: telemetry.AfflictionTableName,
		zoneTable:       telemetry.ZoneTableName,
		eventTable:      telemetry.EventTableName,
		log:             log,
	}, nil
}

type column struct {
	name string
	typ  types.ColumnType
	tag  bool
}

func newTable(name string, cols []column) (*table.Table, error) {
	tbl, err := table.New(name)
	if err != nil {
		return nil, err
	}
	for _, c := range cols {
		if c.tag {
			err = tbl.AddTagColumn(c.name, c.typ)
		} else {
			err = tbl.AddFieldColumn(c.name, c.typ)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	return tbl, nil
}

func (w *GreptimeDBWriter) write(name string, tbl *table.Table, rows int) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if _, err := w.client.Write(ctx, tbl); err != nil {
		w.logger().Error("greptime write failed", "table", name, "err", err)
		return err
	}
	w.logger().Debug("greptime write", "table", name, "rows", rows)
	return nil
}

func (w *GreptimeDBWriter) logger() *slog.Logger {
	if w.log == nil {
		return slog.Default()
	}
	return w.log
}

// WriteSnapshot inserts a single affliction row.
func (w *GreptimeDBWriter) WriteSnapshot(row telemetry.AfflictionRow) error {
	return w.WriteSnapshots([]telemetry.AfflictionRow{row})
}

// WriteSnapshots inserts multiple affliction rows.
func (w *GreptimeDBWriter) WriteSnapshots(rows []telemetry.AfflictionRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := newTable(w.afflictionTable, []column{
		{"run_id", types.STRING, true},
		{"zone_id", types.STRING, true},
		{"plant_id", types.STRING, true},
		{"kind", types.STRING, true},
		{"affliction_id", types.STRING, true},
		{"agent_id", types.STRING, false},
		{"tick", types.INT64, false},
		{"level", types.FLOAT64, false},
		{"harm", types.FLOAT64, false},
		{"detected", types.BOOLEAN, false},
		{"active_treatments", types.INT64, false},
	})
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.RunID, r.ZoneID, r.PlantID, r.Kind, r.AfflictionID,
			r.AgentID, r.Tick, r.Level, r.Harm, r.Detected, int64(r.ActiveTreatments), r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(w.afflictionTable, tbl, len(rows))
}

// WriteZone inserts a single zone row.
func (w *GreptimeDBWriter) WriteZone(row telemetry.ZoneRow) error {
	return w.WriteZones([]telemetry.ZoneRow{row})
}

// WriteZones inserts multiple zone rows.
func (w *GreptimeDBWriter) WriteZones(rows []telemetry.ZoneRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := newTable(w.zoneTable, []column{
		{"run_id", types.STRING, true},
		{"zone_id", types.STRING, true},
		{"tick", types.INT64, false},
		{"plants", types.INT64, false},
		{"diseases", types.INT64, false},
		{"pests", types.INT64, false},
		{"pending_treatments", types.INT64, false},
		{"applied_treatments", types.INT64, false},
		{"reentry_restricted_until_tick", types.INT64, false},
		{"pre_harvest_restricted_until_tick", types.INT64, false},
	})
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.RunID, r.ZoneID, r.Tick, int64(r.Plants), int64(r.Diseases), int64(r.Pests),
			int64(r.PendingTreatments), int64(r.AppliedTreatments),
			r.ReentryRestrictedUntilTick, r.PreHarvestRestrictedUntilTick, r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(w.zoneTable, tbl, len(rows))
}

// WriteEvent inserts a single event row.
func (w *GreptimeDBWriter) WriteEvent(row telemetry.EventRow) error {
	return w.WriteEvents([]telemetry.EventRow{row})
}

// WriteEvents inserts multiple event rows. Payloads are stored as JSON.
func (w *GreptimeDBWriter) WriteEvents(rows []telemetry.EventRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := newTable(w.eventTable, []column{
		{"run_id", types.STRING, true},
		{"type", types.STRING, true},
		{"zone_id", types.STRING, true},
		{"tick", types.INT64, false},
		{"payload", types.JSON, false},
	})
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.RunID, r.Type, r.ZoneID, r.Tick, r.Payload, r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(w.eventTable, tbl, len(rows))
}
