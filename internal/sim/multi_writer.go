package sim

import "planthealth-sim/internal/telemetry"

// MultiWriter fans rows out to multiple writers. Each writer only receives the
// row kinds it implements.
type MultiWriter struct {
	eventWriters    []EventWriter
	snapshotWriters []SnapshotWriter
	zoneWriters     []ZoneWriter
}

// NewMultiWriter sorts writers by the interfaces they implement. Nil entries
// are ignored.
func NewMultiWriter(writers ...any) *MultiWriter {
	mw := &MultiWriter{}
	mw.Add(writers...)
	return mw
}

// Add registers more writers. It must not race with writes, so call it
// before the simulator starts.
func (mw *MultiWriter) Add(writers ...any) {
	for _, w := range writers {
		if w == nil {
			continue
		}
		if ew, ok := w.(EventWriter); ok {
			mw.eventWriters = append(mw.eventWriters, ew)
		}
		if sw, ok := w.(SnapshotWriter); ok {
			mw.snapshotWriters = append(mw.snapshotWriters, sw)
		}
		if zw, ok := w.(ZoneWriter); ok {
			mw.zoneWriters = append(mw.zoneWriters, zw)
		}
	}
}

// WriteEvent sends an event row to all event writers.
func (mw *MultiWriter) WriteEvent(row telemetry.EventRow) error {
	for _, w := range mw.eventWriters {
		if err := w.WriteEvent(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvents sends multiple event rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, w := range mw.eventWriters {
		if err := writeEvents(w, rows); err != nil {
			return err
		}
	}
	return nil
}

// WriteSnapshot sends an affliction row to all snapshot writers.
func (mw *MultiWriter) WriteSnapshot(row telemetry.AfflictionRow) error {
	for _, w := range mw.snapshotWriters {
		if err := w.WriteSnapshot(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteSnapshots sends multiple affliction rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteSnapshots(rows []telemetry.AfflictionRow) error {
	for _, w := range mw.snapshotWriters {
		if err := writeSnapshots(w, rows); err != nil {
			return err
		}
	}
	return nil
}

// WriteZone sends a zone row to all zone writers.
func (mw *MultiWriter) WriteZone(row telemetry.ZoneRow) error {
	for _, w := range mw.zoneWriters {
		if err := w.WriteZone(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteZones sends multiple zone rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteZones(rows []telemetry.ZoneRow) error {
	for _, w := range mw.zoneWriters {
		if err := writeZones(w, rows); err != nil {
			return err
		}
	}
	return nil
}
