package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"planthealth-sim/internal/telemetry"
)

// JSONStdoutWriter prints events, zone summaries and affliction rows as JSON to STDOUT.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

func (w *JSONStdoutWriter) print(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// WriteEvent outputs an event row in JSON format.
func (w *JSONStdoutWriter) WriteEvent(row telemetry.EventRow) error { return w.print(row) }

// WriteEvents outputs multiple event rows in JSON format.
func (w *JSONStdoutWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, r := range rows {
		if err := w.print(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteZone outputs a zone row in JSON format.
func (w *JSONStdoutWriter) WriteZone(row telemetry.ZoneRow) error { return w.print(row) }

// WriteZones outputs multiple zone rows in JSON format.
func (w *JSONStdoutWriter) WriteZones(rows []telemetry.ZoneRow) error {
	for _, r := range rows {
		if err := w.print(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteSnapshot outputs an affliction row in JSON format.
func (w *JSONStdoutWriter) WriteSnapshot(row telemetry.AfflictionRow) error { return w.print(row) }

// WriteSnapshots outputs multiple affliction rows in JSON format.
func (w *JSONStdoutWriter) WriteSnapshots(rows []telemetry.AfflictionRow) error {
	for _, r := range rows {
		if err := w.print(r); err != nil {
			return err
		}
	}
	return nil
}
