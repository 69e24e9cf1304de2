package sim

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"planthealth-sim/internal/telemetry"
)

// jsonlFile is one JSONL output, optionally zstd compressed.
type jsonlFile struct {
	file *os.File
	zw   *zstd.Encoder
	enc  *json.Encoder
}

func createJSONL(path string) (*jsonlFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	out := &jsonlFile{file: f}
	var w io.Writer = f
	if strings.HasSuffix(path, ".zst") {
		zw, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		out.zw = zw
		w = zw
	}
	out.enc = json.NewEncoder(w)
	return out, nil
}

func (j *jsonlFile) Close() error {
	if j == nil {
		return nil
	}
	var err error
	if j.zw != nil {
		err = j.zw.Close()
	}
	if e := j.file.Close(); e != nil && err == nil {
		err = e
	}
	return err
}

// FileWriter writes events, zone summaries and affliction snapshots to JSONL
// files. Paths ending in .zst are zstd compressed.
type FileWriter struct {
	events    *jsonlFile
	zones     *jsonlFile
	snapshots *jsonlFile
}

// NewFileWriter creates a FileWriter. zonePath or snapshotPath may be empty to skip those logs.
func NewFileWriter(eventPath, zonePath, snapshotPath string) (*FileWriter, error) {
	ef, err := createJSONL(eventPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{events: ef}
	if zonePath != "" {
		if fw.zones, err = createJSONL(zonePath); err != nil {
			fw.Close()
			return nil, err
		}
	}
	if snapshotPath != "" {
		if fw.snapshots, err = createJSONL(snapshotPath); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return fw, nil
}

// WriteEvent logs a single event row.
func (f *FileWriter) WriteEvent(row telemetry.EventRow) error {
	return f.events.enc.Encode(row)
}

// WriteEvents logs multiple event rows.
func (f *FileWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, r := range rows {
		if err := f.WriteEvent(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteZone logs a zone row, if enabled.
func (f *FileWriter) WriteZone(row telemetry.ZoneRow) error {
	if f.zones == nil {
		return nil
	}
	return f.zones.enc.Encode(row)
}

// WriteZones logs multiple zone rows.
func (f *FileWriter) WriteZones(rows []telemetry.ZoneRow) error {
	for _, r := range rows {
		if err := f.WriteZone(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteSnapshot logs an affliction row, if enabled.
func (f *FileWriter) WriteSnapshot(row telemetry.AfflictionRow) error {
	if f.snapshots == nil {
		return nil
	}
	return f.snapshots.enc.Encode(row)
}

// WriteSnapshots logs multiple affliction rows.
func (f *FileWriter) WriteSnapshots(rows []telemetry.AfflictionRow) error {
	for _, r := range rows {
		if err := f.WriteSnapshot(r); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes compressed streams and closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	for _, j := range []*jsonlFile{f.events, f.zones, f.snapshots} {
		if e := j.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
