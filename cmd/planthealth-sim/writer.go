package main

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"planthealth-sim/internal/config"
	"planthealth-sim/internal/persistence"
	"planthealth-sim/internal/sim"
)

// writerOptions mirrors the output flags shared by simulate and replay.
type writerOptions struct {
	printOnly bool
	tui       bool
	logFile   string
	dbPath    string
}

// outputs bundles the writers of one run. multi fans rows out to all of them.
type outputs struct {
	multi   *sim.MultiWriter
	base    any
	store   *persistence.Store
	tui     *sim.TUIWriter
	closers []func() error
}

// Close releases files, the database and the TUI.
func (o *outputs) Close() error {
	var errs []error
	for i := len(o.closers) - 1; i >= 0; i-- {
		errs = append(errs, o.closers[i]())
	}
	o.closers = nil
	return errors.Join(errs...)
}

// newWriters sets up writers based on flags and env vars. The log file gets
// .zones and .snapshots siblings, keeping a trailing .zst on each.
func newWriters(cfg *config.SimulationConfig, opts writerOptions, log *slog.Logger) (*outputs, error) {
	out := &outputs{}
	base, err := baseWriter(cfg, opts, log)
	if err != nil {
		return nil, err
	}
	out.base = base
	if tw, ok := base.(*sim.TUIWriter); ok {
		out.tui = tw
		out.closers = append(out.closers, tw.Close)
	}
	writers := []any{base}

	if opts.logFile != "" {
		fw, err := sim.NewFileWriter(opts.logFile, siblingPath(opts.logFile, "zones"), siblingPath(opts.logFile, "snapshots"))
		if err != nil {
			out.Close()
			return nil, err
		}
		out.closers = append(out.closers, fw.Close)
		writers = append(writers, fw)
	}
	if opts.dbPath != "" {
		store, err := persistence.Open(opts.dbPath)
		if err != nil {
			out.Close()
			return nil, err
		}
		out.store = store
		out.closers = append(out.closers, store.Close)
		writers = append(writers, store)
	}
	out.multi = sim.NewMultiWriter(writers...)
	return out, nil
}

// baseWriter chooses the primary sink: the TUI, STDOUT or GreptimeDB.
func baseWriter(cfg *config.SimulationConfig, opts writerOptions, log *slog.Logger) (any, error) {
	if opts.tui {
		return sim.NewTUIWriter(cfg), nil
	}
	endpoint := os.Getenv("GREPTIMEDB_ENDPOINT")
	if opts.printOnly || endpoint == "" {
		return stdoutWriter(cfg), nil
	}
	database := os.Getenv("GREPTIMEDB_DATABASE")
	if database == "" {
		database = "public"
	}
	return sim.NewGreptimeDBWriter(endpoint, database, log)
}

// stdoutWriter prints colored output to terminals and JSON lines otherwise.
func stdoutWriter(cfg *config.SimulationConfig) any {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return sim.NewColorStdoutWriter(cfg)
	}
	return sim.NewJSONStdoutWriter()
}

// siblingPath derives "events.jsonl.zones" from "events.jsonl" and
// "events.jsonl.zones.zst" from "events.jsonl.zst".
func siblingPath(path, suffix string) string {
	if strings.HasSuffix(path, ".zst") {
		return strings.TrimSuffix(path, ".zst") + "." + suffix + ".zst"
	}
	return path + "." + suffix
}
