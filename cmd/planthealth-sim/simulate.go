package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"planthealth-sim/internal/admin"
	"planthealth-sim/internal/config"
	"planthealth-sim/internal/logging"
	"planthealth-sim/internal/metrics"
	"planthealth-sim/internal/scenario"
	"planthealth-sim/internal/sim"
	"planthealth-sim/internal/state"
)

var (
	simPrintOnly     bool
	simConfigPath    string
	simSchemaPath    string
	simTick          time.Duration
	simTicks         int64
	simLogFile       string
	simDBPath        string
	simAdminAddr     string
	simTUI           bool
	simScenario      string
	simSnapshotEvery int64
	simFast          bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the plant health simulator",
	Long:  "simulate advances the disease and pest engine tick by tick and streams events and zone snapshots to the configured outputs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		log := logging.FromContext(ctx)

		cfg, err := config.Load(simConfigPath, simSchemaPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("tick") {
			cfg.Simulation.TickInterval = simTick
		}
		if cmd.Flags().Changed("ticks") {
			cfg.Simulation.Ticks = simTicks
		}
		if simScenario != "" {
			cfg.Scenario = simScenario
		}
		var sc *scenario.Scenario
		if cfg.Scenario != "" {
			if sc, err = scenario.Resolve(cfg.Scenario); err != nil {
				return err
			}
			if err := sc.CheckWorld(cfg); err != nil {
				return err
			}
		}

		out, err := newWriters(cfg, writerOptions{
			printOnly: simPrintOnly,
			tui:       simTUI,
			logFile:   simLogFile,
			dbPath:    simDBPath,
		}, log)
		if err != nil {
			return err
		}
		defer out.Close()
		if out.tui != nil {
			// The alt screen owns the terminal.
			log = slog.New(slog.NewTextHandler(io.Discard, nil))
			ctx = logging.NewContext(ctx, log)
		}

		var recorder *metrics.Recorder
		if simAdminAddr != "" {
			recorder = metrics.NewRecorder()
			out.multi.Add(recorder)
		}

		simulator, err := sim.NewSimulator(cfg, sim.Options{
			Events:        out.multi,
			Snapshots:     out.multi,
			Zones:         out.multi,
			Scenario:      sc,
			Logger:        log,
			SnapshotEvery: simSnapshotEvery,
		})
		if err != nil {
			return err
		}

		if simAdminAddr != "" {
			srv, err := admin.NewServer(simulator, recorder.Handler(), log)
			if err != nil {
				return err
			}
			out.multi.Add(srv.Hub)
			go func() {
				if err := srv.Start(ctx, simAdminAddr); err != nil {
					log.Error("admin server failed", "err", err)
				}
			}()
			if out.tui != nil {
				out.tui.SetAdminStatus(true)
			}
		}
		if out.tui != nil {
			out.tui.SetScheduler(tuiScheduler(simulator))
		}

		log.Info("simulation started", "run_id", simulator.RunID(), "scenario", cfg.Scenario, "ticks", cfg.Simulation.Ticks)
		if simFast {
			return runFast(ctx, simulator, cfg.Simulation.Ticks)
		}
		simulator.Run(ctx)
		log.Info("simulation stopped", "run_id", simulator.RunID(), "tick", simulator.Tick())
		return nil
	},
}

// tuiScheduler queues dialog submissions for the next tick on every plant of the zone.
func tuiScheduler(s *sim.Simulator) sim.Scheduler {
	return func(zoneID, optionID string, target state.HealthTarget) error {
		return s.ScheduleTreatment(zoneID, state.PendingTreatmentApplication{
			OptionID:      optionID,
			Target:        target,
			ScheduledTick: s.Tick(),
		})
	}
}

// runFast advances ticks without wall-clock pacing and logs the final digest.
func runFast(ctx context.Context, s *sim.Simulator, ticks int64) error {
	log := logging.FromContext(ctx)
	if ticks <= 0 {
		ticks = 1
		log.Warn("fast mode needs a tick count, running a single tick")
	}
	start := time.Now()
	if err := s.RunTicks(ctx, ticks); err != nil {
		return err
	}
	digest, err := s.Digest()
	if err != nil {
		return err
	}
	log.Info("simulation finished", "run_id", s.RunID(), "ticks", s.Tick(), "digest", digest, "elapsed", time.Since(start))
	return nil
}

func init() {
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print output to STDOUT instead of writing to GreptimeDB")
	simulateCmd.Flags().StringVar(&simConfigPath, "config", "config/simulation.yaml", "Path to simulation configuration YAML")
	simulateCmd.Flags().StringVar(&simSchemaPath, "schema", "schemas/simulation.cue", "Path to CUE schema file")
	simulateCmd.Flags().DurationVar(&simTick, "tick", time.Second, "Wall-clock interval between ticks (e.g. 500ms, 2s)")
	simulateCmd.Flags().Int64Var(&simTicks, "ticks", 0, "Number of ticks to simulate (0 runs until stopped)")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Path to export events as JSONL (.zst compresses)")
	simulateCmd.Flags().StringVar(&simDBPath, "db", "", "Path to a SQLite database storing events and snapshots")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin", "127.0.0.1:8080", "Admin UI listen address (empty disables it)")
	simulateCmd.Flags().BoolVar(&simTUI, "tui", false, "Render a terminal UI instead of plain output")
	simulateCmd.Flags().StringVar(&simScenario, "scenario", "", "Built-in scenario name or scenario file, overriding the config")
	simulateCmd.Flags().Int64Var(&simSnapshotEvery, "snapshot-every", 1, "Write snapshots every n ticks")
	simulateCmd.Flags().BoolVar(&simFast, "fast", false, "Run the configured ticks without pacing and log the state digest")
}
