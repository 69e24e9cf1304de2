// Package admin serves an HTTP control surface over a running simulator.
package admin

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"planthealth-sim/internal/health"
	"planthealth-sim/internal/sim"
	"planthealth-sim/internal/state"
)

//go:embed templates/index.html schemas/treatment.schema.json
var content embed.FS

const (
	treatmentSchemaURL = "treatment.schema.json"
	maxBodyBytes       = 64 * 1024
)

// Server exposes zone health, treatment scheduling, metrics and a live event stream.
type Server struct {
	Sim     *sim.Simulator
	Hub     *Hub
	metrics http.Handler
	tpl     *template.Template
	schema  *jsonschema.Schema
	log     *slog.Logger
}

// NewServer builds a server for s. metrics may be nil.
func NewServer(s *sim.Simulator, metrics http.Handler, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	tpl, err := template.New("index.html").ParseFS(content, "templates/index.html")
	if err != nil {
		return nil, err
	}
	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}
	return &Server{
		Sim:     s,
		Hub:     NewHub(log),
		metrics: metrics,
		tpl:     tpl,
		schema:  schema,
		log:     log,
	}, nil
}

func compileSchema() (*jsonschema.Schema, error) {
	data, err := content.ReadFile("schemas/treatment.schema.json")
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(treatmentSchemaURL, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return c.Compile(treatmentSchemaURL)
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/zones", s.handleZones)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/treatments", s.handleTreatments)
	mux.Handle("/ws/events", s.Hub)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("admin server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	s.Hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ZoneSummary is the per-zone line of the overview page.
type ZoneSummary struct {
	ID              string
	Name            string
	Plants          int
	Diseases        int
	Pests           int
	Pending         int
	Applied         int
	Detected        int
	ReentryUntil    *int64
	PreHarvestUntil *int64
}

func summarize(zones []*state.Zone) []ZoneSummary {
	out := make([]ZoneSummary, 0, len(zones))
	for _, z := range zones {
		zs := ZoneSummary{ID: z.ID, Name: z.Name, Plants: len(z.Plants)}
		if zh := z.Health; zh != nil {
			zs.Pending = len(zh.PendingTreatments)
			zs.Applied = len(zh.AppliedTreatments)
			zs.ReentryUntil = zh.ReentryRestrictedUntilTick
			zs.PreHarvestUntil = zh.PreHarvestRestrictedUntilTick
			for _, ph := range zh.PlantHealth {
				zs.Diseases += len(ph.Diseases)
				zs.Pests += len(ph.Pests)
				for _, d := range ph.Diseases {
					if d.Detected {
						zs.Detected++
					}
				}
				for _, p := range ph.Pests {
					if p.Detected {
						zs.Detected++
					}
				}
			}
		}
		out = append(out, zs)
	}
	return out
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	zones, err := s.Sim.ZoneSnapshot()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	catalog := s.Sim.Catalog()
	options := make([]health.TreatmentOption, 0, len(catalog))
	for _, o := range catalog {
		options = append(options, o)
	}
	sort.Slice(options, func(i, j int) bool { return options[i].ID < options[j].ID })

	data := struct {
		RunID   string
		Tick    int64
		Phase   string
		Zones   []ZoneSummary
		Options []health.TreatmentOption
		Events  int
	}{
		RunID:   s.Sim.RunID(),
		Tick:    s.Sim.Tick(),
		Phase:   s.Sim.ScenarioPhase(),
		Zones:   summarize(zones),
		Options: options,
		Events:  len(s.Sim.RecentEvents()),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, data); err != nil {
		s.log.Error("render index", "err", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	zones, err := s.Sim.ZoneSnapshot()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tick": s.Sim.Tick(), "zones": zones})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.Sim.RecentEvents())
}

// TreatmentRequest is the body of POST /treatments.
type TreatmentRequest struct {
	ZoneID                  string             `json:"zoneId"`
	OptionID                string             `json:"optionId"`
	Target                  state.HealthTarget `json:"target"`
	PlantIDs                []string           `json:"plantIds,omitempty"`
	DiseaseIDs              []string           `json:"diseaseIds,omitempty"`
	PestIDs                 []string           `json:"pestIds,omitempty"`
	DelayTicks              int64              `json:"delayTicks,omitempty"`
	ReentryIntervalTicks    *int64             `json:"reentryIntervalTicks,omitempty"`
	PreHarvestIntervalTicks *int64             `json:"preHarvestIntervalTicks,omitempty"`
}

func (s *Server) handleTreatments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if err := s.schema.Validate(doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	var req TreatmentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	scheduled := s.Sim.Tick() + req.DelayTicks
	err = s.Sim.ScheduleTreatment(req.ZoneID, state.PendingTreatmentApplication{
		OptionID:                req.OptionID,
		Target:                  req.Target,
		PlantIDs:                req.PlantIDs,
		ScheduledTick:           scheduled,
		DiseaseIDs:              req.DiseaseIDs,
		PestIDs:                 req.PestIDs,
		ReentryIntervalTicks:    req.ReentryIntervalTicks,
		PreHarvestIntervalTicks: req.PreHarvestIntervalTicks,
	})
	switch {
	case errors.Is(err, sim.ErrUnknownZone), errors.Is(err, sim.ErrUnknownPlant), errors.Is(err, sim.ErrUnknownOption):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, sim.ErrUnsupported):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.log.Info("treatment scheduled", "zone_id", req.ZoneID, "option_id", req.OptionID, "target", req.Target, "tick", scheduled)
	writeJSON(w, http.StatusAccepted, map[string]any{"zoneId": req.ZoneID, "optionId": req.OptionID, "scheduledTick": scheduled})
}
