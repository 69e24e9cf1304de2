// Package metrics exposes simulation output as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"planthealth-sim/internal/telemetry"
)

const namespace = "planthealth"

// Recorder implements the simulator's event and zone writers on top of its
// own Prometheus registry.
type Recorder struct {
	registry   *prometheus.Registry
	events     *prometheus.CounterVec
	tick       prometheus.Gauge
	diseases   *prometheus.GaugeVec
	pests      *prometheus.GaugeVec
	pending    *prometheus.GaugeVec
	applied    *prometheus.GaugeVec
	reentry    *prometheus.GaugeVec
	preHarvest *prometheus.GaugeVec
}

// NewRecorder registers the simulation metrics plus the Go runtime collectors.
func NewRecorder() *Recorder {
	zone := []string{"zone_id"}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_total",
			Help: "Engine events by type and zone.",
		}, []string{"type", "zone_id"}),
		tick: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "tick",
			Help: "Last simulated tick.",
		}),
		diseases: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "zone_diseases",
			Help: "Disease records in the zone.",
		}, zone),
		pests: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "zone_pests",
			Help: "Pest records in the zone.",
		}, zone),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "zone_pending_treatments",
			Help: "Queued treatment applications.",
		}, zone),
		applied: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "zone_applied_treatments",
			Help: "Applied treatment records.",
		}, zone),
		reentry: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "zone_reentry_restricted_until_tick",
			Help: "Tick until which the zone may not be entered, -1 when unrestricted.",
		}, zone),
		preHarvest: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "zone_pre_harvest_restricted_until_tick",
			Help: "Tick until which the zone may not be harvested, -1 when unrestricted.",
		}, zone),
	}
	r.registry.MustRegister(
		r.events, r.tick, r.diseases, r.pests, r.pending, r.applied, r.reentry, r.preHarvest,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the registry the recorder writes to.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// WriteEvent counts an engine event.
func (r *Recorder) WriteEvent(row telemetry.EventRow) error {
	r.events.WithLabelValues(row.Type, row.ZoneID).Inc()
	return nil
}

// WriteZone updates the zone gauges.
func (r *Recorder) WriteZone(row telemetry.ZoneRow) error {
	r.tick.Set(float64(row.Tick))
	r.diseases.WithLabelValues(row.ZoneID).Set(float64(row.Diseases))
	r.pests.WithLabelValues(row.ZoneID).Set(float64(row.Pests))
	r.pending.WithLabelValues(row.ZoneID).Set(float64(row.PendingTreatments))
	r.applied.WithLabelValues(row.ZoneID).Set(float64(row.AppliedTreatments))
	r.reentry.WithLabelValues(row.ZoneID).Set(float64(row.ReentryRestrictedUntilTick))
	r.preHarvest.WithLabelValues(row.ZoneID).Set(float64(row.PreHarvestRestrictedUntilTick))
	return nil
}
