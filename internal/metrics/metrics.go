// Package metrics exposes the service's Prometheus collectors. All
// collectors live on a private registry so tests can construct
// isolated instances.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	ChecksTotal        *prometheus.CounterVec
	ProbeLatency       *prometheus.HistogramVec
	TransitionsTotal   *prometheus.CounterVec
	FlapsSuppressed    prometheus.Counter
	VerificationsTotal *prometheus.CounterVec
	VerificationQueue  prometheus.Gauge
	EventPublishErrors prometheus.Counter
	NotificationsTotal *prometheus.CounterVec
	OngoingIncidents   prometheus.Gauge
	MonitorsActive     prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ChecksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_checks_total",
			Help: "Probe evaluations by protocol and confirmed state.",
		}, []string{"protocol", "state"}),
		ProbeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vigil_probe_latency_seconds",
			Help:    "Probe round-trip time by protocol.",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"protocol"}),
		TransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_state_transitions_total",
			Help: "Confirmed health-state transitions by edge.",
		}, []string{"from", "to"}),
		FlapsSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Name: "vigil_flaps_suppressed_total",
			Help: "Proposals forced to degraded by flap suppression.",
		}),
		VerificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_verifications_total",
			Help: "Verification runs by conclusion (cache hits excluded).",
		}, []string{"conclusion"}),
		VerificationQueue: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vigil_verification_queue_depth",
			Help: "Verification tasks waiting for a slot.",
		}),
		EventPublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "vigil_event_publish_errors_total",
			Help: "Transition events that fell back to the in-process hub.",
		}),
		NotificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_notifications_total",
			Help: "Notification attempts by result (sent, suppressed, failed).",
		}, []string{"result"}),
		OngoingIncidents: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vigil_ongoing_incidents",
			Help: "Incidents currently open.",
		}),
		MonitorsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vigil_monitors_active",
			Help: "Monitors currently scheduled.",
		}),
	}
}

// ObserveCheck records one finished evaluation.
func (m *Metrics) ObserveCheck(protocol, state string, latencyMs int64) {
	m.ChecksTotal.WithLabelValues(protocol, state).Inc()
	m.ProbeLatency.WithLabelValues(protocol).Observe(float64(latencyMs) / 1000)
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
