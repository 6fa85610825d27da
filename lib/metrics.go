package lib

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

/* This file implements dev-ops telemetry for the sortition engine in the form of prometheus metrics */

const metricsPattern = "/metrics"

// Metrics represents a server that exposes Prometheus metrics
// All methods are safe to call on a nil *Metrics
type Metrics struct {
	server   *http.Server         // the http prometheus server
	config   MetricsConfig        // the configuration
	registry *prometheus.Registry // the private registry so multiple instances can coexist
	log      LoggerI              // the logger

	VDFMetrics        // prover telemetry
	ValidationMetrics // validator telemetry
	ParamsMetrics     // parameter adjustment telemetry
}

// VDFMetrics represents the telemetry of the VDF prover
type VDFMetrics struct {
	ProveTime      prometheus.Histogram // how long does a completed proof take?
	ProvesSolved   prometheus.Counter   // how many proofs completed?
	ProvesCanceled prometheus.Counter   // how many proofs were abandoned?
	ActiveProves   prometheus.Gauge     // how many proofs are running right now?
}

// ValidationMetrics represents the telemetry of the validation pipeline
type ValidationMetrics struct {
	Verdicts       *prometheus.CounterVec // validations by outcome
	ValidationTime prometheus.Histogram   // how long does a full validation take?
}

// ParamsMetrics represents the telemetry of the sortition parameters
type ParamsMetrics struct {
	ThresholdUpper prometheus.Gauge // the threshold upper in effect
	DagEfficiency  prometheus.Gauge // the latest efficiency sample in basis points
}

// NewMetricsServer() creates a new telemetry server
func NewMetricsServer(config MetricsConfig, log LoggerI) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	mux := http.NewServeMux()
	mux.Handle(metricsPattern, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return &Metrics{
		server:   &http.Server{Addr: config.PrometheusAddress, Handler: mux},
		config:   config,
		registry: registry,
		log:      log,
		VDFMetrics: VDFMetrics{
			ProveTime: factory.NewHistogram(prometheus.HistogramOpts{
				Name:    "sortition_vdf_prove_time",
				Help:    "Time to solve a VDF puzzle in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
			}),
			ProvesSolved: factory.NewCounter(prometheus.CounterOpts{
				Name: "sortition_vdf_proves_solved",
				Help: "Total number of solved VDF puzzles",
			}),
			ProvesCanceled: factory.NewCounter(prometheus.CounterOpts{
				Name: "sortition_vdf_proves_cancelled",
				Help: "Total number of cancelled VDF proofs",
			}),
			ActiveProves: factory.NewGauge(prometheus.GaugeOpts{
				Name: "sortition_vdf_active_proves",
				Help: "Number of VDF proofs currently running",
			}),
		},
		ValidationMetrics: ValidationMetrics{
			Verdicts: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "sortition_validation_verdicts",
				Help: "Number of sortition validations by verdict",
			}, []string{"verdict"}),
			ValidationTime: factory.NewHistogram(prometheus.HistogramOpts{
				Name: "sortition_validation_time",
				Help: "Time to validate a sortition in seconds",
			}),
		},
		ParamsMetrics: ParamsMetrics{
			ThresholdUpper: factory.NewGauge(prometheus.GaugeOpts{
				Name: "sortition_threshold_upper",
				Help: "The VRF threshold upper currently in effect",
			}),
			DagEfficiency: factory.NewGauge(prometheus.GaugeOpts{
				Name: "sortition_dag_efficiency",
				Help: "The latest DAG efficiency sample in basis points",
			}),
		},
	}
}

// Registry() exposes the private registry for gathering
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Start() starts the telemetry server
func (m *Metrics) Start() {
	if m == nil || !m.config.Enabled {
		return
	}
	go func() {
		m.log.Infof("Starting metrics server on %s", m.config.PrometheusAddress)
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.log.Errorf("Metrics server failed with err: %s", err.Error())
		}
	}()
}

// Stop() gracefully stops the telemetry server
func (m *Metrics) Stop() {
	if m == nil || !m.config.Enabled {
		return
	}
	if err := m.server.Shutdown(context.Background()); err != nil {
		m.log.Error(err.Error())
	}
}

// ProveStarted() marks the beginning of a proof
func (m *Metrics) ProveStarted() {
	if m == nil {
		return
	}
	m.ActiveProves.Inc()
}

// ProveFinished() records the end of a proof
func (m *Metrics) ProveFinished(cancelled bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.ActiveProves.Dec()
	if cancelled {
		m.ProvesCanceled.Inc()
		return
	}
	m.ProvesSolved.Inc()
	m.ProveTime.Observe(duration.Seconds())
}

// ProveFailed() records a proof that ended in a hard error
func (m *Metrics) ProveFailed() {
	if m == nil {
		return
	}
	m.ActiveProves.Dec()
}

// UpdateValidation() records a validation verdict
func (m *Metrics) UpdateValidation(verdict string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Verdicts.WithLabelValues(verdict).Inc()
	m.ValidationTime.Observe(duration.Seconds())
}

// UpdateParams() records the threshold upper in effect
func (m *Metrics) UpdateParams(thresholdUpper uint16) {
	if m == nil {
		return
	}
	m.ThresholdUpper.Set(float64(thresholdUpper))
}

// UpdateEfficiency() records the latest efficiency sample
func (m *Metrics) UpdateEfficiency(efficiency uint16) {
	if m == nil {
		return
	}
	m.DagEfficiency.Set(float64(efficiency))
}
