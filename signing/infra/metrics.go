package infra

import (
	"context"

	"csr-gateway/signing/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics expõe os desfechos como métricas Prometheus num registry próprio.
type Metrics struct {
	Registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "csrgw",
			Name:      "sign_requests_total",
			Help:      "Signing requests by purpose and outcome",
		}, []string{"purpose", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "csrgw",
			Name:      "signer_duration_seconds",
			Help:      "Time spent waiting for the external signer",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"purpose"}),
	}
	m.Registry.MustRegister(m.requests, m.duration)
	return m
}

func (m *Metrics) Record(_ context.Context, ev domain.StatsEvent) error {
	purpose := ev.Purpose
	if purpose == "" {
		purpose = "none"
	}
	m.requests.With(prometheus.Labels{"purpose": purpose, "outcome": string(ev.Outcome)}).Inc()
	if ev.Elapsed > 0 {
		m.duration.With(prometheus.Labels{"purpose": purpose}).Observe(ev.Elapsed.Seconds())
	}
	return nil
}
