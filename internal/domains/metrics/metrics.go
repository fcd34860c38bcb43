package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the domains module.
type Metrics struct {
	// Registrar call latencies by registrar and operation
	RegistrarLatency *prometheus.HistogramVec

	// Purchase outcomes by registrar and result
	PurchaseOutcome *prometheus.CounterVec

	// Search fan-out latency across all registrars
	SearchLatency prometheus.Histogram

	// DNS configuration outcomes by status
	DNSConfigureOutcome *prometheus.CounterVec

	// Health check scores by resulting status
	HealthScore *prometheus.HistogramVec

	// Circuit breaker state by registrar (0 closed, 1 open, 2 half-open)
	BreakerState *prometheus.GaugeVec
}

// New creates a new Metrics instance with all domains module metrics registered.
func New() *Metrics {
	return &Metrics{
		RegistrarLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coldforge_registrar_request_duration_seconds",
			Help:    "Duration of registrar API calls by registrar and operation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"registrar", "operation"}), // operation: "check", "purchase", "dns"

		PurchaseOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "coldforge_domain_purchases_total",
			Help: "Total domain purchase outcomes by registrar and result",
		}, []string{"registrar", "result"}), // result: "success", "failed", "conflict"

		SearchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "coldforge_domain_search_duration_seconds",
			Help:    "Duration of multi-registrar availability searches",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		DNSConfigureOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "coldforge_dns_configurations_total",
			Help: "Total DNS configuration runs by final status",
		}, []string{"status"}), // status: "configured", "partial", "pending"

		HealthScore: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coldforge_domain_health_score",
			Help:    "Deliverability health scores by resulting status",
			Buckets: []float64{0, 10, 25, 50, 65, 80, 90, 100},
		}, []string{"status"}),

		BreakerState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "coldforge_registrar_breaker_state",
			Help: "Circuit breaker state per registrar (0 closed, 1 open, 2 half-open)",
		}, []string{"registrar"}),
	}
}

// ObserveRegistrarLatency records the duration of a registrar API call.
func (m *Metrics) ObserveRegistrarLatency(registrar, operation string, d time.Duration) {
	if m != nil {
		m.RegistrarLatency.WithLabelValues(registrar, operation).Observe(d.Seconds())
	}
}

// IncrementPurchase records a purchase outcome.
func (m *Metrics) IncrementPurchase(registrar, result string) {
	if m != nil {
		m.PurchaseOutcome.WithLabelValues(registrar, result).Inc()
	}
}

// ObserveSearchLatency records the duration of a full search fan-out.
func (m *Metrics) ObserveSearchLatency(d time.Duration) {
	if m != nil {
		m.SearchLatency.Observe(d.Seconds())
	}
}

// IncrementDNSConfigure records the final status of a DNS configuration run.
func (m *Metrics) IncrementDNSConfigure(status string) {
	if m != nil {
		m.DNSConfigureOutcome.WithLabelValues(status).Inc()
	}
}

// ObserveHealthScore records a deliverability score and its derived status.
func (m *Metrics) ObserveHealthScore(status string, score int) {
	if m != nil {
		m.HealthScore.WithLabelValues(status).Observe(float64(score))
	}
}

// SetBreakerState records a circuit breaker state transition for a registrar.
func (m *Metrics) SetBreakerState(registrar string, state float64) {
	if m != nil {
		m.BreakerState.WithLabelValues(registrar).Set(state)
	}
}
