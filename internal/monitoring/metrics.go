package monitoring

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for a run.
type Metrics struct {
	registry *prometheus.Registry

	FetchAttempts *prometheus.CounterVec
	FetchFailures *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	UnitsTotal    *prometheus.CounterVec
	RecordsTotal  *prometheus.CounterVec
	HTTPRequests  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		FetchAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "datadesk_fetch_attempts_total",
			Help: "The total number of fetch attempts",
		}, []string{"outcome"}), // 'success', 'failure'
		FetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "datadesk_fetch_failures_total",
			Help: "Fetches that gave up after exhausting their attempts",
		}, []string{"reason"}),
		FetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "datadesk_fetch_duration_seconds",
			Help:    "Duration of single fetch attempts.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"outcome"}),
		UnitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "datadesk_units_total",
			Help: "Units of work processed, by outcome",
		}, []string{"dataset", "outcome"}), // 'succeeded', 'skipped', 'failed'
		RecordsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "datadesk_records_total",
			Help: "Records appended to the run's record set",
		}, []string{"dataset"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "datadesk_status_requests_total",
			Help: "Requests served by the status server",
		}, []string{"route", "code"}),
	}
}

// Handler exposes the run's registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncFetchAttempt(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.FetchAttempts.WithLabelValues(outcome).Inc()
	m.FetchDuration.WithLabelValues(outcome).Observe(seconds)
}

func (m *Metrics) IncFetchFailure(reason string) {
	if m == nil {
		return
	}
	m.FetchFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncUnit(dataset, outcome string) {
	if m == nil {
		return
	}
	m.UnitsTotal.WithLabelValues(dataset, outcome).Inc()
}

func (m *Metrics) AddRecords(dataset string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RecordsTotal.WithLabelValues(dataset).Add(float64(n))
}

func (m *Metrics) IncHTTPRequest(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
