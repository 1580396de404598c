package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var HistogramBuckets = []float64{
	// --- Fast responses (0 - 500ms) ---
	25, 50, 75, 100, 150, 200, 300, 400, 500,

	// --- Medium responses (500ms - 2s) ---
	750, 1000, 1250, 1500, 1750, 2000,

	// --- Slow responses (2s - 15s), covers verification retries ---
	2500, 3000, 4000, 5000, 7500, 10000, 15000,

	// --- Extended range: the full resolve budget ---
	20000, 30000,
}

// Metric is a definition for the name, description, type, ID, and
// prometheus.Collector type (i.e. CounterVec, Summary, etc) of each metric
type Metric struct {
	MetricCollector prometheus.Collector
	ID              string
	Name            string
	Description     string
	Type            string
	Args            []string
}

// NewMetric associates prometheus.Collector based on Metric.Type
func NewMetric(m *Metric, subsystem string) prometheus.Collector {
	var metric prometheus.Collector
	switch m.Type {
	case "counter_vec":
		metric = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
			},
			m.Args,
		)
	case "counter":
		metric = prometheus.NewCounter(
			prometheus.CounterOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
			},
		)
	case "histogram_vec":
		metric = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
				Buckets:   HistogramBuckets,
			},
			m.Args,
		)
	case "summary_vec":
		metric = prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
			},
			m.Args,
		)
	}
	return metric
}

// MillisecondsSince returns the elapsed time since start in milliseconds.
func MillisecondsSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

// Pipeline business metrics.

var pipelineOutcome = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "payment_redirect_outcome_total",
	Help: "Resolved redirect pipeline outcomes, by state and payment type.",
}, []string{"state", "payment_type", "retryable"})

var verifyDur = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "payment_verification_dur_ms",
	Help:    "Verification call latency in milliseconds, by result.",
	Buckets: HistogramBuckets,
}, []string{"result"})

var verifyRetries = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "payment_verification_retries_total",
	Help: "Verification attempts beyond the first, across all invoices.",
})

func init() {
	prometheus.MustRegister(pipelineOutcome, verifyDur, verifyRetries)
}

func ObservePipelineOutcome(state, paymentType string, retryable bool) {
	r := "false"
	if retryable {
		r = "true"
	}
	pipelineOutcome.WithLabelValues(state, paymentType, r).Inc()
}

func ObserveVerification(start time.Time, result string) {
	verifyDur.WithLabelValues(result).Observe(MillisecondsSince(start))
}

func IncVerificationRetry() {
	verifyRetries.Inc()
}
