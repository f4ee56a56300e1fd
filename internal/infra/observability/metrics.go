package observability

import (
	"time"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Submission outcomes.
const (
	OutcomeCreated  = "created"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration   *prometheus.HistogramVec
	externalErrors    *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	leadSubmissions   *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	referrals         *prometheus.CounterVec
	orphanedUploads   prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solar_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solar_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solar_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solar_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		leadSubmissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solar_lead_submissions_total",
				Help: "Lead submissions by outcome.",
			},
			[]string{"outcome"},
		),
		statusTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solar_lead_status_transitions_total",
				Help: "Confirmed lead status changes by target status.",
			},
			[]string{"to"},
		),
		referrals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solar_referral_resolutions_total",
				Help: "Referral code resolutions by result.",
			},
			[]string{"result"},
		),
		orphanedUploads: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "solar_orphaned_uploads_total",
				Help: "Uploaded bills whose lead row was never persisted.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrLeadSubmission counts a pipeline run by outcome.
func (m *Metrics) IncrLeadSubmission(outcome string) {
	m.leadSubmissions.WithLabelValues(outcome).Inc()
}

// IncrStatusTransition counts a confirmed status write.
func (m *Metrics) IncrStatusTransition(to domain.LeadStatus) {
	m.statusTransitions.WithLabelValues(to.Encode()).Inc()
}

// IncrReferral counts a referral resolution ("attributed", "unknown", "error").
func (m *Metrics) IncrReferral(result string) {
	m.referrals.WithLabelValues(result).Inc()
}

// IncrOrphanedUpload counts a stored bill with no lead row.
func (m *Metrics) IncrOrphanedUpload() {
	m.orphanedUploads.Inc()
}

// PipelineSnapshot returns the submission counters for the admin dashboard.
func (m *Metrics) PipelineSnapshot() *domain.PipelineStats {
	return &domain.PipelineStats{
		Submitted:       int64(getCounterValue(m.leadSubmissions, OutcomeCreated)),
		Failed:          int64(getCounterValue(m.leadSubmissions, OutcomeFailed)),
		Rejected:        int64(getCounterValue(m.leadSubmissions, OutcomeRejected)),
		OrphanedUploads: int64(readCounter(m.orphanedUploads)),
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return readCounter(cv.WithLabelValues(label))
}

func readCounter(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
