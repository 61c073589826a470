// Package metrics exposes prometheus instruments for the lifecycle engine.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SweepMetrics captures expiration sweep health signals.
type SweepMetrics struct {
	runs        prometheus.Counter
	skipped     prometheus.Counter
	expired     prometheus.Counter
	failures    prometheus.Counter
	runDuration prometheus.Observer
}

var (
	sweepOnce sync.Once
	sweep     *SweepMetrics
)

// Sweep returns the process-wide sweep metrics, registering them on first use.
func Sweep() *SweepMetrics {
	sweepOnce.Do(func() {
		sweep = &SweepMetrics{
			runs: promauto.NewCounter(prometheus.CounterOpts{
				Name: "casalist_sweep_runs_total",
				Help: "Number of expiration sweep invocations.",
			}),
			skipped: promauto.NewCounter(prometheus.CounterOpts{
				Name: "casalist_sweep_skipped_total",
				Help: "Sweep invocations skipped because the lease was held elsewhere.",
			}),
			expired: promauto.NewCounter(prometheus.CounterOpts{
				Name: "casalist_sweep_expired_listings_total",
				Help: "Listings transitioned to INVALID by the sweep.",
			}),
			failures: promauto.NewCounter(prometheus.CounterOpts{
				Name: "casalist_sweep_failures_total",
				Help: "Sweep runs that reported at least one per-listing failure.",
			}),
			runDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "casalist_sweep_duration_seconds",
				Help:    "Duration of one sweep run.",
				Buckets: prometheus.DefBuckets,
			}),
		}
	})
	return sweep
}

func (m *SweepMetrics) IncRun()          { m.runs.Inc() }
func (m *SweepMetrics) IncSkipped()      { m.skipped.Inc() }
func (m *SweepMetrics) AddExpired(n int) { m.expired.Add(float64(n)) }
func (m *SweepMetrics) IncFailure()      { m.failures.Inc() }

func (m *SweepMetrics) ObserveDuration(d time.Duration) {
	m.runDuration.Observe(d.Seconds())
}
