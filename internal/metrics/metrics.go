// Package metrics exposes the sync core's Prometheus instrumentation,
// grounded on how cuemby-warren instruments its own daemon loops.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flashnote_sync_requests_total",
		Help: "Total WebDAV requests issued by the transport.",
	})

	RequestsRetriedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flashnote_sync_requests_retried_total",
		Help: "Total WebDAV requests that required at least one retry.",
	})

	RateLimitBlockedSeconds = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flashnote_sync_rate_limit_blocked_seconds_total",
		Help: "Cumulative seconds requests spent waiting on the rate limiter.",
	})

	SyncDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "flashnote_sync_duration_seconds",
		Help:    "Duration of a full sync pass.",
		Buckets: prometheus.DefBuckets,
	})

	UploadedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flashnote_sync_uploaded_total",
		Help: "Total files uploaded across all sync passes.",
	})

	DownloadedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flashnote_sync_downloaded_total",
		Help: "Total files downloaded across all sync passes.",
	})

	ConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flashnote_sync_conflicts_total",
		Help: "Total conflicts surfaced to the conflict handler.",
	})
)

// Registry is the dedicated registry (rather than the global default)
// that control.Server's /metrics handler serves, so tests elsewhere in
// this module don't fight over prometheus's global DefaultRegisterer.
var Registry = newRegistry()

func newRegistry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(
		RequestsTotal, RequestsRetriedTotal, RateLimitBlockedSeconds,
		SyncDuration, UploadedTotal, DownloadedTotal, ConflictsTotal,
	)
	return r
}

// ObserveResult folds a sync Result's counts into the package metrics. It
// takes plain ints rather than importing syncengine, keeping this package
// free of a dependency on the engine's types.
func ObserveResult(durationSeconds float64, uploaded, downloaded, conflicts int) {
	SyncDuration.Observe(durationSeconds)
	UploadedTotal.Add(float64(uploaded))
	DownloadedTotal.Add(float64(downloaded))
	ConflictsTotal.Add(float64(conflicts))
}
