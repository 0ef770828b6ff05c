// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Fetch metrics
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guida_fetch_total",
		Help: "Source fetches by outcome",
	}, []string{"source", "outcome"}) // outcome=success|failure|decode_failure

	fetchAttemptFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guida_fetch_attempt_failures_total",
		Help: "Individual download attempts that failed (before retry/fallback)",
	})

	// Cache metrics
	cacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guida_cache_results_total",
		Help: "Cache lookups by outcome",
	}, []string{"outcome"}) // outcome=hit|miss|stale_fallback

	cacheWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guida_cache_write_errors_total",
		Help: "Cache writes that failed (pipeline continues network-only)",
	})

	// Guide load metrics
	sourceLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guida_source_loads_total",
		Help: "Per-source load results",
	}, []string{"source", "outcome"}) // outcome=success|failure

	guideChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "guida_guide_channels",
		Help: "Channels in the installed guide index",
	})

	guideProgrammes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "guida_guide_programmes",
		Help: "Programmes in the installed guide index",
	})

	guideGeneration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "guida_guide_generation",
		Help: "Generation counter of the installed guide index",
	})

	loadDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "guida_load_duration_seconds",
		Help:    "Wall time of a full load across all sources",
		Buckets: prometheus.DefBuckets,
	})

	// Query metrics
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guida_queries_total",
		Help: "Guide queries by kind and outcome",
	}, []string{"kind", "outcome"}) // kind=now|next outcome=hit|no_info|unknown

	// Merger metrics
	mergeChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "guida_merge_channels_written",
		Help: "Channels in the last merged output document",
	})

	mergeProgrammes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "guida_merge_programmes_written",
		Help: "Programmes in the last merged output document",
	})

	mergeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guida_merge_failures_total",
		Help: "Merge runs where every source failed",
	})
)

func IncFetch(source, outcome string) { fetchTotal.WithLabelValues(source, outcome).Inc() }
func IncFetchAttemptFailure()         { fetchAttemptFailures.Inc() }

func IncCacheResult(outcome string) { cacheResults.WithLabelValues(outcome).Inc() }
func IncCacheWriteError()           { cacheWriteErrors.Inc() }

func IncSourceLoad(source, outcome string) { sourceLoads.WithLabelValues(source, outcome).Inc() }

func RecordGuide(generation uint64, channels, programmes int, duration float64) {
	guideGeneration.Set(float64(generation))
	guideChannels.Set(float64(channels))
	guideProgrammes.Set(float64(programmes))
	loadDurationSeconds.Observe(duration)
}

func IncQuery(kind, outcome string) { queriesTotal.WithLabelValues(kind, outcome).Inc() }

func RecordMerge(channels, programmes int) {
	mergeChannels.Set(float64(channels))
	mergeProgrammes.Set(float64(programmes))
}
func IncMergeFailure() { mergeFailures.Inc() }
