package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParseSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reqsift_parse_seconds",
		Help:    "Time spent parsing a single Python source file.",
		Buckets: prometheus.DefBuckets,
	})

	FilesParsedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reqsift_files_parsed_total",
		Help: "Total number of Python source files parsed for imports.",
	})

	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reqsift_resolutions_total",
		Help: "Total number of module-to-package resolutions, by winning source.",
	}, []string{"source"})

	IndexRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reqsift_index_requests_total",
		Help: "Total number of requests issued against the package index.",
	}, []string{"kind"})

	IndexCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reqsift_index_cache_hits_total",
		Help: "Total number of existence checks answered from the in-run cache.",
	})

	ReconcileSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reqsift_reconcile_seconds",
		Help:    "Time spent reconciling discovered modules against declared packages.",
		Buckets: prometheus.DefBuckets,
	})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reqsift_runs_total",
		Help: "Total number of completed inspection runs, by outcome.",
	}, []string{"outcome"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reqsift_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
