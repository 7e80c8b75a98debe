package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pageLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "launchlist_feed_page_loads_total",
		Help: "Page loads by kind (initial, next) and result (ok, error, stale)",
	}, []string{"kind", "result"})

	filterRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "launchlist_feed_filter_runs_total",
		Help: "Search filter recomputations",
	})

	sentinelFiresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "launchlist_feed_sentinel_fires_total",
		Help: "Times the last item entered the viewport and requested the next page",
	})

	cachedLaunches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "launchlist_feed_cached_launches",
		Help: "Launches held in the feed cache",
	})
)
