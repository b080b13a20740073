// Package metrics exposes the engine's operational counters and gauges for
// Prometheus scraping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ListenerCount tracks the number of currently connected HTTP listeners.
	ListenerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mradio",
		Name:      "listener_count",
		Help:      "Current number of connected HTTP stream listeners.",
	})

	// TracksPlayed counts completed track transitions.
	TracksPlayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mradio",
		Name:      "tracks_played_total",
		Help:      "Total number of tracks that have finished playing.",
	})

	// IcecastReconnects counts Icecast upstream reconnect attempts.
	IcecastReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mradio",
		Name:      "icecast_reconnect_attempts_total",
		Help:      "Total number of Icecast upstream reconnect attempts.",
	})

	// CacheBytes tracks the current total size of the on-disk track cache.
	CacheBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mradio",
		Name:      "cache_bytes",
		Help:      "Current total size in bytes of the FileCache.",
	})
)
