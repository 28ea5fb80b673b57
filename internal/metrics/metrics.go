// Package metrics holds the prometheus collectors shared by middleware and services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ChangelogAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventar_changelog_appended_total",
			Help: "Changelog entries written, by entity and change type",
		},
		[]string{"entity_type", "change_type"},
	)

	// UndoTotal counts undo attempts; result is the action on success or the failure reason
	UndoTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventar_undo_total",
			Help: "Undo attempts by entity type and result",
		},
		[]string{"entity_type", "result"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventar_cache_requests_total",
			Help: "Cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)

	// Gauges sampled by the inventory metrics collector
	InventoryItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inventar_items",
		Help: "Items currently in the inventory",
	})
	InventoryLocations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inventar_locations",
		Help: "Locations currently defined",
	})
	ChangelogEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inventar_changelog_entries",
		Help: "Entries in the changelog",
	})
	RealtimeClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inventar_realtime_clients",
		Help: "Connected changelog websocket clients",
	})
	HostMemoryPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inventar_host_memory_used_percent",
		Help: "Host memory usage",
	})
)
