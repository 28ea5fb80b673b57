package services

import (
	"context"
	"sync"
	"time"

	"inventar-backend/internal/metrics"
	"inventar-backend/internal/store"

	"github.com/shirou/gopsutil/v3/mem"
	log "github.com/sirupsen/logrus"
)

// ClientCounter reports connected live clients; the websocket hub implements it
type ClientCounter interface {
	ClientCount() int
}

// MetricsCollector samples inventory sizes and host memory into prometheus gauges
type MetricsCollector struct {
	store           store.Store
	clients         ClientCounter
	collectInterval time.Duration
	stopChan        chan struct{}
	wg              sync.WaitGroup
}

func NewMetricsCollector(st store.Store, clients ClientCounter, interval time.Duration) *MetricsCollector {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &MetricsCollector{
		store:           st,
		clients:         clients,
		collectInterval: interval,
		stopChan:        make(chan struct{}),
	}
}

// Start collects once and then every interval until Stop
func (c *MetricsCollector) Start() {
	log.WithField("component", "metrics").Info("Starting metrics collector")

	// Collect immediately on start
	c.collectAll(context.Background())

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.collectInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.collectAll(context.Background())
			case <-c.stopChan:
				return
			}
		}
	}()
}

// Stop stops the metrics collection
func (c *MetricsCollector) Stop() {
	close(c.stopChan)
	c.wg.Wait()
}

func (c *MetricsCollector) collectAll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	entry := log.WithField("component", "metrics")

	if n, err := c.store.Items().Count(ctx); err == nil {
		metrics.InventoryItems.Set(float64(n))
	} else {
		entry.WithError(err).Warn("count items")
	}
	if n, err := c.store.Locations().Count(ctx); err == nil {
		metrics.InventoryLocations.Set(float64(n))
	} else {
		entry.WithError(err).Warn("count locations")
	}
	if n, err := c.store.Changelog().Count(ctx); err == nil {
		metrics.ChangelogEntries.Set(float64(n))
	} else {
		entry.WithError(err).Warn("count changelog")
	}
	if c.clients != nil {
		metrics.RealtimeClients.Set(float64(c.clients.ClientCount()))
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		metrics.HostMemoryPercent.Set(vm.UsedPercent)
	}
}
