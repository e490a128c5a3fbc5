// Package metrics exposes cache statistics and operator API traffic to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"failover-cache/internal/common/cache"
)

const namespace = "failover_cache"

// StatsSource is satisfied by *cache.FailoverCache
type StatsSource interface {
	Stats() cache.Stats
}

// CacheCollector reads a fresh Stats snapshot on every scrape
type CacheCollector struct {
	source StatsSource

	entries          *prometheus.Desc
	capacity         *prometheus.Desc
	hits             *prometheus.Desc
	misses           *prometheus.Desc
	evictions        *prometheus.Desc
	expirations      *prometheus.Desc
	hitRatio         *prometheus.Desc
	remoteConfigured *prometheus.Desc
	remoteAvailable  *prometheus.Desc
	failovers        *prometheus.Desc
}

// NewCacheCollector creates a collector over source
func NewCacheCollector(source StatsSource) *CacheCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, nil)
	}

	return &CacheCollector{
		source:           source,
		entries:          desc("local_entries", "Entries currently held by the local store."),
		capacity:         desc("local_capacity", "Maximum number of entries the local store retains."),
		hits:             desc("local_hits_total", "Local store lookups that found a live entry."),
		misses:           desc("local_misses_total", "Local store lookups that found nothing or an expired entry."),
		evictions:        desc("local_evictions_total", "Entries evicted to respect capacity."),
		expirations:      desc("local_expirations_total", "Expired entries removed lazily or by sweeps."),
		hitRatio:         desc("local_hit_ratio", "Local hits divided by local lookups."),
		remoteConfigured: desc("remote_configured", "1 when a remote backend was supplied at construction."),
		remoteAvailable:  desc("remote_available", "1 while operations are routed to the remote backend."),
		failovers:        desc("failovers_total", "Transitions from remote-preferred to local-only mode."),
	}
}

// Describe implements prometheus.Collector
func (c *CacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	ch <- c.capacity
	ch <- c.hits
	ch <- c.misses
	ch <- c.evictions
	ch <- c.expirations
	ch <- c.hitRatio
	ch <- c.remoteConfigured
	ch <- c.remoteAvailable
	ch <- c.failovers
}

// Collect implements prometheus.Collector
func (c *CacheCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.Stats()

	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(stats.Size))
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(stats.Capacity))
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(stats.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(stats.Misses))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(stats.Evictions))
	ch <- prometheus.MustNewConstMetric(c.expirations, prometheus.CounterValue, float64(stats.Expirations))
	ch <- prometheus.MustNewConstMetric(c.hitRatio, prometheus.GaugeValue, stats.HitRatio)
	ch <- prometheus.MustNewConstMetric(c.remoteConfigured, prometheus.GaugeValue, boolToFloat(stats.RemoteConfigured))
	ch <- prometheus.MustNewConstMetric(c.remoteAvailable, prometheus.GaugeValue, boolToFloat(stats.RemoteAvailable))
	ch <- prometheus.MustNewConstMetric(c.failovers, prometheus.CounterValue, float64(stats.Failovers))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Registry bundles the cache collector, HTTP request metrics and the Go runtime collectors
type Registry struct {
	registry *prometheus.Registry
	HTTP     *HTTPMetrics
}

// NewRegistry creates a private registry for source
func NewRegistry(source StatsSource) *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		NewCacheCollector(source),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Registry{
		registry: reg,
		HTTP:     newHTTPMetrics(reg),
	}
}

// Gatherer exposes the underlying registry for scraping or inspection
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
