package httpclient

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStats snapshots the connection pool.
type PoolStats struct {
	// ConnectionsPerDestination maps destination keys to pooled connection
	// counts, including connections currently in flight.
	ConnectionsPerDestination map[string]int

	// Dials is the total number of connections established.
	Dials int64

	// Reuses is the total number of acquires served from the pool.
	Reuses int64
}

// PoolStats returns a snapshot of the client's connection pool.
func (c *Client) PoolStats() PoolStats {
	return PoolStats{
		ConnectionsPerDestination: c.pool.stats(),
		Dials:                     c.pool.dialCount.Load(),
		Reuses:                    c.pool.reuseCount.Load(),
	}
}

var (
	poolConnectionsDesc = prometheus.NewDesc(
		"courier_pool_connections",
		"Pooled connections per destination.",
		[]string{"destination"}, nil,
	)
	poolDialsDesc = prometheus.NewDesc(
		"courier_pool_dials_total",
		"Connections established by the pool.",
		nil, nil,
	)
	poolReusesDesc = prometheus.NewDesc(
		"courier_pool_reuses_total",
		"Acquires served from pooled connections.",
		nil, nil,
	)
)

// poolCollector exposes pool state as Prometheus metrics without keeping
// its own counters in sync: every scrape reads the live pool.
type poolCollector struct {
	c *Client
}

// PoolCollector returns a prometheus.Collector over the client's pool.
//
//	prometheus.MustRegister(httpclient.PoolCollector(client))
func PoolCollector(c *Client) prometheus.Collector {
	return &poolCollector{c: c}
}

// Describe implements prometheus.Collector.
func (pc *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- poolConnectionsDesc
	ch <- poolDialsDesc
	ch <- poolReusesDesc
}

// Collect implements prometheus.Collector.
func (pc *poolCollector) Collect(ch chan<- prometheus.Metric) {
	stats := pc.c.PoolStats()
	for destination, count := range stats.ConnectionsPerDestination {
		ch <- prometheus.MustNewConstMetric(
			poolConnectionsDesc, prometheus.GaugeValue, float64(count), destination)
	}
	ch <- prometheus.MustNewConstMetric(poolDialsDesc, prometheus.CounterValue, float64(stats.Dials))
	ch <- prometheus.MustNewConstMetric(poolReusesDesc, prometheus.CounterValue, float64(stats.Reuses))
}
