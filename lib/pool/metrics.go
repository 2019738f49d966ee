package pool

import "github.com/go-i2p/hostpool/lib/metrics"

// Pool utilization metrics
var (
	// PoolConnectionsLive is the current number of live records.
	PoolConnectionsLive = metrics.NewGauge(
		"hostpool_connections_live",
		"Current number of live (non-closed) connection records",
	)
	// PoolConnectionsActive is the current number of in_use records.
	PoolConnectionsActive = metrics.NewGauge(
		"hostpool_connections_active",
		"Current number of in-use connection records",
	)
	// PoolConnectionsIdle is the current number of idle records.
	PoolConnectionsIdle = metrics.NewGauge(
		"hostpool_connections_idle",
		"Current number of idle connection records",
	)
	// PoolHosts is the number of endpoints with live records.
	PoolHosts = metrics.NewGauge(
		"hostpool_hosts",
		"Number of endpoints with at least one live record",
	)
	// PoolAcquireTotal is the total number of acquire attempts.
	PoolAcquireTotal = metrics.NewCounter(
		"hostpool_acquire_total",
		"Total number of record acquire attempts",
	)
	// PoolAcquireReuseTotal is the number of acquires served from idle records.
	PoolAcquireReuseTotal = metrics.NewCounter(
		"hostpool_acquire_reuse_total",
		"Total number of acquires served by reusing an idle record",
	)
	// PoolAcquireFailedTotal is the number of failed acquires.
	PoolAcquireFailedTotal = metrics.NewCounter(
		"hostpool_acquire_failed_total",
		"Total number of failed record acquires",
	)
	// PoolCreatedTotal is the number of records created.
	PoolCreatedTotal = metrics.NewCounter(
		"hostpool_created_total",
		"Total number of connection records created",
	)
	// PoolReleaseTotal is the number of releases.
	PoolReleaseTotal = metrics.NewCounter(
		"hostpool_release_total",
		"Total number of record releases",
	)
	// PoolCloseTotal is the number of records closed explicitly.
	PoolCloseTotal = metrics.NewCounter(
		"hostpool_close_total",
		"Total number of records closed explicitly",
	)
	// PoolExpiredTotal is the number of records closed by idle expiry.
	PoolExpiredTotal = metrics.NewCounter(
		"hostpool_expired_total",
		"Total number of idle records closed by expiry",
	)
	// PoolAcquireLatency tracks time spent acquiring records.
	PoolAcquireLatency = metrics.NewHistogram(
		"hostpool_acquire_duration_seconds",
		"Time spent acquiring a record from the pool",
		metrics.DefaultLatencyBuckets,
	)
)

// UpdateMetrics updates the pool gauges from Stats.
func UpdateMetrics(stats Stats) {
	PoolConnectionsLive.Set(int64(stats.TotalConnections))
	PoolConnectionsActive.Set(int64(stats.ActiveConnections))
	PoolConnectionsIdle.Set(int64(stats.IdleConnections))
	PoolHosts.Set(int64(stats.Hosts))
}
