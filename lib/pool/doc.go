// Package pool provides a host-partitioned connection pool for managing
// reusable logical connection records per (host, port) endpoint.
//
// The pool supports:
//   - Per-host and global capacity limits
//   - First-fit reuse of idle records in insertion order
//   - Idle expiry, both lazily during Acquire and via explicit Cleanup
//   - Utilization statistics and metrics
//   - An optional background janitor for periodic sweeps
//
// The pool manages records, not sockets: establishing and tearing down the
// real connection for an acquired record is the caller's (or a dialing
// collaborator's) responsibility.
//
// # Basic Usage
//
//	p := pool.NewBuilder().
//	    MaxPerHost(5).
//	    MaxTotal(50).
//	    IdleTimeout(time.Minute).
//	    Build()
//	defer p.Shutdown()
//
//	rec, err := p.Acquire("example.com", 443)
//	if err != nil {
//	    return err
//	}
//	defer p.Release(rec)
//
//	// Dial or reuse the socket for rec here...
//
// # Error Handling
//
// Acquire fails with errors.ErrHostLimitReached when the endpoint is at its
// per-host cap, errors.ErrPoolExhausted when the global cap is reached, and
// errors.ErrInvalidHost for an empty host. All are sentinel errors from
// github.com/go-i2p/hostpool/lib/errors and recoverable by the caller; the
// pool itself never retries.
//
// # Background Sweeping
//
// A Janitor periodically reclaims expired idle records:
//
//	j := pool.NewJanitor(p, time.Minute)
//	j.Start()
//	defer j.Stop()
//
// # Metrics
//
// Pool utilization metrics are automatically registered with the metrics
// package:
//   - hostpool_connections_live: Current live records
//   - hostpool_connections_active: Records currently in use
//   - hostpool_connections_idle: Records currently idle
//   - hostpool_hosts: Endpoints with live records
//   - hostpool_acquire_total: Total acquire attempts
//   - hostpool_acquire_reuse_total: Acquires served from idle records
//   - hostpool_acquire_failed_total: Failed acquires
//   - hostpool_created_total: Records created
//   - hostpool_release_total: Releases
//   - hostpool_close_total: Explicit closes
//   - hostpool_expired_total: Idle records closed by expiry
package pool
