package pool

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-i2p/logger"

	apperrors "github.com/go-i2p/hostpool/lib/errors"
)

var log = logger.GetGoI2PLogger()

// Pool is a host-partitioned connection pool. It hands out reusable
// connection records per (host, port) endpoint, enforces per-host and
// global capacity limits, and reclaims idle records past a timeout.
//
// The pool does no network I/O: a record is bookkeeping for a connection,
// and turning it into a socket is the dialing collaborator's job.
//
// All operations are safe for concurrent use. A single mutex serializes
// every read and write of the group map and the live counter, so all
// operations are linearizable and the capacity invariants hold at every
// observable point. Operations never block beyond lock acquisition.
type Pool struct {
	cfg Config

	mu        sync.Mutex
	groups    map[hostKey]*hostGroup
	totalLive int
	closed    bool

	// lastID is the pool-scoped record id allocator. It is advanced
	// atomically so id uniqueness does not depend on the pool lock.
	lastID uint64

	// nowFunc is overridable in tests.
	nowFunc func() time.Time

	// Operation counters
	acquireCount  uint64
	acquireReuse  uint64
	acquireFailed uint64
	releaseCount  uint64
	closeCount    uint64
	expiredCount  uint64
}

// New creates a new Pool. Zero or negative config fields are replaced
// with defaults.
func New(cfg Config) *Pool {
	cfg = cfg.normalize()

	p := &Pool{
		cfg:     cfg,
		groups:  make(map[hostKey]*hostGroup),
		nowFunc: time.Now,
	}

	log.WithField("maxPerHost", cfg.MaxPerHost).WithField("maxTotal", cfg.MaxTotal).Debug("pool created")
	return p
}

// Config returns the pool's effective configuration.
func (p *Pool) Config() Config {
	return p.cfg
}

func (p *Pool) nowMs() int64 {
	return p.nowFunc().UnixMilli()
}

func (p *Pool) nextID() uint64 {
	return atomic.AddUint64(&p.lastID, 1)
}

// Acquire returns a record for (host, port), reusing the first idle record
// in insertion order or creating a new one if both the per-host and global
// caps permit. The returned record is in_use and owned by the caller until
// Release or Close.
//
// Expired idle records for the requested host are reclaimed as a byproduct,
// even when the call itself fails.
func (p *Pool) Acquire(host string, port uint16) (*ConnectionRecord, error) {
	start := time.Now()
	atomic.AddUint64(&p.acquireCount, 1)
	PoolAcquireTotal.Inc()
	defer func() {
		PoolAcquireLatency.Observe(time.Since(start).Seconds())
	}()

	if host == "" {
		atomic.AddUint64(&p.acquireFailed, 1)
		PoolAcquireFailedTotal.Inc()
		return nil, apperrors.ErrInvalidHost
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		atomic.AddUint64(&p.acquireFailed, 1)
		PoolAcquireFailedTotal.Inc()
		return nil, apperrors.ErrPoolClosed
	}

	key := hostKey{host: host, port: port}
	now := p.nowMs()
	g := p.groups[key]

	if g != nil {
		p.reapGroupLocked(g, now)

		if rec := g.firstIdle(); rec != nil {
			rec.setState(StateInUse)
			rec.touch(now)
			atomic.AddUint64(&p.acquireReuse, 1)
			PoolAcquireReuseTotal.Inc()
			log.WithField("endpoint", key.String()).WithField("id", rec.ID()).Debug("reusing idle record")
			return rec, nil
		}

		if g.activeCount() >= p.cfg.MaxPerHost {
			atomic.AddUint64(&p.acquireFailed, 1)
			PoolAcquireFailedTotal.Inc()
			log.WithField("endpoint", key.String()).Debug("host connection limit reached")
			return nil, apperrors.ErrHostLimitReached
		}
	}

	// The global cap is checked independently of which host is asking:
	// a new host can be starved by saturation caused entirely by others.
	if p.totalLive >= p.cfg.MaxTotal {
		atomic.AddUint64(&p.acquireFailed, 1)
		PoolAcquireFailedTotal.Inc()
		log.WithField("endpoint", key.String()).Debug("pool exhausted")
		return nil, apperrors.ErrPoolExhausted
	}

	if g == nil {
		g = &hostGroup{key: key}
		p.groups[key] = g
	}

	rec := newRecord(p.nextID(), host, port, now)
	g.records = append(g.records, rec)
	p.totalLive++
	PoolCreatedTotal.Inc()
	log.WithField("endpoint", key.String()).WithField("id", rec.ID()).Debug("created new record")
	return rec, nil
}

// Release returns an in_use record to the idle set and refreshes its
// last-used timestamp. Releasing an idle record is a no-op; releasing a
// closed record is a logged no-op.
func (p *Pool) Release(rec *ConnectionRecord) {
	if rec == nil {
		return
	}

	atomic.AddUint64(&p.releaseCount, 1)
	PoolReleaseTotal.Inc()

	p.mu.Lock()
	defer p.mu.Unlock()

	switch rec.State() {
	case StateInUse:
		rec.setState(StateIdle)
		rec.touch(p.nowMs())
	case StateIdle:
		// already released
	case StateClosed:
		log.WithField("id", rec.ID()).Warn("release of closed record ignored")
	}
}

// Close retires a record from any state. Closed is terminal; closing an
// already-closed record does nothing, so the live counter never underflows.
func (p *Pool) Close(rec *ConnectionRecord) {
	if rec == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.closeLocked(rec)
}

func (p *Pool) closeLocked(rec *ConnectionRecord) {
	if rec.State() == StateClosed {
		return
	}
	rec.setState(StateClosed)
	if p.totalLive > 0 {
		p.totalLive--
	}
	atomic.AddUint64(&p.closeCount, 1)
	PoolCloseTotal.Inc()
}

// Cleanup closes every idle record whose age exceeds the idle timeout and
// returns the number closed. In-use records are never touched regardless
// of age.
func (p *Pool) Cleanup() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.nowMs()
	total := 0
	for key, g := range p.groups {
		total += p.reapGroupLocked(g, now)
		if g.empty() {
			delete(p.groups, key)
		}
	}

	if total > 0 {
		log.WithField("expired", total).Debug("cleanup closed expired records")
	}
	return total
}

// reapGroupLocked expires idle records in one group and compacts its
// storage. Caller must hold the pool lock. Returns the number closed.
func (p *Pool) reapGroupLocked(g *hostGroup, nowMs int64) int {
	n := g.closeExpired(nowMs - p.cfg.IdleTimeout.Milliseconds())
	if n > 0 {
		p.totalLive -= n
		if p.totalLive < 0 {
			p.totalLive = 0
		}
		atomic.AddUint64(&p.expiredCount, uint64(n))
		PoolExpiredTotal.Add(uint64(n))
	}
	g.compact()
	return n
}

// Shutdown closes every record and marks the pool closed. Subsequent
// Acquire calls fail with ErrPoolClosed; Release, Close, Cleanup and Stats
// remain safe. Returns ErrPoolClosed if already shut down.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return apperrors.ErrPoolClosed
	}
	p.closed = true

	for key, g := range p.groups {
		for _, rec := range g.records {
			p.closeLocked(rec)
		}
		delete(p.groups, key)
	}
	p.totalLive = 0

	log.Debug("pool shut down")
	return nil
}

// Stats is a point-in-time snapshot of pool utilization. It is consistent
// within the critical section that computed it, not with concurrent
// mutators after that.
type Stats struct {
	// TotalConnections is the number of live (non-closed) records.
	TotalConnections int
	// ActiveConnections is the number of in_use records.
	ActiveConnections int
	// IdleConnections is the number of idle records.
	IdleConnections int
	// Hosts is the number of endpoints with at least one live record.
	Hosts int

	// AcquireCount is the total number of acquire attempts.
	AcquireCount uint64
	// AcquireReuse is the number of acquires served by an idle record.
	AcquireReuse uint64
	// AcquireFailed is the number of failed acquires.
	AcquireFailed uint64
	// ReleaseCount is the total number of releases.
	ReleaseCount uint64
	// CloseCount is the number of records closed explicitly.
	CloseCount uint64
	// ExpiredCount is the number of records closed by idle expiry.
	ExpiredCount uint64
}

// Stats computes the aggregate snapshot by scanning all host groups.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		AcquireCount:  atomic.LoadUint64(&p.acquireCount),
		AcquireReuse:  atomic.LoadUint64(&p.acquireReuse),
		AcquireFailed: atomic.LoadUint64(&p.acquireFailed),
		ReleaseCount:  atomic.LoadUint64(&p.releaseCount),
		CloseCount:    atomic.LoadUint64(&p.closeCount),
		ExpiredCount:  atomic.LoadUint64(&p.expiredCount),
	}

	for _, g := range p.groups {
		live := 0
		for _, rec := range g.records {
			switch rec.State() {
			case StateInUse:
				s.ActiveConnections++
				live++
			case StateIdle:
				s.IdleConnections++
				live++
			}
		}
		if live > 0 {
			s.Hosts++
		}
	}
	s.TotalConnections = s.ActiveConnections + s.IdleConnections

	return s
}
