package pool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/go-i2p/hostpool/lib/errors"
)

// fakeClock is a controllable time source for expiry tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// testPool creates a pool driven by a fake clock.
func testPool(cfg Config) (*Pool, *fakeClock) {
	p := New(cfg)
	clk := newFakeClock()
	p.nowFunc = clk.Now
	return p, clk
}

func TestPoolAcquireRelease(t *testing.T) {
	p, _ := testPool(Config{MaxPerHost: 5, MaxTotal: 10})

	rec, err := p.Acquire("example.com", 443)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if rec.State() != StateInUse {
		t.Errorf("state = %v, want in_use", rec.State())
	}
	if rec.Host() != "example.com" || rec.Port() != 443 {
		t.Errorf("endpoint = %s:%d, want example.com:443", rec.Host(), rec.Port())
	}

	p.Release(rec)
	if rec.State() != StateIdle {
		t.Errorf("state after release = %v, want idle", rec.State())
	}

	// Same endpoint reuses the released record
	rec2, err := p.Acquire("example.com", 443)
	if err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	if rec2.ID() != rec.ID() {
		t.Errorf("reacquired id = %d, want %d", rec2.ID(), rec.ID())
	}
	if rec2.State() != StateInUse {
		t.Errorf("state after reuse = %v, want in_use", rec2.State())
	}
}

func TestPoolRecordBirth(t *testing.T) {
	p, _ := testPool(DefaultConfig())

	rec1, err := p.Acquire("a.example", 80)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	rec2, err := p.Acquire("a.example", 80)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if rec1.ID() == rec2.ID() {
		t.Error("ids should be unique")
	}
	if rec2.ID() <= rec1.ID() {
		t.Errorf("ids should be monotonically increasing, got %d then %d", rec1.ID(), rec2.ID())
	}
	if !rec1.CreatedAt().Equal(rec1.LastUsedAt()) {
		t.Error("a new record's created and last-used timestamps should match")
	}
}

func TestPoolHostLimit(t *testing.T) {
	p, _ := testPool(Config{MaxPerHost: 2, MaxTotal: 100})

	if _, err := p.Acquire("example.com", 443); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	if _, err := p.Acquire("example.com", 443); err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}

	_, err := p.Acquire("example.com", 443)
	if !apperrors.IsHostLimit(err) {
		t.Errorf("third Acquire: got %v, want ErrHostLimitReached", err)
	}

	// A different port is a different endpoint and gets its own cap
	if _, err := p.Acquire("example.com", 80); err != nil {
		t.Errorf("Acquire on different port failed: %v", err)
	}
}

func TestPoolExhausted(t *testing.T) {
	p, _ := testPool(Config{MaxPerHost: 5, MaxTotal: 3})

	hosts := []string{"a.example", "b.example", "c.example"}
	for _, h := range hosts {
		if _, err := p.Acquire(h, 443); err != nil {
			t.Fatalf("Acquire %s failed: %v", h, err)
		}
	}

	// A never-seen host is blocked by saturation caused by the others
	_, err := p.Acquire("d.example", 443)
	if !apperrors.IsPoolExhausted(err) {
		t.Errorf("got %v, want ErrPoolExhausted", err)
	}
}

func TestPoolInvalidHost(t *testing.T) {
	p, _ := testPool(DefaultConfig())

	_, err := p.Acquire("", 443)
	if !apperrors.IsInvalidHost(err) {
		t.Errorf("got %v, want ErrInvalidHost", err)
	}
}

func TestPoolFirstFitReuse(t *testing.T) {
	p, _ := testPool(Config{MaxPerHost: 3, MaxTotal: 10})

	rec1, _ := p.Acquire("example.com", 443)
	rec2, _ := p.Acquire("example.com", 443)
	rec3, _ := p.Acquire("example.com", 443)

	// Release in reverse order; reuse must still follow insertion order,
	// not recency.
	p.Release(rec3)
	p.Release(rec2)
	p.Release(rec1)

	got, err := p.Acquire("example.com", 443)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if got.ID() != rec1.ID() {
		t.Errorf("first-fit reuse returned id %d, want %d", got.ID(), rec1.ID())
	}
}

func TestPoolReleaseIdempotent(t *testing.T) {
	p, _ := testPool(DefaultConfig())

	rec, _ := p.Acquire("example.com", 443)
	p.Release(rec)
	p.Release(rec) // no-op
	if rec.State() != StateIdle {
		t.Errorf("state = %v, want idle", rec.State())
	}

	stats := p.Stats()
	if stats.IdleConnections != 1 || stats.ActiveConnections != 0 {
		t.Errorf("stats = %+v, want 1 idle 0 active", stats)
	}
}

func TestPoolReleaseClosedRecord(t *testing.T) {
	p, _ := testPool(DefaultConfig())

	rec, _ := p.Acquire("example.com", 443)
	p.Close(rec)
	p.Release(rec) // ignored

	if rec.State() != StateClosed {
		t.Errorf("state = %v, closed must be terminal", rec.State())
	}
	if stats := p.Stats(); stats.TotalConnections != 0 {
		t.Errorf("total = %d, want 0", stats.TotalConnections)
	}
}

func TestPoolDoubleCloseSaturates(t *testing.T) {
	p, _ := testPool(DefaultConfig())

	rec, _ := p.Acquire("example.com", 443)
	other, _ := p.Acquire("other.example", 80)

	p.Close(rec)
	p.Close(rec) // second close must not decrement again

	stats := p.Stats()
	if stats.TotalConnections != 1 {
		t.Errorf("total = %d, want 1 (only %s:%d live)", stats.TotalConnections, other.Host(), other.Port())
	}

	// The slot freed by close is usable again
	if _, err := p.Acquire("example.com", 443); err != nil {
		t.Errorf("Acquire after close failed: %v", err)
	}
}

func TestPoolCloseFromInUseAndIdle(t *testing.T) {
	p, _ := testPool(DefaultConfig())

	inUse, _ := p.Acquire("example.com", 443)
	idle, _ := p.Acquire("example.com", 443)
	p.Release(idle)

	p.Close(inUse)
	p.Close(idle)

	if inUse.State() != StateClosed || idle.State() != StateClosed {
		t.Error("both records should be closed")
	}
	if stats := p.Stats(); stats.TotalConnections != 0 {
		t.Errorf("total = %d, want 0", stats.TotalConnections)
	}
}

func TestPoolCleanup(t *testing.T) {
	p, clk := testPool(Config{MaxPerHost: 5, MaxTotal: 10, IdleTimeout: time.Minute})

	idle, _ := p.Acquire("example.com", 443)
	busy, _ := p.Acquire("example.com", 443)
	p.Release(idle)

	clk.Advance(time.Minute + time.Millisecond)

	n := p.Cleanup()
	if n != 1 {
		t.Errorf("Cleanup() = %d, want 1", n)
	}
	if idle.State() != StateClosed {
		t.Error("expired idle record should be closed")
	}
	if busy.State() != StateInUse {
		t.Error("in_use record must never be expired, regardless of age")
	}

	stats := p.Stats()
	if stats.TotalConnections != 1 || stats.ActiveConnections != 1 {
		t.Errorf("stats = %+v, want 1 total 1 active", stats)
	}
	if stats.ExpiredCount != 1 {
		t.Errorf("ExpiredCount = %d, want 1", stats.ExpiredCount)
	}
}

func TestPoolCleanupBoundary(t *testing.T) {
	p, clk := testPool(Config{MaxPerHost: 5, MaxTotal: 10, IdleTimeout: time.Minute})

	rec, _ := p.Acquire("example.com", 443)
	p.Release(rec)

	// Age exactly equal to the timeout is not yet expired
	clk.Advance(time.Minute)
	if n := p.Cleanup(); n != 0 {
		t.Errorf("Cleanup() at boundary = %d, want 0", n)
	}

	clk.Advance(time.Millisecond)
	if n := p.Cleanup(); n != 1 {
		t.Errorf("Cleanup() past boundary = %d, want 1", n)
	}
}

func TestPoolAcquireReapsExpired(t *testing.T) {
	p, clk := testPool(Config{MaxPerHost: 1, MaxTotal: 10, IdleTimeout: time.Minute})

	rec, _ := p.Acquire("example.com", 443)
	p.Release(rec)

	clk.Advance(2 * time.Minute)

	// The expired record is reclaimed in passing, so even with the host at
	// its cap a fresh record can be created.
	rec2, err := p.Acquire("example.com", 443)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if rec2.ID() == rec.ID() {
		t.Error("expired record should not be reused")
	}
	if rec.State() != StateClosed {
		t.Error("expired record should be closed")
	}
}

func TestPoolExpiryReclaimFreesSlot(t *testing.T) {
	p, clk := testPool(Config{MaxPerHost: 2, MaxTotal: 2, IdleTimeout: time.Minute})

	idle, _ := p.Acquire("example.com", 443)
	p.Acquire("example.com", 443)
	p.Release(idle)

	clk.Advance(2 * time.Minute)

	// The expired record cannot be reused, but reclaiming it frees a slot,
	// so a fresh record is created instead.
	rec, err := p.Acquire("example.com", 443)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if rec.ID() == idle.ID() {
		t.Error("should not reuse an expired record")
	}
	if idle.State() != StateClosed {
		t.Error("expired record should be closed as a byproduct")
	}
}

func TestPoolStatsConsistency(t *testing.T) {
	p, _ := testPool(Config{MaxPerHost: 5, MaxTotal: 20})

	a1, _ := p.Acquire("a.example", 443)
	p.Acquire("a.example", 443)
	b1, _ := p.Acquire("b.example", 80)
	p.Release(a1)
	p.Release(b1)

	stats := p.Stats()
	if stats.TotalConnections != stats.ActiveConnections+stats.IdleConnections {
		t.Errorf("total %d != active %d + idle %d",
			stats.TotalConnections, stats.ActiveConnections, stats.IdleConnections)
	}
	if stats.TotalConnections != 3 {
		t.Errorf("total = %d, want 3", stats.TotalConnections)
	}
	if stats.ActiveConnections != 1 {
		t.Errorf("active = %d, want 1", stats.ActiveConnections)
	}
	if stats.IdleConnections != 2 {
		t.Errorf("idle = %d, want 2", stats.IdleConnections)
	}
	if stats.Hosts != 2 {
		t.Errorf("hosts = %d, want 2", stats.Hosts)
	}
}

func TestPoolStatsHostsExcludeRetired(t *testing.T) {
	p, _ := testPool(DefaultConfig())

	a, _ := p.Acquire("a.example", 443)
	p.Acquire("b.example", 443)

	p.Close(a)

	stats := p.Stats()
	if stats.Hosts != 1 {
		t.Errorf("hosts = %d, want 1 (a.example has no live records)", stats.Hosts)
	}
}

func TestPoolOperationCounters(t *testing.T) {
	p, clk := testPool(Config{MaxPerHost: 1, MaxTotal: 10, IdleTimeout: time.Minute})

	rec, _ := p.Acquire("example.com", 443) // created
	p.Release(rec)
	p.Acquire("example.com", 443) // reused
	p.Acquire("example.com", 443) // fails: host limit
	p.Release(rec)
	clk.Advance(2 * time.Minute)
	p.Cleanup() // expires rec

	stats := p.Stats()
	if stats.AcquireCount != 3 {
		t.Errorf("AcquireCount = %d, want 3", stats.AcquireCount)
	}
	if stats.AcquireReuse != 1 {
		t.Errorf("AcquireReuse = %d, want 1", stats.AcquireReuse)
	}
	if stats.AcquireFailed != 1 {
		t.Errorf("AcquireFailed = %d, want 1", stats.AcquireFailed)
	}
	if stats.ReleaseCount != 2 {
		t.Errorf("ReleaseCount = %d, want 2", stats.ReleaseCount)
	}
	if stats.ExpiredCount != 1 {
		t.Errorf("ExpiredCount = %d, want 1", stats.ExpiredCount)
	}
}

func TestPoolShutdown(t *testing.T) {
	p, _ := testPool(DefaultConfig())

	rec1, _ := p.Acquire("a.example", 443)
	rec2, _ := p.Acquire("b.example", 80)
	p.Release(rec2)

	if err := p.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	if rec1.State() != StateClosed || rec2.State() != StateClosed {
		t.Error("all records should be closed after shutdown")
	}

	_, err := p.Acquire("a.example", 443)
	if !apperrors.IsClosed(err) {
		t.Errorf("Acquire after shutdown: got %v, want ErrPoolClosed", err)
	}

	if err := p.Shutdown(); !apperrors.IsClosed(err) {
		t.Errorf("double Shutdown: got %v, want ErrPoolClosed", err)
	}

	// Remaining operations stay safe
	p.Release(rec1)
	p.Close(rec1)
	if n := p.Cleanup(); n != 0 {
		t.Errorf("Cleanup after shutdown = %d, want 0", n)
	}
	if stats := p.Stats(); stats.TotalConnections != 0 {
		t.Errorf("total after shutdown = %d, want 0", stats.TotalConnections)
	}
}

func TestPoolScopedIDs(t *testing.T) {
	p1, _ := testPool(DefaultConfig())
	p2, _ := testPool(DefaultConfig())

	r1, _ := p1.Acquire("example.com", 443)
	r2, _ := p2.Acquire("example.com", 443)

	// Independent pools do not share an id sequence
	if r1.ID() != 1 || r2.ID() != 1 {
		t.Errorf("ids = %d and %d, want 1 and 1", r1.ID(), r2.ID())
	}
}

func TestPoolConfigNormalize(t *testing.T) {
	p := New(Config{})
	cfg := p.Config()

	if cfg.MaxPerHost != DefaultMaxPerHost {
		t.Errorf("MaxPerHost = %d, want %d", cfg.MaxPerHost, DefaultMaxPerHost)
	}
	if cfg.MaxTotal != DefaultMaxTotal {
		t.Errorf("MaxTotal = %d, want %d", cfg.MaxTotal, DefaultMaxTotal)
	}
	if cfg.IdleTimeout != DefaultIdleTimeout {
		t.Errorf("IdleTimeout = %v, want %v", cfg.IdleTimeout, DefaultIdleTimeout)
	}
	if cfg.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("ConnectTimeout = %v, want %v", cfg.ConnectTimeout, DefaultConnectTimeout)
	}
}

func TestPoolLastUsedRefresh(t *testing.T) {
	p, clk := testPool(Config{MaxPerHost: 5, MaxTotal: 10, IdleTimeout: time.Hour})

	rec, _ := p.Acquire("example.com", 443)
	born := rec.LastUsedAt()

	clk.Advance(time.Second)
	p.Release(rec)
	released := rec.LastUsedAt()
	if !released.After(born) {
		t.Error("release should refresh the last-used timestamp")
	}

	clk.Advance(time.Second)
	p.Acquire("example.com", 443)
	if !rec.LastUsedAt().After(released) {
		t.Error("reuse should refresh the last-used timestamp")
	}
}

func TestPoolConcurrentSingleSlot(t *testing.T) {
	const (
		workers    = 8
		iterations = 200
	)

	p, _ := testPool(Config{MaxPerHost: 1, MaxTotal: 10, IdleTimeout: time.Hour})

	var holders int32
	var violations int32
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < iterations; n++ {
				rec, err := p.Acquire("example.com", 443)
				if err != nil {
					if !apperrors.IsHostLimit(err) {
						t.Errorf("unexpected error: %v", err)
						return
					}
					continue
				}
				if atomic.AddInt32(&holders, 1) != 1 {
					atomic.AddInt32(&violations, 1)
				}
				atomic.AddInt32(&holders, -1)
				p.Release(rec)
			}
		}()
	}
	wg.Wait()

	if violations != 0 {
		t.Errorf("%d overlapping holders of a single-slot endpoint", violations)
	}

	// Nothing was explicitly closed, so exactly one record is live
	stats := p.Stats()
	if stats.TotalConnections != 1 {
		t.Errorf("total = %d, want 1", stats.TotalConnections)
	}
}
