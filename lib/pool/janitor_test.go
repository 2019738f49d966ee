package pool

import (
	"testing"
	"time"
)

func TestJanitorSweeps(t *testing.T) {
	p, clk := testPool(Config{MaxPerHost: 5, MaxTotal: 10, IdleTimeout: time.Minute})

	rec, _ := p.Acquire("example.com", 443)
	p.Release(rec)
	clk.Advance(2 * time.Minute)

	j := NewJanitor(p, 10*time.Millisecond)
	j.Start()
	defer j.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for rec.State() != StateClosed {
		if time.Now().After(deadline) {
			t.Fatal("janitor did not reclaim the expired record")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if stats := p.Stats(); stats.TotalConnections != 0 {
		t.Errorf("total = %d, want 0", stats.TotalConnections)
	}
}

func TestJanitorStartStop(t *testing.T) {
	p, _ := testPool(DefaultConfig())

	j := NewJanitor(p, 10*time.Millisecond)
	j.Start()
	j.Start() // no-op
	j.Stop()
	j.Stop() // no-op

	// Start after Stop stays stopped
	j.Start()
}

func TestJanitorStopWithoutStart(t *testing.T) {
	p, _ := testPool(DefaultConfig())

	j := NewJanitor(p, time.Second)
	j.Stop() // must not hang
}

func TestJanitorDefaultInterval(t *testing.T) {
	p, _ := testPool(DefaultConfig())

	j := NewJanitor(p, 0)
	if j.interval != DefaultSweepInterval {
		t.Errorf("interval = %v, want %v", j.interval, DefaultSweepInterval)
	}
}
