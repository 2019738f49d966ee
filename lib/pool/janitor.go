package pool

import (
	"sync"
	"time"
)

// DefaultSweepInterval is the default janitor sweep interval.
const DefaultSweepInterval = time.Minute

// Janitor periodically reclaims expired idle records from a pool and
// refreshes the pool gauges. It is the lifecycle collaborator described by
// the pool's contract: the pool itself only expires records lazily during
// Acquire, the janitor sweeps every host group.
type Janitor struct {
	pool     *Pool
	interval time.Duration

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewJanitor creates a janitor for p. If interval is zero or negative,
// DefaultSweepInterval is used. The janitor does nothing until Start.
func NewJanitor(p *Pool, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Janitor{
		pool:     p,
		interval: interval,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the background sweep loop. Starting twice, or after Stop,
// is a no-op.
func (j *Janitor) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.started || j.stopped {
		return
	}
	j.started = true

	go j.loop()
	log.WithField("interval", j.interval).Debug("janitor started")
}

// Stop terminates the sweep loop and waits for it to exit. Stopping twice,
// or stopping a never-started janitor, is safe.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if j.stopped {
		j.mu.Unlock()
		return
	}
	j.stopped = true
	close(j.stopCh)
	started := j.started
	j.mu.Unlock()

	if started {
		<-j.done
	}
}

func (j *Janitor) loop() {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopCh:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *Janitor) sweep() {
	n := j.pool.Cleanup()
	UpdateMetrics(j.pool.Stats())
	if n > 0 {
		log.WithField("expired", n).Debug("janitor sweep closed records")
	}
}
