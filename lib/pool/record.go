package pool

import (
	"sync/atomic"
	"time"
)

// State is the lifecycle state of a ConnectionRecord.
type State int32

const (
	// StateIdle means the record is not claimed by any caller and is
	// eligible for reuse or expiry.
	StateIdle State = iota
	// StateInUse means the record is claimed by exactly one caller.
	StateInUse
	// StateClosed is terminal: the record is permanently retired.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInUse:
		return "in_use"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnectionRecord is a single poolable connection's identity, endpoint,
// and lifecycle state. Records are created by the pool during Acquire and
// mutated only through pool-mediated transitions. A record handle stays
// valid for the lifetime of the process; once closed it never leaves the
// closed state.
//
// Accessors are safe to call concurrently with pool operations: mutable
// fields are read and written atomically, while all transitions remain
// serialized by the pool lock.
type ConnectionRecord struct {
	id        uint64
	host      string
	port      uint16
	createdAt int64 // unix milliseconds, immutable
	lastUsed  int64 // unix milliseconds, atomic
	state     int32 // State, atomic
}

func newRecord(id uint64, host string, port uint16, nowMs int64) *ConnectionRecord {
	// A record is born already claimed by its creator.
	return &ConnectionRecord{
		id:        id,
		host:      host,
		port:      port,
		createdAt: nowMs,
		lastUsed:  nowMs,
		state:     int32(StateInUse),
	}
}

// ID returns the record's unique, monotonically assigned identifier.
func (r *ConnectionRecord) ID() uint64 {
	return r.id
}

// Host returns the logical endpoint host.
func (r *ConnectionRecord) Host() string {
	return r.host
}

// Port returns the logical endpoint port.
func (r *ConnectionRecord) Port() uint16 {
	return r.port
}

// State returns the record's current lifecycle state.
func (r *ConnectionRecord) State() State {
	return State(atomic.LoadInt32(&r.state))
}

// CreatedAt returns when the record was created.
func (r *ConnectionRecord) CreatedAt() time.Time {
	return time.UnixMilli(r.createdAt)
}

// LastUsedAt returns when the record last transitioned into idle or in_use.
func (r *ConnectionRecord) LastUsedAt() time.Time {
	return time.UnixMilli(atomic.LoadInt64(&r.lastUsed))
}

// setState transitions the record. Caller must hold the pool lock.
func (r *ConnectionRecord) setState(s State) {
	atomic.StoreInt32(&r.state, int32(s))
}

// touch refreshes the last-used timestamp. Caller must hold the pool lock.
func (r *ConnectionRecord) touch(nowMs int64) {
	atomic.StoreInt64(&r.lastUsed, nowMs)
}

func (r *ConnectionRecord) lastUsedMs() int64 {
	return atomic.LoadInt64(&r.lastUsed)
}
