package pool

import "time"

// Default configuration values
const (
	// DefaultMaxPerHost is the default per-host connection cap.
	DefaultMaxPerHost = 10
	// DefaultMaxTotal is the default global connection cap.
	DefaultMaxTotal = 100
	// DefaultIdleTimeout is how long an idle record may go unused before
	// it is eligible for expiry.
	DefaultIdleTimeout = 60 * time.Second
	// DefaultConnectTimeout is the default dial timeout for the network
	// collaborator that establishes real connections for acquired records.
	DefaultConnectTimeout = 30 * time.Second
)

// Config configures a Pool.
type Config struct {
	// MaxPerHost is the maximum number of live (non-closed) records per
	// (host, port) endpoint.
	// Default: 10
	MaxPerHost int
	// MaxTotal is the maximum number of live records across all endpoints.
	// Default: 100
	MaxTotal int
	// IdleTimeout is how long an idle record may go unused before expiry
	// closes it.
	// Default: 60 seconds
	IdleTimeout time.Duration
	// ConnectTimeout is not consumed by the pool itself. It is carried for
	// the dialing collaborator that turns acquired records into sockets.
	// Default: 30 seconds
	ConnectTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxPerHost:     DefaultMaxPerHost,
		MaxTotal:       DefaultMaxTotal,
		IdleTimeout:    DefaultIdleTimeout,
		ConnectTimeout: DefaultConnectTimeout,
	}
}

// normalize replaces zero or negative fields with defaults.
func (c Config) normalize() Config {
	if c.MaxPerHost <= 0 {
		c.MaxPerHost = DefaultMaxPerHost
	}
	if c.MaxTotal <= 0 {
		c.MaxTotal = DefaultMaxTotal
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	return c
}

// Builder constructs a Pool with a fluent default-then-override pattern.
//
//	p := pool.NewBuilder().
//	    MaxPerHost(5).
//	    MaxTotal(50).
//	    IdleTimeout(30 * time.Second).
//	    Build()
type Builder struct {
	cfg Config
}

// NewBuilder returns a Builder seeded with DefaultConfig.
func NewBuilder() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

// MaxPerHost sets the per-host connection cap.
func (b *Builder) MaxPerHost(n int) *Builder {
	b.cfg.MaxPerHost = n
	return b
}

// MaxTotal sets the global connection cap.
func (b *Builder) MaxTotal(n int) *Builder {
	b.cfg.MaxTotal = n
	return b
}

// IdleTimeout sets the idle expiry timeout.
func (b *Builder) IdleTimeout(d time.Duration) *Builder {
	b.cfg.IdleTimeout = d
	return b
}

// ConnectTimeout sets the dial timeout carried for the network collaborator.
func (b *Builder) ConnectTimeout(d time.Duration) *Builder {
	b.cfg.ConnectTimeout = d
	return b
}

// Config returns the accumulated configuration without building a pool.
func (b *Builder) Config() Config {
	return b.cfg
}

// Build constructs the Pool.
func (b *Builder) Build() *Pool {
	return New(b.cfg)
}
