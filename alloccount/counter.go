// Package alloccount measures how many bytes are allocated and released while
// code runs, so that allocation-free paths can be verified.
//
// A Counter is an explicit value rather than a process-wide singleton: each
// Counter keeps its own baseline, so independent measurements never reset
// each other.
package alloccount

import (
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Delta is the difference between two samples.
type Delta struct {
	Allocated   uint64 `json:"allocated"`
	Deallocated uint64 `json:"deallocated"`
}

// Counter reports allocation activity observed by a Source since the last
// call to Reset.
type Counter struct {
	src    Source
	logger *zap.Logger

	baseAllocated   atomic.Uint64
	baseDeallocated atomic.Uint64
}

// Option configures a Counter.
type Option func(*Counter)

// WithLogger makes scopes log their deltas at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Counter) {
		c.logger = logger
	}
}

// New returns a Counter that starts counting from the current state of src.
func New(src Source, opts ...Option) *Counter {
	c := &Counter{src: src, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	c.Reset()
	return c
}

// Allocated returns the bytes allocated since the last reset.
func (c *Counter) Allocated() uint64 {
	return c.src.Sample().Allocated - c.baseAllocated.Load()
}

// Deallocated returns the bytes released since the last reset.
func (c *Counter) Deallocated() uint64 {
	return c.src.Sample().Deallocated - c.baseDeallocated.Load()
}

// Snapshot returns both counters since the last reset, read from a single
// sample.
func (c *Counter) Snapshot() Delta {
	s := c.src.Sample()
	return Delta{
		Allocated:   s.Allocated - c.baseAllocated.Load(),
		Deallocated: s.Deallocated - c.baseDeallocated.Load(),
	}
}

// Reset moves the baseline to the current state of the source.
func (c *Counter) Reset() {
	s := c.src.Sample()
	c.baseAllocated.Store(s.Allocated)
	c.baseDeallocated.Store(s.Deallocated)
}

// Scope is a measurement started by Begin.
type Scope struct {
	c      *Counter
	before Sample
}

// Begin snapshots the source. Scopes do not touch the counter's baseline.
// Begin and End must not allocate, or they would show up in the delta.
func (c *Counter) Begin() Scope {
	return Scope{c: c, before: c.src.Sample()}
}

// End reports what was allocated and released since Begin.
func (s Scope) End() Delta {
	after := s.c.src.Sample()
	d := Delta{
		Allocated:   after.Allocated - s.before.Allocated,
		Deallocated: after.Deallocated - s.before.Deallocated,
	}
	if ce := s.c.logger.Check(zap.DebugLevel, "allocations"); ce != nil {
		ce.Write(
			zap.Uint64("allocated", d.Allocated),
			zap.Uint64("deallocated", d.Deallocated),
		)
	}
	return d
}

// Measure runs fn inside a scope and returns its delta.
func (c *Counter) Measure(fn func()) Delta {
	s := c.Begin()
	fn()
	return s.End()
}
