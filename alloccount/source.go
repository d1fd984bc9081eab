package alloccount

import (
	"runtime/metrics"
	"sync"

	"go.uber.org/atomic"
)

const (
	heapAllocsMetric = "/gc/heap/allocs:bytes"
	heapFreesMetric  = "/gc/heap/frees:bytes"
)

// Sample holds cumulative byte counters.
type Sample struct {
	Allocated   uint64
	Deallocated uint64
}

// Source reports cumulative allocation counters. Implementations must be safe
// for concurrent use.
type Source interface {
	Sample() Sample
}

// RuntimeSource observes every heap allocation made by the process, as
// reported by the Go runtime.
type RuntimeSource struct {
	mu      sync.Mutex
	samples [2]metrics.Sample
}

// NewRuntimeSource returns a Source backed by runtime/metrics.
func NewRuntimeSource() *RuntimeSource {
	s := &RuntimeSource{}
	s.samples[0].Name = heapAllocsMetric
	s.samples[1].Name = heapFreesMetric
	return s
}

func (s *RuntimeSource) Sample() Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	metrics.Read(s.samples[:])
	var out Sample
	if s.samples[0].Value.Kind() == metrics.KindUint64 {
		out.Allocated = s.samples[0].Value.Uint64()
	}
	if s.samples[1].Value.Kind() == metrics.KindUint64 {
		out.Deallocated = s.samples[1].Value.Uint64()
	}
	return out
}

// Manual is a Source fed explicitly by instrumented code.
type Manual struct {
	allocated   atomic.Uint64
	deallocated atomic.Uint64
}

// Alloc records n allocated bytes.
func (m *Manual) Alloc(n uint64) {
	m.allocated.Add(n)
}

// Free records n released bytes.
func (m *Manual) Free(n uint64) {
	m.deallocated.Add(n)
}

func (m *Manual) Sample() Sample {
	return Sample{
		Allocated:   m.allocated.Load(),
		Deallocated: m.deallocated.Load(),
	}
}
