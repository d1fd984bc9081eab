// Package broker fans published values out to every current subscriber.
package broker

import (
	"sync"

	"go.uber.org/zap"
)

// DefaultBuffer is the per-subscriber channel size used when none is given.
const DefaultBuffer = 8

type Broker[T any] struct {
	mu      sync.RWMutex
	clients map[chan T]struct{}
	buffer  int
	logger  *zap.Logger
}

// New returns a broker whose subscribers get channels of the given buffer
// size. A small buffer avoids head-of-line blocking.
func New[T any](buffer int, logger *zap.Logger) *Broker[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker[T]{
		clients: make(map[chan T]struct{}),
		buffer:  buffer,
		logger:  logger,
	}
}

func (b *Broker[T]) Subscribe() (ch chan T, unsubscribe func()) {
	ch = make(chan T, b.buffer)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.clients, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers v to every subscriber that has room for it.
func (b *Broker[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- v:
		default:
			// client too slow; drop the message for this client
			b.logger.Debug("dropping message for slow subscriber")
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Broker[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
