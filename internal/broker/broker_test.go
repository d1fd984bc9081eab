package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestPublishFansOut(t *testing.T) {
	b := New[int](4, nil)
	c1, unsub1 := b.Subscribe()
	defer unsub1()
	c2, unsub2 := b.Subscribe()
	defer unsub2()
	assert.Equal(t, 2, b.Subscribers())

	b.Publish(7)
	assert.Equal(t, 7, <-c1)
	assert.Equal(t, 7, <-c2)
}

func TestSlowSubscriberDrops(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	b := New[int](1, zap.New(core))
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Publish(1)
	b.Publish(2)

	assert.Equal(t, 1, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("expected the second message to be dropped, got %d", v)
	default:
	}
	assert.Equal(t, 1, logs.FilterMessage("dropping message for slow subscriber").Len())
}

func TestUnsubscribeClosesOnce(t *testing.T) {
	b := New[string](0, nil)
	ch, unsub := b.Subscribe()
	unsub()
	unsub()

	_, ok := <-ch
	require.False(t, ok)
	assert.Zero(t, b.Subscribers())

	// Publishing with no subscribers is a no-op.
	b.Publish("ignored")
}
