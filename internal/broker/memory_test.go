package broker

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectSink struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (s *collectSink) Deliver(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
}

func (s *collectSink) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.payloads))
	for i, p := range s.payloads {
		out[i] = string(p)
	}
	return out
}

func TestMemoryFanout(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	alice := &collectSink{}
	bob := &collectSink{}

	subA, err := m.Subscribe(ctx, "r1", alice)
	require.NoError(t, err)
	defer subA.Close()
	subB, err := m.Subscribe(ctx, "r1", bob)
	require.NoError(t, err)
	defer subB.Close()

	require.NoError(t, m.Publish(ctx, "r1", []byte("hi")))

	// Every subscriber gets every publication, the publisher's own
	// subscription included.
	assert.Equal(t, []string{"hi"}, alice.received())
	assert.Equal(t, []string{"hi"}, bob.received())
}

func TestMemoryNoBacklog(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Publish(ctx, "r1", []byte("before")))

	late := &collectSink{}
	sub, err := m.Subscribe(ctx, "r1", late)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, m.Publish(ctx, "r1", []byte("after")))
	assert.Equal(t, []string{"after"}, late.received())
}

func TestMemoryUnsubscribeIsolation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	leaving := &collectSink{}
	staying := &collectSink{}

	subLeaving, err := m.Subscribe(ctx, "r1", leaving)
	require.NoError(t, err)
	subStaying, err := m.Subscribe(ctx, "r1", staying)
	require.NoError(t, err)
	defer subStaying.Close()

	subLeaving.Close()
	subLeaving.Close() // idempotent

	require.NoError(t, m.Publish(ctx, "r1", []byte("still here")))

	assert.Empty(t, leaving.received())
	assert.Equal(t, []string{"still here"}, staying.received())
}

func TestMemoryRoomsAreIndependent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	r1 := &collectSink{}
	r2 := &collectSink{}

	sub1, err := m.Subscribe(ctx, "r1", r1)
	require.NoError(t, err)
	defer sub1.Close()
	sub2, err := m.Subscribe(ctx, "r2", r2)
	require.NoError(t, err)
	defer sub2.Close()

	require.NoError(t, m.Publish(ctx, "r1", []byte("one")))

	assert.Equal(t, []string{"one"}, r1.received())
	assert.Empty(t, r2.received())
}

func TestMemorySubscribeRacingLastClose(t *testing.T) {
	ctx := context.Background()

	// A Subscribe overlapping the last subscriber's Close must never land on
	// a topic the garbage collector has already detached: the new subscriber
	// has to see every publication that follows.
	for i := 0; i < 2000; i++ {
		m := NewMemory()

		leaving := &collectSink{}
		subLeaving, err := m.Subscribe(ctx, "r1", leaving)
		require.NoError(t, err)

		joining := &collectSink{}
		var joined Subscription
		done := make(chan struct{})
		go func() {
			defer close(done)
			s, err := m.Subscribe(ctx, "r1", joining)
			if err == nil {
				joined = s
			}
		}()
		subLeaving.Close()
		<-done
		require.NotNil(t, joined)

		require.NoError(t, m.Publish(ctx, "r1", []byte("hi")))
		require.Equal(t, []string{"hi"}, joining.received())
		joined.Close()
	}
}

func TestMemoryIdleTopicFreed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	sink := &collectSink{}
	sub, err := m.Subscribe(ctx, "r1", sink)
	require.NoError(t, err)

	m.mu.Lock()
	assert.Len(t, m.topics, 1)
	m.mu.Unlock()

	sub.Close()

	m.mu.Lock()
	assert.Empty(t, m.topics)
	m.mu.Unlock()

	// The room comes back lazily on the next use.
	require.NoError(t, m.Publish(ctx, "r1", []byte("ignored")))
	sub2, err := m.Subscribe(ctx, "r1", sink)
	require.NoError(t, err)
	defer sub2.Close()
}
