package relay

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDropOldest(t *testing.T) {
	const capacity = 4
	const total = 10

	var droppedViaHook int
	q := NewQueue(capacity, func(n int) { droppedViaHook += n })

	for i := 0; i < total; i++ {
		q.Push([]byte(fmt.Sprintf("m%d", i)))
		assert.LessOrEqual(t, q.Len(), capacity)
	}

	// Exactly the most recent items that fit, in order; nothing older than
	// a dropped item survives.
	var delivered []string
	for {
		item, ok := q.TryPop()
		if !ok {
			break
		}
		delivered = append(delivered, string(item))
	}
	assert.Equal(t, []string{"m6", "m7", "m8", "m9"}, delivered)
	assert.Equal(t, uint64(total-capacity), q.Dropped())
	assert.Equal(t, total-capacity, droppedViaHook)
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	q := NewQueue(4, nil)

	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Push([]byte("late"))
	}()

	item, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "late", string(item))
}

func TestQueuePopContextCanceled(t *testing.T) {
	q := NewQueue(4, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueueClose(t *testing.T) {
	q := NewQueue(4, nil)
	q.Push([]byte("before"))
	q.Close()

	// Items already buffered stay readable via TryPop.
	item, ok := q.TryPop()
	require.True(t, ok)
	assert.Equal(t, "before", string(item))

	_, err := q.Pop(context.Background())
	assert.ErrorIs(t, err, ErrQueueClosed)

	// Pushes after close are discarded.
	q.Push([]byte("after"))
	_, ok = q.TryPop()
	assert.False(t, ok)
}

func TestQueueReadySignalCoalesces(t *testing.T) {
	q := NewQueue(8, nil)
	q.Push([]byte("a"))
	q.Push([]byte("b"))

	<-q.Ready()
	var drained []string
	for {
		item, ok := q.TryPop()
		if !ok {
			break
		}
		drained = append(drained, string(item))
	}
	assert.Equal(t, []string{"a", "b"}, drained)

	select {
	case <-q.Ready():
		t.Fatal("no signal expected for an empty queue")
	case <-time.After(20 * time.Millisecond):
	}
}
