package relay

import (
	"context"
	"errors"
	"sync"
)

var ErrQueueClosed = errors.New("outbound queue closed")

// Queue is the bounded outbound buffer for one connection. Push never
// blocks: when the buffer is full the oldest items are discarded to admit
// the new one, so a slow consumer sees the newest messages rather than a
// growing backlog.
type Queue struct {
	mu       sync.Mutex
	items    [][]byte
	capacity int
	closed   bool
	dropped  uint64
	notify   chan struct{}
	onDrop   func(n int)
}

// NewQueue creates a queue holding at most capacity items. onDrop, if not
// nil, is called with the number of items discarded by a Push; it runs on
// the pushing goroutine and must not block.
func NewQueue(capacity int, onDrop func(n int)) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
		onDrop:   onDrop,
	}
}

func (q *Queue) Push(payload []byte) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	var dropped int
	if over := len(q.items) - q.capacity + 1; over > 0 {
		q.items = append(q.items[:0:0], q.items[over:]...)
		q.dropped += uint64(over)
		dropped = over
	}
	q.items = append(q.items, payload)
	q.mu.Unlock()

	if dropped > 0 && q.onDrop != nil {
		q.onDrop(dropped)
	}
	q.signal()
}

// TryPop removes and returns the oldest item without blocking.
func (q *Queue) TryPop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Pop blocks until an item is available, the queue is closed, or ctx ends.
func (q *Queue) Pop(ctx context.Context) ([]byte, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, ErrQueueClosed
		}
		select {
		case <-q.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Ready signals when items may be available. Signals are coalesced; after a
// wake-up the consumer should drain with TryPop.
func (q *Queue) Ready() <-chan struct{} {
	return q.notify
}

func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped reports how many items Push has discarded so far.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

func (q *Queue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
