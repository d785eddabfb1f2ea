package broker

import (
	"context"
	"sync"
)

// Memory is the in-process broker backend. Topics are created lazily on
// first use and freed once their last subscriber leaves.
type Memory struct {
	mu     sync.Mutex
	topics map[string]*topic
}

func NewMemory() *Memory {
	return &Memory{topics: make(map[string]*topic)}
}

type topic struct {
	mu   sync.RWMutex
	subs map[uint64]Sink
	next uint64
}

func (m *Memory) Publish(_ context.Context, room string, payload []byte) error {
	m.mu.Lock()
	t := m.topics[room]
	m.mu.Unlock()

	if t == nil {
		// No subscribers yet; nothing to deliver.
		return nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, sink := range t.subs {
		sink.Deliver(payload)
	}
	return nil
}

func (m *Memory) Subscribe(_ context.Context, room string, sink Sink) (Subscription, error) {
	m.mu.Lock()
	t, ok := m.topics[room]
	if !ok {
		t = &topic{subs: make(map[uint64]Sink)}
		m.topics[room] = t
	}

	// Insert while still holding the broker lock. A concurrent Close of the
	// topic's last subscriber must not garbage-collect the topic between the
	// lookup above and this insertion, or the new subscription would land on
	// an orphaned topic that Publish can no longer find.
	t.mu.Lock()
	id := t.next
	t.next++
	t.subs[id] = sink
	t.mu.Unlock()
	m.mu.Unlock()

	return &memorySub{broker: m, room: room, topic: t, id: id}, nil
}

type memorySub struct {
	broker *Memory
	room   string
	topic  *topic
	id     uint64
	once   sync.Once
}

func (s *memorySub) Close() {
	s.once.Do(func() {
		s.topic.mu.Lock()
		delete(s.topic.subs, s.id)
		empty := len(s.topic.subs) == 0
		s.topic.mu.Unlock()

		if !empty {
			return
		}
		// Garbage-collect the idle topic. Re-check under the broker lock:
		// a new subscriber may have arrived in between.
		s.broker.mu.Lock()
		if t, ok := s.broker.topics[s.room]; ok && t == s.topic {
			t.mu.RLock()
			stillEmpty := len(t.subs) == 0
			t.mu.RUnlock()
			if stillEmpty {
				delete(s.broker.topics, s.room)
			}
		}
		s.broker.mu.Unlock()
	})
}
