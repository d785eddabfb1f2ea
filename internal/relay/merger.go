package relay

import "sync"

// Merger combines a room's history replay with its live subscription stream
// into one connection's outbound queue. History, when enabled, is always
// delivered before any live message: deliveries arriving while the replay is
// still pending are held back and flushed right after it.
type Merger struct {
	queue *Queue

	mu        sync.Mutex
	replaying bool
	pending   [][]byte
}

// NewMerger wraps queue. With awaitReplay true the merger buffers live
// deliveries until Replay runs; with false it passes them straight through.
func NewMerger(queue *Queue, awaitReplay bool) *Merger {
	return &Merger{queue: queue, replaying: awaitReplay}
}

// Deliver implements broker.Sink. It never blocks.
func (m *Merger) Deliver(payload []byte) {
	m.mu.Lock()
	if m.replaying {
		m.pending = append(m.pending, payload)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.queue.Push(payload)
}

// Replay pushes the history snapshot (oldest first), then the deliveries
// buffered while it ran, and switches the merger to pass-through.
func (m *Merger) Replay(snapshot [][]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, payload := range snapshot {
		m.queue.Push(payload)
	}
	for _, payload := range m.pending {
		m.queue.Push(payload)
	}
	m.pending = nil
	m.replaying = false
}
