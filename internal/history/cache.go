// Package history keeps the bounded per-room buffer of recent serialized
// messages used to backfill newly joined connections.
package history

import "sync"

// Entry is a serialized snapshot of a chat message. It carries no reference
// back to the stored record; evicting or overwriting it never touches the
// durable store.
type Entry struct {
	MessageID string
	Payload   []byte
}

// Cache holds at most capacity entries for one room, oldest first. Mutations
// on one room are serialized; snapshots do not block writers for longer than
// the copy.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	entries  []Entry
}

func NewCache(capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{capacity: capacity}
}

func (c *Cache) Capacity() int {
	return c.capacity
}

// Append adds an entry at the tail and evicts from the head until the buffer
// fits the capacity again.
func (c *Cache) Append(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append(c.entries, e)
	if over := len(c.entries) - c.capacity; over > 0 {
		c.entries = append(c.entries[:0:0], c.entries[over:]...)
	}
}

// Snapshot returns a point-in-time copy of the buffered payloads, oldest
// first. Appends running concurrently may or may not be included.
func (c *Cache) Snapshot() [][]byte {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([][]byte, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Payload
	}
	return out
}

// FindByMessageID scans for the first entry with the given message id.
// Linear; the buffer is small.
func (c *Cache) FindByMessageID(id string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, e := range c.entries {
		if e.MessageID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Replace overwrites the first entry matching e.MessageID in place. Silent
// no-op when the message has already been evicted.
func (c *Cache) Replace(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.entries {
		if c.entries[i].MessageID == e.MessageID {
			c.entries[i] = e
			return
		}
	}
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
