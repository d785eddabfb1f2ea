package history

import "sync"

// Registry maps room names to their caches, creating them lazily on first
// reference. Rooms are never destroyed; the cache must outlive any single
// connection so late joiners still get backfill.
type Registry struct {
	mu       sync.Mutex
	capacity int
	rooms    map[string]*Cache
}

func NewRegistry(capacity int) *Registry {
	return &Registry{
		capacity: capacity,
		rooms:    make(map[string]*Cache),
	}
}

func (r *Registry) ForRoom(room string) *Cache {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.rooms[room]
	if !ok {
		c = NewCache(r.capacity)
		r.rooms[room] = c
	}
	return c
}

func (r *Registry) Rooms() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
