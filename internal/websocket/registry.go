package websocket

import "sync"

// Registry tracks live sessions by room, for shutdown and introspection.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]map[string]*Session),
	}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions[s.Room] == nil {
		r.sessions[s.Room] = make(map[string]*Session)
	}
	r.sessions[s.Room][s.ID] = s
}

func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.sessions[s.Room]; ok {
		delete(room, s.ID)
		if len(room) == 0 {
			delete(r.sessions, s.Room)
		}
	}
}

func (r *Registry) RoomSessions(room string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Session
	for _, s := range r.sessions[room] {
		result = append(result, s)
	}
	return result
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, room := range r.sessions {
		n += len(room)
	}
	return n
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, room := range r.sessions {
		for _, s := range room {
			s.Close()
		}
	}
}
