package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/roomchat/relay/internal/domain"
)

// Memory is a Store kept entirely in process. It backs tests and
// single-node runs that have no Postgres available.
type Memory struct {
	mu       sync.RWMutex
	messages []*domain.ChatMessage
}

func NewMemory() *Memory {
	return &Memory{}
}

func (s *Memory) Save(_ context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := *msg

	if saved.ID == "" {
		saved.ID = uuid.NewString()
		s.messages = append(s.messages, &saved)
		return &saved, nil
	}

	for i, existing := range s.messages {
		if existing.ID == saved.ID {
			s.messages[i] = &saved
			return &saved, nil
		}
	}
	return nil, domain.ErrMessageNotFound
}

func (s *Memory) FindByRoom(_ context.Context, room string, page, size int) ([]*domain.ChatMessage, error) {
	s.mu.RLock()
	var matched []*domain.ChatMessage
	for _, m := range s.messages {
		if m.Room == room {
			matched = append(matched, m)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	offset := page * size
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + size
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]*domain.ChatMessage, 0, end-offset)
	for _, m := range matched[offset:end] {
		copied := *m
		out = append(out, &copied)
	}
	return out, nil
}

func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
