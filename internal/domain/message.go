package domain

import "time"

// ChatMessage Invariants:
// 1. Identity: ID is empty until the store first persists the message.
// 2. Ordering: Timestamp is the ordering key within a room.
// 3. Mutability: edits replace the whole record by ID; fields are never
//    patched individually.
type ChatMessage struct {
	ID        string    `json:"id,omitempty"`
	Room      string    `json:"room"`
	User      string    `json:"user"`
	Body      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChatMessage(room, user, body string, now time.Time) *ChatMessage {
	return &ChatMessage{
		Room:      room,
		User:      user,
		Body:      body,
		Timestamp: now,
	}
}
