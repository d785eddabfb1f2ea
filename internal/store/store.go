// Package store defines the durable storage contract for chat messages.
package store

import (
	"context"

	"github.com/roomchat/relay/internal/domain"
)

type Store interface {
	// Save inserts the message when its ID is empty, assigning a fresh
	// identity, and updates the existing row otherwise. Updating a missing
	// row fails with domain.ErrMessageNotFound.
	Save(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error)

	// FindByRoom returns one page of a room's messages ordered newest first,
	// with offset = page * size.
	FindByRoom(ctx context.Context, room string, page, size int) ([]*domain.ChatMessage, error)
}
