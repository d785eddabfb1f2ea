package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomchat/relay/internal/domain"
)

func seedRoom(t *testing.T, s *Memory, room string, n int) []*domain.ChatMessage {
	t.Helper()
	base := time.Now().UTC()
	out := make([]*domain.ChatMessage, 0, n)
	for i := 0; i < n; i++ {
		saved, err := s.Save(context.Background(), &domain.ChatMessage{
			Room:      room,
			User:      "seed",
			Body:      fmt.Sprintf("m%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
		out = append(out, saved)
	}
	return out
}

func TestSaveAssignsID(t *testing.T) {
	s := NewMemory()

	saved, err := s.Save(context.Background(), &domain.ChatMessage{
		Room: "r1", User: "alice", Body: "hi", Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, 1, s.Len())

	other, err := s.Save(context.Background(), &domain.ChatMessage{
		Room: "r1", User: "alice", Body: "again", Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.NotEqual(t, saved.ID, other.ID)
}

func TestSaveUpdatesExisting(t *testing.T) {
	s := NewMemory()
	seeded := seedRoom(t, s, "r1", 1)

	edited := *seeded[0]
	edited.Body = "edited"
	saved, err := s.Save(context.Background(), &edited)
	require.NoError(t, err)
	assert.Equal(t, seeded[0].ID, saved.ID)
	assert.Equal(t, 1, s.Len())

	rows, err := s.FindByRoom(context.Background(), "r1", 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "edited", rows[0].Body)
}

func TestSaveUnknownIDFails(t *testing.T) {
	s := NewMemory()

	_, err := s.Save(context.Background(), &domain.ChatMessage{
		ID: "does-not-exist", Room: "r1", User: "alice", Body: "hi",
	})
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)
}

func TestFindByRoomNewestFirst(t *testing.T) {
	s := NewMemory()
	seedRoom(t, s, "r1", 5)
	seedRoom(t, s, "r2", 3)

	rows, err := s.FindByRoom(context.Background(), "r1", 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	for i, row := range rows {
		assert.Equal(t, fmt.Sprintf("m%d", 4-i), row.Body)
		assert.Equal(t, "r1", row.Room)
	}
}

func TestFindByRoomPaging(t *testing.T) {
	s := NewMemory()
	seedRoom(t, s, "r1", 7)

	page0, err := s.FindByRoom(context.Background(), "r1", 0, 3)
	require.NoError(t, err)
	page1, err := s.FindByRoom(context.Background(), "r1", 1, 3)
	require.NoError(t, err)
	page2, err := s.FindByRoom(context.Background(), "r1", 2, 3)
	require.NoError(t, err)

	bodies := func(rows []*domain.ChatMessage) []string {
		out := make([]string, len(rows))
		for i, r := range rows {
			out[i] = r.Body
		}
		return out
	}
	assert.Equal(t, []string{"m6", "m5", "m4"}, bodies(page0))
	assert.Equal(t, []string{"m3", "m2", "m1"}, bodies(page1))
	assert.Equal(t, []string{"m0"}, bodies(page2))

	beyond, err := s.FindByRoom(context.Background(), "r1", 3, 3)
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestFindByRoomReturnsCopies(t *testing.T) {
	s := NewMemory()
	seedRoom(t, s, "r1", 1)

	rows, err := s.FindByRoom(context.Background(), "r1", 0, 1)
	require.NoError(t, err)
	rows[0].Body = "mutated"

	again, err := s.FindByRoom(context.Background(), "r1", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "m0", again[0].Body)
}
