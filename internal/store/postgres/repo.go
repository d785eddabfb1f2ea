package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/roomchat/relay/internal/domain"
)

type Repository struct {
	DB *sql.DB
}

func Open(dsn string) (*Repository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &Repository{DB: db}, nil
}

func (r *Repository) Close() error {
	return r.DB.Close()
}

func (r *Repository) Save(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	saved := *msg

	if saved.ID == "" {
		saved.ID = uuid.NewString()
		_, err := r.DB.ExecContext(ctx, `
			INSERT INTO chat_messages (id, room, username, message, timestamp)
			VALUES ($1, $2, $3, $4, $5)
		`,
			saved.ID,
			saved.Room,
			saved.User,
			saved.Body,
			saved.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		return &saved, nil
	}

	// Postgres reports an update of a missing row as zero rows affected;
	// surface that as not-found instead of a silent no-op.
	res, err := r.DB.ExecContext(ctx, `
		UPDATE chat_messages
		SET room = $2, username = $3, message = $4, timestamp = $5
		WHERE id = $1
	`,
		saved.ID,
		saved.Room,
		saved.User,
		saved.Body,
		saved.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, domain.ErrMessageNotFound
	}
	return &saved, nil
}

func (r *Repository) FindByRoom(ctx context.Context, room string, page, size int) ([]*domain.ChatMessage, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, room, username, message, timestamp
		FROM chat_messages
		WHERE room = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`, room, size, page*size)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.Room, &m.User, &m.Body, &m.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}
