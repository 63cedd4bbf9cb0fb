package message

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists chat messages in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a message store backed by the given database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append inserts a message into the messages table.
func (s *PostgresStore) Append(ctx context.Context, msg Message) error {
	const query = `
		INSERT INTO messages (author, body, created_at)
		VALUES ($1, $2, $3)`

	_, err := s.db.ExecContext(ctx, query, msg.Author, msg.Text, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("message: insert: %w", err)
	}
	return nil
}

// Recent returns the last n messages, oldest first. The query fetches the
// newest n rows and the result is reversed in memory to restore
// chronological order.
func (s *PostgresStore) Recent(ctx context.Context, n int) ([]Message, error) {
	const query = `
		SELECT author, body, created_at
		FROM messages
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("message: query recent: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Author, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("message: scan row: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("message: iterate rows: %w", err)
	}

	// Reverse newest-first into oldest-first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
