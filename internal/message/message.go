// Package message provides the durable chat message log. Messages are
// persisted before they are broadcast, so no client ever sees a message that
// is not also durably recorded. The package ships a PostgreSQL-backed store
// for production and an in-memory store for tests and single-instance runs.
package message

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTextRunes is the maximum character count of a chat message. Longer
// messages are truncated before persistence and broadcast.
const MaxTextRunes = 2000

// Message is a single immutable chat message.
type Message struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the append-only message log.
type Store interface {
	// Append durably records a message.
	Append(ctx context.Context, msg Message) error
	// Recent returns the last n messages in chronological order, oldest first.
	Recent(ctx context.Context, n int) ([]Message, error)
}

// Normalize trims surrounding whitespace and truncates the text to
// MaxTextRunes characters. It returns the cleaned text and false if the
// message is empty after trimming (in which case it must be dropped).
func Normalize(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	if utf8.RuneCountInString(text) > MaxTextRunes {
		runes := []rune(text)
		text = string(runes[:MaxTextRunes])
	}
	return text, true
}
