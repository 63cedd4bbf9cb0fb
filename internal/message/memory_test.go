package message

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestMemoryAppendAndRecent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)

	base := time.Unix(1700000000, 0)
	for i, text := range []string{"hello", "hi", "how are you?"} {
		err := s.Append(ctx, Message{Author: "alice", Text: text, CreatedAt: base.Add(time.Duration(i) * time.Second)})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	msgs, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Text != "hello" {
		t.Errorf("expected first message %q, got %q", "hello", msgs[0].Text)
	}
	if msgs[2].Text != "how are you?" {
		t.Errorf("expected last message %q, got %q", "how are you?", msgs[2].Text)
	}
}

func TestMemoryRingWraparound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(5)

	// Add 7 messages; the store holds only 5.
	for i := 1; i <= 7; i++ {
		_ = s.Append(ctx, Message{Author: "a", Text: fmt.Sprintf("msg-%d", i)})
	}

	msgs, err := s.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(msgs))
	}

	// Should contain messages 3 through 7 in order.
	for i, msg := range msgs {
		expected := fmt.Sprintf("msg-%d", i+3)
		if msg.Text != expected {
			t.Errorf("index %d: expected %q, got %q", i, expected, msg.Text)
		}
	}
}

func TestMemoryRecentFewerThanStored(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)

	for i := 1; i <= 6; i++ {
		_ = s.Append(ctx, Message{Text: fmt.Sprintf("msg-%d", i)})
	}

	msgs, err := s.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	// Should be the newest 3, oldest first.
	for i, msg := range msgs {
		expected := fmt.Sprintf("msg-%d", i+4)
		if msg.Text != expected {
			t.Errorf("index %d: expected %q, got %q", i, expected, msg.Text)
		}
	}
}

func TestMemoryRecentEmpty(t *testing.T) {
	s := NewMemoryStore(5)

	msgs, err := s.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if msgs == nil {
		t.Fatal("expected non-nil empty slice, got nil")
	}
	if len(msgs) != 0 {
		t.Fatalf("expected 0 messages, got %d", len(msgs))
	}
}
