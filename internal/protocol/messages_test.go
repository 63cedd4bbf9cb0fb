package protocol

import (
	"encoding/json"
	"testing"
)

// ---------------------------------------------------------------------------
// Test: Parsing a valid chat message
// ---------------------------------------------------------------------------

func TestParseClientMessage_ChatMsg(t *testing.T) {
	input := []byte(`{"type":"message","text":"Hello!"}`)

	msgType, msg, err := ParseClientMessage(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != TypeMessage {
		t.Fatalf("expected type %q, got %q", TypeMessage, msgType)
	}

	cm, ok := msg.(ChatMsg)
	if !ok {
		t.Fatalf("expected ChatMsg, got %T", msg)
	}
	if cm.Text != "Hello!" {
		t.Errorf("expected text %q, got %q", "Hello!", cm.Text)
	}
}

// ---------------------------------------------------------------------------
// Test: Parsing a ping message
// ---------------------------------------------------------------------------

func TestParseClientMessage_Ping(t *testing.T) {
	input := []byte(`{"type":"ping"}`)

	msgType, msg, err := ParseClientMessage(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != TypePing {
		t.Fatalf("expected type %q, got %q", TypePing, msgType)
	}
	if _, ok := msg.(PingMsg); !ok {
		t.Fatalf("expected PingMsg, got %T", msg)
	}
}

// ---------------------------------------------------------------------------
// Test: Creating a roster server message
// ---------------------------------------------------------------------------

func TestNewServerMessage_Roster(t *testing.T) {
	payload := RosterMsg{
		Names: []string{"alice", "bob"},
	}

	data, err := NewServerMessage(TypeRoster, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Decode back and verify structure.
	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}

	if result["type"] != TypeRoster {
		t.Errorf("expected type %q, got %v", TypeRoster, result["type"])
	}

	names, ok := result["names"].([]interface{})
	if !ok {
		t.Fatalf("expected names to be an array, got %T", result["names"])
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %d", len(names))
	}
	if names[0] != "alice" || names[1] != "bob" {
		t.Errorf("unexpected names: %v", names)
	}
}

// ---------------------------------------------------------------------------
// Test: Creating a chat server message
// ---------------------------------------------------------------------------

func TestNewServerMessage_ChatMsg(t *testing.T) {
	payload := ServerChatMsg{
		Author:    "alice",
		Text:      "hi",
		CreatedAt: 1700000000,
	}

	data, err := NewServerMessage(TypeMessage, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}

	if result["type"] != TypeMessage {
		t.Errorf("expected type %q, got %v", TypeMessage, result["type"])
	}
	if result["author"] != "alice" {
		t.Errorf("expected author %q, got %v", "alice", result["author"])
	}
	if result["text"] != "hi" {
		t.Errorf("expected text %q, got %v", "hi", result["text"])
	}

	ts, ok := result["created_at"].(float64)
	if !ok {
		t.Fatalf("expected created_at to be a number, got %T", result["created_at"])
	}
	if int64(ts) != 1700000000 {
		t.Errorf("expected created_at 1700000000, got %v", ts)
	}
}

// ---------------------------------------------------------------------------
// Test: Parsing an unknown message type returns an error
// ---------------------------------------------------------------------------

func TestParseClientMessage_UnknownType(t *testing.T) {
	input := []byte(`{"type":"unknown_type","data":"something"}`)

	msgType, _, err := ParseClientMessage(input)
	if err == nil {
		t.Fatal("expected error for unknown type, got nil")
	}
	if msgType != "unknown_type" {
		t.Errorf("expected type %q returned even on error, got %q", "unknown_type", msgType)
	}
}

// ---------------------------------------------------------------------------
// Test: Parsing malformed input
// ---------------------------------------------------------------------------

func TestParseClientMessage_Malformed(t *testing.T) {
	cases := []struct {
		name  string
		input []byte
	}{
		{"invalid json", []byte(`{not json`)},
		{"missing type", []byte(`{"text":"hello"}`)},
		{"empty type", []byte(`{"type":"","text":"hello"}`)},
		{"empty input", []byte(``)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := ParseClientMessage(tc.input); err == nil {
				t.Fatalf("expected error for %s, got nil", tc.name)
			}
		})
	}
}
