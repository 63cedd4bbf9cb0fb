package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	svc := NewJWTService([]byte("test-secret"))

	id := Identity{UserID: "user-123", DisplayName: "alice"}
	token, err := svc.Issue(id)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	got, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.UserID != id.UserID {
		t.Errorf("expected user id %q, got %q", id.UserID, got.UserID)
	}
	if got.DisplayName != id.DisplayName {
		t.Errorf("expected display name %q, got %q", id.DisplayName, got.DisplayName)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuing := NewJWTService([]byte("secret-a"))
	verifying := NewJWTService([]byte("secret-b"))

	token, err := issuing.Issue(Identity{UserID: "user-123", DisplayName: "alice"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := verifying.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := NewJWTService([]byte("test-secret"))
	svc.tokenTTL = -time.Minute // already expired at issue time

	token, err := svc.Issue(Identity{UserID: "user-123", DisplayName: "alice"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := NewJWTService([]byte("test-secret"))

	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not a jwt", "nonsense"},
		{"truncated", "eyJhbGciOiJIUzI1NiJ9"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Verify(tc.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}
