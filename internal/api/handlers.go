// Package api implements the request/response surface around the chat core:
// credential registration and login, and the recent-messages read endpoint.
// These endpoints are plain consumers of the auth and message stores; none
// of the real-time coordination logic lives here.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/parley/chat-server/internal/auth"
	"github.com/parley/chat-server/internal/message"
)

// maxRecent caps the number of messages the read endpoint returns.
const maxRecent = 200

// Handler serves the admin endpoints.
type Handler struct {
	users    *auth.UserStore
	tokens   *auth.JWTService
	messages message.Store
}

// NewHandler creates the admin endpoint handler.
func NewHandler(users *auth.UserStore, tokens *auth.JWTService, messages message.Store) *Handler {
	return &Handler{users: users, tokens: tokens, messages: messages}
}

type credentialsRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type tokenResponse struct {
	Token       string `json:"token"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// Register handles POST /register: it creates a credential record and
// returns a signed token so the client can connect immediately.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id, err := h.users.Register(r.Context(), req.Username, req.Password, req.DisplayName)
	if errors.Is(err, auth.ErrUserExists) {
		http.Error(w, "username already taken", http.StatusConflict)
		return
	}
	if err != nil {
		log.Printf("[api] register: %v", err)
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}

	h.writeToken(w, http.StatusCreated, id)
}

// Login handles POST /login: it verifies a username/password pair and
// returns a signed token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		log.Printf("[api] login: %v", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	h.writeToken(w, http.StatusOK, id)
}

// RecentMessages handles GET /messages/recent?n=: it returns the last n
// messages, oldest first.
func (h *Handler) RecentMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	n := 50
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid n parameter", http.StatusBadRequest)
			return
		}
		n = parsed
	}
	if n > maxRecent {
		n = maxRecent
	}

	msgs, err := h.messages.Recent(r.Context(), n)
	if err != nil {
		log.Printf("[api] recent messages: %v", err)
		http.Error(w, "message store unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Messages []message.Message `json:"messages"`
	}{Messages: msgs})
}

func (h *Handler) writeToken(w http.ResponseWriter, status int, id auth.Identity) {
	token, err := h.tokens.Issue(id)
	if err != nil {
		log.Printf("[api] issue token: %v", err)
		http.Error(w, "token issuance failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(tokenResponse{
		Token:       token,
		UserID:      id.UserID,
		DisplayName: id.DisplayName,
	})
}
