package gateway

import "sync"

// Registry is the per-instance map of local connections to their client
// state. It is exclusively owned by this process; nothing in it survives a
// restart, since reconnecting clients re-register their presence anyway.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Add registers a client under its connection ID.
func (r *Registry) Add(c *Client) {
	r.mu.Lock()
	r.clients[c.ID] = c
	r.mu.Unlock()
}

// Remove deletes a client by connection ID. Returns true if the client was
// present, false if it was already gone.
func (r *Registry) Remove(connID string) bool {
	r.mu.Lock()
	_, ok := r.clients[connID]
	if ok {
		delete(r.clients, connID)
	}
	r.mu.Unlock()
	return ok
}

// Get returns the client for the given connection ID, or nil.
func (r *Registry) Get(connID string) *Client {
	r.mu.RLock()
	c := r.clients[connID]
	r.mu.RUnlock()
	return c
}

// ForEach invokes fn for every locally attached client. The iteration runs
// over a snapshot, so fn may add or remove clients without deadlocking.
func (r *Registry) ForEach(fn func(c *Client)) {
	r.mu.RLock()
	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.RUnlock()

	for _, c := range clients {
		fn(c)
	}
}

// Len returns the number of locally attached clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	n := len(r.clients)
	r.mu.RUnlock()
	return n
}
