package gateway

import (
	"sync/atomic"

	"github.com/parley/chat-server/internal/auth"
)

// Sender is the write half of a client's transport connection.
type Sender interface {
	WriteMessage(data []byte) error
}

// Client is the per-connection state object. It is created once the
// handshake token has been verified and carries everything the gateway needs
// to run the connection: the resolved identity, the transport write half,
// and the teardown guard. All connection-scoped cleanup hangs off this
// object instead of closures, so teardown can be invoked from any path
// (clean close, read error, heartbeat eviction) and runs exactly once.
type Client struct {
	ID       string        // connection ID, unique within this instance
	Identity auth.Identity // immutable for the connection's lifetime

	conn   Sender
	done   chan struct{} // closed on teardown; stops the refresh loop
	closed int32         // atomic flag guarding one-shot teardown
}

// send writes a frame to the client's transport. Errors are returned for
// logging; a failed write does not tear the connection down here, the
// transport's own read/heartbeat path handles dead connections.
func (c *Client) send(data []byte) error {
	return c.conn.WriteMessage(data)
}

// beginTeardown flips the closed flag. It returns true exactly once; every
// later call is a no-op signal to the caller.
func (c *Client) beginTeardown() bool {
	return atomic.CompareAndSwapInt32(&c.closed, 0, 1)
}
