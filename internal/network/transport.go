package network

import (
	"context"
	"sync"
	"time"

	"github.com/KilimcininKorOglu/cloudkv/internal/message"
)

// TCPTransport sends requests to peers, one connection per request.
type TCPTransport struct {
	timeout time.Duration
	closed  bool
	mu      sync.RWMutex
}

// NewTCPTransport creates a transport whose round trips are bounded by
// timeout in addition to the caller's context.
func NewTCPTransport(timeout time.Duration) *TCPTransport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &TCPTransport{timeout: timeout}
}

// Send delivers req to peer and waits for the response.
func (t *TCPTransport) Send(ctx context.Context, peer string, req *message.Message) (*message.Message, error) {
	t.mu.RLock()
	closed := t.closed
	timeout := t.timeout
	t.mu.RUnlock()
	if closed {
		return nil, ErrTransportClosed
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return Call(ctx, peer, req)
}

// Close makes further sends fail.
func (t *TCPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
