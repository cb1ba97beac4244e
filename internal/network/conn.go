// Package network carries cloudkv messages over TCP.
package network

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/KilimcininKorOglu/cloudkv/internal/message"
)

// DefaultTimeout bounds a dial or round trip when the context has no deadline.
const DefaultTimeout = 5 * time.Second

// Network errors.
var (
	// ErrServerClosed is returned by Listen on a closed server.
	ErrServerClosed = errors.New("network: server closed")

	// ErrTransportClosed is returned by Send on a closed transport.
	ErrTransportClosed = errors.New("network: transport closed")
)

// Conn is a framed message connection.
type Conn struct {
	conn net.Conn
}

// Dial connects to addr. The context bounds connection establishment and,
// if it carries a deadline, every subsequent Send and Receive.
func Dial(ctx context.Context, addr string) (*Conn, error) {
	var d net.Dialer
	if _, ok := ctx.Deadline(); !ok {
		d.Timeout = DefaultTimeout
	}

	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		c.SetDeadline(deadline)
	} else {
		c.SetDeadline(time.Now().Add(DefaultTimeout))
	}
	return &Conn{conn: c}, nil
}

// Send writes one message.
func (c *Conn) Send(m *message.Message) error {
	return message.WriteFrame(c.conn, m)
}

// Receive reads one message.
func (c *Conn) Receive() (*message.Message, error) {
	return message.ReadFrame(c.conn)
}

// Close closes the connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// Call sends req to addr over a fresh connection and returns the response.
func Call(ctx context.Context, addr string, req *message.Message) (*message.Message, error) {
	conn, err := Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	// Unblock I/O if the context is cancelled before its deadline.
	stop := context.AfterFunc(ctx, func() { conn.conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	if err := conn.Send(req); err != nil {
		return nil, err
	}
	return conn.Receive()
}
