package network

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/KilimcininKorOglu/cloudkv/internal/logging"
	"github.com/KilimcininKorOglu/cloudkv/internal/message"
)

// Handler answers one inbound request.
type Handler interface {
	Handle(ctx context.Context, req *message.Message) *message.Message
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req *message.Message) *message.Message

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, req *message.Message) *message.Message {
	return f(ctx, req)
}

// Server accepts connections and answers every framed request on them.
type Server struct {
	addr        string
	handler     Handler
	logger      logging.Logger
	idleTimeout time.Duration

	listener net.Listener
	conns    map[net.Conn]struct{}
	closed   bool
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	wg       sync.WaitGroup
}

// NewServer creates a server for addr.
func NewServer(addr string, handler Handler, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:        addr,
		handler:     handler,
		logger:      logger,
		idleTimeout: 2 * DefaultTimeout,
		conns:       make(map[net.Conn]struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Listen binds the listener and starts accepting connections.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrServerClosed
	}

	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = l

	s.wg.Add(1)
	go s.acceptLoop(l)

	s.logger.Info("listening", "address", l.Addr().String())
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) acceptLoop(l net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := l.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
		var resp *message.Message
		req, err := message.ReadFrame(conn)
		switch {
		case errors.Is(err, message.ErrMalformed):
			// The frame was consumed whole, so the stream is still in sync.
			s.logger.Debug("malformed request", "remote", conn.RemoteAddr().String())
			resp = (&message.Message{Type: message.TypeResponse}).Fail(message.NotSupported)
		case err != nil:
			return
		default:
			resp = s.handler.Handle(s.ctx, req)
			if resp == nil {
				resp = message.NewResponse(req).Fail(message.NotSupported)
			}
		}

		conn.SetWriteDeadline(time.Now().Add(DefaultTimeout))
		if err := message.WriteFrame(conn, resp); err != nil {
			s.logger.Debug("write response failed", "remote", conn.RemoteAddr().String(), "error", err)
			return
		}
	}
}

// Close stops accepting, closes open connections and waits for their
// goroutines to finish.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cancel()

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}
