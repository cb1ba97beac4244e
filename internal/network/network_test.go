package network

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/KilimcininKorOglu/cloudkv/internal/message"
)

func echoHandler(ctx context.Context, req *message.Message) *message.Message {
	resp := message.NewResponse(req)
	resp.Success = true
	resp.KVPs = req.KVPs
	return resp
}

func TestServerCall(t *testing.T) {
	server := NewServer("127.0.0.1:0", HandlerFunc(echoHandler), nil)
	if err := server.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer server.Close()

	req := message.NewRequest(message.OpPut)
	req.AddKVP("x", "1")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	resp, err := Call(ctx, server.Addr(), req)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !resp.Success {
		t.Error("Expected success")
	}
	if resp.Type != message.TypeResponse || resp.Operation != message.OpPut {
		t.Errorf("Unexpected header: %+v", resp)
	}
	if len(resp.KVPs) != 1 || resp.KVPs[0].Value != "1" {
		t.Errorf("KVPs = %+v", resp.KVPs)
	}
}

func TestConnMultipleRequests(t *testing.T) {
	var mu sync.Mutex
	calls := 0

	server := NewServer("127.0.0.1:0", HandlerFunc(func(ctx context.Context, req *message.Message) *message.Message {
		mu.Lock()
		calls++
		mu.Unlock()
		return echoHandler(ctx, req)
	}), nil)
	if err := server.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	conn, err := Dial(ctx, server.Addr())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	for i := 0; i < 5; i++ {
		if err := conn.Send(message.NewRequest(message.OpGet)); err != nil {
			t.Fatalf("Send %d failed: %v", i, err)
		}
		if _, err := conn.Receive(); err != nil {
			t.Fatalf("Receive %d failed: %v", i, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 5 {
		t.Errorf("Handler called %d times, want 5", calls)
	}
}

func TestNilResponseNotSupported(t *testing.T) {
	server := NewServer("127.0.0.1:0", HandlerFunc(func(context.Context, *message.Message) *message.Message {
		return nil
	}), nil)
	if err := server.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	resp, err := Call(ctx, server.Addr(), message.NewRequest(message.OpJoinCluster))
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if resp.Success || resp.Message != message.NotSupported {
		t.Errorf("Expected not supported failure, got %+v", resp)
	}
}

func TestTransportSendUnreachable(t *testing.T) {
	server := NewServer("127.0.0.1:0", HandlerFunc(echoHandler), nil)
	if err := server.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	addr := server.Addr()
	server.Close()

	transport := NewTCPTransport(200 * time.Millisecond)
	if _, err := transport.Send(context.Background(), addr, message.NewRequest(message.OpRaftVote)); err == nil {
		t.Error("Expected error sending to closed server")
	}
}

func TestTransportClosed(t *testing.T) {
	transport := NewTCPTransport(time.Second)
	transport.Close()

	if _, err := transport.Send(context.Background(), "127.0.0.1:1", message.NewRequest(message.OpGet)); err != ErrTransportClosed {
		t.Errorf("Expected ErrTransportClosed, got %v", err)
	}
}

func TestServerCloseIdempotent(t *testing.T) {
	server := NewServer("127.0.0.1:0", HandlerFunc(echoHandler), nil)
	if err := server.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	if err := server.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := server.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
	if err := server.Listen(); err != ErrServerClosed {
		t.Errorf("Expected ErrServerClosed, got %v", err)
	}
}

func TestServerMalformedKeepsConnection(t *testing.T) {
	server := NewServer("127.0.0.1:0", HandlerFunc(echoHandler), nil)
	if err := server.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer server.Close()

	conn, err := net.Dial("tcp", server.Addr())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	// Header plus a payload that stops before its strings
	frame := []byte{200, 3, 0, 0, 0, 0, 200, 0}
	if _, err := conn.Write(frame); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	resp, err := message.ReadFrame(conn)
	if err != nil {
		t.Fatalf("Expected a response to a malformed frame, got %v", err)
	}
	if resp.Type != message.TypeResponse || resp.Success || resp.Message != message.NotSupported {
		t.Errorf("Expected not supported failure, got %+v", resp)
	}

	// The same connection keeps serving
	req := message.NewRequest(message.OpGet)
	req.AddKVP("x", "")
	if err := message.WriteFrame(conn, req); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	resp, err = message.ReadFrame(conn)
	if err != nil {
		t.Fatalf("ReadFrame after malformed frame failed: %v", err)
	}
	if !resp.Success || resp.Operation != message.OpGet || len(resp.KVPs) != 1 {
		t.Errorf("Unexpected echo: %+v", resp)
	}
}

func TestServerOversizedFrameClosesConnection(t *testing.T) {
	server := NewServer("127.0.0.1:0", HandlerFunc(echoHandler), nil)
	if err := server.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer server.Close()

	conn, err := net.Dial("tcp", server.Addr())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	if _, err := conn.Write([]byte{0, 0xff, 0xff, 0xff, 0xff}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := message.ReadFrame(conn); err == nil {
		t.Error("Expected the connection to be closed")
	}
}
