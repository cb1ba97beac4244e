package raft

import (
	"context"
	"sync"

	"github.com/KilimcininKorOglu/cloudkv/internal/message"
)

// Transport delivers a request to a peer and returns its response.
// Any error is treated as the peer being unreachable.
type Transport interface {
	Send(ctx context.Context, peer string, req *message.Message) (*message.Message, error)
}

// PeerSet enumerates the peers a node replicates to.
type PeerSet interface {
	// PartitionsByPeer maps every peer address to the partitions it holds.
	PartitionsByPeer() map[string][]uint32
}

// StaticPeers is a fixed PeerSet holding every partition on every peer.
type StaticPeers []string

// PartitionsByPeer implements PeerSet.
func (p StaticPeers) PartitionsByPeer() map[string][]uint32 {
	out := make(map[string][]uint32, len(p))
	for _, addr := range p {
		out[addr] = nil
	}
	return out
}

// RPCHandler answers one inbound message.
type RPCHandler func(req *message.Message) *message.Message

// InMemoryNetwork simulates a network for testing. Messages pass through
// the wire codec so encoding bugs surface in tests.
type InMemoryNetwork struct {
	handlers map[string]RPCHandler
	down     map[string]bool
	mu       sync.RWMutex
}

// NewInMemoryNetwork creates a new in-memory network.
func NewInMemoryNetwork() *InMemoryNetwork {
	return &InMemoryNetwork{
		handlers: make(map[string]RPCHandler),
		down:     make(map[string]bool),
	}
}

// Register attaches handler to addr.
func (n *InMemoryNetwork) Register(addr string, handler RPCHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[addr] = handler
}

// Disconnect makes addr unreachable in both directions.
func (n *InMemoryNetwork) Disconnect(addr string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.down[addr] = true
}

// Reconnect restores connectivity of addr.
func (n *InMemoryNetwork) Reconnect(addr string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.down, addr)
}

// Transport returns a transport sending from addr.
func (n *InMemoryNetwork) Transport(addr string) *InMemoryTransport {
	return &InMemoryTransport{addr: addr, network: n}
}

// InMemoryTransport implements Transport on an InMemoryNetwork.
type InMemoryTransport struct {
	addr    string
	network *InMemoryNetwork
}

// Send delivers req to peer.
func (t *InMemoryTransport) Send(ctx context.Context, peer string, req *message.Message) (*message.Message, error) {
	t.network.mu.RLock()
	handler, ok := t.network.handlers[peer]
	unreachable := t.network.down[t.addr] || t.network.down[peer]
	t.network.mu.RUnlock()

	if !ok || unreachable {
		return nil, ErrConnectFailed
	}

	data, err := message.Marshal(req)
	if err != nil {
		return nil, err
	}

	type result struct {
		resp []byte
		err  error
	}
	done := make(chan result, 1)

	go func() {
		in, err := message.Unmarshal(data)
		if err != nil {
			done <- result{err: err}
			return
		}
		resp := handler(in)
		if resp == nil {
			done <- result{err: ErrConnectFailed}
			return
		}
		out, err := message.Marshal(resp)
		done <- result{resp: out, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		// The reply is lost if either side went down meanwhile.
		t.network.mu.RLock()
		unreachable := t.network.down[t.addr] || t.network.down[peer]
		t.network.mu.RUnlock()
		if unreachable {
			return nil, ErrConnectFailed
		}
		return message.Unmarshal(r.resp)
	case <-ctx.Done():
		return nil, ErrTimeout
	}
}
