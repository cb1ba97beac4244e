package handler

import (
	"context"
	"errors"

	"github.com/KilimcininKorOglu/cloudkv/internal/logging"
	"github.com/KilimcininKorOglu/cloudkv/internal/message"
	"github.com/KilimcininKorOglu/cloudkv/internal/raft"
	"github.com/KilimcininKorOglu/cloudkv/internal/storage"
)

// Consensus is the part of a raft.Node the handler drives.
type Consensus interface {
	IsLeader() bool
	LeaderAddress() string
	Propose(cmd *raft.Command) error
	Get(key string) (string, error)
	DroppedPeers() ([]string, error)
	ServeRaft(req *message.Message) *message.Message
}

// Handler answers every operation of the peer protocol.
type Handler struct {
	node   Consensus
	logger logging.Logger
}

// New creates a handler on top of node.
func New(node Consensus, logger logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{node: node, logger: logger}
}

// Handle implements network.Handler.
func (h *Handler) Handle(ctx context.Context, req *message.Message) *message.Message {
	logger := h.logger.WithRequestID(logging.GenerateRequestID())

	switch req.Operation {
	case message.OpPut, message.OpGet, message.OpDelete:
		logger.Debug("key operation", "op", req.Operation.String(), "keys", len(req.KVPs))
		if !h.node.IsLeader() {
			return h.redirect(req)
		}
		return h.handleKeyOperation(logger, req)

	case message.OpRaftAppendEntries, message.OpRaftVote:
		return h.node.ServeRaft(req)

	case message.OpRaftGetLeader:
		resp := message.NewResponse(req)
		resp.Success = true
		resp.Message = message.StatusOK
		resp.Address = h.node.LeaderAddress()
		return resp

	case message.OpRaftDroppedNode:
		return h.handleDroppedNode(logger, req)

	case message.OpRaftDirectGet:
		return h.handleGet(req)

	default:
		logger.Debug("unsupported operation", "op", req.Operation.String())
		return message.NewResponse(req).Fail(message.NotSupported)
	}
}

// redirect refuses a key operation and points the client at the leader.
func (h *Handler) redirect(req *message.Message) *message.Message {
	resp := message.NewResponse(req).Fail(raft.ErrNotLeader.Error())
	resp.Address = h.node.LeaderAddress()
	return resp
}

func (h *Handler) handleKeyOperation(logger logging.Logger, req *message.Message) *message.Message {
	switch req.Operation {
	case message.OpGet:
		return h.handleGet(req)
	case message.OpPut:
		return h.handleWrite(logger, req, raft.CmdPut)
	default:
		return h.handleWrite(logger, req, raft.CmdDelete)
	}
}

// handleWrite proposes one command per key and reports OK or ERROR for each.
// A failed PUT key fails the response; a failed DELETE key does not. Losing
// leadership fails either and points at the new leader.
func (h *Handler) handleWrite(logger logging.Logger, req *message.Message, op raft.CommandOp) *message.Message {
	resp := message.NewResponse(req)
	resp.Success = true
	resp.Message = message.StatusOK

	for _, kvp := range req.KVPs {
		cmd := &raft.Command{Op: op, Key: kvp.Key}
		if op == raft.CmdPut {
			cmd.Value = kvp.Value
		}

		if err := h.node.Propose(cmd); err != nil {
			logger.Warn("write failed", "op", op.String(), "key", kvp.Key, "error", err)
			resp.AddKVP(kvp.Key, message.StatusError)
			switch {
			case errors.Is(err, raft.ErrNotLeader):
				resp.Fail(raft.ErrNotLeader.Error())
				resp.Address = h.node.LeaderAddress()
			case op == raft.CmdPut && resp.Success:
				resp.Fail(message.StatusError)
			}
			continue
		}
		resp.AddKVP(kvp.Key, message.StatusOK)
	}
	return resp
}

// handleGet reads every key from the local store. Missing keys are reported
// as ERROR without failing the response.
func (h *Handler) handleGet(req *message.Message) *message.Message {
	resp := message.NewResponse(req)
	resp.Success = true
	resp.Message = message.StatusOK

	for _, kvp := range req.KVPs {
		value, err := h.node.Get(kvp.Key)
		if err != nil {
			if !errors.Is(err, storage.ErrKeyNotFound) {
				h.logger.Warn("read failed", "key", kvp.Key, "error", err)
			}
			resp.AddKVP(kvp.Key, message.StatusError)
			continue
		}
		resp.AddKVP(kvp.Key, value)
	}
	return resp
}

func (h *Handler) handleDroppedNode(logger logging.Logger, req *message.Message) *message.Message {
	dropped, err := h.node.DroppedPeers()
	if err != nil {
		logger.Debug("dropped peers refused", "error", err)
		resp := message.NewResponse(req).Fail(err.Error())
		resp.Address = h.node.LeaderAddress()
		return resp
	}

	resp := message.NewResponse(req)
	resp.Success = true
	resp.Message = message.StatusOK
	for i, addr := range dropped {
		resp.AddPartition(uint64(i), addr)
	}
	return resp
}
