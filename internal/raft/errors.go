package raft

import "errors"

// Raft errors.
var (
	// ErrNotLeader is returned when a write operation is attempted on a non-leader node.
	ErrNotLeader = errors.New("raft: not the leader")

	// ErrNodeStopped is returned when operation is attempted on a stopped node.
	ErrNodeStopped = errors.New("raft: node stopped")

	// ErrLogCorrupted is returned when log data is corrupted.
	ErrLogCorrupted = errors.New("raft: log corrupted")

	// ErrMalformedMessage is returned when a wire message lacks the fields an RPC needs.
	ErrMalformedMessage = errors.New("raft: malformed message")

	// ErrConnectFailed is returned when connection to peer fails.
	ErrConnectFailed = errors.New("raft: connection failed")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("raft: operation timeout")

	// ErrInvalidConfig is returned when configuration is invalid.
	ErrInvalidConfig = errors.New("raft: invalid configuration")
)
