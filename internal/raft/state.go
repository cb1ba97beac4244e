package raft

import (
	"sort"
	"sync"
	"time"
)

// Role is the protocol role of a node.
type Role uint8

// Node roles.
const (
	Follower Role = iota
	Candidate
	Leader
)

// String returns the string representation of a role.
func (r Role) String() string {
	switch r {
	case Follower:
		return "follower"
	case Candidate:
		return "candidate"
	case Leader:
		return "leader"
	default:
		return "unknown"
	}
}

// Config holds configuration for a Raft node.
type Config struct {
	Address            string        // Own address, as peers know it
	ElectionTimeoutMin time.Duration // Lower bound of the randomized election timeout
	ElectionTimeoutMax time.Duration // Upper bound (exclusive) of the election timeout
	HeartbeatInterval  time.Duration // Leader heartbeat period
	ResponseTimeout    time.Duration // Wait for peer replies within one election round
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		ElectionTimeoutMin: 2000 * time.Millisecond,
		ElectionTimeoutMax: 4000 * time.Millisecond,
		HeartbeatInterval:  450 * time.Millisecond,
		ResponseTimeout:    450 * time.Millisecond,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.Address == "" {
		return ErrInvalidConfig
	}
	if c.ElectionTimeoutMin <= 0 || c.ElectionTimeoutMax < c.ElectionTimeoutMin {
		return ErrInvalidConfig
	}
	if c.HeartbeatInterval <= 0 || c.HeartbeatInterval >= c.ElectionTimeoutMin {
		return ErrInvalidConfig
	}
	if c.ResponseTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// NodeState holds the protocol state of a node. Every field is guarded by mu;
// unexported methods expect the caller to hold it.
//
// Term, vote and log are volatile: a restarted node rejoins at term 0 with
// an empty log and catches up from the leader's full-log heartbeats.
type NodeState struct {
	currentTerm uint64
	votedFor    string // empty means not voted in currentTerm
	role        Role
	leaderAddr  string
	log         *Log

	// dropped is the set of peers that failed to answer the last contact.
	dropped map[string]struct{}

	electionDeadline time.Time

	// roleCh is signalled on every role change to wake the worker loop.
	roleCh chan struct{}

	mu sync.Mutex
}

// NewNodeState creates a follower state at term 0 with an empty log.
func NewNodeState() *NodeState {
	return &NodeState{
		role:    Follower,
		log:     NewLog(),
		dropped: make(map[string]struct{}),
		roleCh:  make(chan struct{}, 1),
	}
}

// CurrentTerm returns the current term.
func (s *NodeState) CurrentTerm() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTerm
}

// VotedFor returns the address voted for in the current term.
func (s *NodeState) VotedFor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.votedFor
}

// Role returns the current role.
func (s *NodeState) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// LeaderAddress returns the leader hint.
func (s *NodeState) LeaderAddress() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaderAddr
}

// LogLen returns the number of log entries.
func (s *NodeState) LogLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Len()
}

// ElectionDeadline returns the instant the election timer fires.
func (s *NodeState) ElectionDeadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.electionDeadline
}

// RoleChanged returns the channel signalled on role transitions.
func (s *NodeState) RoleChanged() <-chan struct{} {
	return s.roleCh
}

// Dropped returns the unreachable peers in sorted order.
func (s *NodeState) Dropped() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.dropped))
	for p := range s.dropped {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// MarkDropped records peer as unreachable. Returns true if it was reachable.
func (s *NodeState) MarkDropped(peer string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dropped[peer]; ok {
		return false
	}
	s.dropped[peer] = struct{}{}
	return true
}

// MarkReachable removes peer from the dropped set. Returns true if it was dropped.
func (s *NodeState) MarkReachable(peer string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dropped[peer]; !ok {
		return false
	}
	delete(s.dropped, peer)
	return true
}

func (s *NodeState) setRole(r Role) {
	if s.role == r {
		return
	}
	s.role = r
	select {
	case s.roleCh <- struct{}{}:
	default:
	}
}

// becomeCandidate starts a new election term voting for self.
func (s *NodeState) becomeCandidate(self string, deadline time.Time) uint64 {
	s.currentTerm++
	s.votedFor = self
	s.leaderAddr = ""
	s.electionDeadline = deadline
	s.setRole(Candidate)
	return s.currentTerm
}

// becomeFollower moves to term (never backwards) and follows leader.
// The vote record is cleared whenever the term advances.
func (s *NodeState) becomeFollower(term uint64, leader string, deadline time.Time) {
	if term > s.currentTerm {
		s.currentTerm = term
		s.votedFor = ""
	}
	s.leaderAddr = leader
	s.electionDeadline = deadline
	s.setRole(Follower)
}

// becomeLeader takes leadership of term if still a candidate in it.
func (s *NodeState) becomeLeader(self string, term uint64) bool {
	if s.role != Candidate || s.currentTerm != term {
		return false
	}
	s.leaderAddr = self
	s.setRole(Leader)
	return true
}
