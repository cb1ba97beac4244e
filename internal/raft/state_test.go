package raft

import (
	"testing"
	"time"
)

func TestRoleString(t *testing.T) {
	tests := []struct {
		role     Role
		expected string
	}{
		{Follower, "follower"},
		{Candidate, "candidate"},
		{Leader, "leader"},
		{Role(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.role.String(); got != tt.expected {
			t.Errorf("Role(%d).String() = %q, want %q", tt.role, got, tt.expected)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()
	valid.Address = "127.0.0.1:40000"

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"no address", func(c *Config) { c.Address = "" }, true},
		{"zero election", func(c *Config) { c.ElectionTimeoutMin = 0 }, true},
		{"inverted window", func(c *Config) { c.ElectionTimeoutMax = c.ElectionTimeoutMin - 1 }, true},
		{"fixed window", func(c *Config) { c.ElectionTimeoutMax = c.ElectionTimeoutMin }, false},
		{"heartbeat too slow", func(c *Config) { c.HeartbeatInterval = c.ElectionTimeoutMin }, true},
		{"zero response timeout", func(c *Config) { c.ResponseTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err != ErrInvalidConfig {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestDefaultConfigTimings(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ElectionTimeoutMin != 2*time.Second || cfg.ElectionTimeoutMax != 4*time.Second {
		t.Errorf("Election window = [%v, %v), want [2s, 4s)", cfg.ElectionTimeoutMin, cfg.ElectionTimeoutMax)
	}
	if cfg.HeartbeatInterval != 450*time.Millisecond {
		t.Errorf("HeartbeatInterval = %v, want 450ms", cfg.HeartbeatInterval)
	}
}

func TestNewNodeState(t *testing.T) {
	s := NewNodeState()

	if s.CurrentTerm() != 0 {
		t.Errorf("Initial term = %d, want 0", s.CurrentTerm())
	}
	if s.Role() != Follower {
		t.Errorf("Initial role = %v, want follower", s.Role())
	}
	if s.VotedFor() != "" || s.LeaderAddress() != "" {
		t.Error("Initial vote and leader should be empty")
	}
	if s.LogLen() != 0 {
		t.Errorf("Initial log length = %d", s.LogLen())
	}
}

func TestNodeStateTransitions(t *testing.T) {
	s := NewNodeState()
	deadline := time.Now().Add(time.Second)

	s.mu.Lock()
	term := s.becomeCandidate("self", deadline)
	s.mu.Unlock()

	if term != 1 || s.CurrentTerm() != 1 {
		t.Errorf("Candidate term = %d, want 1", term)
	}
	if s.VotedFor() != "self" {
		t.Errorf("VotedFor = %q, want self", s.VotedFor())
	}
	if s.Role() != Candidate {
		t.Errorf("Role = %v, want candidate", s.Role())
	}

	// Leadership of a stale term is refused
	s.mu.Lock()
	ok := s.becomeLeader("self", 0)
	s.mu.Unlock()
	if ok || s.Role() != Candidate {
		t.Error("becomeLeader with stale term should fail")
	}

	s.mu.Lock()
	ok = s.becomeLeader("self", 1)
	s.mu.Unlock()
	if !ok || s.Role() != Leader || s.LeaderAddress() != "self" {
		t.Errorf("becomeLeader failed: role=%v leader=%q", s.Role(), s.LeaderAddress())
	}

	// A lower term never moves the node backwards
	s.mu.Lock()
	s.becomeFollower(0, "other", deadline)
	s.mu.Unlock()
	if s.CurrentTerm() != 1 {
		t.Errorf("Term regressed to %d", s.CurrentTerm())
	}
	if s.VotedFor() != "self" {
		t.Error("Vote must survive when the term does not advance")
	}

	// A higher term clears the vote
	s.mu.Lock()
	s.becomeFollower(5, "other", deadline)
	s.mu.Unlock()
	if s.CurrentTerm() != 5 || s.VotedFor() != "" || s.LeaderAddress() != "other" {
		t.Errorf("Unexpected state: term=%d vote=%q leader=%q", s.CurrentTerm(), s.VotedFor(), s.LeaderAddress())
	}
}

func TestNodeStateRoleChangedSignal(t *testing.T) {
	s := NewNodeState()

	s.mu.Lock()
	s.becomeCandidate("self", time.Now())
	s.mu.Unlock()

	select {
	case <-s.RoleChanged():
	default:
		t.Fatal("Expected role change signal")
	}

	// Same role: no signal
	s.mu.Lock()
	s.setRole(Candidate)
	s.mu.Unlock()

	select {
	case <-s.RoleChanged():
		t.Error("Unexpected signal without role change")
	default:
	}
}

func TestNodeStateDropped(t *testing.T) {
	s := NewNodeState()

	if !s.MarkDropped("b") || !s.MarkDropped("a") {
		t.Error("First MarkDropped should report a change")
	}
	if s.MarkDropped("a") {
		t.Error("Second MarkDropped should not report a change")
	}

	dropped := s.Dropped()
	if len(dropped) != 2 || dropped[0] != "a" || dropped[1] != "b" {
		t.Errorf("Dropped = %v, want [a b]", dropped)
	}

	if !s.MarkReachable("a") {
		t.Error("MarkReachable should report a change")
	}
	if s.MarkReachable("a") {
		t.Error("Second MarkReachable should not report a change")
	}
	if dropped := s.Dropped(); len(dropped) != 1 || dropped[0] != "b" {
		t.Errorf("Dropped = %v, want [b]", dropped)
	}
}
