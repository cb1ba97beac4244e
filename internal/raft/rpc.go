package raft

import (
	"github.com/KilimcininKorOglu/cloudkv/internal/message"
)

// VoteRequest is sent by candidates to gather votes.
type VoteRequest struct {
	Term      uint64 // Candidate's term
	Candidate string // Candidate requesting vote
	LogLength uint64 // Length of the candidate's log
}

// ToMessage encodes the request: Partitions[0].ID = term,
// Partitions[1].ID = log length, Address = candidate.
func (r *VoteRequest) ToMessage() *message.Message {
	m := message.NewRequest(message.OpRaftVote)
	m.Address = r.Candidate
	m.AddPartition(r.Term, "")
	m.AddPartition(r.LogLength, "")
	return m
}

// VoteRequestFromMessage decodes a VoteRequest.
func VoteRequestFromMessage(m *message.Message) (*VoteRequest, error) {
	if m.Operation != message.OpRaftVote || len(m.Partitions) < 2 {
		return nil, ErrMalformedMessage
	}
	return &VoteRequest{
		Term:      m.Partitions[0].ID,
		Candidate: m.Address,
		LogLength: m.Partitions[1].ID,
	}, nil
}

// VoteReply is the response to a VoteRequest.
type VoteReply struct {
	Term    uint64 // Voter's term after handling the request
	Granted bool   // True if the candidate received the vote
	Leader  string // Voter's leader hint
}

// ToMessage encodes the reply: Success = granted, Partitions[0].ID = term,
// Address = leader hint.
func (r *VoteReply) ToMessage() *message.Message {
	m := &message.Message{
		Type:      message.TypeResponse,
		Operation: message.OpRaftVote,
		Success:   r.Granted,
		Address:   r.Leader,
	}
	m.AddPartition(r.Term, "")
	return m
}

// VoteReplyFromMessage decodes a VoteReply.
func VoteReplyFromMessage(m *message.Message) (*VoteReply, error) {
	if m.Operation != message.OpRaftVote || len(m.Partitions) < 1 {
		return nil, ErrMalformedMessage
	}
	return &VoteReply{
		Term:    m.Partitions[0].ID,
		Granted: m.Success,
		Leader:  m.Address,
	}, nil
}

// AppendEntriesRequest is the leader heartbeat. It always carries the
// leader's complete log.
type AppendEntriesRequest struct {
	Term    uint64      // Leader's term
	Leader  string      // So follower can redirect clients
	Entries []*LogEntry // The whole log
}

// ToMessage encodes the request: Partitions[0].ID = term, Address = leader,
// one serialized entry per KVPs[i].Key.
func (a *AppendEntriesRequest) ToMessage() *message.Message {
	m := message.NewRequest(message.OpRaftAppendEntries)
	m.Address = a.Leader
	m.AddPartition(a.Term, "")
	for _, e := range a.Entries {
		m.AddKVP(string(e.Serialize()), "")
	}
	return m
}

// AppendEntriesRequestFromMessage decodes an AppendEntriesRequest.
func AppendEntriesRequestFromMessage(m *message.Message) (*AppendEntriesRequest, error) {
	if m.Operation != message.OpRaftAppendEntries || len(m.Partitions) < 1 {
		return nil, ErrMalformedMessage
	}

	a := &AppendEntriesRequest{
		Term:    m.Partitions[0].ID,
		Leader:  m.Address,
		Entries: make([]*LogEntry, 0, len(m.KVPs)),
	}
	for _, kv := range m.KVPs {
		e, err := DeserializeLogEntry([]byte(kv.Key))
		if err != nil {
			return nil, err
		}
		a.Entries = append(a.Entries, e)
	}
	return a, nil
}

// AppendEntriesReply is the response to AppendEntries.
type AppendEntriesReply struct {
	Term    uint64 // Follower's term
	Success bool   // True if the follower accepted the leader
}

// ToMessage encodes the reply: Success, Partitions[0].ID = term.
func (r *AppendEntriesReply) ToMessage() *message.Message {
	m := &message.Message{
		Type:      message.TypeResponse,
		Operation: message.OpRaftAppendEntries,
		Success:   r.Success,
	}
	m.AddPartition(r.Term, "")
	return m
}

// AppendEntriesReplyFromMessage decodes an AppendEntriesReply.
func AppendEntriesReplyFromMessage(m *message.Message) (*AppendEntriesReply, error) {
	if m.Operation != message.OpRaftAppendEntries || len(m.Partitions) < 1 {
		return nil, ErrMalformedMessage
	}
	return &AppendEntriesReply{
		Term:    m.Partitions[0].ID,
		Success: m.Success,
	}, nil
}
