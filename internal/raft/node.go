package raft

import (
	"context"
	"math/rand"
	"sort"
	"sync/atomic"
	"time"

	"github.com/KilimcininKorOglu/cloudkv/internal/logging"
	"github.com/KilimcininKorOglu/cloudkv/internal/message"
)

// Applier is the store committed commands are applied to.
type Applier interface {
	Put(key, value string) error
	Remove(key string) error
	Get(key string) (string, error)
}

// Node is a single member of a replication group. One worker goroutine runs
// the protocol of the current role; inbound RPCs and client operations call
// into the node concurrently and serialize on the state lock.
type Node struct {
	config    Config
	state     *NodeState
	peers     PeerSet
	transport Transport
	store     Applier
	logger    logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	stopCh chan struct{}
	doneCh chan struct{}

	running int32
}

// NewNode creates a new node in the follower role at term 0.
func NewNode(cfg Config, peers PeerSet, transport Transport, store Applier) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if peers == nil || transport == nil || store == nil {
		return nil, ErrInvalidConfig
	}

	ctx, cancel := context.WithCancel(context.Background())
	n := &Node{
		config:    cfg,
		state:     NewNodeState(),
		peers:     peers,
		transport: transport,
		store:     store,
		logger:    logging.NewNop(),
		ctx:       ctx,
		cancel:    cancel,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	n.state.electionDeadline = time.Now().Add(n.randomElectionTimeout())
	return n, nil
}

// SetLogger sets the logger for the node.
func (n *Node) SetLogger(logger logging.Logger) {
	n.logger = logger
}

// Address returns the node's own address.
func (n *Node) Address() string {
	return n.config.Address
}

// Role returns the current role.
func (n *Node) Role() Role {
	return n.state.Role()
}

// IsLeader returns true if this node is the leader.
func (n *Node) IsLeader() bool {
	return n.state.Role() == Leader
}

// Term returns the current term.
func (n *Node) Term() uint64 {
	return n.state.CurrentTerm()
}

// LeaderAddress returns the current leader hint (empty if unknown).
func (n *Node) LeaderAddress() string {
	return n.state.LeaderAddress()
}

// VotedFor returns the address voted for in the current term.
func (n *Node) VotedFor() string {
	return n.state.VotedFor()
}

// LogSize returns the number of log entries.
func (n *Node) LogSize() int {
	return n.state.LogLen()
}

// Start starts the protocol worker.
func (n *Node) Start() {
	if !atomic.CompareAndSwapInt32(&n.running, 0, 1) {
		return
	}

	n.state.mu.Lock()
	n.state.electionDeadline = time.Now().Add(n.randomElectionTimeout())
	n.state.mu.Unlock()

	go n.run()
}

// Stop stops the worker and waits for it to exit. In-flight peer requests
// are cancelled.
func (n *Node) Stop() {
	if !atomic.CompareAndSwapInt32(&n.running, 1, 2) {
		return
	}
	close(n.stopCh)
	n.cancel()
	<-n.doneCh
}

func (n *Node) stopped() bool {
	select {
	case <-n.stopCh:
		return true
	default:
		return false
	}
}

// Propose appends cmd to the log and applies it to the store.
// Only the leader accepts proposals.
func (n *Node) Propose(cmd *Command) error {
	if n.stopped() {
		return ErrNodeStopped
	}

	s := n.state
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.role != Leader {
		return ErrNotLeader
	}

	s.log.Append(&LogEntry{Term: s.currentTerm, Command: cmd.Serialize()})
	return n.apply(cmd)
}

// Get reads key from the local store regardless of role.
func (n *Node) Get(key string) (string, error) {
	return n.store.Get(key)
}

// DroppedPeers returns the peers that failed to answer the last contact.
// Only the leader answers authoritatively.
func (n *Node) DroppedPeers() ([]string, error) {
	s := n.state
	s.mu.Lock()
	role := s.role
	s.mu.Unlock()

	if role != Leader {
		return nil, ErrNotLeader
	}
	return s.Dropped(), nil
}

func (n *Node) apply(cmd *Command) error {
	switch cmd.Op {
	case CmdPut:
		return n.store.Put(cmd.Key, cmd.Value)
	case CmdDelete:
		return n.store.Remove(cmd.Key)
	default:
		return ErrLogCorrupted
	}
}

// peerAddresses returns the sorted peer set without this node.
func (n *Node) peerAddresses() []string {
	byPeer := n.peers.PartitionsByPeer()
	out := make([]string, 0, len(byPeer))
	for addr := range byPeer {
		if addr != n.config.Address {
			out = append(out, addr)
		}
	}
	sort.Strings(out)
	return out
}

func (n *Node) randomElectionTimeout() time.Duration {
	window := n.config.ElectionTimeoutMax - n.config.ElectionTimeoutMin
	if window <= 0 {
		return n.config.ElectionTimeoutMin
	}
	return n.config.ElectionTimeoutMin + time.Duration(rand.Int63n(int64(window)))
}

func (n *Node) nextDeadline() time.Time {
	return time.Now().Add(n.randomElectionTimeout())
}

// run is the main loop for the node.
func (n *Node) run() {
	defer close(n.doneCh)

	for !n.stopped() {
		switch n.Role() {
		case Follower:
			n.runFollower()
		case Candidate:
			n.runCandidate()
		case Leader:
			n.runLeader()
		}
	}
}

// wait blocks until d elapses, the role changes or the node stops.
// Returns false if the node stopped.
func (n *Node) wait(d time.Duration) bool {
	if d <= 0 {
		return !n.stopped()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-n.stopCh:
		return false
	case <-n.state.RoleChanged():
		return true
	case <-timer.C:
		return true
	}
}

func (n *Node) runFollower() {
	for {
		s := n.state
		s.mu.Lock()
		if s.role != Follower {
			s.mu.Unlock()
			return
		}
		remaining := time.Until(s.electionDeadline)
		if remaining <= 0 {
			term := s.becomeCandidate(n.config.Address, n.nextDeadline())
			s.mu.Unlock()
			n.logger.Info("election timeout, starting election", "term", term)
			return
		}
		s.mu.Unlock()

		if !n.wait(remaining) {
			return
		}
	}
}

type voteResult struct {
	peer  string
	reply *VoteReply
	err   error
}

// runCandidate runs one election term. Vote requests go out in rounds of
// at most ResponseTimeout; peers that answered are not asked again. When the
// election deadline passes without a majority a new term starts.
func (n *Node) runCandidate() {
	s := n.state
	s.mu.Lock()
	if s.role != Candidate {
		s.mu.Unlock()
		return
	}
	term := s.currentTerm
	deadline := s.electionDeadline
	req := &VoteRequest{Term: term, Candidate: n.config.Address, LogLength: uint64(s.log.Len())}
	s.mu.Unlock()

	peers := n.peerAddresses()
	votes := 1
	needed := (len(peers)+1)/2 + 1

	if votes >= needed {
		n.becomeLeader(term)
		return
	}

	responded := make(map[string]bool, len(peers))

	for {
		if n.stopped() || !n.stillCandidate(term) {
			return
		}

		now := time.Now()
		if !now.Before(deadline) {
			s.mu.Lock()
			if s.role == Candidate && s.currentTerm == term {
				next := s.becomeCandidate(n.config.Address, n.nextDeadline())
				n.logger.Info("election timed out, retrying", "term", next, "votes", votes)
			}
			s.mu.Unlock()
			return
		}

		roundTimeout := n.config.ResponseTimeout
		if left := deadline.Sub(now); left < roundTimeout {
			roundTimeout = left
		}
		ctx, cancel := context.WithTimeout(n.ctx, roundTimeout)

		waiting := make(map[string]bool, len(peers))
		results := make(chan voteResult, len(peers))
		for _, peer := range peers {
			if responded[peer] {
				continue
			}
			waiting[peer] = true
			go func(peer string) {
				resp, err := n.transport.Send(ctx, peer, req.ToMessage())
				if err != nil {
					results <- voteResult{peer: peer, err: err}
					return
				}
				reply, err := VoteReplyFromMessage(resp)
				results <- voteResult{peer: peer, reply: reply, err: err}
			}(peer)
		}

		for len(waiting) > 0 {
			select {
			case r := <-results:
				delete(waiting, r.peer)
				if r.err != nil {
					n.markDropped(r.peer, r.err)
					continue
				}
				n.markReachable(r.peer)
				responded[r.peer] = true

				if done := n.countVote(term, r, &votes, needed); done {
					cancel()
					return
				}
			case <-ctx.Done():
				n.dropUnanswered(waiting)
			case <-n.state.RoleChanged():
				if !n.stillCandidate(term) {
					cancel()
					return
				}
			}
		}

		// Round over: wait out the rest of it so rounds are paced.
		select {
		case <-ctx.Done():
		case <-n.stopCh:
		case <-n.state.RoleChanged():
		}
		cancel()
	}
}

// countVote applies one vote reply. Returns true once the election is decided
// for this node (it won or stepped down).
func (n *Node) countVote(term uint64, r voteResult, votes *int, needed int) bool {
	s := n.state
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.role != Candidate || s.currentTerm != term {
		return true
	}

	reply := r.reply
	if reply.Granted && reply.Term == term {
		*votes++
		n.logger.Debug("vote granted", "peer", r.peer, "term", term, "votes", *votes)
		if *votes >= needed {
			if s.becomeLeader(n.config.Address, term) {
				n.logger.Info("became leader", "term", term, "votes", *votes)
			}
			return true
		}
		return false
	}

	if reply.Term > term {
		s.becomeFollower(reply.Term, reply.Leader, n.nextDeadline())
		n.logger.Info("stepping down, higher term seen", "peer", r.peer, "term", reply.Term)
		return true
	}
	if reply.Leader != "" && reply.Term == term {
		s.becomeFollower(reply.Term, reply.Leader, n.nextDeadline())
		n.logger.Info("stepping down, peer follows a leader", "peer", r.peer, "leader", reply.Leader)
		return true
	}
	return false
}

func (n *Node) stillCandidate(term uint64) bool {
	s := n.state
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role == Candidate && s.currentTerm == term
}

func (n *Node) becomeLeader(term uint64) {
	s := n.state
	s.mu.Lock()
	ok := s.becomeLeader(n.config.Address, term)
	s.mu.Unlock()
	if ok {
		n.logger.Info("became leader", "term", term)
	}
}

type appendResult struct {
	peer  string
	reply *AppendEntriesReply
	err   error
}

// runLeader broadcasts the full log every HeartbeatInterval until the node
// loses leadership.
func (n *Node) runLeader() {
	for {
		s := n.state
		s.mu.Lock()
		if s.role != Leader {
			s.mu.Unlock()
			return
		}
		term := s.currentTerm
		req := &AppendEntriesRequest{Term: term, Leader: n.config.Address, Entries: s.log.Entries()}
		s.mu.Unlock()

		peers := n.peerAddresses()
		ctx, cancel := context.WithTimeout(n.ctx, n.config.HeartbeatInterval)

		msg := req.ToMessage()
		results := make(chan appendResult, len(peers))
		for _, peer := range peers {
			go func(peer string) {
				resp, err := n.transport.Send(ctx, peer, msg)
				if err != nil {
					results <- appendResult{peer: peer, err: err}
					return
				}
				reply, err := AppendEntriesReplyFromMessage(resp)
				results <- appendResult{peer: peer, reply: reply, err: err}
			}(peer)
		}

		waiting := make(map[string]bool, len(peers))
		for _, peer := range peers {
			waiting[peer] = true
		}
		for len(waiting) > 0 {
			select {
			case r := <-results:
				delete(waiting, r.peer)
				if r.err != nil {
					n.markDropped(r.peer, r.err)
					continue
				}
				n.markReachable(r.peer)
				if !r.reply.Success {
					n.leaderRejected(term, r)
				}
			case <-ctx.Done():
				n.dropUnanswered(waiting)
			case <-n.state.RoleChanged():
				if n.Role() != Leader {
					cancel()
					return
				}
			}
			if n.Role() != Leader {
				cancel()
				return
			}
		}

		select {
		case <-ctx.Done():
		case <-n.stopCh:
		case <-n.state.RoleChanged():
		}
		cancel()

		if n.stopped() {
			return
		}
	}
}

// leaderRejected steps down after a peer refused a heartbeat of term.
func (n *Node) leaderRejected(term uint64, r appendResult) {
	s := n.state
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.role != Leader || s.currentTerm != term {
		return
	}
	s.becomeFollower(r.reply.Term, "", n.nextDeadline())
	n.logger.Info("stepping down, heartbeat rejected", "peer", r.peer, "term", term, "peerTerm", r.reply.Term)
}

func (n *Node) markDropped(peer string, err error) {
	if n.state.MarkDropped(peer) {
		n.logger.Info("peer unreachable", "peer", peer, "error", err)
	}
}

// dropUnanswered marks every peer still waited on as dropped once a round
// runs out, then empties waiting. Nothing is marked when the node is stopping.
func (n *Node) dropUnanswered(waiting map[string]bool) {
	if !n.stopped() {
		for peer := range waiting {
			n.markDropped(peer, ErrTimeout)
		}
	}
	for peer := range waiting {
		delete(waiting, peer)
	}
}

func (n *Node) markReachable(peer string) {
	if n.state.MarkReachable(peer) {
		n.logger.Info("peer reachable again", "peer", peer)
	}
}

// HandleVote decides on a vote request. The vote is granted iff the
// candidate's term is newer than ours and its log is at least as long.
func (n *Node) HandleVote(req *VoteRequest) *VoteReply {
	s := n.state
	s.mu.Lock()
	defer s.mu.Unlock()

	reply := &VoteReply{Term: s.currentTerm, Leader: s.leaderAddr}

	if req.Term <= s.currentTerm || req.LogLength < uint64(s.log.Len()) {
		n.logger.Debug("vote rejected", "candidate", req.Candidate, "term", req.Term,
			"currentTerm", s.currentTerm, "logLength", req.LogLength)
		return reply
	}

	s.becomeFollower(req.Term, "", n.nextDeadline())
	s.votedFor = req.Candidate

	reply.Term = s.currentTerm
	reply.Granted = true
	reply.Leader = ""
	n.logger.Debug("vote granted", "candidate", req.Candidate, "term", req.Term)
	return reply
}

// HandleAppendEntries processes a leader heartbeat. The leader is accepted
// iff its term is not older than ours and its log is at least as long; the
// entries beyond our log are appended and applied.
func (n *Node) HandleAppendEntries(req *AppendEntriesRequest) *AppendEntriesReply {
	s := n.state
	s.mu.Lock()
	defer s.mu.Unlock()

	reply := &AppendEntriesReply{Term: s.currentTerm}

	if req.Term < s.currentTerm || len(req.Entries) < s.log.Len() {
		n.logger.Debug("append entries rejected", "leader", req.Leader, "term", req.Term,
			"currentTerm", s.currentTerm, "entries", len(req.Entries))
		return reply
	}

	if s.leaderAddr != req.Leader || s.role != Follower {
		n.logger.Info("following leader", "leader", req.Leader, "term", req.Term)
	}
	s.becomeFollower(req.Term, req.Leader, n.nextDeadline())

	for _, entry := range req.Entries[s.log.Len():] {
		s.log.Append(entry)

		cmd, err := DeserializeCommand(entry.Command)
		if err != nil {
			n.logger.Warn("skipping undecodable log entry", "term", entry.Term, "error", err)
			continue
		}
		if err := n.apply(cmd); err != nil {
			n.logger.Warn("apply failed", "op", cmd.Op.String(), "key", cmd.Key, "error", err)
		}
	}

	reply.Term = s.currentTerm
	reply.Success = true
	return reply
}

// ServeRaft answers the consensus operations of the wire protocol.
func (n *Node) ServeRaft(req *message.Message) *message.Message {
	switch req.Operation {
	case message.OpRaftVote:
		vote, err := VoteRequestFromMessage(req)
		if err != nil {
			return message.NewResponse(req).Fail(err.Error())
		}
		return n.HandleVote(vote).ToMessage()

	case message.OpRaftAppendEntries:
		ae, err := AppendEntriesRequestFromMessage(req)
		if err != nil {
			return message.NewResponse(req).Fail(err.Error())
		}
		return n.HandleAppendEntries(ae).ToMessage()

	default:
		return message.NewResponse(req).Fail(message.NotSupported)
	}
}
