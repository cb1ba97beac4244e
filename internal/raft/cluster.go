package raft

// ClusterStatus is a point-in-time view of a node and its peers.
type ClusterStatus struct {
	Address     string       `json:"address"`
	Role        string       `json:"role"`
	Term        uint64       `json:"term"`
	VotedFor    string       `json:"votedFor"`
	LeaderAddr  string       `json:"leaderAddr"`
	LogSize     int          `json:"logSize"`
	LastLogTerm uint64       `json:"lastLogTerm"`
	Peers       []PeerStatus `json:"peers"`
}

// PeerStatus represents a peer's status.
type PeerStatus struct {
	Addr      string `json:"addr"`
	Reachable bool   `json:"reachable"`
}

// Status returns the current cluster status. Reachability reflects the
// last contact this node made and is only maintained by candidates and
// leaders.
func (n *Node) Status() *ClusterStatus {
	peers := n.peerAddresses()

	s := n.state
	s.mu.Lock()
	status := &ClusterStatus{
		Address:     n.config.Address,
		Role:        s.role.String(),
		Term:        s.currentTerm,
		VotedFor:    s.votedFor,
		LeaderAddr:  s.leaderAddr,
		LogSize:     s.log.Len(),
		LastLogTerm: s.log.LastTerm(),
		Peers:       make([]PeerStatus, 0, len(peers)),
	}
	for _, p := range peers {
		_, dropped := s.dropped[p]
		status.Peers = append(status.Peers, PeerStatus{Addr: p, Reachable: !dropped})
	}
	s.mu.Unlock()

	return status
}
