// Package raft implements the leader-based replication engine of cloudkv.
//
// The protocol is modeled on Raft but deliberately simpler:
//   - Leader election with randomized timeouts (2s to 4s by default)
//   - Heartbeats every 450ms that carry the leader's complete log
//   - Followers append only the suffix beyond their own log length
//   - Votes and heartbeats are judged on log length, not on the term and
//     index of the last entry
//
// Because there is no per-peer progress tracking, a follower whose log has
// diverged in the middle cannot be repaired; only logs that are a prefix of
// the leader's converge. Term, vote and log live in memory only.
//
// # Architecture
//
// A Node runs a single worker goroutine executing the protocol of its role:
//
//   - Follower: wait for the election deadline, then become candidate
//   - Candidate: request votes in rounds until a majority of (peers+1)
//     grants, a higher term or a known leader is seen, or the deadline
//     passes and a new term starts
//   - Leader: broadcast AppendEntries every heartbeat interval, step down on
//     any rejection
//
// Inbound RPCs (HandleVote, HandleAppendEntries) and client proposals run on
// the caller's goroutine and share one state lock with the worker. The lock
// is never held across network I/O.
//
// Peers that fail to answer are recorded as dropped until they answer
// again. A round never waits for an unreachable peer longer than its
// timeout.
//
// # Usage
//
//	cfg := raft.DefaultConfig()
//	cfg.Address = "127.0.0.1:40000"
//
//	node, err := raft.NewNode(cfg, routingTable, network.NewTCPTransport(450*time.Millisecond), store)
//	if err != nil {
//	    return err
//	}
//	node.Start()
//	defer node.Stop()
//
//	// Only the leader accepts writes
//	err = node.Propose(&raft.Command{Op: raft.CmdPut, Key: "x", Value: "1"})
//
// Wire encoding of the RPCs reuses message.Message: the partition list
// carries terms and log lengths and each KVP key carries one serialized log
// entry.
package raft
