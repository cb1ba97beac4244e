// Package handler implements the request dispatcher of a cloudkv node.
//
// Every inbound message is routed by its operation:
//
//   - PUT, GET, DELETE: served by the leader only. Writes go through the
//     replicated log and each key is answered with OK or ERROR; a follower
//     fails the request and names the leader in the Address field.
//   - RAFT_VOTE, RAFT_APPEND_ENTRIES: passed to the consensus node.
//   - RAFT_GET_LEADER: the node's current leader hint.
//   - RAFT_DROPPED_NODE: the peers the leader could not reach, one per
//     partition entry. Non-leaders refuse.
//   - RAFT_DIRECT_GET: a read of local state on any node. The value may be
//     stale on a follower.
//
// Cluster membership and partition transfer operations are answered with
// "Operation not (yet) supported".
package handler
