// Package message defines the wire message exchanged between cloudkv nodes
// and clients, together with its binary encoding.
package message

// Type is the kind of a message.
type Type uint8

// Message types.
const (
	TypeRequest Type = iota
	TypeResponse
	TypeNotification
)

// String returns the name of the message type.
func (t Type) String() string {
	switch t {
	case TypeRequest:
		return "REQUEST"
	case TypeResponse:
		return "RESPONSE"
	case TypeNotification:
		return "NOTIFICATION"
	default:
		return "UNKNOWN"
	}
}

// Operation identifies what a message asks for.
type Operation uint8

// Operations.
const (
	OpPut Operation = iota
	OpGet
	OpDelete
	OpJoinCluster
	OpCreatePartitions
	OpStealPartitions
	OpDropPartitions
	OpTransferPartition
	OpRaftAppendEntries
	OpRaftVote
	OpRaftDroppedNode
	OpRaftGetLeader
	OpRaftDirectGet
)

var operationNames = map[Operation]string{
	OpPut:               "PUT",
	OpGet:               "GET",
	OpDelete:            "DELETE",
	OpJoinCluster:       "JOIN_CLUSTER",
	OpCreatePartitions:  "CREATE_PARTITIONS",
	OpStealPartitions:   "STEAL_PARTITIONS",
	OpDropPartitions:    "DROP_PARTITIONS",
	OpTransferPartition: "TRANSFER_PARTITION",
	OpRaftAppendEntries: "RAFT_APPEND_ENTRIES",
	OpRaftVote:          "RAFT_VOTE",
	OpRaftDroppedNode:   "RAFT_DROPPED_NODE",
	OpRaftGetLeader:     "RAFT_GET_LEADER",
	OpRaftDirectGet:     "RAFT_DIRECT_GET",
}

// String returns the wire name of the operation.
func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return "UNKNOWN"
}

// Partition is an (id, peer) pair. Raft operations reuse the id slot to
// carry terms and log lengths.
type Partition struct {
	ID   uint64
	Peer string
}

// KVP is a key/value pair. AppendEntries requests carry one serialized log
// entry per Key.
type KVP struct {
	Key   string
	Value string
}

// Message is the unit of communication between nodes.
type Message struct {
	Type       Type
	Operation  Operation
	Success    bool
	Message    string // status text or leader address
	Address    string // sender or leader address
	Partitions []Partition
	KVPs       []KVP
}

// Per-key status strings reported in responses.
const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// NotSupported is the status text of responses to operations a node does
// not implement.
const NotSupported = "Operation not (yet) supported"

// NewRequest creates a request for op.
func NewRequest(op Operation) *Message {
	return &Message{Type: TypeRequest, Operation: op}
}

// NewResponse creates an empty response to req.
func NewResponse(req *Message) *Message {
	return &Message{Type: TypeResponse, Operation: req.Operation}
}

// AddKVP appends a key/value pair.
func (m *Message) AddKVP(key, value string) {
	m.KVPs = append(m.KVPs, KVP{Key: key, Value: value})
}

// AddPartition appends a partition entry.
func (m *Message) AddPartition(id uint64, peer string) {
	m.Partitions = append(m.Partitions, Partition{ID: id, Peer: peer})
}

// PartitionID returns the id of the i-th partition entry, or 0 if absent.
func (m *Message) PartitionID(i int) uint64 {
	if i < 0 || i >= len(m.Partitions) {
		return 0
	}
	return m.Partitions[i].ID
}

// Fail marks the message as failed with the given status text.
func (m *Message) Fail(status string) *Message {
	m.Success = false
	m.Message = status
	return m
}
