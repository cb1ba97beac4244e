package raft

import (
	"bytes"
	"encoding/binary"
	"io"
)

// LogEntry represents a single entry in the replicated log.
type LogEntry struct {
	Term    uint64 // Term when entry was created
	Command []byte // Serialized command data
}

// Serialize encodes the log entry to bytes.
// Format: [Term:8][CommandLen:4][Command:N]
func (e *LogEntry) Serialize() []byte {
	buf := make([]byte, 12+len(e.Command))

	binary.LittleEndian.PutUint64(buf[0:8], e.Term)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(e.Command)))
	copy(buf[12:], e.Command)

	return buf
}

// DeserializeLogEntry decodes a log entry from bytes.
func DeserializeLogEntry(data []byte) (*LogEntry, error) {
	if len(data) < 12 {
		return nil, ErrLogCorrupted
	}

	cmdLen := binary.LittleEndian.Uint32(data[8:12])
	if uint64(len(data)) != 12+uint64(cmdLen) {
		return nil, ErrLogCorrupted
	}

	return &LogEntry{
		Term:    binary.LittleEndian.Uint64(data[0:8]),
		Command: append([]byte(nil), data[12:]...),
	}, nil
}

// CommandOp is the kind of a replicated command.
type CommandOp uint8

// Command operations.
const (
	CmdPut    CommandOp = iota + 1 // Store a value
	CmdDelete                      // Remove a key
)

// String returns the name of the operation.
func (op CommandOp) String() string {
	switch op {
	case CmdPut:
		return "put"
	case CmdDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Command is the payload of a log entry.
type Command struct {
	Op    CommandOp
	Key   string
	Value string // Empty for CmdDelete
}

// Serialize encodes the command to bytes.
// Format: [Op:1][KeyLen:4][Key:N][ValueLen:4][Value:M]
func (c *Command) Serialize() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(c.Op))
	writeBytes(&buf, []byte(c.Key))
	writeBytes(&buf, []byte(c.Value))
	return buf.Bytes()
}

// DeserializeCommand decodes a command from bytes.
func DeserializeCommand(data []byte) (*Command, error) {
	if len(data) < 9 {
		return nil, ErrLogCorrupted
	}

	r := bytes.NewReader(data)
	op, _ := r.ReadByte()

	key, err := readBytes(r)
	if err != nil {
		return nil, ErrLogCorrupted
	}
	value, err := readBytes(r)
	if err != nil {
		return nil, ErrLogCorrupted
	}

	cmd := &Command{Op: CommandOp(op), Key: string(key), Value: string(value)}
	if cmd.Op != CmdPut && cmd.Op != CmdDelete {
		return nil, ErrLogCorrupted
	}
	return cmd, nil
}

func writeBytes(w io.Writer, data []byte) {
	binary.Write(w, binary.LittleEndian, uint32(len(data)))
	w.Write(data)
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, err
	}
	if int64(length) > int64(r.Len()) {
		return nil, io.ErrUnexpectedEOF
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Log is the append-only sequence of entries owned by a node.
// It is not safe for concurrent use; NodeState guards it.
type Log struct {
	entries []*LogEntry
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append adds entries to the end of the log.
func (l *Log) Append(entries ...*LogEntry) {
	l.entries = append(l.entries, entries...)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the entry list.
func (l *Log) Entries() []*LogEntry {
	out := make([]*LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// LastTerm returns the term of the last entry, or 0 for an empty log.
func (l *Log) LastTerm() uint64 {
	if len(l.entries) == 0 {
		return 0
	}
	return l.entries[len(l.entries)-1].Term
}
