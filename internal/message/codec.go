package message

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// MaxPayloadSize bounds a single framed message.
const MaxPayloadSize = 64 * 1024 * 1024

// Codec errors.
var (
	// ErrMalformed is returned when a payload cannot be decoded.
	ErrMalformed = errors.New("message: malformed payload")

	// ErrMessageTooLarge is returned when a frame exceeds MaxPayloadSize.
	ErrMessageTooLarge = errors.New("message: payload too large")
)

// Marshal encodes m.
// Format: [Type:1][Op:1][Success:1][Message][Address]
// [NumPartitions:4]{[ID:8][Peer]}*[NumKVPs:4]{[Key][Value]}*
// Strings are length-prefixed with a uint16, keys and values with a uint32.
func Marshal(m *Message) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(byte(m.Type))
	buf.WriteByte(byte(m.Operation))
	if m.Success {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	if err := writeString(&buf, m.Message); err != nil {
		return nil, err
	}
	if err := writeString(&buf, m.Address); err != nil {
		return nil, err
	}

	binary.Write(&buf, binary.LittleEndian, uint32(len(m.Partitions)))
	for _, p := range m.Partitions {
		binary.Write(&buf, binary.LittleEndian, p.ID)
		if err := writeString(&buf, p.Peer); err != nil {
			return nil, err
		}
	}

	binary.Write(&buf, binary.LittleEndian, uint32(len(m.KVPs)))
	for _, kv := range m.KVPs {
		if err := writeBytes(&buf, []byte(kv.Key)); err != nil {
			return nil, err
		}
		if err := writeBytes(&buf, []byte(kv.Value)); err != nil {
			return nil, err
		}
	}

	if buf.Len() > MaxPayloadSize {
		return nil, ErrMessageTooLarge
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a payload produced by Marshal.
func Unmarshal(data []byte) (*Message, error) {
	if len(data) < 3 {
		return nil, ErrMalformed
	}

	r := bytes.NewReader(data)
	m := &Message{}

	t, _ := r.ReadByte()
	op, _ := r.ReadByte()
	ok, _ := r.ReadByte()
	m.Type = Type(t)
	m.Operation = Operation(op)
	m.Success = ok == 1

	var err error
	if m.Message, err = readString(r); err != nil {
		return nil, ErrMalformed
	}
	if m.Address, err = readString(r); err != nil {
		return nil, ErrMalformed
	}

	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, ErrMalformed
	}
	// Each partition takes at least 10 bytes.
	if int64(n)*10 > int64(r.Len()) {
		return nil, ErrMalformed
	}
	if n > 0 {
		m.Partitions = make([]Partition, 0, n)
	}
	for i := uint32(0); i < n; i++ {
		var p Partition
		if err := binary.Read(r, binary.LittleEndian, &p.ID); err != nil {
			return nil, ErrMalformed
		}
		if p.Peer, err = readString(r); err != nil {
			return nil, ErrMalformed
		}
		m.Partitions = append(m.Partitions, p)
	}

	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, ErrMalformed
	}
	// Each pair takes at least 8 bytes.
	if int64(n)*8 > int64(r.Len()) {
		return nil, ErrMalformed
	}
	if n > 0 {
		m.KVPs = make([]KVP, 0, n)
	}
	for i := uint32(0); i < n; i++ {
		key, err := readBytes(r)
		if err != nil {
			return nil, ErrMalformed
		}
		value, err := readBytes(r)
		if err != nil {
			return nil, ErrMalformed
		}
		m.KVPs = append(m.KVPs, KVP{Key: string(key), Value: string(value)})
	}

	return m, nil
}

// WriteFrame writes m to w.
// Frame format: [Op:1][Length:4][Payload:N]
func WriteFrame(w io.Writer, m *Message) error {
	payload, err := Marshal(m)
	if err != nil {
		return err
	}

	frame := make([]byte, 5+len(payload))
	frame[0] = byte(m.Operation)
	binary.LittleEndian.PutUint32(frame[1:5], uint32(len(payload)))
	copy(frame[5:], payload)

	_, err = w.Write(frame)
	return err
}

// ReadFrame reads one framed message from r.
func ReadFrame(r io.Reader) (*Message, error) {
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	length := binary.LittleEndian.Uint32(header[1:5])
	if length > MaxPayloadSize {
		return nil, ErrMessageTooLarge
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return Unmarshal(payload)
}

func writeString(w io.Writer, s string) error {
	if len(s) > 0xFFFF {
		return ErrMessageTooLarge
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var length uint16
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return "", err
	}
	return string(data), nil
}

func writeBytes(w io.Writer, data []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(data))); err != nil {
		return err
	}
	if len(data) > 0 {
		_, err := w.Write(data)
		return err
	}
	return nil
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
