// Package transport carries the benchmark protocol between a client and the
// key-value service: a start signal pushed by the service, append requests
// issued by the client, and responses correlated by command id. Frames are a
// 4-byte big-endian length prefix followed by a JSON envelope.
package transport

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Envelope kinds.
const (
	KindStart  = "start"  // service -> client, carries the scheduled start instant
	KindAppend = "append" // client -> service, carries one command
	KindResp   = "resp"   // service -> client, answers one command
)

// Command opcodes.
const (
	OpPut = "put"
	OpGet = "get"
	OpDel = "del"
)

// Command is the key-value operation inside an append envelope.
type Command struct {
	Do    string `json:"do"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// Envelope is the wire message union. Kind selects which fields are
// meaningful: StartMs for start, ID+Cmd for append, ID+Status(+Value) for
// resp. Value is a pointer so "read hit an absent key" survives the trip.
type Envelope struct {
	Kind    string   `json:"kind"`
	StartMs int64    `json:"start_ms,omitempty"`
	ID      uint64   `json:"id,omitempty"`
	Cmd     *Command `json:"cmd,omitempty"`
	Status  string   `json:"status,omitempty"`
	Value   *string  `json:"value,omitempty"`
}

// maxFrameSize bounds a single frame; anything larger is a corrupt stream.
const maxFrameSize = 1 << 20

// WriteEnvelope frames and writes one envelope.
func WriteEnvelope(w io.Writer, env *Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(body)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// ReadEnvelope reads one framed envelope.
func ReadEnvelope(r io.Reader) (*Envelope, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n == 0 || n > maxFrameSize {
		return nil, fmt.Errorf("transport: bad frame length %d", n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	env := &Envelope{}
	if err := json.Unmarshal(body, env); err != nil {
		return nil, fmt.Errorf("transport: decode frame: %w", err)
	}
	return env, nil
}
