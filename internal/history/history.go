// Package history records a call/return-timestamped operation log suitable
// for external linearizability checking. Timestamps are absolute nanoseconds
// anchored to a run-wide synchronization instant, so histories from
// independently launched clients are directly mergeable.
package history

import (
	"encoding/json"
	"os"
	"time"

	"github.com/sevenDatabase/sevenbench/internal/clock"
)

// Input is the invocation side of an operation. Kind is one of "Put", "Get",
// "Delete"; Value is only meaningful for puts.
type Input struct {
	Kind  string `json:"type"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

func Put(key, value string) Input { return Input{Kind: "Put", Key: key, Value: value} }
func Get(key string) Input        { return Input{Kind: "Get", Key: key} }
func Delete(key string) Input     { return Input{Kind: "Delete", Key: key} }

// Output is the response side of an operation. Value is set only for reads
// that returned one.
type Output struct {
	Status string  `json:"status"`
	Value  *string `json:"value,omitempty"`
}

// Operation is a single entry in the history. ReturnTime 0 marks an operation
// that was called but never completed.
type Operation struct {
	ClientID   uint64 `json:"client_id"`
	Input      Input  `json:"input"`
	Call       int64  `json:"call"`
	Output     Output `json:"output"`
	ReturnTime int64  `json:"return_time"`
}

// Recorder accumulates operations for one client. It is owned by a single
// goroutine; no internal synchronization is provided.
type Recorder struct {
	ops       []Operation
	clientID  uint64
	src       clock.TimeSource
	reference time.Time
	origin    int64 // absolute ns at the reference instant
}

// NewRecorder creates a recorder whose time origin is "now"; SetSyncTime
// replaces it once the run-wide start instant is known.
func NewRecorder(clientID uint64) *Recorder {
	return NewRecorderWithSource(clientID, clock.RealClock{})
}

// NewRecorderWithSource is NewRecorder with an explicit time source, for tests.
func NewRecorderWithSource(clientID uint64, src clock.TimeSource) *Recorder {
	now := src.Now()
	return &Recorder{
		clientID:  clientID,
		src:       src,
		reference: now,
		origin:    now.UnixNano(),
	}
}

// SetSyncTime anchors the history to the shared start instant, given in
// absolute milliseconds. Call it once, after waiting until that instant, so
// that every participating client measures elapsed time from the same origin.
func (r *Recorder) SetSyncTime(syncMs int64) {
	r.origin = syncMs * int64(time.Millisecond)
	r.reference = r.src.Now()
}

func (r *Recorder) now() int64 {
	return r.origin + r.src.Now().Sub(r.reference).Nanoseconds()
}

// Record appends a pending operation and returns its index, the sole handle
// for later completion. Indices are dense and stable for the run's duration.
func (r *Recorder) Record(in Input) int {
	idx := len(r.ops)
	r.ops = append(r.ops, Operation{
		ClientID: r.clientID,
		Input:    in,
		Call:     r.now(),
		Output:   Output{Status: "pending"},
	})
	return idx
}

// Complete sets the output and return time of a recorded operation. An
// out-of-range index is a no-op: the recorder never faults on a caller
// bookkeeping mismatch. Completing the same index again overwrites; the last
// write wins.
func (r *Recorder) Complete(idx int, out Output) {
	if idx < 0 || idx >= len(r.ops) {
		return
	}
	r.ops[idx].Output = out
	r.ops[idx].ReturnTime = r.now()
}

// Count returns the number of recorded operations, completed or not.
func (r *Recorder) Count() int { return len(r.ops) }

// CompletedCount returns the number of completed operations.
func (r *Recorder) CompletedCount() int {
	n := 0
	for i := range r.ops {
		if r.ops[i].ReturnTime > 0 {
			n++
		}
	}
	return n
}

// ExportJSON writes the completed operations, in recorded order, as a JSON
// array. Pending operations are dropped: a partially observed operation is
// useless to a linearizability checker.
func (r *Recorder) ExportJSON(path string) error {
	completed := make([]Operation, 0, len(r.ops))
	for i := range r.ops {
		if r.ops[i].ReturnTime > 0 {
			completed = append(completed, r.ops[i])
		}
	}
	data, err := json.MarshalIndent(completed, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
