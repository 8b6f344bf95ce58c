// Package workload describes the shape of the load a client generates: an
// ordered phase schedule and the key/value material for individual commands.
package workload

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Phase is one segment of a run. The schedule is fixed before the run starts
// and consumed front to back exactly once.
type Phase struct {
	// Duration of the phase.
	Duration time.Duration
	// ReadRatio in [0,1]: the probability that an issued command is a read.
	ReadRatio float64
	// RequestDelay is the cadence at which commands are issued.
	RequestDelay time.Duration
}

// MarshalJSON renders durations in milliseconds, matching the flag syntax, so
// the run summary stays readable.
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		DurationMs     int64   `json:"duration_ms"`
		ReadRatio      float64 `json:"read_ratio"`
		RequestDelayMs int64   `json:"request_delay_ms"`
	}{p.Duration.Milliseconds(), p.ReadRatio, p.RequestDelay.Milliseconds()})
}

// ParsePhases parses "duration_ms:read_ratio:request_delay_ms" triples, the
// format used by the --phases flag and SEVENBENCH_PHASES.
func ParsePhases(specs []string) ([]Phase, error) {
	phases := make([]Phase, 0, len(specs))
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		parts := strings.Split(spec, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("workload: phase %q: want duration_ms:read_ratio:request_delay_ms", spec)
		}
		durMs, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil || durMs <= 0 {
			return nil, fmt.Errorf("workload: phase %q: bad duration", spec)
		}
		ratio, err := strconv.ParseFloat(parts[1], 64)
		if err != nil || ratio < 0 || ratio > 1 {
			return nil, fmt.Errorf("workload: phase %q: read ratio must be in [0,1]", spec)
		}
		delayMs, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil || delayMs <= 0 {
			return nil, fmt.Errorf("workload: phase %q: bad request delay", spec)
		}
		phases = append(phases, Phase{
			Duration:     time.Duration(durMs) * time.Millisecond,
			ReadRatio:    ratio,
			RequestDelay: time.Duration(delayMs) * time.Millisecond,
		})
	}
	return phases, nil
}

// Key maps a command sequence number onto a bounded keyspace. The mapping is a
// pure function of the sequence number, so independently launched clients
// collide on keys (which is the point of a contention benchmark) without
// sharing any random state. A non-positive keyspace means every sequence
// number gets its own key.
func Key(seq uint64, keyspace int) string {
	if keyspace <= 0 {
		return fmt.Sprintf("bench:key:%d", seq)
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seq)
	return fmt.Sprintf("bench:key:%d", xxhash.Sum64(b[:])%uint64(keyspace))
}

// Value is the payload written by command number seq. Deriving it from the
// sequence number lets a checker relate observed reads back to writes.
func Value(seq uint64) string {
	return strconv.FormatUint(seq, 10)
}
