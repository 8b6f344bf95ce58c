// Package collect tracks per-request latency data for a benchmark run. The
// position of a record in the ledger is the command id: ids are dense, start
// at 0, and are never reused.
package collect

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/sevenDatabase/sevenbench/internal/clock"
)

// RequestRecord is one issued command. ReceiveTime is nil until the response
// arrives; once set it is set exactly once and is >= SendTime. Times are
// absolute milliseconds.
type RequestRecord struct {
	SendTime    int64  `json:"send_time"`
	Write       bool   `json:"is_write"`
	ReceiveTime *int64 `json:"receive_time,omitempty"`
}

// Ledger is the append-only request/response record for one client. It is
// owned by the scheduler goroutine and is not safe for concurrent use.
type Ledger struct {
	records   []RequestRecord
	responses int
	src       clock.TimeSource
}

func NewLedger() *Ledger {
	return NewLedgerWithSource(clock.RealClock{})
}

func NewLedgerWithSource(src clock.TimeSource) *Ledger {
	return &Ledger{src: src}
}

// Request appends a record stamped "now" and returns its command id.
func (l *Ledger) Request(isWrite bool) uint64 {
	id := uint64(len(l.records))
	l.records = append(l.records, RequestRecord{
		SendTime: l.src.Now().UnixMilli(),
		Write:    isWrite,
	})
	return id
}

// Response stamps the receive time on the identified record. A response for a
// command that was never issued is a programming-contract violation, not a
// runtime condition, and panics.
func (l *Ledger) Response(id uint64) {
	if id >= uint64(len(l.records)) {
		panic(fmt.Sprintf("collect: response for command %d, but only %d issued", id, len(l.records)))
	}
	t := l.src.Now().UnixMilli()
	l.records[id].ReceiveTime = &t
	l.responses++
}

func (l *Ledger) RequestCount() int  { return len(l.records) }
func (l *Ledger) ResponseCount() int { return l.responses }

// WriteCSV writes every record, in issuance order, one row per request.
// Requests that never got a response have an empty receive_time column.
func (l *Ledger) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"send_time", "is_write", "receive_time"}); err != nil {
		return err
	}
	for _, rec := range l.records {
		recv := ""
		if rec.ReceiveTime != nil {
			recv = strconv.FormatInt(*rec.ReceiveTime, 10)
		}
		row := []string{
			strconv.FormatInt(rec.SendTime, 10),
			strconv.FormatBool(rec.Write),
			recv,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteSummary serializes the run configuration (plus whatever run facts the
// caller folds in) as pretty JSON.
func WriteSummary(path string, summary any) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
