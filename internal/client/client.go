// Package client runs one benchmark client against the key-value service:
// it waits for the run-wide start signal, emits requests according to the
// configured phase schedule, correlates responses, and persists the latency
// ledger plus (optionally) a linearizability-checkable operation history.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/sevenDatabase/sevenbench/internal/collect"
	"github.com/sevenDatabase/sevenbench/internal/history"
	"github.com/sevenDatabase/sevenbench/internal/logging"
	"github.com/sevenDatabase/sevenbench/internal/observability"
	"github.com/sevenDatabase/sevenbench/internal/transport"
	"github.com/sevenDatabase/sevenbench/internal/workload"
)

var (
	requestsIssued    uint64 // atomically incremented per issued command
	responsesReceived uint64 // atomically incremented per correlated response
)

func init() {
	observability.RegisterCustomCollector(func() []string {
		return []string{
			fmt.Sprintf("sevenbench_requests_total %d", atomic.LoadUint64(&requestsIssued)),
			fmt.Sprintf("sevenbench_responses_total %d", atomic.LoadUint64(&responsesReceived)),
		}
	})
}

// Transport is what the client needs from the connection to the service.
// *transport.Client satisfies it; tests substitute a channel-backed fake.
type Transport interface {
	Send(transport.Envelope) error
	Inbox() <-chan transport.Envelope
	Close() error
}

// Config describes one benchmark run.
type Config struct {
	ClientID uint64
	Phases   []workload.Phase
	Keyspace int
	// Seed for the read/write coin; 0 derives one from the wall clock.
	Seed int64

	CSVPath     string
	SummaryPath string
	// HistoryPath enables operation-history recording when non-empty.
	HistoryPath string
}

// Client is the run state machine. All of its state is owned by the single
// goroutine executing Run; no locking anywhere.
type Client struct {
	cfg    Config
	tr     Transport
	ledger *collect.Ledger
	hist   *history.Recorder // nil when history recording is disabled

	// opIndex maps in-flight command ids to history indices.
	opIndex map[uint64]int
	nextID  uint64
	// target is the total request count fixed at phase exhaustion; -1 while
	// phases are still active.
	target      int
	rng         *rand.Rand
	waitToStart time.Duration
}

// New creates a client over an established transport.
func New(cfg Config, tr Transport) *Client {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	c := &Client{
		cfg:     cfg,
		tr:      tr,
		ledger:  collect.NewLedger(),
		opIndex: make(map[uint64]int),
		target:  -1,
		rng:     rand.New(rand.NewSource(seed)),
	}
	if cfg.HistoryPath != "" {
		c.hist = history.NewRecorder(cfg.ClientID)
	}
	return c
}

// Run drives a complete benchmark run: await start, issue the phased
// workload, drain responses, persist artifacts. It returns once the run has
// finished or aborted; the transport is closed either way.
func (c *Client) Run(ctx context.Context) error {
	startMs, err := c.awaitStart(ctx)
	if err != nil {
		c.tr.Close()
		return err
	}
	if err := c.waitUntilStart(ctx, startMs); err != nil {
		c.tr.Close()
		return err
	}
	if c.hist != nil {
		// Anchor the history after the wait, so every client measures elapsed
		// time from the same scheduled instant.
		c.hist.SetSyncTime(startMs)
	}

	if len(c.cfg.Phases) == 0 {
		slog.Info("no phases configured, finishing immediately", "client", c.cfg.ClientID)
		c.tr.Close()
		return c.saveResults()
	}

	slog.Info("starting requests", "client", c.cfg.ClientID)
	err = c.loop(ctx)
	// Stop the transport before exporting so no late response can mutate
	// already-exported data.
	c.tr.Close()
	if err != nil {
		return err
	}
	slog.Info("client finished",
		"client", c.cfg.ClientID,
		"requests", c.ledger.RequestCount(),
		"responses", c.ledger.ResponseCount())
	return c.saveResults()
}

// awaitStart blocks until the service pushes the start signal. Anything else
// arriving first means the run is misconfigured and must abort.
func (c *Client) awaitStart(ctx context.Context) (int64, error) {
	slog.Info("waiting for start signal", "client", c.cfg.ClientID)
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case env, ok := <-c.tr.Inbox():
		if !ok {
			return 0, errors.New("client: connection closed while awaiting start")
		}
		if env.Kind != transport.KindStart {
			return 0, fmt.Errorf("client: expected start signal, got %q", env.Kind)
		}
		return env.StartMs, nil
	}
}

// waitUntilStart suspends until the scheduled absolute start instant. If the
// instant has already passed the run proceeds immediately with a warning.
func (c *Client) waitUntilStart(ctx context.Context, startMs int64) error {
	d := time.Until(time.UnixMilli(startMs))
	c.waitToStart = d
	if d <= 0 {
		slog.Warn("started after the synchronization point",
			"client", c.cfg.ClientID, "late_ms", -d.Milliseconds())
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (c *Client) loop(ctx context.Context) error {
	phaseIdx := 0
	ph := c.cfg.Phases[phaseIdx]
	reqTick := time.NewTicker(ph.RequestDelay)
	defer reqTick.Stop()
	phaseTimer := time.NewTimer(ph.Duration)
	defer phaseTimer.Stop()
	reqC := reqTick.C

	for {
		// Transport messages strictly before timers: response bookkeeping and
		// history completion must land before a new request can fire.
		select {
		case env, ok := <-c.tr.Inbox():
			if !ok {
				return errors.New("client: connection closed before run completed")
			}
			c.handleMessage(env)
			if c.finished() {
				return nil
			}
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-c.tr.Inbox():
			if !ok {
				return errors.New("client: connection closed before run completed")
			}
			c.handleMessage(env)
			if c.finished() {
				return nil
			}
		case <-reqC:
			if err := c.sendRequest(ph.ReadRatio); err != nil {
				return err
			}
		case <-phaseTimer.C:
			phaseIdx++
			if phaseIdx < len(c.cfg.Phases) {
				ph = c.cfg.Phases[phaseIdx]
				reqTick.Reset(ph.RequestDelay)
				phaseTimer.Reset(ph.Duration)
				logging.VInfo("client", "phase advanced",
					"phase", phaseIdx, "read_ratio", ph.ReadRatio)
			} else {
				// Phases exhausted: fix the target and stop issuing.
				c.target = c.ledger.RequestCount()
				reqTick.Stop()
				reqC = nil
				slog.Info("phases exhausted, draining",
					"client", c.cfg.ClientID, "target", c.target)
				if c.finished() {
					return nil
				}
			}
		}
	}
}

// finished reports whether the drain condition holds: the phase schedule is
// exhausted and every issued request has been answered.
func (c *Client) finished() bool {
	return c.target >= 0 && c.ledger.ResponseCount() >= c.target
}

func (c *Client) handleMessage(env transport.Envelope) {
	switch env.Kind {
	case transport.KindStart:
		// Echoed start signal after the handshake; ignore.
	case transport.KindResp:
		logging.VDebug("client", "response", "id", env.ID, "status", env.Status)
		c.ledger.Response(env.ID)
		atomic.AddUint64(&responsesReceived, 1)
		if c.hist != nil {
			if idx, ok := c.opIndex[env.ID]; ok {
				c.hist.Complete(idx, history.Output{Status: env.Status, Value: env.Value})
				delete(c.opIndex, env.ID)
			}
		}
	default:
		slog.Warn("ignoring unexpected message", "kind", env.Kind)
	}
}

func (c *Client) sendRequest(readRatio float64) error {
	isWrite := c.rng.Float64() > readRatio
	key := workload.Key(c.nextID, c.cfg.Keyspace)
	cmd := transport.Command{Do: transport.OpGet, Key: key}
	if isWrite {
		cmd = transport.Command{Do: transport.OpPut, Key: key, Value: workload.Value(c.nextID)}
	}
	if c.hist != nil {
		in := history.Get(key)
		if isWrite {
			in = history.Put(key, cmd.Value)
		}
		c.opIndex[c.nextID] = c.hist.Record(in)
	}
	logging.VDebug("client", "request", "id", c.nextID, "do", cmd.Do, "key", key)
	if err := c.tr.Send(transport.Envelope{Kind: transport.KindAppend, ID: c.nextID, Cmd: &cmd}); err != nil {
		return fmt.Errorf("client: send command %d: %w", c.nextID, err)
	}
	c.ledger.Request(isWrite)
	atomic.AddUint64(&requestsIssued, 1)
	c.nextID++
	return nil
}

// RunSummary is the content of the run summary artifact.
type RunSummary struct {
	ClientID      uint64           `json:"client_id"`
	Phases        []workload.Phase `json:"phases"`
	Keyspace      int              `json:"keyspace"`
	Seed          int64            `json:"seed"`
	History       bool             `json:"history"`
	WaitToStartMs int64            `json:"wait_to_start_ms"`
	Requests      int              `json:"requests"`
	Responses     int              `json:"responses"`
}

// saveResults persists the artifacts. Summary and CSV failures are fatal;
// the history export is best-effort.
func (c *Client) saveResults() error {
	summary := RunSummary{
		ClientID:      c.cfg.ClientID,
		Phases:        c.cfg.Phases,
		Keyspace:      c.cfg.Keyspace,
		Seed:          c.cfg.Seed,
		History:       c.hist != nil,
		WaitToStartMs: c.waitToStart.Milliseconds(),
		Requests:      c.ledger.RequestCount(),
		Responses:     c.ledger.ResponseCount(),
	}
	if err := collect.WriteSummary(c.cfg.SummaryPath, summary); err != nil {
		return fmt.Errorf("client: write summary: %w", err)
	}
	if err := c.ledger.WriteCSV(c.cfg.CSVPath); err != nil {
		return fmt.Errorf("client: write csv: %w", err)
	}
	if c.hist != nil {
		if err := c.hist.ExportJSON(c.cfg.HistoryPath); err != nil {
			slog.Warn("failed to export operation history",
				"path", c.cfg.HistoryPath, "err", err)
		} else {
			slog.Info("exported operation history",
				"path", c.cfg.HistoryPath, "operations", c.hist.CompletedCount())
		}
	}
	return nil
}
