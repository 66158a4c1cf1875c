package indexdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	persistlog "anthill.game/internal/persistence/log"
	"anthill.game/internal/persistence/snapshot"
	"anthill.game/internal/sim/colony"
	"anthill.game/internal/sim/events"
	"anthill.game/internal/sim/state"
)

// D1Config points the remote index at an HTTP ingest worker in front of a
// Cloudflare D1 database.
type D1Config struct {
	Endpoint      string
	Token         string
	RunID         string
	BatchSize     int
	FlushInterval time.Duration
	HTTPTimeout   time.Duration
	// MaxRetained caps how many unsent events are kept across failed flushes.
	MaxRetained int
	Logger      *log.Logger
}

// D1Index pushes the same rows as SQLiteIndex to a remote ingest endpoint in
// batches. Failed batches are retained and retried on the next flush.
type D1Index struct {
	cfg        D1Config
	httpClient *http.Client

	ch   chan d1Event
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	auditMu       sync.Mutex
	lastAuditTick uint64
	auditSeq      int

	queueDropped atomic.Uint64
	flushFail    atomic.Uint64
	sent         atomic.Uint64
	retainDrop   atomic.Uint64
}

type D1Stats struct {
	QueueDepth         int
	QueueDroppedTotal  uint64
	FlushFailTotal     uint64
	SentTotal          uint64
	RetainDroppedTotal uint64
}

type d1Event struct {
	Kind    string `json:"kind"`
	RunID   string `json:"run_id"`
	Payload any    `json:"payload"`
}

type d1TickPayload struct {
	Tick    uint64         `json:"tick"`
	Digest  string         `json:"digest"`
	Actions []state.Action `json:"actions,omitempty"`
	Events  []events.Event `json:"events"`
}

type d1AuditPayload struct {
	Seq int `json:"seq"`
	persistlog.AuditEntry
}

type d1SnapshotPayload struct {
	Tick      uint64          `json:"tick"`
	Path      string          `json:"path"`
	Seed      uint64          `json:"seed"`
	Entities  int             `json:"entities"`
	Corpses   int             `json:"corpses"`
	Resources json.RawMessage `json:"resources"`
	SavedAt   float64         `json:"saved_at"`
}

func OpenD1(cfg D1Config) (*D1Index, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.RunID = strings.TrimSpace(cfg.RunID)
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("empty d1 ingest endpoint")
	}
	if cfg.RunID == "" {
		return nil, fmt.Errorf("empty run id")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 128
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.MaxRetained <= 0 {
		cfg.MaxRetained = 16 * cfg.BatchSize
	}

	d := &D1Index{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		ch: make(chan d1Event, 32768),
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loop()
	}()

	return d, nil
}

func (d *D1Index) Close() error {
	if d == nil {
		return nil
	}
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.ch)
		d.wg.Wait()
	})
	return nil
}

func (d *D1Index) Stats() D1Stats {
	return D1Stats{
		QueueDepth:         len(d.ch),
		QueueDroppedTotal:  d.queueDropped.Load(),
		FlushFailTotal:     d.flushFail.Load(),
		SentTotal:          d.sent.Load(),
		RetainDroppedTotal: d.retainDrop.Load(),
	}
}

func (d *D1Index) WriteTick(entry colony.TickLogEntry) error {
	if d == nil || d.closed.Load() {
		return nil
	}
	d.enqueue(d1Event{Kind: "tick", RunID: d.cfg.RunID, Payload: d1TickPayload{
		Tick:    entry.Tick,
		Digest:  entry.Digest,
		Actions: entry.Actions,
		Events:  entry.Events,
	}})
	return nil
}

func (d *D1Index) WriteAudit(entry persistlog.AuditEntry) error {
	if d == nil || d.closed.Load() {
		return nil
	}
	seq := d.nextAuditSeq(entry.Tick)
	d.enqueue(d1Event{Kind: "audit", RunID: d.cfg.RunID, Payload: d1AuditPayload{Seq: seq, AuditEntry: entry}})
	return nil
}

func (d *D1Index) RecordSnapshot(path string, snap snapshot.Snapshot) {
	if d == nil || d.closed.Load() {
		return
	}
	row := snapshotRowOf(path, snap)
	d.enqueue(d1Event{Kind: "snapshot", RunID: d.cfg.RunID, Payload: d1SnapshotPayload{
		Tick:      row.Tick,
		Path:      row.Path,
		Seed:      row.Seed,
		Entities:  row.Entities,
		Corpses:   row.Corpses,
		Resources: json.RawMessage(row.ResourcesJSON),
		SavedAt:   row.SavedAt,
	}})
}

func (d *D1Index) nextAuditSeq(tick uint64) int {
	d.auditMu.Lock()
	defer d.auditMu.Unlock()
	if tick != d.lastAuditTick {
		d.lastAuditTick = tick
		d.auditSeq = 0
	}
	d.auditSeq++
	return d.auditSeq
}

func (d *D1Index) enqueue(ev d1Event) {
	if d == nil || d.closed.Load() {
		return
	}
	select {
	case d.ch <- ev:
	default:
		d.queueDropped.Add(1)
		d.warn("d1 index queue full; dropping", "kind", ev.Kind)
	}
}

func (d *D1Index) loop() {
	ticker := time.NewTicker(d.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]d1Event, 0, d.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := d.sendBatch(batch); err != nil {
			d.flushFail.Add(1)
			d.warn("d1 index flush failed", "batch", len(batch), "err", err)
			if over := len(batch) - d.cfg.MaxRetained; over > 0 {
				d.retainDrop.Add(uint64(over))
				batch = append(batch[:0], batch[over:]...)
			}
			return
		}
		d.sent.Add(uint64(len(batch)))
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-d.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= d.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (d *D1Index) sendBatch(evs []d1Event) error {
	if len(evs) == 0 {
		return nil
	}

	body := struct {
		Events []d1Event `json:"events"`
	}{Events: evs}
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequest(http.MethodPost, d.cfg.Endpoint, bytes.NewReader(buf))
		if err != nil {
			return err
		}
		req.Header.Set("content-type", "application/json")
		if d.cfg.Token != "" {
			req.Header.Set("x-anthill-index-token", d.cfg.Token)
		}

		resp, err := d.httpClient.Do(req)
		if err == nil {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
			_ = resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
			err = fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}
		lastErr = err
		time.Sleep(time.Duration(100*(1<<attempt)) * time.Millisecond)
	}
	return lastErr
}

func (d *D1Index) warn(msg string, kv ...any) {
	if d != nil && d.cfg.Logger != nil {
		d.cfg.Logger.Warn(msg, kv...)
	}
}
