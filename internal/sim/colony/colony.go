// Package colony runs one engine over one colony state in real time. It owns
// the state exclusively: other goroutines reach it only through channels
// serviced between ticks.
package colony

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"anthill.game/internal/persistence/snapshot"
	"anthill.game/internal/sim/engine"
	"anthill.game/internal/sim/events"
	"anthill.game/internal/sim/state"
)

var ErrStopped = errors.New("colony stopped")

type Config struct {
	RunID              string
	TickRateHz         int
	SnapshotEveryTicks uint64
	// DataDir holds snapshots/. Empty disables snapshot writing.
	DataDir string

	Logger *log.Logger
	Now    func() time.Time
}

type Colony struct {
	cfg Config
	log *log.Logger

	engine *engine.Engine
	state  *state.GameState

	tickLogger TickLogger
	recorder   SnapshotRecorder

	inbox         chan state.Action
	stateReq      chan stateReq
	observerJoin  chan observerJoin
	observerLeave chan string
	stop          chan struct{}
	done          chan struct{}

	observers map[string]chan TickLogEntry

	tick atomic.Uint64
}

func New(cfg Config, e *engine.Engine, s *state.GameState) *Colony {
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	lg := cfg.Logger
	if lg == nil {
		lg = log.New(io.Discard)
	}
	c := &Colony{
		cfg:           cfg,
		log:           lg,
		engine:        e,
		state:         s,
		inbox:         make(chan state.Action, 1024),
		stateReq:      make(chan stateReq),
		observerJoin:  make(chan observerJoin),
		observerLeave: make(chan string),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
		observers:     map[string]chan TickLogEntry{},
	}
	c.tick.Store(s.Tick)
	return c
}

func (c *Colony) SetTickLogger(l TickLogger)             { c.tickLogger = l }
func (c *Colony) SetSnapshotRecorder(r SnapshotRecorder) { c.recorder = r }

// Inbox accepts actions for the next tick boundary.
func (c *Colony) Inbox() chan<- state.Action { return c.inbox }

// CurrentTick is safe to call from any goroutine.
func (c *Colony) CurrentTick() uint64 { return c.tick.Load() }

func (c *Colony) Seed() uint64 { return c.engine.Seed() }

func (c *Colony) RunID() string { return c.cfg.RunID }

func (c *Colony) TickRateHz() int { return c.cfg.TickRateHz }

// Run ticks until ctx is cancelled or Stop is called, then writes a final
// snapshot. Actions received between ticks are applied in arrival order.
func (c *Colony) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(c.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(c.done)

	c.log.Info("colony running", "tick", c.state.Tick, "seed", c.engine.Seed(), "tick_rate_hz", c.cfg.TickRateHz)

	var pending []state.Action
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-c.stop:
			c.shutdown()
			return nil
		case a := <-c.inbox:
			pending = append(pending, a)
		case req := <-c.stateReq:
			req.resp <- c.state.Clone()
		case req := <-c.observerJoin:
			c.handleObserverJoin(req)
		case id := <-c.observerLeave:
			c.handleObserverLeave(id)
		case <-ticker.C:
			c.StepOnce(pending)
			pending = pending[:0]
		}
	}
}

func (c *Colony) Stop() { close(c.stop) }

// StepOnce queues actions, runs one tick and fans the entry out. It must only
// be called from the goroutine that owns the colony.
func (c *Colony) StepOnce(actions []state.Action) TickLogEntry {
	recorded := make([]state.Action, 0, len(actions))
	for _, a := range actions {
		if a.ID == "" || a.Type == "" {
			c.log.Warn("dropping action without id or type", "id", a.ID, "type", a.Type)
			continue
		}
		c.state.Queues.Enqueue(a.Clone())
		recorded = append(recorded, a)
	}

	evs := c.engine.Tick(c.state)
	if evs == nil {
		evs = []events.Event{}
	}
	entry := TickLogEntry{
		Tick:    c.state.Tick,
		Actions: recorded,
		Events:  evs,
		Digest:  state.Digest(c.state),
	}
	c.tick.Store(c.state.Tick)

	if c.tickLogger != nil {
		if err := c.tickLogger.WriteTick(entry); err != nil {
			c.log.Error("tick log", "tick", entry.Tick, "err", err)
		}
	}
	for _, e := range evs {
		c.log.Debug("event", "tick", e.Tick, "type", e.Type())
	}
	c.stepObservers(entry)

	if every := c.cfg.SnapshotEveryTicks; every > 0 && c.state.Tick%every == 0 {
		if _, err := c.WriteSnapshot(); err != nil {
			c.log.Error("snapshot write", "tick", c.state.Tick, "err", err)
		}
	}
	return entry
}

// WriteSnapshot stamps the save time into the state and writes it under
// DataDir/snapshots. It must only be called from the owning goroutine.
func (c *Colony) WriteSnapshot() (string, error) {
	if c.cfg.DataDir == "" {
		return "", errors.New("snapshot directory not configured")
	}
	c.state.SetLastSave(unixSeconds(c.cfg.Now()))
	snap := snapshot.New(c.cfg.RunID, c.engine, c.state, *c.state.LastSaveTimestamp)
	path := filepath.Join(SnapshotDir(c.cfg.DataDir), snapshot.FileName(snap.Header.Tick))
	if err := snapshot.Write(path, snap); err != nil {
		return "", err
	}
	if c.recorder != nil {
		c.recorder.RecordSnapshot(path, snap)
	}
	c.log.Info("snapshot written", "tick", snap.Header.Tick, "path", path)
	return path, nil
}

func (c *Colony) shutdown() {
	for id := range c.observers {
		c.handleObserverLeave(id)
	}
	if c.cfg.DataDir == "" {
		return
	}
	if _, err := c.WriteSnapshot(); err != nil {
		c.log.Error("final snapshot", "err", err)
	}
}

type stateReq struct {
	resp chan *state.GameState
}

// State returns a copy of the colony taken between ticks.
func (c *Colony) State(ctx context.Context) (*state.GameState, error) {
	req := stateReq{resp: make(chan *state.GameState, 1)}
	select {
	case c.stateReq <- req:
	case <-c.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case s := <-req.resp:
		return s, nil
	case <-c.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func SnapshotDir(dataDir string) string { return filepath.Join(dataDir, "snapshots") }

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
