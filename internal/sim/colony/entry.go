package colony

import (
	"errors"

	"anthill.game/internal/persistence/snapshot"
	"anthill.game/internal/sim/events"
	"anthill.game/internal/sim/state"
)

// TickLogEntry is everything needed to re-run one tick: the actions queued at
// the boundary before it, what it emitted, and the resulting state digest.
type TickLogEntry struct {
	Tick    uint64         `json:"tick"`
	Actions []state.Action `json:"actions,omitempty"`
	Events  []events.Event `json:"events"`
	Digest  string         `json:"digest"`
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

// SnapshotRecorder is told about every snapshot file after it is written.
type SnapshotRecorder interface {
	RecordSnapshot(path string, snap snapshot.Snapshot)
}

// MultiTickLogger fans one entry out to several loggers. Every logger sees
// the entry even when an earlier one fails.
type MultiTickLogger []TickLogger

func (m MultiTickLogger) WriteTick(entry TickLogEntry) error {
	var errs []error
	for _, l := range m {
		if l == nil {
			continue
		}
		if err := l.WriteTick(entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MultiSnapshotRecorder hands each written snapshot to several recorders in
// order.
type MultiSnapshotRecorder []SnapshotRecorder

func (m MultiSnapshotRecorder) RecordSnapshot(path string, snap snapshot.Snapshot) {
	for _, r := range m {
		if r != nil {
			r.RecordSnapshot(path, snap)
		}
	}
}
