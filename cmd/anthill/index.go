package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"anthill.game/internal/persistence/indexdb"
	persistlog "anthill.game/internal/persistence/log"
	"anthill.game/internal/sim/colony"
)

// runtimeIndex is a read-model sink. It never affects the simulation.
type runtimeIndex interface {
	colony.TickLogger
	colony.SnapshotRecorder
	WriteAudit(persistlog.AuditEntry) error
	Close() error
}

type indexOpts struct {
	backend    string
	d1URL      string
	d1Token    string
	d1FlushMS  int
	d1Batch    int
	d1Retained int
}

func indexPath(dataDir string) string { return filepath.Join(dataDir, "index", "colony.sqlite") }

func openRuntimeIndex(o indexOpts, dataDir, runID string, logger *log.Logger) (runtimeIndex, error) {
	backend := strings.ToLower(strings.TrimSpace(o.backend))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(indexPath(dataDir))
	case "d1":
		endpoint := strings.TrimSpace(o.d1URL)
		if endpoint == "" {
			return nil, fmt.Errorf("--index=d1 but --d1-url is empty")
		}
		return indexdb.OpenD1(indexdb.D1Config{
			Endpoint:      endpoint,
			Token:         strings.TrimSpace(o.d1Token),
			RunID:         runID,
			BatchSize:     o.d1Batch,
			FlushInterval: time.Duration(o.d1FlushMS) * time.Millisecond,
			MaxRetained:   o.d1Retained,
			Logger:        logger,
		})
	default:
		return nil, fmt.Errorf("unsupported index backend: %s", backend)
	}
}

// auditSinks fans one audit entry out to every configured writer.
type auditSinks []interface {
	WriteAudit(persistlog.AuditEntry) error
}

func (a auditSinks) WriteAudit(e persistlog.AuditEntry) error {
	var firstErr error
	for _, w := range a {
		if w == nil {
			continue
		}
		if err := w.WriteAudit(e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
