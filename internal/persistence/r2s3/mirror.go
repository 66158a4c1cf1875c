package r2s3

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"anthill.game/internal/persistence/snapshot"
)

// LatestManifest is written as <prefix>/latest.json after each snapshot
// upload so a fresh host can find the newest copy.
type LatestManifest struct {
	RunID   string  `json:"run_id,omitempty"`
	Tick    uint64  `json:"tick"`
	Seed    uint64  `json:"seed"`
	Key     string  `json:"key"`
	SavedAt float64 `json:"saved_at,omitempty"`
}

type Stats struct {
	QueueDepth          int
	QueueCapacity       int
	EnqueuedTotal       uint64
	QueueSaturatedTotal uint64
	DroppedTotal        uint64
	UploadSuccessTotal  uint64
	UploadFailTotal     uint64
	LastSuccessUnix     int64
	LastErrorUnix       int64
}

type MirrorConfig struct {
	// DataDir is the local root; object keys are paths relative to it.
	DataDir       string
	Prefix        string
	Workers       int
	QueueCapacity int
	EnqueueWait   time.Duration
	Logger        *log.Logger
}

type uploadJob struct {
	localPath string
	latest    *LatestManifest
}

// Mirror copies finished files (snapshots, rotated tick logs) to the bucket
// in the background. Uploads never block the tick loop for longer than
// EnqueueWait; a saturated queue drops the job.
type Mirror struct {
	client  uploader
	dataDir string
	prefix  string
	logger  *log.Logger

	jobs        chan uploadJob
	enqueueWait time.Duration
	wg          sync.WaitGroup
	closeOnce   sync.Once

	enqueuedTotal       atomic.Uint64
	queueSaturatedTotal atomic.Uint64
	droppedTotal        atomic.Uint64
	uploadSuccessTotal  atomic.Uint64
	uploadFailTotal     atomic.Uint64
	lastSuccessUnix     atomic.Int64
	lastErrorUnix       atomic.Int64
}

type uploader interface {
	PutFile(ctx context.Context, objectKey, localPath string) error
	PutBytes(ctx context.Context, objectKey string, body []byte) error
}

func NewMirror(client *Client, cfg MirrorConfig) *Mirror {
	return newMirror(client, cfg)
}

func newMirror(client uploader, cfg MirrorConfig) *Mirror {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 2048
	}
	if cfg.EnqueueWait <= 0 {
		cfg.EnqueueWait = 25 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	m := &Mirror{
		client:      client,
		dataDir:     cfg.DataDir,
		prefix:      strings.Trim(strings.ReplaceAll(cfg.Prefix, "\\", "/"), "/"),
		logger:      cfg.Logger,
		jobs:        make(chan uploadJob, cfg.QueueCapacity),
		enqueueWait: cfg.EnqueueWait,
	}
	for range cfg.Workers {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			for job := range m.jobs {
				m.uploadOne(job)
			}
		}()
	}
	return m
}

// Enqueue schedules one local file for upload.
func (m *Mirror) Enqueue(localPath string) {
	m.enqueue(uploadJob{localPath: localPath})
}

// RecordSnapshot uploads a freshly written snapshot and then points
// latest.json at it.
func (m *Mirror) RecordSnapshot(localPath string, snap snapshot.Snapshot) {
	m.enqueue(uploadJob{localPath: localPath, latest: &LatestManifest{
		RunID:   snap.Header.RunID,
		Tick:    snap.Header.Tick,
		Seed:    snap.Header.Seed,
		SavedAt: snap.Header.SavedAt,
	}})
}

func (m *Mirror) enqueue(job uploadJob) {
	if m == nil || m.client == nil {
		return
	}
	m.enqueuedTotal.Add(1)

	select {
	case m.jobs <- job:
		return
	default:
	}

	m.queueSaturatedTotal.Add(1)
	timer := time.NewTimer(m.enqueueWait)
	defer timer.Stop()
	select {
	case m.jobs <- job:
	case <-timer.C:
		dropped := m.droppedTotal.Add(1)
		m.logger.Warn("mirror drop", "local", job.localPath, "reason", "queue_saturated", "wait_ms", m.enqueueWait.Milliseconds(), "dropped_total", dropped)
	}
}

// Close waits for queued uploads to finish.
func (m *Mirror) Close() {
	if m == nil {
		return
	}
	m.closeOnce.Do(func() {
		close(m.jobs)
		m.wg.Wait()
	})
}

func (m *Mirror) Stats() Stats {
	if m == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:          len(m.jobs),
		QueueCapacity:       cap(m.jobs),
		EnqueuedTotal:       m.enqueuedTotal.Load(),
		QueueSaturatedTotal: m.queueSaturatedTotal.Load(),
		DroppedTotal:        m.droppedTotal.Load(),
		UploadSuccessTotal:  m.uploadSuccessTotal.Load(),
		UploadFailTotal:     m.uploadFailTotal.Load(),
		LastSuccessUnix:     m.lastSuccessUnix.Load(),
		LastErrorUnix:       m.lastErrorUnix.Load(),
	}
}

func (m *Mirror) uploadOne(job uploadJob) {
	key, err := m.objectKey(job.localPath)
	if err != nil {
		m.logger.Warn("mirror skip", "local", job.localPath, "err", err)
		return
	}

	err = m.withRetry(func(ctx context.Context) error { return m.client.PutFile(ctx, key, job.localPath) })
	if err == nil && job.latest != nil {
		job.latest.Key = key
		var body []byte
		if body, err = json.Marshal(job.latest); err == nil {
			err = m.withRetry(func(ctx context.Context) error { return m.client.PutBytes(ctx, m.key("latest.json"), body) })
		}
	}
	if err != nil {
		m.uploadFailTotal.Add(1)
		m.lastErrorUnix.Store(time.Now().UTC().Unix())
		m.logger.Error("mirror upload failed", "key", key, "local", job.localPath, "err", err)
		return
	}
	m.uploadSuccessTotal.Add(1)
	m.lastSuccessUnix.Store(time.Now().UTC().Unix())
	m.logger.Debug("mirror uploaded", "key", key)
}

func (m *Mirror) withRetry(fn func(ctx context.Context) error) error {
	const maxAttempts = 4
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err := fn(ctx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < maxAttempts {
			time.Sleep(time.Duration(attempt*attempt) * 200 * time.Millisecond)
		}
	}
	return lastErr
}

func (m *Mirror) objectKey(localPath string) (string, error) {
	if localPath == "" {
		return "", fmt.Errorf("empty local path")
	}
	if _, err := os.Stat(localPath); err != nil {
		return "", err
	}

	absBase, err := filepath.Abs(m.dataDir)
	if err != nil {
		return "", err
	}
	absLocal, err := filepath.Abs(localPath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absBase, absLocal)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %s is outside data dir %s", absLocal, absBase)
	}
	return m.key(rel), nil
}

func (m *Mirror) key(rel string) string {
	if m.prefix == "" {
		return rel
	}
	return path.Join(m.prefix, rel)
}
