package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"anthill.game/internal/persistence/indexdb"
	persistlog "anthill.game/internal/persistence/log"
	"anthill.game/internal/sim/colony"
	"anthill.game/internal/sim/engine"
	"anthill.game/internal/sim/state"
	"anthill.game/internal/transport/ws"
)

type serveOpts struct {
	addr          string
	dataDir       string
	seed          uint64
	tickRate      int
	snapshotEvery uint64
	snapshotPath  string
	index         indexOpts
	mirror        mirrorOpts
	archive       archiveOpts
}

func newServeCmd(g *globalOpts) *cobra.Command {
	o := &serveOpts{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the colony in real time",
		Long: `Resume the newest snapshot under --data (or start a fresh colony),
catch up on offline progress, then tick in real time. Observers connect to
/v1/ws; the current state is served at /v1/state.

Every tick is appended to <data>/events as zstd JSONL. A final snapshot is
written on SIGINT/SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), g, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.addr, "addr", ":8080", "HTTP listen address")
	f.StringVar(&o.dataDir, "data", "./data", "Runtime data directory")
	f.Uint64Var(&o.seed, "seed", 1337, "Colony seed (used only when starting fresh or from a bare JSON snapshot)")
	f.IntVar(&o.tickRate, "tick-rate", 0, "Ticks per second (0 = tuning value)")
	f.Uint64Var(&o.snapshotEvery, "snapshot-every", 0, "Snapshot cadence in ticks (0 = tuning value)")
	f.StringVar(&o.snapshotPath, "snapshot", "", "Snapshot to resume from instead of the newest under --data")
	f.StringVar(&o.index.backend, "index", "sqlite", "Read-model index backend (sqlite, d1, none)")
	f.StringVar(&o.index.d1URL, "d1-url", os.Getenv("ANTHILL_D1_INGEST_URL"), "D1 ingest endpoint")
	f.StringVar(&o.index.d1Token, "d1-token", os.Getenv("ANTHILL_D1_TOKEN"), "D1 ingest token")
	f.IntVar(&o.index.d1FlushMS, "d1-flush-ms", 500, "D1 flush interval in milliseconds")
	f.IntVar(&o.index.d1Batch, "d1-batch", 128, "D1 batch size")
	f.IntVar(&o.index.d1Retained, "d1-max-retained", 0, "D1 events kept across failed flushes (0 = 16 batches)")
	f.Uint64Var(&o.archive.every, "archive-every", 0, "Copy snapshots at multiples of this tick into <data>/archives (0 = off)")
	f.IntVar(&o.archive.keep, "keep-snapshots", 0, "Snapshots kept in <data>/snapshots (0 = all)")
	f.StringVar(&o.mirror.endpoint, "r2-endpoint", os.Getenv("ANTHILL_R2_ENDPOINT"), "S3-compatible endpoint for the off-site mirror")
	f.StringVar(&o.mirror.bucket, "r2-bucket", os.Getenv("ANTHILL_R2_BUCKET"), "Mirror bucket (empty = mirror off)")
	f.StringVar(&o.mirror.accessKey, "r2-access-key", os.Getenv("ANTHILL_R2_ACCESS_KEY_ID"), "Mirror access key ID")
	f.StringVar(&o.mirror.secretKey, "r2-secret-key", os.Getenv("ANTHILL_R2_SECRET_ACCESS_KEY"), "Mirror secret access key")
	f.StringVar(&o.mirror.region, "r2-region", "auto", "Mirror signing region")
	f.StringVar(&o.mirror.prefix, "r2-prefix", "", "Object key prefix")
	f.IntVar(&o.mirror.workers, "r2-workers", 2, "Concurrent mirror uploads")
	return cmd
}

func runServe(ctx context.Context, g *globalOpts, o *serveOpts) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, err := g.logger("anthill")
	if err != nil {
		return err
	}
	tune, err := g.tuning()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(o.dataDir, 0o755); err != nil {
		return err
	}

	now := time.Now()
	var (
		e    *engine.Engine
		s    *state.GameState
		info colony.ResumeInfo
	)
	if o.snapshotPath != "" {
		e, s, info, err = colony.Load(o.snapshotPath, o.seed, tune, now)
	} else {
		e, s, info, err = colony.Resume(o.dataDir, o.seed, tune, now, func() *state.GameState { return colony.Starter(o.seed) })
	}
	if err != nil {
		return err
	}
	if info.Path == "" {
		logger.Info("starting fresh colony", "seed", e.Seed())
	} else {
		logger.Info("resumed colony", "snapshot", info.Path, "tick", s.Tick, "offline_ticks", info.OfflineTicks, "attached", info.Attached, "previous_run", info.PreviousRunID)
	}

	runID := uuid.NewString()
	tickRate := o.tickRate
	if tickRate <= 0 {
		tickRate = tune.TickRateHz
	}
	every := o.snapshotEvery
	if every == 0 {
		every = tune.SnapshotEveryTicks
	}

	c := colony.New(colony.Config{
		RunID:              runID,
		TickRateHz:         tickRate,
		SnapshotEveryTicks: every,
		DataDir:            o.dataDir,
		Logger:             logger.WithPrefix("colony"),
	}, e, s)

	// The mirror closes after the loggers so their final files are uploaded.
	mirror, err := openMirror(o.mirror, o.dataDir, logger.WithPrefix("mirror"))
	if err != nil {
		return err
	}
	if mirror != nil {
		defer func() {
			mirror.Close()
			st := mirror.Stats()
			logger.Info("mirror drained", "uploaded", st.UploadSuccessTotal, "failed", st.UploadFailTotal, "dropped", st.DroppedTotal)
		}()
	}

	tickLog := persistlog.NewTickLogger(o.dataDir)
	defer tickLog.Close()
	auditLog := persistlog.NewAuditLogger(o.dataDir)
	defer auditLog.Close()
	if mirror != nil {
		tickLog.SetOnClosed(mirror.Enqueue)
		auditLog.SetOnClosed(mirror.Enqueue)
	}

	idx, err := openRuntimeIndex(o.index, o.dataDir, runID, logger.WithPrefix("index"))
	if err != nil {
		return err
	}
	audits := auditSinks{auditLog}
	var recorders colony.MultiSnapshotRecorder
	if idx != nil {
		defer idx.Close()
		if sq, ok := idx.(*indexdb.SQLiteIndex); ok {
			if err := sq.RecordRun(ctx, runID, e.Seed(), s.Tick, info.Path); err != nil {
				logger.Warn("index run record failed", "err", err)
			}
			if err := sq.UpsertTuning(ctx, tune); err != nil {
				logger.Warn("index tuning record failed", "err", err)
			}
		}
		c.SetTickLogger(colony.MultiTickLogger{tickLog, idx})
		recorders = append(recorders, idx)
		audits = append(audits, idx)
	} else {
		c.SetTickLogger(tickLog)
	}
	// The keeper prunes older live snapshots, never the one just written.
	if keeper := openArchive(o.archive, o.dataDir, logger.WithPrefix("archive")); keeper != nil {
		recorders = append(recorders, keeper)
	}
	if mirror != nil {
		recorders = append(recorders, mirror)
	}
	if len(recorders) > 0 {
		c.SetSnapshotRecorder(recorders)
	}

	srv := ws.NewServer(c, logger.WithPrefix("ws"))
	srv.SetAuditWriter(audits)
	httpSrv := &http.Server{Addr: o.addr, Handler: srv.Routes(), ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", o.addr, "run_id", runID, "tick_rate_hz", tickRate, "data", filepath.Clean(o.dataDir))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
		close(httpErr)
	}()

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	go func() {
		if err, ok := <-httpErr; ok && err != nil {
			logger.Error("http server", "err", err)
			cancelRun()
		}
	}()

	runErr := c.Run(runCtx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	logger.Info("stopped", "tick", c.CurrentTick())

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
