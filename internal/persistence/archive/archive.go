// Package archive keeps long-term copies of milestone snapshots and prunes
// the live snapshot directory.
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"anthill.game/internal/persistence/snapshot"
)

type MilestoneMeta struct {
	Tick      uint64  `json:"tick"`
	RunID     string  `json:"run_id,omitempty"`
	Seed      uint64  `json:"seed"`
	Snapshot  string  `json:"snapshot"`
	Entities  int     `json:"entities"`
	SavedAt   float64 `json:"saved_at,omitempty"`
	CreatedAt string  `json:"created_at"`
}

type Config struct {
	DataDir string
	// EveryTicks archives snapshots whose tick is a multiple of it. Zero
	// disables archiving.
	EveryTicks uint64
	// Keep is how many snapshots stay in the live directory. Zero keeps all.
	Keep   int
	Logger *log.Logger
	Now    func() time.Time
}

// Keeper is a snapshot recorder: it runs on the colony goroutine right after
// each snapshot write.
type Keeper struct {
	cfg Config
}

func New(cfg Config) *Keeper {
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Keeper{cfg: cfg}
}

func Dir(dataDir string) string { return filepath.Join(dataDir, "archives") }

func (k *Keeper) RecordSnapshot(path string, snap snapshot.Snapshot) {
	if _, ok, err := k.ArchiveMilestone(path, snap); err != nil {
		k.cfg.Logger.Error("archive milestone", "tick", snap.Header.Tick, "err", err)
	} else if ok {
		k.cfg.Logger.Info("milestone archived", "tick", snap.Header.Tick)
	}
	if k.cfg.Keep > 0 {
		removed, err := Prune(filepath.Dir(path), k.cfg.Keep)
		if err != nil {
			k.cfg.Logger.Warn("prune snapshots", "err", err)
		}
		if len(removed) > 0 {
			k.cfg.Logger.Debug("pruned snapshots", "count", len(removed))
		}
	}
}

// ArchiveMilestone copies a milestone snapshot into archives/tick_<N>/ with a
// meta.json beside it. Non-milestone ticks are skipped.
func (k *Keeper) ArchiveMilestone(path string, snap snapshot.Snapshot) (archivedPath string, archived bool, err error) {
	every := k.cfg.EveryTicks
	tick := snap.Header.Tick
	if every == 0 || tick == 0 || tick%every != 0 {
		return "", false, nil
	}

	dir := filepath.Join(Dir(k.cfg.DataDir), fmt.Sprintf("tick_%010d", tick))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, err
	}
	dst := filepath.Join(dir, filepath.Base(path))
	if err := copyFile(path, dst); err != nil {
		return "", false, err
	}

	meta := MilestoneMeta{
		Tick:      tick,
		RunID:     snap.Header.RunID,
		Seed:      snap.Header.Seed,
		Snapshot:  filepath.Base(dst),
		SavedAt:   snap.Header.SavedAt,
		CreatedAt: k.cfg.Now().UTC().Format(time.RFC3339Nano),
	}
	if snap.State != nil {
		meta.Entities = len(snap.State.Entities)
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", false, err
	}
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644); err != nil {
		return "", false, err
	}
	return dst, true, nil
}

// Prune deletes all but the newest keep snapshots in dir and returns the
// removed paths, oldest first.
func Prune(dir string, keep int) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	type entry struct {
		tick uint64
		name string
	}
	var snaps []entry
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		base, ok := strings.CutSuffix(name, ".snap.zst")
		if !ok {
			continue
		}
		tick, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			continue
		}
		snaps = append(snaps, entry{tick: tick, name: name})
	}
	if keep <= 0 || len(snaps) <= keep {
		return nil, nil
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].tick < snaps[j].tick })

	var removed []string
	for _, s := range snaps[:len(snaps)-keep] {
		p := filepath.Join(dir, s.name)
		if err := os.Remove(p); err != nil {
			return removed, err
		}
		removed = append(removed, p)
	}
	return removed, nil
}

// Milestones lists archived ticks in ascending order.
func Milestones(dataDir string) ([]MilestoneMeta, error) {
	ents, err := os.ReadDir(Dir(dataDir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []MilestoneMeta
	for _, e := range ents {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "tick_") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(Dir(dataDir), e.Name(), "meta.json"))
		if err != nil {
			continue
		}
		var m MilestoneMeta
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("%s/meta.json: %w", e.Name(), err)
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tick < out[j].Tick })
	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
