// Package snapshot stores colony snapshots as zstd streams: one JSON header
// line carrying the engine bookkeeping, followed by the colony state JSON.
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"anthill.game/internal/sim/engine"
	"anthill.game/internal/sim/state"
)

const Version = 1

const fileSuffix = ".snap.zst"

var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

type Header struct {
	Version        int     `json:"version"`
	RunID          string  `json:"run_id,omitempty"`
	Tick           uint64  `json:"tick"`
	Seed           uint64  `json:"seed"`
	LastSpawnTick  uint64  `json:"last_spawn_tick"`
	LastSummonTick uint64  `json:"last_summon_tick"`
	SavedAt        float64 `json:"saved_at,omitempty"`
}

type Snapshot struct {
	Header Header
	State  *state.GameState
}

// New captures an engine and its state. The state is cloned so the caller
// can keep ticking while the snapshot is written elsewhere.
func New(runID string, e *engine.Engine, s *state.GameState, savedAt float64) Snapshot {
	b := e.Bookkeeping()
	return Snapshot{
		Header: Header{
			Version:        Version,
			RunID:          runID,
			Tick:           s.Tick,
			Seed:           b.Seed,
			LastSpawnTick:  b.LastSpawnTick,
			LastSummonTick: b.LastSummonTick,
			SavedAt:        savedAt,
		},
		State: s.Clone(),
	}
}

func (s Snapshot) Bookkeeping() engine.Bookkeeping {
	return engine.Bookkeeping{
		Seed:           s.Header.Seed,
		LastSpawnTick:  s.Header.LastSpawnTick,
		LastSummonTick: s.Header.LastSummonTick,
	}
}

// FileName is the conventional name of a snapshot taken at tick.
func FileName(tick uint64) string { return fmt.Sprintf("%d%s", tick, fileSuffix) }

func Write(path string, snap Snapshot) error {
	if snap.State == nil {
		return errors.New("snapshot: nil state")
	}
	body, err := state.Encode(snap.State)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if snap.Header.Version == 0 {
		snap.Header.Version = Version
	}
	snap.Header.Tick = snap.State.Tick

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	// Latest must never see a partial file.
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := writeStream(f, snap.Header, body); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeStream(w io.Writer, h Header, body []byte) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(h)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if _, err := bw.Write(body); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// Read loads a snapshot file. Files without the .zst suffix are taken to be
// bare state JSON; their header is synthesized with zero bookkeeping.
func Read(path string) (Snapshot, error) {
	if !strings.HasSuffix(path, ".zst") {
		data, err := os.ReadFile(path)
		if err != nil {
			return Snapshot{}, err
		}
		s, err := state.Decode(data)
		if err != nil {
			return Snapshot{}, err
		}
		return Snapshot{Header: Header{Tick: s.Tick}, State: s}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return Snapshot{}, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return Snapshot{}, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return Snapshot{}, fmt.Errorf("decode header: %w", err)
	}
	if h.Version != Version {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	body, err := io.ReadAll(br)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read state: %w", err)
	}
	s, err := state.Decode(bytes.TrimSpace(body))
	if err != nil {
		return Snapshot{}, err
	}
	if s.Tick != h.Tick {
		return Snapshot{}, fmt.Errorf("snapshot header tick %d does not match state tick %d", h.Tick, s.Tick)
	}
	return Snapshot{Header: h, State: s}, nil
}

// Latest returns the path of the highest-tick snapshot in dir, or "" when
// there is none.
func Latest(dir string) (string, uint64) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return "", 0
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, fileSuffix), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best, bestTick
}
