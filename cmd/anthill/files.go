package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"anthill.game/internal/persistence/snapshot"
	"anthill.game/internal/sim/state"
)

// saveSnapshot writes a compressed snapshot for .zst paths and bare state
// JSON otherwise. Bare JSON drops the engine bookkeeping header.
func saveSnapshot(path string, snap snapshot.Snapshot) error {
	if strings.HasSuffix(path, ".zst") {
		return snapshot.Write(path, snap)
	}
	b, err := state.EncodeIndent(snap.State)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
