package main

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"anthill.game/internal/persistence/snapshot"
	"anthill.game/internal/sim/colony"
	"anthill.game/internal/sim/engine"
	"anthill.game/internal/sim/state"
)

func newInitCmd(g *globalOpts) *cobra.Command {
	var (
		seed  uint64
		out   string
		empty bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a fresh starting colony",
		Long: `Write tick 0 of a new colony. The default start has a dig site, a
compost heap, a queen's chamber, one worker and one undertaker; --empty
writes only the origin tile.

Paths ending in .zst get a compressed snapshot with the seed in its header;
anything else gets bare state JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tune, err := g.tuning()
			if err != nil {
				return err
			}
			s := colony.Starter(seed)
			if empty {
				s = state.New()
			}
			if out == "" {
				out = filepath.Join("data", "snapshots", snapshot.FileName(0))
			}
			snap := snapshot.New(uuid.NewString(), engine.NewWithTuning(seed, tune), s, 0)
			if err := saveSnapshot(out, snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (seed=%d entities=%d)\n", out, seed, len(s.Entities))
			return nil
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 1337, "Colony seed")
	cmd.Flags().StringVar(&out, "out", "", "Output path (default data/snapshots/0.snap.zst)")
	cmd.Flags().BoolVar(&empty, "empty", false, "Write the bare origin-only colony")
	return cmd
}
