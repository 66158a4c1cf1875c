package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"anthill.game/internal/persistence/archive"
	"anthill.game/internal/persistence/indexdb"
	"anthill.game/internal/persistence/snapshot"
	"anthill.game/internal/sim/state"
)

func newInspectCmd() *cobra.Command {
	var (
		indexDB  string
		topN     int
		archives string
	)
	cmd := &cobra.Command{
		Use:   "inspect <snapshot>",
		Short: "Summarize a snapshot (and optionally the run index)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if err := inspectSnapshot(w, args[0], time.Now()); err != nil {
				return err
			}
			if archives != "" {
				if err := inspectArchives(w, archives); err != nil {
					return err
				}
			}
			if indexDB == "" {
				return nil
			}
			return inspectIndex(cmd.Context(), w, indexDB, topN)
		},
	}
	cmd.Flags().StringVar(&indexDB, "index", "", "SQLite index to summarize (e.g. data/index/colony.sqlite)")
	cmd.Flags().IntVar(&topN, "top", 10, "Event types to list from the index")
	cmd.Flags().StringVar(&archives, "archives", "", "Data directory whose milestone archives to list")
	return cmd
}

func inspectSnapshot(w io.Writer, path string, now time.Time) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	snap, err := snapshot.Read(path)
	if err != nil {
		return err
	}
	s := snap.State

	fmt.Fprintf(w, "file       %s (%s)\n", path, humanize.Bytes(uint64(fi.Size())))
	fmt.Fprintf(w, "tick       %s\n", humanize.Comma(int64(s.Tick)))
	if snap.Header.Version > 0 {
		fmt.Fprintf(w, "run        %s seed=%d last_spawn=%d last_summon=%d\n",
			orDash(snap.Header.RunID), snap.Header.Seed, snap.Header.LastSpawnTick, snap.Header.LastSummonTick)
	}
	if ts := s.LastSaveTimestamp; ts != nil {
		sec, frac := math.Modf(*ts)
		saved := time.Unix(int64(sec), int64(frac*float64(time.Second)))
		fmt.Fprintf(w, "saved      %s (%s)\n", saved.UTC().Format(time.RFC3339), humanize.RelTime(saved, now, "ago", "from now"))
	} else {
		fmt.Fprintf(w, "saved      never\n")
	}
	fmt.Fprintf(w, "digest     %s\n", state.Digest(s))

	fmt.Fprintln(w, "\nresources")
	for _, k := range state.SortedKeys(s.Resources) {
		fmt.Fprintf(w, "  %-12s %s\n", k, humanize.CommafWithDigits(s.Resources[k], 2))
	}

	fmt.Fprintln(w, "\nsystems")
	for _, id := range s.SystemIDs() {
		sys := s.Systems[id]
		flags := []string{string(sys.Kind)}
		if sys.IsDisabled() {
			flags = append(flags, "disabled")
		}
		if n := len(sys.Boosts); n > 0 {
			flags = append(flags, fmt.Sprintf("%d boosts", n))
		}
		fmt.Fprintf(w, "  %-14s %s [%s]\n", id, sys.Name, strings.Join(flags, ", "))
	}

	counts := map[string]int{}
	for i := range s.Entities {
		e := &s.Entities[i]
		switch e.Class() {
		case state.ClassAnt:
			counts["ant/"+string(e.Role())]++
		case state.ClassVisitor:
			counts["visitor/"+string(e.Subtype())]++
		}
	}
	fmt.Fprintf(w, "\nentities   %d\n", len(s.Entities))
	for _, k := range state.SortedKeys(counts) {
		fmt.Fprintf(w, "  %-20s %d\n", k, counts[k])
	}

	fmt.Fprintf(w, "\ngraveyard  %d waiting, %s processed\n", len(s.Graveyard.Corpses), humanize.Comma(int64(s.Graveyard.TotalProcessed)))
	fmt.Fprintf(w, "queues     %d actions, %d events\n", len(s.Queues.Actions), len(s.Queues.Events))
	fmt.Fprintf(w, "meta       sanity=%s boredom=%d receiver_silent=%t\n",
		humanize.FtoaWithDigits(s.Meta.Sanity, 2), s.Meta.Boredom, s.Meta.ReceiverSilent)
	if c, ok := s.Map.Tiles[state.CompostTile]; ok && c.IsBlighted() {
		fmt.Fprintf(w, "blight     %d ticks remaining\n", c.BlightRemaining())
	}
	return nil
}

func inspectIndex(ctx context.Context, w io.Writer, path string, topN int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	r, err := indexdb.OpenReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	tr, err := r.Ticks(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nindex      %s\n", path)
	fmt.Fprintf(w, "  ticks    %s indexed (%s..%s)\n", humanize.Comma(int64(tr.Count)), humanize.Comma(int64(tr.First)), humanize.Comma(int64(tr.Last)))

	runs, err := r.Runs(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  runs     %d\n", len(runs))

	snaps, err := r.Snapshots(ctx)
	if err != nil {
		return err
	}
	if n := len(snaps); n > 0 {
		fmt.Fprintf(w, "  snapshots %d, newest tick %s\n", n, humanize.Comma(int64(snaps[n-1].Tick)))
	}

	counts, err := r.EventCounts(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "  events")
	for i, tc := range counts {
		if topN > 0 && i >= topN {
			break
		}
		fmt.Fprintf(w, "    %-24s %s\n", tc.Type, humanize.Comma(int64(tc.Count)))
	}
	return nil
}

func inspectArchives(w io.Writer, dataDir string) error {
	ms, err := archive.Milestones(dataDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\narchives   %d milestones\n", len(ms))
	for _, m := range ms {
		fmt.Fprintf(w, "  tick %-12s entities=%d run=%s\n", humanize.Comma(int64(m.Tick)), m.Entities, orDash(m.RunID))
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
