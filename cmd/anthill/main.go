// anthill runs and inspects a colony simulation.
//
// Usage:
//
//	anthill serve              - Run the colony in real time with the observer stream
//	anthill init               - Write a fresh starting colony snapshot
//	anthill step <snapshot>    - Advance a snapshot by N ticks, printing events
//	anthill offline <snapshot> - Apply offline progress to a snapshot
//	anthill validate <file>    - Schema-check and decode a snapshot
//	anthill inspect <file>     - Print a summary of a snapshot
//	anthill replay             - Re-run tick logs from a snapshot and verify digests
//	anthill schema             - Print the tuning (or a protocol) JSON schema
//
// Global flags:
//
//	--log-level <level> - debug, info, warn or error (default: info)
//	--tuning <path>     - tuning.yaml to load over the defaults
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"anthill.game/internal/sim/tuning"
)

type globalOpts struct {
	logLevel   string
	tuningPath string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOpts{}
	root := &cobra.Command{
		Use:   "anthill",
		Short: "Deterministic ant colony simulation",
		Long: `anthill drives a seeded colony tick engine.

Examples:
  anthill init --out data/snapshots/0.snap.zst
  anthill serve --data ./data --addr :8080
  anthill step colony.json --ticks 600 --out colony.json
  anthill replay --snapshot data/snapshots/1800.snap.zst --events data/events`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.tuningPath, "tuning", "", "Path to tuning.yaml (defaults when empty)")

	root.AddCommand(
		newServeCmd(opts),
		newInitCmd(opts),
		newStepCmd(opts),
		newOfflineCmd(opts),
		newValidateCmd(),
		newInspectCmd(),
		newReplayCmd(opts),
		newSchemaCmd(),
	)
	return root
}

func (o *globalOpts) logger(prefix string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(o.logLevel)
	if err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Prefix:          prefix,
		Level:           lvl,
	}), nil
}

func (o *globalOpts) tuning() (tuning.Tuning, error) {
	return tuning.LoadOrDefault(o.tuningPath)
}
