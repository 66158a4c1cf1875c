package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"anthill.game/internal/persistence/snapshot"
	"anthill.game/internal/protocol"
	"anthill.game/internal/sim/state"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <snapshot>...",
		Short: "Schema-check and decode snapshots",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				s, err := validateFile(path)
				if err != nil {
					failed++
					fmt.Fprintf(w, "FAIL %s\n", path)
					var se *protocol.SchemaError
					if errors.As(err, &se) {
						for _, is := range se.Issues {
							fmt.Fprintf(w, "  %s: %s\n", is.InstanceLocation, is.Message)
						}
					} else {
						fmt.Fprintf(w, "  %v\n", err)
					}
					continue
				}
				fmt.Fprintf(w, "ok   %s tick=%d entities=%d digest=%s\n", path, s.Tick, len(s.Entities), state.Digest(s))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d snapshots invalid", failed, len(args))
			}
			return nil
		},
	}
}

// validateFile runs the schema before the decoder so every problem in a bare
// JSON file is reported, not just the first one the decoder hits.
func validateFile(path string) (*state.GameState, error) {
	if strings.HasSuffix(path, ".zst") {
		snap, err := snapshot.Read(path)
		if err != nil {
			return nil, err
		}
		b, err := state.Encode(snap.State)
		if err != nil {
			return nil, err
		}
		if err := protocol.ValidateState(b); err != nil {
			return nil, err
		}
		return snap.State, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := protocol.ValidateState(b); err != nil {
		return nil, err
	}
	return state.Decode(b)
}
