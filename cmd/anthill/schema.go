package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"anthill.game/internal/protocol"
	"anthill.game/internal/sim/tuning"
)

func newSchemaCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print a JSON schema",
		Long: `Print the schema of tuning.yaml (default) or one of the embedded
protocol schemas: state, hello, action, tick.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				b   []byte
				err error
			)
			if name == "" || name == "tuning" {
				b, err = tuning.JSONSchema()
			} else {
				b, err = protocol.SchemaSource(name + ".schema.json")
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "tuning", "Schema to print (tuning, state, hello, action, tick)")
	return cmd
}
