package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"agent-neo/backend/internal/graph"
)

var seedCmd = &cobra.Command{
	Use:   "seed <label> <key>...",
	Short: "Create bare nodes for local testing",
	Long: `Merge bare nodes of a known label on their key property. Document
nodes are keyed by index, everything else by id. Existing nodes are
left untouched.

Examples:
  neoctl seed Document 0 1 2
  neoctl seed Session session-local`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	label, keys := args[0], args[1:]
	if _, err := graph.KeyProperty(label); err != nil {
		return err
	}

	var total graph.WriteResult
	for _, key := range keys {
		res, err := db.SeedNode(cmd.Context(), label, key)
		if err != nil {
			return fmt.Errorf("seed %s %s: %w", label, key, err)
		}
		total.NodesCreated += res.NodesCreated
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d new %s node(s).\n", total.NodesCreated, label)
	return nil
}
