package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"agent-neo/backend/internal/graph"
)

var (
	migrateDimensions int
	migrateForce      bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create constraints and vector indexes",
	Long: `Create the uniqueness constraints, the document key index and the vector
indexes used for retrieval. The run is recorded on a Migration node and
skipped next time unless --force is given.

Examples:
  neoctl migrate
  neoctl migrate --dimensions 768 --force`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().IntVar(&migrateDimensions, "dimensions", 0, "vector index dimensions (default EMBEDDING_DIMENSION)")
	migrateCmd.Flags().BoolVarP(&migrateForce, "force", "f", false, "re-run even if already applied")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	dims := migrateDimensions
	if dims == 0 && cfg != nil {
		dims = cfg.EmbeddingDimension
	}

	applied, err := graph.EnsureSchema(cmd.Context(), exec, graph.SchemaOptions{
		Dimensions: dims,
		Force:      migrateForce,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !applied {
		fmt.Fprintf(out, "Schema %s already applied. Use --force to re-run.\n", graph.SchemaVersion)
		return nil
	}
	fmt.Fprintf(out, "Schema %s applied (%d dimensions).\n", graph.SchemaVersion, dims)
	return nil
}
