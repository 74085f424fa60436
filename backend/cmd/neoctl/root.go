package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"agent-neo/backend/internal/domain"
	"agent-neo/backend/internal/graph"
	"agent-neo/backend/pkg/config"
	"agent-neo/backend/pkg/logger"
)

// store is the slice of the graph layer the commands use.
type store interface {
	RetrieveConversationHistory(ctx context.Context, conversationID string) (*graph.ConversationHistory, error)
	GetMessageRating(ctx context.Context, messageID string) (graph.MessageRating, bool, error)
	MatchByID(ctx context.Context, ids []string) (int, error)
	DeleteByID(ctx context.Context, ids []string) (graph.WriteResult, error)
	SeedNode(ctx context.Context, label, key string) (graph.WriteResult, error)
}

type graphStore struct {
	*graph.Reader
	*graph.Writer
}

var (
	// Global flags
	verbose bool

	cfg  *config.Config
	conn *graph.Connection
	exec graph.Executor
	db   store
)

var rootCmd = &cobra.Command{
	Use:   "neoctl",
	Short: "Administer the Agent Neo conversation graph",
	Long: `neoctl runs maintenance tasks against the Neo4j database that backs
Agent Neo: schema migration, conversation inspection and fixture cleanup.

Connection settings are read the same way the server reads them
(NEO4J_URI, NEO4J_USERNAME, NEO4J_PASSWORD, SECRET_BACKEND).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		level := "warn"
		if verbose {
			level = "debug"
		}
		if err := logger.Init("development", level); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		ctx := cmd.Context()
		provider, err := config.ProviderFromEnv(ctx)
		if err != nil {
			return fmt.Errorf("select secret backend: %w", err)
		}
		cfg, err = config.Load(ctx, provider)
		if err != nil {
			return err
		}

		conn, err = graph.NewConnection(ctx, graph.Credentials{
			URI:      cfg.Neo4jURI,
			Username: cfg.Neo4jUser,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
		})
		if err != nil {
			return fmt.Errorf("connect to neo4j: %w", err)
		}

		exec = conn
		db = graphStore{Reader: graph.NewReader(conn), Writer: graph.NewWriter(conn)}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if conn != nil {
			if err := conn.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close connection: %v\n", err)
			}
		}
		logger.Sync()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(ratingCmd)
	rootCmd.AddCommand(seedCmd)
}

// validateMessageIDs rejects ids that do not carry a known message prefix.
func validateMessageIDs(ids []string) error {
	for _, id := range ids {
		if _, ok := domain.RoleForMessageID(id); !ok {
			return fmt.Errorf("invalid message id %q: expected a user- or llm- prefix", id)
		}
	}
	return nil
}
