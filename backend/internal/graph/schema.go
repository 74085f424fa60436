package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"agent-neo/backend/internal/constants"
	"agent-neo/backend/pkg/logger"
)

// SchemaVersion is recorded on the Migration marker node
const SchemaVersion = "conversation_schema_v1"

// TopicGroupLabel and TopicSummaryProperty locate the topic summary vectors.
const (
	TopicGroupLabel      = "TopicGroup"
	TopicSummaryProperty = "summaryEmbedding"
)

type migration struct {
	name   string
	script string
}

func schemaMigrations(dimensions int) []migration {
	return []migration{
		{
			name: "Uniqueness constraints",
			script: `
				CREATE CONSTRAINT session_id IF NOT EXISTS FOR (s:Session) REQUIRE s.id IS UNIQUE;
				CREATE CONSTRAINT conversation_id IF NOT EXISTS FOR (c:Conversation) REQUIRE c.id IS UNIQUE;
				CREATE CONSTRAINT message_id IF NOT EXISTS FOR (m:Message) REQUIRE m.id IS UNIQUE;
			`,
		},
		{
			name: "Document key index",
			script: `
				CREATE INDEX document_index IF NOT EXISTS FOR (d:Document) ON (d.index);
			`,
		},
		{
			name: "Vector indexes",
			script: fmt.Sprintf(`
				CREATE VECTOR INDEX %[1]s IF NOT EXISTS
				FOR (d:Document) ON (d.embedding)
				OPTIONS {indexConfig: {`+"`vector.dimensions`"+`: %[3]d, `+"`vector.similarity_function`"+`: 'cosine'}};
				CREATE VECTOR INDEX %[2]s IF NOT EXISTS
				FOR (g:%[4]s) ON (g.%[5]s)
				OPTIONS {indexConfig: {`+"`vector.dimensions`"+`: %[3]d, `+"`vector.similarity_function`"+`: 'cosine'}};
			`,
				"`"+constants.DocumentEmbeddingIndex+"`",
				"`"+constants.TopicSummaryEmbeddingIndex+"`",
				dimensions,
				TopicGroupLabel,
				TopicSummaryProperty,
			),
		},
	}
}

// SchemaOptions controls EnsureSchema
type SchemaOptions struct {
	Dimensions int
	Force      bool // re-run even when the marker says it was applied
}

// EnsureSchema creates constraints and indexes idempotently and records a Migration marker.
// It returns false when the schema was already applied and Force is not set.
func EnsureSchema(ctx context.Context, exec Executor, opts SchemaOptions) (bool, error) {
	log := logger.Named("graph")

	if opts.Dimensions < 1 {
		return false, fmt.Errorf("vector dimensions must be positive, got %d", opts.Dimensions)
	}

	if !opts.Force {
		applied, err := schemaApplied(ctx, exec)
		if err != nil {
			return false, err
		}
		if applied {
			log.Info("Schema already applied", zap.String("version", SchemaVersion))
			return false, nil
		}
	}

	for _, m := range schemaMigrations(opts.Dimensions) {
		log.Info("Running schema step", zap.String("name", m.name))
		for _, stmt := range splitStatements(m.script) {
			_, err := exec.ExecuteWrite(ctx, "ensure_schema", func(tx neo4j.ManagedTransaction) (any, error) {
				result, err := tx.Run(ctx, stmt, nil)
				if err != nil {
					return nil, err
				}
				return result.Consume(ctx)
			})
			if err != nil {
				return false, fmt.Errorf("schema step %q failed: %w", m.name, err)
			}
		}
	}

	_, err := exec.ExecuteWrite(ctx, "mark_schema", func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			MERGE (m:Migration {version: $version})
			SET m.applied_at = datetime(), m.dimensions = $dimensions
		`, map[string]any{"version": SchemaVersion, "dimensions": opts.Dimensions})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		return false, fmt.Errorf("failed to record schema version: %w", err)
	}

	log.Info("Schema applied", zap.String("version", SchemaVersion), zap.Int("dimensions", opts.Dimensions))
	return true, nil
}

func schemaApplied(ctx context.Context, exec Executor) (bool, error) {
	out, err := exec.ExecuteRead(ctx, "check_schema", func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			MATCH (m:Migration {version: $version})
			RETURN count(m) > 0 AS applied
		`, map[string]any{"version": SchemaVersion})
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		return getBoolFromRecord(record, "applied"), nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to check schema version: %w", err)
	}
	return out.(bool), nil
}

// splitStatements splits a Cypher script on semicolons, dropping // comments and blanks
func splitStatements(script string) []string {
	lines := strings.Split(script, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		cleaned = append(cleaned, line)
	}

	var statements []string
	for _, part := range strings.Split(strings.Join(cleaned, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
