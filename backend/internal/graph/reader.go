package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"agent-neo/backend/internal/constants"
	"agent-neo/backend/internal/domain"
	"agent-neo/backend/pkg/logger"
)

// Reader queries the conversation graph and the document corpus.
type Reader struct {
	exec   Executor
	logger *zap.Logger
}

// NewReader creates a reader over exec
func NewReader(exec Executor) *Reader {
	return &Reader{
		exec:   exec,
		logger: logger.Named("graph"),
	}
}

// ClampDocumentCount bounds k to the supported retrieval range
func ClampDocumentCount(k int) int {
	return lo.Clamp(k, 0, constants.MaxContextDocuments)
}

// RetrieveContextDocuments returns up to k documents nearest to embedding, best first.
// k is clamped to [0, 10]; k == 0 returns no documents without querying.
func (r *Reader) RetrieveContextDocuments(ctx context.Context, embedding []float32, k int) ([]domain.Document, error) {
	k = ClampDocumentCount(k)
	if k == 0 {
		return []domain.Document{}, nil
	}

	query := `
		CALL db.index.vector.queryNodes($indexName, $k, $embedding)
		YIELD node, score
		RETURN node.url AS url,
		       node.text AS text,
		       toString(node.index) AS index,
		       score
		ORDER BY score DESC
	`

	out, err := r.exec.ExecuteRead(ctx, "retrieve_context_documents", func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{
			"indexName": constants.DocumentEmbeddingIndex,
			"k":         k,
			"embedding": toFloat64s(embedding),
		})
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return documentsFromRecords(records), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context documents: %w", err)
	}

	docs := out.([]domain.Document)
	r.logger.Debug("Retrieved context documents",
		zap.Int("requested", k),
		zap.Int("returned", len(docs)),
	)
	return docs, nil
}

// RetrieveContextDocumentsByTopic finds the nTopics nearest topic summaries and returns each
// topic's documents ranked within docsPerTopic. Results are ordered by topic score, then by
// in-topic rank; a document reached through several topics keeps its first position.
func (r *Reader) RetrieveContextDocumentsByTopic(ctx context.Context, embedding []float32, nTopics, docsPerTopic int) ([]domain.Document, error) {
	if nTopics <= 0 || docsPerTopic <= 0 {
		return []domain.Document{}, nil
	}

	query := `
		CALL db.index.vector.queryNodes($indexName, $k, $embedding)
		YIELD node AS g, score AS topicScore
		MATCH (g)<-[:IN_GROUP]-()<-[h:HAS_TOPIC]-(d:Document)
		WHERE h.rankAlpha50 <= $docsPerTopic
		RETURN d.url AS url,
		       d.text AS text,
		       toString(d.index) AS index,
		       topicScore AS score,
		       h.rankAlpha50 AS topicRank
		ORDER BY topicScore DESC, topicRank ASC, index ASC
	`

	out, err := r.exec.ExecuteRead(ctx, "retrieve_context_documents_by_topic", func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{
			"indexName":    constants.TopicSummaryEmbeddingIndex,
			"k":            nTopics,
			"embedding":    toFloat64s(embedding),
			"docsPerTopic": docsPerTopic,
		})
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return documentsFromRecords(records), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve topic documents: %w", err)
	}

	docs := lo.UniqBy(out.([]domain.Document), func(d domain.Document) string { return d.Index })
	r.logger.Debug("Retrieved topic documents",
		zap.Int("topics", nTopics),
		zap.Int("docs_per_topic", docsPerTopic),
		zap.Int("returned", len(docs)),
	)
	return docs, nil
}

// RetrieveConversationHistory walks FIRST then NEXT from the conversation and collects the
// documents linked from each reached message. An unknown id yields Found == false.
func (r *Reader) RetrieveConversationHistory(ctx context.Context, conversationID string) (*ConversationHistory, error) {
	query := fmt.Sprintf(`
		MATCH (c:Conversation {id: $conversationId})
		MATCH messagePath = (c)-[:FIRST]->(:Message)-[:NEXT*0..%d]->(m:Message)
		OPTIONAL MATCH documentPath = (m)-[:HAS_CONTEXT]->(:Document)
		RETURN messagePath, collect(documentPath) AS documentPaths
		ORDER BY length(messagePath)
		LIMIT $limit
	`, constants.MaxHistoryHops)

	out, err := r.exec.ExecuteRead(ctx, "retrieve_conversation_history", func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{
			"conversationId": conversationID,
			"limit":          constants.MaxHistoryRows,
		})
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return historyRowsFromRecords(records)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve conversation history: %w", err)
	}

	history := buildHistory(conversationID, out.([]historyRow))
	r.logger.Debug("Retrieved conversation history",
		zap.String("conversation_id", conversationID),
		zap.Bool("found", history.Found),
		zap.Int("messages", len(history.Messages)),
	)
	return history, nil
}

// MatchByID counts distinct nodes whose id or index matches one of ids.
func (r *Reader) MatchByID(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		MATCH (n)
		WHERE any(key IN $keys WHERE toString(n[key]) IN $ids)
		RETURN count(DISTINCT n) AS matched
	`

	out, err := r.exec.ExecuteRead(ctx, "match_by_id", func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{
			"keys": keyProperties(),
			"ids":  ids,
		})
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		return getIntFromRecord(record, "matched"), nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to match nodes: %w", err)
	}
	return out.(int), nil
}

// GetMessageRating returns the rating stored on a message; found is false for an unknown id.
func (r *Reader) GetMessageRating(ctx context.Context, messageID string) (MessageRating, bool, error) {
	query := `
		MATCH (m:Message {id: $messageId})
		RETURN m.id AS id, m.rating AS rating, m.ratingMessage AS ratingMessage
		LIMIT 1
	`

	out, err := r.exec.ExecuteRead(ctx, "get_message_rating", func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{"messageId": messageID})
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, nil
		}
		return MessageRating{
			MessageID: getStringFromRecord(records[0], "id"),
			Rating:    getStringFromRecord(records[0], "rating"),
			Message:   getStringFromRecord(records[0], "ratingMessage"),
		}, nil
	})
	if err != nil {
		return MessageRating{}, false, fmt.Errorf("failed to get message rating: %w", err)
	}
	if out == nil {
		return MessageRating{}, false, nil
	}
	return out.(MessageRating), true, nil
}

func documentsFromRecords(records []*neo4j.Record) []domain.Document {
	docs := make([]domain.Document, 0, len(records))
	for _, record := range records {
		docs = append(docs, domain.Document{
			Index: getStringFromRecord(record, "index"),
			URL:   getStringFromRecord(record, "url"),
			Text:  getStringFromRecord(record, "text"),
			Score: getFloat64FromRecord(record, "score"),
		})
	}
	return docs
}
