package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"agent-neo/backend/internal/constants"
	"agent-neo/backend/internal/domain"
	apperrors "agent-neo/backend/pkg/errors"
	"agent-neo/backend/pkg/logger"
)

// Writer appends to the conversation graph. Every method is one write transaction.
type Writer struct {
	exec   Executor
	logger *zap.Logger
}

// NewWriter creates a writer over exec
func NewWriter(exec Executor) *Writer {
	return &Writer{
		exec:   exec,
		logger: logger.Named("graph"),
	}
}

// appendOutcome is what the guarded append queries report back.
type appendOutcome struct {
	result         WriteResult
	previousFound  bool
	otherSuccessor int
	linked         []string
}

// logAssistantQuery appends the assistant message under the chain guard and links its context
// documents. Document keys may be stored as strings or integers; both forms are seeked.
const logAssistantQuery = `
	OPTIONAL MATCH (pm:Message {id: $previousMessageId})
	OPTIONAL MATCH (pm)-[:NEXT]->(other:Message)
	WHERE other.id <> $messageId
	WITH pm, count(other) AS otherSuccessors
	WITH pm, otherSuccessors, (pm IS NOT NULL AND otherSuccessors = 0) AS canAppend
	FOREACH (_ IN CASE WHEN canAppend THEN [1] ELSE [] END |
		MERGE (m:Message {id: $messageId})
		SET m.content = $content,
		    m.role = $role,
		    m.postTime = coalesce(m.postTime, datetime()),
		    m.public = $public,
		    m.numDocs = $numDocs,
		    m.prompt = $prompt,
		    m.vectorIndexSearch = $vectorIndexSearch
		MERGE (pm)-[:NEXT]->(m)
	)
	WITH pm, otherSuccessors, canAppend
	OPTIONAL MATCH (m:Message {id: $messageId})
	WHERE canAppend
	CALL {
		WITH m
		UNWIND $contextIndices AS contextIdx
		MATCH (d:Document)
		WHERE m IS NOT NULL AND d.index IN [contextIdx, toInteger(contextIdx)]
		MERGE (m)-[:HAS_CONTEXT]->(d)
		RETURN collect(DISTINCT contextIdx) AS linked
	}
	RETURN pm IS NOT NULL AS previousFound, otherSuccessors, linked
`

// LogNewConversation creates the conversation with its first message and attaches it to the
// session, creating the session on first contact.
func (w *Writer) LogNewConversation(ctx context.Context, msg domain.UserMessage, llmType string, temperature float64) (WriteResult, error) {
	if err := msg.Validate(); err != nil {
		return WriteResult{}, err
	}
	conv, err := domain.NewConversation(msg.SessionID, msg.ConversationID, llmType, temperature, msg.Public)
	if err != nil {
		return WriteResult{}, err
	}

	query := `
		CREATE (c:Conversation {id: $conversationId})
		SET c.llm = $llm,
		    c.temperature = $temperature,
		    c.public = $public
		CREATE (c)-[:FIRST]->(m:Message {id: $messageId})
		SET m.content = $content,
		    m.role = $role,
		    m.postTime = datetime(),
		    m.public = $public,
		    m.embedding = $embedding
		MERGE (s:Session {id: $sessionId})
		ON CREATE SET s.createTime = datetime()
		MERGE (s)-[:HAS_CONVERSATION]->(c)
	`

	params := map[string]any{
		"conversationId": conv.ConversationID,
		"llm":            conv.LLMType,
		"temperature":    conv.Temperature,
		"public":         msg.Public,
		"messageId":      msg.MessageID,
		"content":        msg.Content,
		"role":           msg.Role(),
		"embedding":      toFloat64s(msg.Embedding),
		"sessionId":      msg.SessionID,
	}

	out, err := w.exec.ExecuteWrite(ctx, "log_new_conversation", func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return consume(ctx, result)
	})
	if err != nil {
		w.logWriteFailure("log_new_conversation", msg.ConversationID, msg.MessageID, err)
		return WriteResult{}, fmt.Errorf("failed to log new conversation: %w", err)
	}

	res := out.(WriteResult)
	w.logger.Debug("Logged new conversation",
		zap.String("session_id", msg.SessionID),
		zap.String("conversation_id", msg.ConversationID),
		zap.String("message_id", msg.MessageID),
		zap.Int("nodes_created", res.NodesCreated),
	)
	return res, nil
}

// LogUser appends a user message after previousMessageID. The append is skipped with a warning
// when the previous message is missing or already has a different successor.
func (w *Writer) LogUser(ctx context.Context, msg domain.UserMessage, previousMessageID string) (WriteResult, error) {
	if err := msg.Validate(); err != nil {
		return WriteResult{}, err
	}
	if !domain.IsAssistantMessageID(previousMessageID) {
		return WriteResult{}, apperrors.NewValidationFailed("UserMessage", "previous_message_id",
			fmt.Sprintf("must start with %s", constants.AssistantMessageIDPrefix))
	}

	query := `
		OPTIONAL MATCH (pm:Message {id: $previousMessageId})
		OPTIONAL MATCH (pm)-[:NEXT]->(other:Message)
		WHERE other.id <> $messageId
		WITH pm, count(other) AS otherSuccessors
		FOREACH (_ IN CASE WHEN pm IS NOT NULL AND otherSuccessors = 0 THEN [1] ELSE [] END |
			MERGE (m:Message {id: $messageId})
			SET m.content = $content,
			    m.role = $role,
			    m.postTime = coalesce(m.postTime, datetime()),
			    m.public = $public,
			    m.embedding = $embedding
			MERGE (pm)-[:NEXT]->(m)
		)
		RETURN pm IS NOT NULL AS previousFound, otherSuccessors, [] AS linked
	`

	params := map[string]any{
		"previousMessageId": previousMessageID,
		"messageId":         msg.MessageID,
		"content":           msg.Content,
		"role":              msg.Role(),
		"public":            msg.Public,
		"embedding":         toFloat64s(msg.Embedding),
	}

	outcome, err := w.runAppend(ctx, "log_user", query, params)
	if err != nil {
		w.logWriteFailure("log_user", msg.ConversationID, msg.MessageID, err)
		return WriteResult{}, fmt.Errorf("failed to log user message: %w", err)
	}

	res := w.appendWarnings(outcome, msg.ConversationID, msg.MessageID, previousMessageID)
	return res, nil
}

// LogAssistant appends an assistant message after the user message previousMessageID and links
// it to each Document whose index is in contextIDs. Unknown documents are reported, not linked.
func (w *Writer) LogAssistant(ctx context.Context, msg domain.AssistantMessage, previousMessageID string, contextIDs []string) (WriteResult, error) {
	if err := msg.Validate(); err != nil {
		return WriteResult{}, err
	}
	if !domain.IsUserMessageID(previousMessageID) {
		return WriteResult{}, apperrors.NewValidationFailed("AssistantMessage", "previous_message_id",
			fmt.Sprintf("must start with %s", constants.UserMessageIDPrefix))
	}

	contextIDs = lo.Uniq(contextIDs)

	params := map[string]any{
		"previousMessageId": previousMessageID,
		"messageId":         msg.MessageID,
		"content":           msg.Content,
		"role":              msg.Role(),
		"public":            msg.Public,
		"numDocs":           msg.NumberOfDocuments,
		"prompt":            msg.Prompt,
		"vectorIndexSearch": msg.VectorIndexSearch,
		"contextIndices":    contextIDs,
	}

	outcome, err := w.runAppend(ctx, "log_assistant", logAssistantQuery, params)
	if err != nil {
		w.logWriteFailure("log_assistant", msg.ConversationID, msg.MessageID, err)
		return WriteResult{}, fmt.Errorf("failed to log assistant message: %w", err)
	}

	res := w.appendWarnings(outcome, msg.ConversationID, msg.MessageID, previousMessageID)
	if outcome.previousFound && outcome.otherSuccessor == 0 {
		if missing := lo.Without(contextIDs, outcome.linked...); len(missing) > 0 {
			res.Warnings = append(res.Warnings, Warning{
				Code:    WarningContextMissing,
				Message: fmt.Sprintf("context documents not found: %v", missing),
				Count:   len(missing),
			})
			w.logger.Warn("Context documents not found",
				zap.String("conversation_id", msg.ConversationID),
				zap.String("message_id", msg.MessageID),
				zap.Strings("missing", missing),
			)
		}
	}
	return res, nil
}

// RateMessage sets the rating on an existing message. An unknown message yields a warning.
func (w *Writer) RateMessage(ctx context.Context, rating domain.Rating) (WriteResult, error) {
	if err := rating.Validate(); err != nil {
		return WriteResult{}, err
	}

	query := `
		MATCH (m:Message {id: $messageId})
		SET m.rating = $value,
		    m.ratingMessage = $message
		RETURN count(m) AS matched
	`

	out, err := w.exec.ExecuteWrite(ctx, "rate_message", func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{
			"messageId": rating.MessageID,
			"value":     rating.Value,
			"message":   rating.Message,
		})
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		res, err := consume(ctx, result)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 || getIntFromRecord(records[0], "matched") == 0 {
			res.Warnings = append(res.Warnings, Warning{
				Code:    WarningMessageMissing,
				Message: fmt.Sprintf("message %s not found", rating.MessageID),
			})
		}
		return res, nil
	})
	if err != nil {
		w.logWriteFailure("rate_message", rating.ConversationID, rating.MessageID, err)
		return WriteResult{}, fmt.Errorf("failed to rate message: %w", err)
	}

	res := out.(WriteResult)
	if res.HasWarning(WarningMessageMissing) {
		w.logger.Warn("Rated message not found",
			zap.String("conversation_id", rating.ConversationID),
			zap.String("message_id", rating.MessageID),
		)
	} else {
		w.logger.Debug("Rated message",
			zap.String("message_id", rating.MessageID),
			zap.String("rating", rating.Value),
		)
	}
	return res, nil
}

// DeleteByID detaches and deletes every node whose key property matches one of ids,
// one pass per key property, in a single transaction.
func (w *Writer) DeleteByID(ctx context.Context, ids []string) (WriteResult, error) {
	if len(ids) == 0 {
		return WriteResult{}, nil
	}

	query := `
		MATCH (n)
		WHERE toString(n[$key]) IN $ids
		DETACH DELETE n
	`

	out, err := w.exec.ExecuteWrite(ctx, "delete_by_id", func(tx neo4j.ManagedTransaction) (any, error) {
		var total WriteResult
		for _, key := range keyProperties() {
			result, err := tx.Run(ctx, query, map[string]any{"key": key, "ids": ids})
			if err != nil {
				return nil, err
			}
			res, err := consume(ctx, result)
			if err != nil {
				return nil, err
			}
			total.add(res)
		}
		return total, nil
	})
	if err != nil {
		return WriteResult{}, fmt.Errorf("failed to delete nodes: %w", err)
	}

	res := out.(WriteResult)
	w.logger.Debug("Deleted nodes by id",
		zap.Int("requested", len(ids)),
		zap.Int("nodes_deleted", res.NodesDeleted),
	)
	return res, nil
}

// ConversationStarted reports whether conversationID exists and starts with firstMessageID.
func (w *Writer) ConversationStarted(ctx context.Context, conversationID, firstMessageID string) (bool, error) {
	out, err := w.exec.ExecuteRead(ctx, "conversation_started", func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			OPTIONAL MATCH (c:Conversation {id: $conversationId})-[:FIRST]->(m:Message {id: $messageId})
			RETURN m IS NOT NULL AS started
		`, map[string]any{"conversationId": conversationID, "messageId": firstMessageID})
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		return getBoolFromRecord(record, "started"), nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to check conversation start: %w", err)
	}
	return out.(bool), nil
}

// SeedNode merges a bare node of a known label on its key property.
func (w *Writer) SeedNode(ctx context.Context, label, key string) (WriteResult, error) {
	prop, err := KeyProperty(label)
	if err != nil {
		return WriteResult{}, apperrors.NewValidationFailed("SeedNode", "label", err.Error())
	}

	// label and prop come from the fixed key table
	query := fmt.Sprintf("MERGE (n:%s {%s: $key})", label, prop)

	out, err := w.exec.ExecuteWrite(ctx, "seed_node", func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{"key": key})
		if err != nil {
			return nil, err
		}
		return consume(ctx, result)
	})
	if err != nil {
		return WriteResult{}, fmt.Errorf("failed to seed %s node: %w", label, err)
	}
	return out.(WriteResult), nil
}

func (w *Writer) runAppend(ctx context.Context, operation, query string, params map[string]any) (appendOutcome, error) {
	out, err := w.exec.ExecuteWrite(ctx, operation, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		res, err := consume(ctx, result)
		if err != nil {
			return nil, err
		}
		outcome := appendOutcome{result: res}
		if len(records) > 0 {
			outcome.previousFound = getBoolFromRecord(records[0], "previousFound")
			outcome.otherSuccessor = getIntFromRecord(records[0], "otherSuccessors")
			outcome.linked = getStringSliceFromRecord(records[0], "linked")
		}
		return outcome, nil
	})
	if err != nil {
		return appendOutcome{}, err
	}
	return out.(appendOutcome), nil
}

func (w *Writer) appendWarnings(outcome appendOutcome, conversationID, messageID, previousMessageID string) WriteResult {
	res := outcome.result
	switch {
	case !outcome.previousFound:
		res.Warnings = append(res.Warnings, Warning{
			Code:    WarningPreviousMissing,
			Message: fmt.Sprintf("previous message %s not found", previousMessageID),
		})
		w.logger.Warn("Previous message not found, message not logged",
			zap.String("conversation_id", conversationID),
			zap.String("message_id", messageID),
			zap.String("previous_message_id", previousMessageID),
		)
	case outcome.otherSuccessor > 0:
		res.Warnings = append(res.Warnings, Warning{
			Code:    WarningPreviousExtended,
			Message: fmt.Sprintf("previous message %s already has a successor", previousMessageID),
			Count:   outcome.otherSuccessor,
		})
		w.logger.Warn("Previous message already extended, message not logged",
			zap.String("conversation_id", conversationID),
			zap.String("message_id", messageID),
			zap.String("previous_message_id", previousMessageID),
		)
	default:
		w.logger.Debug("Appended message",
			zap.String("conversation_id", conversationID),
			zap.String("message_id", messageID),
			zap.String("previous_message_id", previousMessageID),
		)
	}
	return res
}

func (w *Writer) logWriteFailure(operation, conversationID, messageID string, err error) {
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("conversation_id", conversationID),
		zap.String("message_id", messageID),
		zap.Error(err),
	}
	if apperrors.IsErrorType(err, apperrors.ErrorTypeConstraint) {
		w.logger.Error("Constraint violation, write not retried", fields...)
		return
	}
	w.logger.Error("Graph write failed", fields...)
}
