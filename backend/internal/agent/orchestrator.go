package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"agent-neo/backend/internal/adapter"
	"agent-neo/backend/internal/domain"
	"agent-neo/backend/internal/embedding"
	"agent-neo/backend/internal/graph"
	"agent-neo/backend/internal/persist"
	"agent-neo/backend/internal/prompt"
	"agent-neo/backend/internal/status"
	apperrors "agent-neo/backend/pkg/errors"
	"agent-neo/backend/pkg/logger"
)

// Retrieval modes
const (
	RetrievalFlat  = "flat"
	RetrievalTopic = "topic"
)

// Retriever is the read side of the conversation graph.
type Retriever interface {
	RetrieveContextDocuments(ctx context.Context, embedding []float32, k int) ([]domain.Document, error)
	RetrieveContextDocumentsByTopic(ctx context.Context, embedding []float32, nTopics, docsPerTopic int) ([]domain.Document, error)
	RetrieveConversationHistory(ctx context.Context, conversationID string) (*graph.ConversationHistory, error)
}

// RatingWriter stores ratings synchronously.
type RatingWriter interface {
	RateMessage(ctx context.Context, rating domain.Rating) (graph.WriteResult, error)
}

// TurnQueue accepts answered turns for background persistence.
type TurnQueue interface {
	Enqueue(ctx context.Context, job *persist.TurnJob) error
}

// Options tunes retrieval and the stored message visibility.
type Options struct {
	RetrievalMode string
	TopicCount    int
	DocsPerTopic  int
	Public        bool
}

// Orchestrator answers questions from the document graph and records each turn.
type Orchestrator struct {
	embedder  embedding.Embedder
	retriever Retriever
	invoker   adapter.Invoker
	ratings   RatingWriter
	queue     TurnQueue
	tracker   status.Tracker
	opts      Options
	logger    *zap.Logger
}

// Dependencies groups the collaborators of an Orchestrator
type Dependencies struct {
	Embedder  embedding.Embedder
	Retriever Retriever
	Invoker   adapter.Invoker
	Ratings   RatingWriter
	Queue     TurnQueue
	Tracker   status.Tracker
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(deps Dependencies, opts Options) *Orchestrator {
	if opts.RetrievalMode == "" {
		opts.RetrievalMode = RetrievalFlat
	}
	return &Orchestrator{
		embedder:  deps.Embedder,
		retriever: deps.Retriever,
		invoker:   deps.Invoker,
		ratings:   deps.Ratings,
		queue:     deps.Queue,
		tracker:   deps.Tracker,
		opts:      opts,
		logger:    logger.Named("agent"),
	}
}

// Ask answers one question. The turn is queued for persistence before returning; the response
// does not wait for the write.
func (o *Orchestrator) Ask(ctx context.Context, q domain.Question) (*domain.Response, error) {
	q, err := domain.NewQuestion(q)
	if err != nil {
		return nil, err
	}
	start := time.Now()

	o.logger.Debug("Answering question",
		zap.String("session_id", q.SessionID),
		zap.String("conversation_id", q.ConversationID),
		zap.String("llm_type", q.LLMType),
		zap.Int("number_of_documents", q.NumberOfDocuments),
	)

	// 1. Embed
	vector, err := o.embedder.Embed(ctx, q.Question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	// 2. Retrieve
	docs, err := o.retrieve(ctx, vector, q.NumberOfDocuments)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}

	// 3. Prompt + invoke
	userID := domain.NewUserMessageID()
	assistantID := domain.NewAssistantMessageID()
	p := prompt.Build(q.Question, docs)

	answer, err := o.invoker.Invoke(ctx, adapter.Request{
		Prompt:      p.Text,
		LLMType:     q.LLMType,
		Temperature: q.Temperature,
		Metadata: map[string]string{
			"conversation_id": q.ConversationID,
			"session_id":      q.SessionID,
			"user_id":         userID,
			"assistant_id":    assistantID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	// 4. Build records
	userMsg, err := domain.NewUserMessage(domain.UserMessageInput{
		SessionID:      q.SessionID,
		ConversationID: q.ConversationID,
		MessageID:      userID,
		Content:        q.Question,
		Embedding:      vector,
		Public:         o.opts.Public,
	})
	if err != nil {
		return nil, err
	}
	assistantMsg, err := domain.NewAssistantMessage(domain.AssistantMessageInput{
		SessionID:         q.SessionID,
		ConversationID:    q.ConversationID,
		MessageID:         assistantID,
		Prompt:            p.Text,
		Content:           answer,
		Public:            o.opts.Public,
		NumberOfDocuments: q.NumberOfDocuments,
		Temperature:       q.Temperature,
	})
	if err != nil {
		return nil, err
	}

	// 5. Queue the write
	contextIDs := lo.Map(docs, func(d domain.Document, _ int) string { return d.Index })
	job := persist.NewTurnJob(userMsg, assistantMsg, q.MessageHistory, q.LLMType, q.Temperature, contextIDs)
	if err := o.queue.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to queue turn for persistence: %w", err)
	}

	history := append(append([]string{}, q.MessageHistory...), userID, assistantID)
	resp, err := domain.NewResponse(q.SessionID, q.ConversationID, answer, history, docs)
	if err != nil {
		return nil, err
	}

	o.logger.Info("Question answered",
		zap.String("conversation_id", q.ConversationID),
		zap.String("message_id", assistantID),
		zap.String("template", string(p.Kind)),
		zap.Int("context_documents", len(docs)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &resp, nil
}

// retrieve fetches at most k documents in the configured mode
func (o *Orchestrator) retrieve(ctx context.Context, vector []float32, k int) ([]domain.Document, error) {
	k = graph.ClampDocumentCount(k)
	if k == 0 {
		return []domain.Document{}, nil
	}
	if o.opts.RetrievalMode != RetrievalTopic {
		return o.retriever.RetrieveContextDocuments(ctx, vector, k)
	}

	docs, err := o.retriever.RetrieveContextDocumentsByTopic(ctx, vector, o.opts.TopicCount, o.opts.DocsPerTopic)
	if err != nil {
		return nil, err
	}
	if len(docs) > k {
		docs = docs[:k]
	}
	return docs, nil
}

// Rate stores a rating on an assistant message.
func (o *Orchestrator) Rate(ctx context.Context, rating domain.Rating) (graph.WriteResult, error) {
	if err := rating.Validate(); err != nil {
		return graph.WriteResult{}, err
	}
	return o.ratings.RateMessage(ctx, rating)
}

// History reconstructs a stored conversation.
func (o *Orchestrator) History(ctx context.Context, conversationID string) (*graph.ConversationHistory, error) {
	h, err := o.retriever.RetrieveConversationHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !h.Found {
		return nil, apperrors.NewConversationNotFound(conversationID)
	}
	return h, nil
}

// PersistenceStatus reports how far the write of the turn answered by messageID has got.
func (o *Orchestrator) PersistenceStatus(ctx context.Context, messageID string) (status.Status, error) {
	if o.tracker == nil {
		return status.Status{}, apperrors.NewStatusNotFound(messageID)
	}
	return o.tracker.Get(ctx, messageID)
}
