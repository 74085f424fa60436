package graph

import (
	"time"

	"agent-neo/backend/internal/domain"
)

// WarningCode names a recoverable condition a write ran into.
type WarningCode string

const (
	// WarningPreviousMissing: the message to chain after does not exist; nothing was written
	WarningPreviousMissing WarningCode = "previous_message_missing"
	// WarningPreviousExtended: the previous message already has a different successor; nothing was written
	WarningPreviousExtended WarningCode = "previous_message_extended"
	// WarningContextMissing: some context documents were not found and were not linked
	WarningContextMissing WarningCode = "context_documents_missing"
	// WarningMessageMissing: the rated message does not exist
	WarningMessageMissing WarningCode = "message_missing"
)

// Warning describes a write that completed without applying everything asked of it.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
	Count   int         `json:"count,omitempty"`
}

// WriteResult reports the store counters of one write plus any warnings.
type WriteResult struct {
	NodesCreated         int       `json:"nodes_created"`
	NodesDeleted         int       `json:"nodes_deleted"`
	RelationshipsCreated int       `json:"relationships_created"`
	RelationshipsDeleted int       `json:"relationships_deleted"`
	PropertiesSet        int       `json:"properties_set"`
	Warnings             []Warning `json:"warnings,omitempty"`
}

// Applied reports whether the write completed without warnings.
func (r WriteResult) Applied() bool {
	return len(r.Warnings) == 0
}

// HasWarning reports whether a warning with the given code was raised.
func (r WriteResult) HasWarning(code WarningCode) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

func (r *WriteResult) add(other WriteResult) {
	r.NodesCreated += other.NodesCreated
	r.NodesDeleted += other.NodesDeleted
	r.RelationshipsCreated += other.RelationshipsCreated
	r.RelationshipsDeleted += other.RelationshipsDeleted
	r.PropertiesSet += other.PropertiesSet
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// MessageRating is the rating stored on a message.
type MessageRating struct {
	MessageID string `json:"message_id"`
	Rating    string `json:"rating"`
	Message   string `json:"message"`
}

// HistoryMessage is one message of a reconstructed conversation chain.
type HistoryMessage struct {
	ID            string            `json:"id"`
	Role          string            `json:"role"`
	Content       string            `json:"content"`
	PostTime      time.Time         `json:"post_time"`
	NumDocs       int               `json:"num_docs,omitempty"`
	Rating        string            `json:"rating,omitempty"`
	RatingMessage string            `json:"rating_message,omitempty"`
	Documents     []domain.Document `json:"documents,omitempty"`
}

// GraphNode is a node of the graph view, with embeddings removed.
type GraphNode struct {
	ID         string         `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// GraphEdge is a relationship of the graph view.
type GraphEdge struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	StartID    string         `json:"start_id"`
	EndID      string         `json:"end_id"`
	Properties map[string]any `json:"properties,omitempty"`
}

// GraphView is the flattened node/edge form of a conversation.
type GraphView struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// ConversationHistory is a conversation chain in order, with the documents each assistant turn used.
type ConversationHistory struct {
	ConversationID string           `json:"conversation_id"`
	Found          bool             `json:"found"`
	Messages       []HistoryMessage `json:"messages"`
	View           GraphView        `json:"graph"`
}

// MessageIDs returns the chain's message ids in order.
func (h *ConversationHistory) MessageIDs() []string {
	ids := make([]string, 0, len(h.Messages))
	for _, m := range h.Messages {
		ids = append(ids, m.ID)
	}
	return ids
}
