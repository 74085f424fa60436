package domain

import (
	"fmt"
	"slices"
	"strings"

	"agent-neo/backend/internal/constants"
	apperrors "agent-neo/backend/pkg/errors"
)

// Question is one inbound chat turn.
type Question struct {
	SessionID           string   `json:"session_id"`
	ConversationID      string   `json:"conversation_id"`
	Question            string   `json:"question"`
	ConversationHistory string   `json:"conversation_history,omitempty"`
	MessageHistory      []string `json:"message_history"`
	LLMType             string   `json:"llm_type"`
	NumberOfDocuments   int      `json:"number_of_documents"`
	Temperature         float64  `json:"temperature"`
}

// NewQuestion normalizes q and validates it.
func NewQuestion(q Question) (Question, error) {
	q.Normalize()
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	return q, nil
}

// Normalize lower-cases the llm type and replaces a nil history with an empty one.
func (q *Question) Normalize() {
	q.LLMType = NormalizeLLMType(q.LLMType)
	if q.MessageHistory == nil {
		q.MessageHistory = []string{}
	}
}

func (q Question) Validate() error {
	if err := requireSessionAndConversation("Question", q.SessionID, q.ConversationID); err != nil {
		return err
	}
	if strings.TrimSpace(q.Question) == "" {
		return apperrors.NewValidationFailed("Question", "question", "cannot be empty")
	}
	if err := validateLLMType("Question", q.LLMType); err != nil {
		return err
	}
	if err := validateDocumentCount("Question", q.NumberOfDocuments); err != nil {
		return err
	}
	if err := validateTemperature("Question", q.Temperature); err != nil {
		return err
	}
	if err := ValidateMessageHistory("Question", q.MessageHistory); err != nil {
		return err
	}
	if len(q.MessageHistory)%2 != 0 {
		return apperrors.NewValidationFailed("Question", "message_history", "must end with an assistant message")
	}
	return nil
}

// IsFirstTurn reports whether this question opens its conversation.
func (q Question) IsFirstTurn() bool {
	return len(q.MessageHistory) == 0
}

// PreviousMessageID is the id the new user message is chained after; empty on the first turn.
func (q Question) PreviousMessageID() string {
	if q.IsFirstTurn() {
		return ""
	}
	return q.MessageHistory[len(q.MessageHistory)-1]
}

// Response is the answer to a Question together with the extended history.
type Response struct {
	SessionID      string     `json:"session_id"`
	ConversationID string     `json:"conversation_id"`
	Content        string     `json:"content"`
	MessageHistory []string   `json:"message_history"`
	Context        []Document `json:"context,omitempty"`
}

func NewResponse(sessionID, conversationID, content string, history []string, context []Document) (Response, error) {
	r := Response{
		SessionID:      sessionID,
		ConversationID: conversationID,
		Content:        content,
		MessageHistory: slices.Clone(history),
		Context:        context,
	}
	return r, r.Validate()
}

func (r Response) Validate() error {
	if err := requireSessionAndConversation("Response", r.SessionID, r.ConversationID); err != nil {
		return err
	}
	if strings.TrimSpace(r.Content) == "" {
		return apperrors.NewValidationFailed("Response", "content", "cannot be empty")
	}
	if len(r.MessageHistory) == 0 {
		return apperrors.NewValidationFailed("Response", "message_history", "cannot be empty")
	}
	if err := ValidateMessageHistory("Response", r.MessageHistory); err != nil {
		return err
	}
	if !IsAssistantMessageID(r.MessageHistory[len(r.MessageHistory)-1]) {
		return apperrors.NewValidationFailed("Response", "message_history", "must end with an assistant message")
	}
	return nil
}

// NormalizeLLMType folds an llm type to its canonical lower-case form.
func NormalizeLLMType(llmType string) string {
	return strings.ToLower(strings.TrimSpace(llmType))
}

// IsSupportedLLMType matches case-insensitively against the supported set.
func IsSupportedLLMType(llmType string) bool {
	return slices.Contains(constants.SupportedLLMTypes, NormalizeLLMType(llmType))
}

func validateLLMType(record, llmType string) error {
	if !IsSupportedLLMType(llmType) {
		return apperrors.NewValidationFailed(record, "llm_type",
			fmt.Sprintf("%q is not one of %s", llmType, strings.Join(constants.SupportedLLMTypes, ", ")))
	}
	return nil
}
