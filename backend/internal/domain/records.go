package domain

import (
	"fmt"
	"slices"
	"strings"

	"agent-neo/backend/internal/constants"
	apperrors "agent-neo/backend/pkg/errors"
)

// Session is the root of one client lifetime.
type Session struct {
	SessionID string `json:"session_id"`
}

func NewSession(sessionID string) (Session, error) {
	s := Session{SessionID: sessionID}
	return s, s.Validate()
}

func (s Session) Validate() error {
	return requirePrefix("Session", "session_id", s.SessionID, constants.SessionIDPrefix)
}

// Conversation is one chat thread owned by a session.
type Conversation struct {
	SessionID      string  `json:"session_id"`
	ConversationID string  `json:"conversation_id"`
	LLMType        string  `json:"llm_type"`
	Temperature    float64 `json:"temperature"`
	Public         bool    `json:"public"`
}

func NewConversation(sessionID, conversationID, llmType string, temperature float64, public bool) (Conversation, error) {
	c := Conversation{
		SessionID:      sessionID,
		ConversationID: conversationID,
		LLMType:        NormalizeLLMType(llmType),
		Temperature:    temperature,
		Public:         public,
	}
	return c, c.Validate()
}

func (c Conversation) Validate() error {
	if err := requireSessionAndConversation("Conversation", c.SessionID, c.ConversationID); err != nil {
		return err
	}
	if err := validateLLMType("Conversation", c.LLMType); err != nil {
		return err
	}
	return validateTemperature("Conversation", c.Temperature)
}

// UserMessage is a question as stored in the conversation chain.
type UserMessage struct {
	SessionID      string    `json:"session_id"`
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	Content        string    `json:"content"`
	Embedding      []float32 `json:"embedding,omitempty"`
	Public         bool      `json:"public"`
}

// UserMessageInput carries the fields of a UserMessage; an empty MessageID gets a fresh user-<uuid>.
type UserMessageInput struct {
	SessionID      string
	ConversationID string
	MessageID      string
	Content        string
	Embedding      []float32
	Public         bool
}

func NewUserMessage(in UserMessageInput) (UserMessage, error) {
	id := in.MessageID
	if id == "" {
		id = NewUserMessageID()
	}
	m := UserMessage{
		SessionID:      in.SessionID,
		ConversationID: in.ConversationID,
		MessageID:      id,
		Content:        in.Content,
		Embedding:      slices.Clone(in.Embedding),
		Public:         in.Public,
	}
	return m, m.Validate()
}

// Role is always "user".
func (m UserMessage) Role() string { return constants.RoleUser }

func (m UserMessage) Validate() error {
	if err := requireSessionAndConversation("UserMessage", m.SessionID, m.ConversationID); err != nil {
		return err
	}
	if err := requirePrefix("UserMessage", "message_id", m.MessageID, constants.UserMessageIDPrefix); err != nil {
		return err
	}
	if strings.TrimSpace(m.Content) == "" {
		return apperrors.NewValidationFailed("UserMessage", "content", "cannot be empty")
	}
	return nil
}

// AssistantMessage is a model answer as stored in the conversation chain.
type AssistantMessage struct {
	SessionID         string  `json:"session_id"`
	ConversationID    string  `json:"conversation_id"`
	MessageID         string  `json:"message_id"`
	Prompt            string  `json:"prompt"`
	Content           string  `json:"content"`
	Public            bool    `json:"public"`
	VectorIndexSearch bool    `json:"vectorIndexSearch"`
	NumberOfDocuments int     `json:"number_of_documents"`
	Temperature       float64 `json:"temperature"`
}

// AssistantMessageInput carries the fields of an AssistantMessage; an empty MessageID gets a fresh llm-<uuid>.
type AssistantMessageInput struct {
	SessionID         string
	ConversationID    string
	MessageID         string
	Prompt            string
	Content           string
	Public            bool
	NumberOfDocuments int
	Temperature       float64
}

func NewAssistantMessage(in AssistantMessageInput) (AssistantMessage, error) {
	id := in.MessageID
	if id == "" {
		id = NewAssistantMessageID()
	}
	m := AssistantMessage{
		SessionID:         in.SessionID,
		ConversationID:    in.ConversationID,
		MessageID:         id,
		Prompt:            in.Prompt,
		Content:           in.Content,
		Public:            in.Public,
		VectorIndexSearch: true,
		NumberOfDocuments: in.NumberOfDocuments,
		Temperature:       in.Temperature,
	}
	return m, m.Validate()
}

// Role is always "assistant".
func (m AssistantMessage) Role() string { return constants.RoleAssistant }

func (m AssistantMessage) Validate() error {
	if err := requireSessionAndConversation("AssistantMessage", m.SessionID, m.ConversationID); err != nil {
		return err
	}
	if err := requirePrefix("AssistantMessage", "message_id", m.MessageID, constants.AssistantMessageIDPrefix); err != nil {
		return err
	}
	if strings.TrimSpace(m.Content) == "" {
		return apperrors.NewValidationFailed("AssistantMessage", "content", "cannot be empty")
	}
	if err := validateDocumentCount("AssistantMessage", m.NumberOfDocuments); err != nil {
		return err
	}
	return validateTemperature("AssistantMessage", m.Temperature)
}

// Rating annotates an assistant message.
type Rating struct {
	SessionID      string `json:"session_id"`
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	Value          string `json:"value"`
	Message        string `json:"message"`
}

func NewRating(sessionID, conversationID, messageID, value, message string) (Rating, error) {
	r := Rating{
		SessionID:      sessionID,
		ConversationID: conversationID,
		MessageID:      messageID,
		Value:          value,
		Message:        message,
	}
	return r, r.Validate()
}

func (r Rating) Validate() error {
	if err := requireSessionAndConversation("Rating", r.SessionID, r.ConversationID); err != nil {
		return err
	}
	if err := requirePrefix("Rating", "message_id", r.MessageID, constants.AssistantMessageIDPrefix); err != nil {
		return err
	}
	if r.Value != constants.RatingGood && r.Value != constants.RatingBad {
		return apperrors.NewValidationFailed("Rating", "value",
			fmt.Sprintf("must be %s or %s, got %q", constants.RatingGood, constants.RatingBad, r.Value))
	}
	return nil
}

// Document is a corpus chunk produced by the ingestion pipeline. It is keyed by Index, not by id.
type Document struct {
	Index string  `json:"index"`
	URL   string  `json:"url"`
	Text  string  `json:"text"`
	Score float64 `json:"score,omitempty"`
}

func validateTemperature(record string, t float64) error {
	if t < 0 || t > 1 {
		return apperrors.NewValidationFailed(record, "temperature", fmt.Sprintf("must be within [0, 1], got %v", t))
	}
	return nil
}

func validateDocumentCount(record string, n int) error {
	if n < 0 || n > constants.MaxContextDocuments {
		return apperrors.NewValidationFailed(record, "number_of_documents",
			fmt.Sprintf("must be within [0, %d], got %d", constants.MaxContextDocuments, n))
	}
	return nil
}
