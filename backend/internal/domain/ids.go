package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"agent-neo/backend/internal/constants"
	apperrors "agent-neo/backend/pkg/errors"
)

// NewSessionID returns a fresh s-<uuid> identifier
func NewSessionID() string {
	return constants.SessionIDPrefix + uuid.New().String()
}

// NewConversationID returns a fresh conv-<uuid> identifier
func NewConversationID() string {
	return constants.ConversationIDPrefix + uuid.New().String()
}

// NewUserMessageID returns a fresh user-<uuid> identifier
func NewUserMessageID() string {
	return constants.UserMessageIDPrefix + uuid.New().String()
}

// NewAssistantMessageID returns a fresh llm-<uuid> identifier
func NewAssistantMessageID() string {
	return constants.AssistantMessageIDPrefix + uuid.New().String()
}

// IsUserMessageID reports whether id names a user message
func IsUserMessageID(id string) bool {
	return strings.HasPrefix(id, constants.UserMessageIDPrefix)
}

// IsAssistantMessageID reports whether id names an assistant message
func IsAssistantMessageID(id string) bool {
	return strings.HasPrefix(id, constants.AssistantMessageIDPrefix)
}

// RoleForMessageID derives the role implied by a message id prefix
func RoleForMessageID(id string) (string, bool) {
	switch {
	case IsUserMessageID(id):
		return constants.RoleUser, true
	case IsAssistantMessageID(id):
		return constants.RoleAssistant, true
	default:
		return "", false
	}
}

func requirePrefix(record, field, value, prefix string) error {
	if !strings.HasPrefix(value, prefix) {
		return apperrors.NewValidationFailed(record, field, fmt.Sprintf("must start with %s", prefix))
	}
	return nil
}

func requireSessionAndConversation(record, sessionID, conversationID string) error {
	if err := requirePrefix(record, "session_id", sessionID, constants.SessionIDPrefix); err != nil {
		return err
	}
	return requirePrefix(record, "conversation_id", conversationID, constants.ConversationIDPrefix)
}

// ValidateMessageHistory checks the alternation rule: even positions hold
// user-* ids and odd positions hold llm-* ids.
func ValidateMessageHistory(record string, history []string) error {
	for i, id := range history {
		if i%2 == 0 && !IsUserMessageID(id) {
			return apperrors.NewValidationFailed(record, "message_history",
				fmt.Sprintf("position %d must be a %s id, got %q", i, constants.UserMessageIDPrefix, id))
		}
		if i%2 == 1 && !IsAssistantMessageID(id) {
			return apperrors.NewValidationFailed(record, "message_history",
				fmt.Sprintf("position %d must be a %s id, got %q", i, constants.AssistantMessageIDPrefix, id))
		}
	}
	return nil
}
