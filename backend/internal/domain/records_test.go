package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "agent-neo/backend/pkg/errors"
)

func assertValidation(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation), "expected validation error, got %v", err)
	if field != "" {
		var verr *apperrors.ErrValidationFailed
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, field, verr.Field)
	}
}

func TestNewUserMessage(t *testing.T) {
	valid := UserMessageInput{
		SessionID:      "s-1",
		ConversationID: "conv-1",
		Content:        "What is GDS?",
		Embedding:      []float32{0.1, 0.2},
		Public:         true,
	}

	t.Run("generates user id", func(t *testing.T) {
		m, err := NewUserMessage(valid)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(m.MessageID, "user-"))
		assert.Equal(t, "user", m.Role())
	})

	t.Run("session id with conversation prefix", func(t *testing.T) {
		in := valid
		in.SessionID = "conv-123"
		_, err := NewUserMessage(in)
		assertValidation(t, err, "session_id")
	})

	t.Run("assistant prefix rejected", func(t *testing.T) {
		in := valid
		in.MessageID = "llm-1"
		_, err := NewUserMessage(in)
		assertValidation(t, err, "message_id")
	})

	t.Run("empty content", func(t *testing.T) {
		in := valid
		in.Content = "   "
		_, err := NewUserMessage(in)
		assertValidation(t, err, "content")
	})

	t.Run("embedding is optional", func(t *testing.T) {
		in := valid
		in.Embedding = nil
		m, err := NewUserMessage(in)
		require.NoError(t, err)
		assert.Empty(t, m.Embedding)
	})
}

func TestNewAssistantMessage(t *testing.T) {
	valid := AssistantMessageInput{
		SessionID:         "s-1",
		ConversationID:    "conv-1",
		Content:           "GDS is a library",
		NumberOfDocuments: 10,
		Temperature:       1.0,
	}

	m, err := NewAssistantMessage(valid)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(m.MessageID, "llm-"))
	assert.True(t, m.VectorIndexSearch)
	assert.Equal(t, "assistant", m.Role())

	cases := []struct {
		name  string
		edit  func(*AssistantMessageInput)
		field string
	}{
		{"too many documents", func(in *AssistantMessageInput) { in.NumberOfDocuments = 11 }, "number_of_documents"},
		{"negative documents", func(in *AssistantMessageInput) { in.NumberOfDocuments = -1 }, "number_of_documents"},
		{"temperature above one", func(in *AssistantMessageInput) { in.Temperature = 1.01 }, "temperature"},
		{"negative temperature", func(in *AssistantMessageInput) { in.Temperature = -0.1 }, "temperature"},
		{"user prefix", func(in *AssistantMessageInput) { in.MessageID = "user-1" }, "message_id"},
		{"bad conversation", func(in *AssistantMessageInput) { in.ConversationID = "c-1" }, "conversation_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.edit(&in)
			_, err := NewAssistantMessage(in)
			assertValidation(t, err, tc.field)
		})
	}
}

func TestNewRating(t *testing.T) {
	r, err := NewRating("s-1", "conv-1", "llm-1", "Good", "")
	require.NoError(t, err)
	assert.Equal(t, "Good", r.Value)

	_, err = NewRating("s-1", "conv-1", "llm-1", "Meh", "")
	assertValidation(t, err, "value")

	_, err = NewRating("s-1", "conv-1", "llm-1", "good", "")
	assertValidation(t, err, "value")

	_, err = NewRating("s-1", "conv-1", "user-1", "Bad", "")
	assertValidation(t, err, "message_id")
}

func TestNewSessionAndConversation(t *testing.T) {
	_, err := NewSession("s-abc")
	assert.NoError(t, err)
	_, err = NewSession("session-abc")
	assertValidation(t, err, "session_id")

	c, err := NewConversation("s-1", "conv-1", "GPT-4 8K", 0.5, true)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4 8k", c.LLMType)

	_, err = NewConversation("s-1", "conv-1", "claude", 0.5, true)
	assertValidation(t, err, "llm_type")
}

func TestValidateMessageHistory(t *testing.T) {
	assert.NoError(t, ValidateMessageHistory("Question", nil))
	assert.NoError(t, ValidateMessageHistory("Question", []string{"user-1", "llm-1", "user-2"}))
	assertValidation(t, ValidateMessageHistory("Question", []string{"user-1", "user-2"}), "message_history")
	assertValidation(t, ValidateMessageHistory("Question", []string{"llm-1"}), "message_history")
}

func TestQuestion(t *testing.T) {
	q := Question{
		SessionID:         "s-1",
		ConversationID:    "conv-1",
		Question:          "What is GDS?",
		LLMType:           "Gemini",
		NumberOfDocuments: 5,
		Temperature:       0.7,
	}
	q.Normalize()
	require.NoError(t, q.Validate())
	assert.True(t, q.IsFirstTurn())
	assert.Equal(t, "", q.PreviousMessageID())
	assert.NotNil(t, q.MessageHistory)

	q.MessageHistory = []string{"user-1", "llm-1"}
	require.NoError(t, q.Validate())
	assert.Equal(t, "llm-1", q.PreviousMessageID())

	q.MessageHistory = []string{"user-1"}
	assertValidation(t, q.Validate(), "message_history")

	q.MessageHistory = nil
	q.LLMType = "gpt-5"
	assertValidation(t, q.Validate(), "llm_type")
}

func TestNewQuestion(t *testing.T) {
	q, err := NewQuestion(Question{
		SessionID:      "s-1",
		ConversationID: "conv-1",
		Question:       "How do I create an index?",
		LLMType:        "GPT-4 8K",
	})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4 8k", q.LLMType)
	assert.Equal(t, []string{}, q.MessageHistory)

	_, err = NewQuestion(Question{SessionID: "s-1", ConversationID: "conv-1", LLMType: "gemini"})
	assertValidation(t, err, "question")
}

func TestNewResponse(t *testing.T) {
	_, err := NewResponse("s-1", "conv-1", "GDS is ...", []string{"user-1", "llm-1"}, nil)
	assert.NoError(t, err)

	_, err = NewResponse("s-1", "conv-1", "GDS is ...", []string{"user-1", "user-2"}, nil)
	assertValidation(t, err, "message_history")

	_, err = NewResponse("s-1", "conv-1", "GDS is ...", nil, nil)
	assertValidation(t, err, "message_history")

	_, err = NewResponse("s-1", "conv-1", "GDS is ...", []string{"user-1"}, nil)
	assertValidation(t, err, "message_history")

	_, err = NewResponse("s-1", "conv-1", "", []string{"user-1", "llm-1"}, nil)
	assertValidation(t, err, "content")
}

func TestRoleForMessageID(t *testing.T) {
	role, ok := RoleForMessageID("user-x")
	assert.True(t, ok)
	assert.Equal(t, "user", role)

	role, ok = RoleForMessageID("llm-x")
	assert.True(t, ok)
	assert.Equal(t, "assistant", role)

	_, ok = RoleForMessageID("conv-x")
	assert.False(t, ok)
}
