package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsErrorType_WalksWrapChain(t *testing.T) {
	err := fmt.Errorf("log user: %w", NewValidationFailed("UserMessage", "session_id", "must start with s-"))

	assert.True(t, IsErrorType(err, ErrorTypeValidation))
	assert.False(t, IsErrorType(err, ErrorTypeGraph))
	assert.False(t, IsErrorType(nil, ErrorTypeGraph))
}

func TestIsErrorType_EmbeddedTypes(t *testing.T) {
	var target *ErrGraphConnectionFailed
	err := fmt.Errorf("startup: %w", NewGraphConnectionFailed("bolt://nowhere:7687", stderrors.New("dial tcp")))

	assert.True(t, IsErrorType(err, ErrorTypeConnection))
	assert.True(t, stderrors.As(err, &target))
	assert.Equal(t, "bolt://nowhere:7687", target.URI)
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection", NewGraphConnectionFailed("bolt://x", stderrors.New("refused")), true},
		{"wrapped connection", fmt.Errorf("write: %w", NewGraphConnectionFailed("bolt://x", nil)), true},
		{"constraint", NewGraphConstraintViolation("log_new_conversation", "Neo.ClientError.Schema.ConstraintValidationFailed", nil), false},
		{"validation", NewValidationFailed("Rating", "value", "must be Good or Bad"), false},
		{"context", NewContextTimeout("persist", 0), false},
		{"query", NewGraphQueryFailed("rate_message", stderrors.New("syntax")), false},
		{"retryable llm", NewAgentLLMFailed("gpt-4", 3, true, nil), true},
		{"plain", stderrors.New("boom"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRetryable(tc.err))
		})
	}
}

func TestBaseError_Message(t *testing.T) {
	err := NewConfigMissingRequired("NEO4J_URI")
	assert.Equal(t, "[config] missing required config: NEO4J_URI", err.Error())

	wrapped := NewGraphQueryFailed("match_by_id", stderrors.New("timeout"))
	assert.Contains(t, wrapped.Error(), "timeout")
	assert.NotNil(t, stderrors.Unwrap(wrapped))
}
