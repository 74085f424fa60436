package persist

import (
	"slices"

	"github.com/google/uuid"

	"agent-neo/backend/internal/domain"
	"agent-neo/backend/internal/graph"
)

type step int

const (
	stepUser step = iota
	stepAssistant
	stepDone
)

func (s step) String() string {
	switch s {
	case stepUser:
		return "user"
	case stepAssistant:
		return "assistant"
	default:
		return "done"
	}
}

// TurnJob is the write of one answered turn: the user message followed by the assistant message.
type TurnJob struct {
	ID               string
	UserMessage      domain.UserMessage
	AssistantMessage domain.AssistantMessage
	// MessageHistory is the history the question arrived with, before this turn.
	MessageHistory []string
	LLMType        string
	Temperature    float64
	ContextIDs     []string

	step     step
	attempts int
	warnings []graph.Warning
}

// NewTurnJob assigns the job id.
func NewTurnJob(user domain.UserMessage, assistant domain.AssistantMessage, history []string, llmType string, temperature float64, contextIDs []string) *TurnJob {
	return &TurnJob{
		ID:               uuid.NewString(),
		UserMessage:      user,
		AssistantMessage: assistant,
		MessageHistory:   slices.Clone(history),
		LLMType:          llmType,
		Temperature:      temperature,
		ContextIDs:       slices.Clone(contextIDs),
	}
}

func (j *TurnJob) conversationID() string {
	return j.UserMessage.ConversationID
}

func (j *TurnJob) previousMessageID() string {
	if len(j.MessageHistory) == 0 {
		return ""
	}
	return j.MessageHistory[len(j.MessageHistory)-1]
}
