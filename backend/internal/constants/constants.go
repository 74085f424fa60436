package constants

// Identifier prefixes
const (
	SessionIDPrefix          = "s-"
	ConversationIDPrefix     = "conv-"
	UserMessageIDPrefix      = "user-"
	AssistantMessageIDPrefix = "llm-"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Rating values
const (
	RatingGood = "Good"
	RatingBad  = "Bad"
)

// Retrieval limits
const (
	// MaxContextDocuments bounds number_of_documents and the flat retrieval k
	MaxContextDocuments = 10
	// MaxHistoryHops bounds the NEXT walk when reconstructing a conversation
	MaxHistoryHops = 25
	// MaxHistoryRows bounds the rows returned by the history query
	MaxHistoryRows = 50
)

// Vector index names
const (
	DocumentEmbeddingIndex     = "document-embeddings"
	TopicSummaryEmbeddingIndex = "topic_group_summary_embeddings"
)

// Supported llm_type values, lower-cased
const (
	LLMChatBison2K  = "chat-bison 2k"
	LLMChatBison32K = "chat-bison 32k"
	LLMGemini       = "gemini"
	LLMGPT4_8K      = "gpt-4 8k"
	LLMGPT4_32K     = "gpt-4 32k"
)

// SupportedLLMTypes lists every accepted llm_type
var SupportedLLMTypes = []string{
	LLMChatBison2K,
	LLMChatBison32K,
	LLMGemini,
	LLMGPT4_8K,
	LLMGPT4_32K,
}
