package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeConfig represents missing or malformed configuration
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeConnection represents an unreachable or unauthenticated graph store
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeGraph represents graph query errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeConstraint represents store-level constraint violations
	ErrorTypeConstraint ErrorType = "constraint"
	// ErrorTypeValidation represents malformed domain records
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeNotFound represents lookups that matched nothing
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeAgent represents embedding/LLM collaborator errors
	ErrorTypeAgent ErrorType = "agent"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// ErrorType reports the category. Typed errors embedding *BaseError inherit it.
func (e *BaseError) ErrorType() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Config Errors

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Graph Errors

// ErrGraphConnectionFailed is returned when the Neo4j target is unreachable or rejects credentials
type ErrGraphConnectionFailed struct {
	*BaseError
	URI string
}

func NewGraphConnectionFailed(uri string, err error) *ErrGraphConnectionFailed {
	return &ErrGraphConnectionFailed{
		BaseError: NewBaseError(ErrorTypeConnection, fmt.Sprintf("failed to connect to Neo4j: %s", uri), err),
		URI:       uri,
	}
}

// ErrGraphQueryFailed is returned when a graph query fails
type ErrGraphQueryFailed struct {
	*BaseError
	Operation string
}

func NewGraphQueryFailed(operation string, err error) *ErrGraphQueryFailed {
	return &ErrGraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("query failed: %s", operation), err),
		Operation: operation,
	}
}

// ErrGraphConstraintViolation is returned when the store rejects a write on a schema constraint
type ErrGraphConstraintViolation struct {
	*BaseError
	Operation string
	Code      string
}

func NewGraphConstraintViolation(operation, code string, err error) *ErrGraphConstraintViolation {
	return &ErrGraphConstraintViolation{
		BaseError: NewBaseError(ErrorTypeConstraint, fmt.Sprintf("constraint violated during %s", operation), err),
		Operation: operation,
		Code:      code,
	}
}

// Validation Errors

// ErrValidationFailed is returned when a domain record fails construction
type ErrValidationFailed struct {
	*BaseError
	Record string
	Field  string
	Reason string
}

func NewValidationFailed(record, field, reason string) *ErrValidationFailed {
	return &ErrValidationFailed{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid %s.%s: %s", record, field, reason), nil),
		Record:    record,
		Field:     field,
		Reason:    reason,
	}
}

// Not Found Errors

// ErrConversationNotFound is returned when a conversation id matches no stored chain
type ErrConversationNotFound struct {
	*BaseError
	ConversationID string
}

func NewConversationNotFound(conversationID string) *ErrConversationNotFound {
	return &ErrConversationNotFound{
		BaseError:      NewBaseError(ErrorTypeNotFound, fmt.Sprintf("conversation not found: %s", conversationID), nil),
		ConversationID: conversationID,
	}
}

// ErrStatusNotFound is returned when no persistence status exists for a message
type ErrStatusNotFound struct {
	*BaseError
	MessageID string
}

func NewStatusNotFound(messageID string) *ErrStatusNotFound {
	return &ErrStatusNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("no persistence status for message: %s", messageID), nil),
		MessageID: messageID,
	}
}

// Agent Errors

// ErrAgentLLMFailed is returned when LLM request fails
type ErrAgentLLMFailed struct {
	*BaseError
	Model     string
	Attempts  int
	Retryable bool
}

func NewAgentLLMFailed(model string, attempts int, retryable bool, err error) *ErrAgentLLMFailed {
	return &ErrAgentLLMFailed{
		BaseError: NewBaseError(ErrorTypeAgent, fmt.Sprintf("LLM request failed after %d attempts", attempts), err),
		Model:     model,
		Attempts:  attempts,
		Retryable: retryable,
	}
}

// ErrAgentNoResponse is returned when LLM returns no response
var ErrAgentNoResponse = NewBaseError(ErrorTypeAgent, "no response from LLM", nil)

// ErrEmbeddingFailed is returned when the embedding service fails
type ErrEmbeddingFailed struct {
	*BaseError
	Provider string
}

func NewEmbeddingFailed(provider string, err error) *ErrEmbeddingFailed {
	return &ErrEmbeddingFailed{
		BaseError: NewBaseError(ErrorTypeAgent, fmt.Sprintf("embedding request failed: %s", provider), err),
		Provider:  provider,
	}
}

// Context Errors

// ErrContextCancelled is returned when context is cancelled
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context cancelled: %s", operation), err),
		Operation: operation,
	}
}

// ErrContextTimeout is returned when context times out
type ErrContextTimeout struct {
	*BaseError
	Operation string
	Timeout   time.Duration
}

func NewContextTimeout(operation string, timeout time.Duration) *ErrContextTimeout {
	return &ErrContextTimeout{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context timeout: %s (timeout: %v)", operation, timeout), nil),
		Operation: operation,
		Timeout:   timeout,
	}
}

// Helper functions

type typed interface {
	ErrorType() ErrorType
}

// IsErrorType checks whether any error in the chain is of the given category
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if t, ok := err.(typed); ok && t.ErrorType() == errType {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsRetryable reports whether an operation that failed with err may be attempted again.
// Connectivity failures are retryable; validation, constraint and context errors are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsErrorType(err, ErrorTypeContext) ||
		IsErrorType(err, ErrorTypeValidation) ||
		IsErrorType(err, ErrorTypeConstraint) ||
		IsErrorType(err, ErrorTypeConfig) {
		return false
	}
	var llmErr *ErrAgentLLMFailed
	if stderrors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return IsErrorType(err, ErrorTypeConnection)
}
