package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeInternalError = "INTERNAL_ERROR"

	// Chat pipeline error codes. Each stage failure carries its own code so
	// callers can tell which leg of the pipeline gave out.
	ErrCodeNotConfigured = "NOT_CONFIGURED"
	ErrCodeEmbedding     = "EMBEDDING_ERROR"
	ErrCodeRetrieval     = "RETRIEVAL_ERROR"
	ErrCodeGeneration    = "GENERATION_ERROR"
	ErrCodeTermsLookup   = "TERMS_LOOKUP_ERROR"
)

// Validation errors
var (
	ErrEmptyQuery          = NewDomainError(ErrCodeValidation, "query is required")
	ErrInvalidTopicPattern = NewDomainError(ErrCodeValidation, "topic pattern must start and end with '/'")
	ErrInvalidRole         = NewDomainError(ErrCodeValidation, "invalid role")
	ErrMissingRequired     = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrTopicNotFound    = NewDomainError(ErrCodeNotFound, "topic term not found")
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrAPIKeyNotFound   = NewDomainError(ErrCodeNotFound, "api key not found")
	ErrSyncJobNotFound  = NewDomainError(ErrCodeNotFound, "sync job not found")
)

// Already exists errors
var (
	ErrTopicAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "topic pattern already exists")
)

// Authorization errors
var (
	ErrAPIKeyRevoked = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
	ErrAccessDenied  = NewDomainError(ErrCodeForbidden, "access denied by chat policy")
)

// Pipeline errors
var (
	// ErrNotConfigured is returned before any outbound call when provider
	// credentials are missing. Maps to HTTP 503.
	ErrNotConfigured = NewDomainError(ErrCodeNotConfigured, "chat providers are not configured")
)

// NewEmbeddingError wraps an embedding provider failure.
func NewEmbeddingError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeEmbedding, message, err)
}

// NewRetrievalError wraps a vector index failure.
func NewRetrievalError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeRetrieval, message, err)
}

// NewGenerationError wraps a language model failure.
func NewGenerationError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeGeneration, message, err)
}

// NewTermsLookupError wraps a topic mapping lookup failure.
func NewTermsLookupError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeTermsLookup, "failed to load topic mapping", err)
}
