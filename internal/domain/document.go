package domain

import (
	"strings"
	"time"
)

// Document is a knowledge-base article pushed by a sync client. It is the
// unit of ingestion; the sync worker splits it into chunks before embedding.
type Document struct {
	ID        string
	Title     string
	Body      string
	URL       string
	Topic     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateDocument validates a Document instance.
func ValidateDocument(d *Document) error {
	if d == nil {
		return NewDomainError(ErrCodeValidation, "document cannot be nil")
	}
	if d.ID == "" {
		return NewDomainError(ErrCodeValidation, "document ID is required")
	}
	if strings.TrimSpace(d.Title) == "" {
		return NewDomainError(ErrCodeValidation, "document title is required")
	}
	if strings.TrimSpace(d.Body) == "" {
		return NewDomainError(ErrCodeValidation, "document body is required")
	}
	return nil
}

// SyncJobStatus tracks a document through the ingestion worker.
type SyncJobStatus string

const (
	SyncJobPending   SyncJobStatus = "pending"
	SyncJobCompleted SyncJobStatus = "completed"
	SyncJobFailed    SyncJobStatus = "failed"
)

// SyncJob is a queued request to (re)index one document into the vector
// store. Jobs are processed by the background worker, one at a time.
type SyncJob struct {
	ID         string
	DocumentID string
	Status     SyncJobStatus
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DocumentChunk is one embedded slice of a document, mirrored into Postgres
// alongside the vector pushed to the index so chunks can be inspected and
// re-embedded without refetching the source.
type DocumentChunk struct {
	DocumentID string
	ChunkIndex int
	Section    string
	Content    string
	Embedding  []float32
	CreatedAt  time.Time
}
