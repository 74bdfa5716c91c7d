package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sie-engine/siechat/internal/domain"
)

// DocumentRepository defines the repository interface for documents.
type DocumentRepository interface {
	Upsert(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	Delete(ctx context.Context, id string) error
}

// SyncJobRepository defines the repository interface for sync jobs.
type SyncJobRepository interface {
	Create(ctx context.Context, job *domain.SyncJob) error
	ListPending(ctx context.Context, limit int) ([]*domain.SyncJob, error)
	MarkCompleted(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, errMsg string) error
}

// ChunkRepository mirrors embedded chunks into Postgres.
type ChunkRepository interface {
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error
	CountByDocument(ctx context.Context, documentID string) (int, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

// VectorRecord is one embedded record bound for the vector index.
type VectorRecord struct {
	ID       string
	Values   []float32
	Metadata map[string]string
}

// VectorWriter pushes vectors into and out of the index.
type VectorWriter interface {
	Upsert(ctx context.Context, records []VectorRecord) error
	DeleteVectors(ctx context.Context, ids []string) error
}

// SyncService ingests knowledge documents: it queues them on push and, from
// the background worker, chunks, embeds, and upserts them into the vector
// index, mirroring chunks into Postgres.
type SyncService struct {
	docRepo   DocumentRepository
	jobRepo   SyncJobRepository
	chunkRepo ChunkRepository
	embedder  Embedder
	vectors   VectorWriter
	uuidGen   UUIDGenerator
}

// NewSyncService creates a new SyncService instance.
func NewSyncService(
	docRepo DocumentRepository,
	jobRepo SyncJobRepository,
	chunkRepo ChunkRepository,
	embedder Embedder,
	vectors VectorWriter,
	uuidGen UUIDGenerator,
) *SyncService {
	return &SyncService{
		docRepo:   docRepo,
		jobRepo:   jobRepo,
		chunkRepo: chunkRepo,
		embedder:  embedder,
		vectors:   vectors,
		uuidGen:   uuidGen,
	}
}

// Enqueue stores a document and queues it for indexing. Returns the stored
// document; ID is generated when absent so re-pushes can reference it.
func (s *SyncService) Enqueue(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
	if doc == nil {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "document cannot be nil")
	}
	now := time.Now().UTC()
	if doc.ID == "" {
		doc.ID = s.uuidGen.NewString()
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	if err := domain.ValidateDocument(doc); err != nil {
		return nil, err
	}

	if err := s.docRepo.Upsert(ctx, doc); err != nil {
		return nil, err
	}

	job := &domain.SyncJob{
		ID:         s.uuidGen.NewString(),
		DocumentID: doc.ID,
		Status:     domain.SyncJobPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	return doc, nil
}

// Remove deletes a document's vectors from the index and its rows from
// Postgres.
func (s *SyncService) Remove(ctx context.Context, documentID string) error {
	if documentID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "document ID is required")
	}

	count, err := s.chunkRepo.CountByDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if count > 0 {
		ids := make([]string, count)
		for i := range ids {
			ids[i] = chunkVectorID(documentID, i)
		}
		if err := s.vectors.DeleteVectors(ctx, ids); err != nil {
			return err
		}
	}

	if err := s.chunkRepo.DeleteByDocument(ctx, documentID); err != nil {
		return err
	}
	return s.docRepo.Delete(ctx, documentID)
}

// ProcessJobs drains pending sync jobs. Implements jobs.JobProcessor; called
// by the background worker on each tick. Per-job failures are recorded on
// the job and do not stop the batch.
func (s *SyncService) ProcessJobs(ctx context.Context) error {
	jobs, err := s.jobRepo.ListPending(ctx, 10)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		if err := s.processJob(ctx, job); err != nil {
			log.Printf("sync job %s failed: %v", job.ID, err)
			if markErr := s.jobRepo.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
				return markErr
			}
			continue
		}
		if err := s.jobRepo.MarkCompleted(ctx, job.ID); err != nil {
			return err
		}
	}

	return nil
}

func (s *SyncService) processJob(ctx context.Context, job *domain.SyncJob) error {
	doc, err := s.docRepo.GetByID(ctx, job.DocumentID)
	if err != nil {
		return err
	}

	pieces := chunkDocument(doc.Title, doc.Body)

	// Stale vectors from a longer previous revision must go before the
	// shorter replacement is written.
	prevCount, err := s.chunkRepo.CountByDocument(ctx, doc.ID)
	if err != nil {
		return err
	}
	if prevCount > len(pieces) {
		stale := make([]string, 0, prevCount-len(pieces))
		for i := len(pieces); i < prevCount; i++ {
			stale = append(stale, chunkVectorID(doc.ID, i))
		}
		if err := s.vectors.DeleteVectors(ctx, stale); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	records := make([]VectorRecord, 0, len(pieces))
	mirror := make([]domain.DocumentChunk, 0, len(pieces))
	for _, piece := range pieces {
		embedding, err := s.embedder.Embed(ctx, piece.Content)
		if err != nil {
			return err
		}

		records = append(records, VectorRecord{
			ID:     chunkVectorID(doc.ID, piece.Index),
			Values: embedding,
			Metadata: map[string]string{
				"title": doc.Title,
				"text":  piece.RawText,
				"url":   doc.URL,
				"topic": doc.Topic,
			},
		})
		mirror = append(mirror, domain.DocumentChunk{
			DocumentID: doc.ID,
			ChunkIndex: piece.Index,
			Section:    piece.Section,
			Content:    piece.RawText,
			Embedding:  embedding,
			CreatedAt:  now,
		})
	}

	if err := s.vectors.Upsert(ctx, records); err != nil {
		return err
	}

	return s.chunkRepo.ReplaceChunks(ctx, doc.ID, mirror)
}

func chunkVectorID(documentID string, index int) string {
	return fmt.Sprintf("%s-%d", documentID, index)
}
