//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sie-engine/siechat/internal/domain"
	"github.com/sie-engine/siechat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDocument(title string) *domain.Document {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Document{
		ID:        uuid.NewString(),
		Title:     title,
		Body:      "Some body text.",
		URL:       "https://kb.example.com/" + uuid.NewString(),
		Topic:     "setup",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestDocumentRepository_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	doc := newDocument("Install Guide")
	require.NoError(t, repo.Upsert(ctx, doc))

	got, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Install Guide", got.Title)
	assert.Equal(t, doc.URL, got.URL)
	assert.Equal(t, "setup", got.Topic)
}

func TestDocumentRepository_Upsert_UpdatesExisting(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	doc := newDocument("First Title")
	require.NoError(t, repo.Upsert(ctx, doc))

	doc.Title = "Second Title"
	doc.Body = "Revised body."
	doc.UpdatedAt = doc.UpdatedAt.Add(time.Minute)
	require.NoError(t, repo.Upsert(ctx, doc))

	got, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Second Title", got.Title)
	assert.Equal(t, "Revised body.", got.Body)
	assert.Equal(t, doc.UpdatedAt, got.UpdatedAt)
}

func TestDocumentRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	_, err := repo.GetByID(ctx, "missing")
	assert.Equal(t, domain.ErrDocumentNotFound, err)
}

func TestDocumentRepository_Delete(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	doc := newDocument("To Delete")
	require.NoError(t, repo.Upsert(ctx, doc))
	require.NoError(t, repo.Delete(ctx, doc.ID))

	_, err := repo.GetByID(ctx, doc.ID)
	assert.Equal(t, domain.ErrDocumentNotFound, err)

	assert.Equal(t, domain.ErrDocumentNotFound, repo.Delete(ctx, doc.ID))
}

func TestDocumentRepository_Delete_CascadesJobsAndChunks(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	jobRepo := NewSyncJobRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	doc := newDocument("Parent")
	require.NoError(t, docRepo.Upsert(ctx, doc))

	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, jobRepo.Create(ctx, &domain.SyncJob{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Status:     domain.SyncJobPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}))
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, doc.ID, []domain.DocumentChunk{
		{DocumentID: doc.ID, ChunkIndex: 0, Section: "Introduction", Content: "Parent\n\nBody.", Embedding: testEmbedding(0.1)},
	}))

	require.NoError(t, docRepo.Delete(ctx, doc.ID))

	jobs, err := jobRepo.ListPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	count, err := chunkRepo.CountByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
