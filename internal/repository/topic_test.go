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

func newTerm(pattern string, topicID int) *domain.TopicTerm {
	return &domain.TopicTerm{
		ID:        uuid.NewString(),
		Pattern:   pattern,
		TopicID:   topicID,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestTopicTermRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewTopicTermRepository(pool)

	term := newTerm("/AI/Prompting/", 20)
	term.Name = "Prompting"
	require.NoError(t, repo.Create(ctx, term))

	got, err := repo.GetByID(ctx, term.ID)
	require.NoError(t, err)
	assert.Equal(t, term.Pattern, got.Pattern)
	assert.Equal(t, term.TopicID, got.TopicID)
	assert.Equal(t, "Prompting", got.Name)
}

func TestTopicTermRepository_Create_DuplicatePattern(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewTopicTermRepository(pool)

	require.NoError(t, repo.Create(ctx, newTerm("/docs/", 1)))
	err := repo.Create(ctx, newTerm("/docs/", 2))
	assert.Equal(t, domain.ErrTopicAlreadyExists, err)
}

func TestTopicTermRepository_List_OrderedLongestFirst(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewTopicTermRepository(pool)

	base := time.Now().UTC().Truncate(time.Microsecond)
	short := newTerm("/AI/", 10)
	short.CreatedAt = base
	long := newTerm("/AI/Prompting/Claude/", 30)
	long.CreatedAt = base.Add(time.Second)
	mid := newTerm("/AI/Prompting/", 20)
	mid.CreatedAt = base.Add(2 * time.Second)

	for _, term := range []*domain.TopicTerm{short, long, mid} {
		require.NoError(t, repo.Create(ctx, term))
	}

	terms, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, terms, 3)
	assert.Equal(t, "/AI/Prompting/Claude/", terms[0].Pattern)
	assert.Equal(t, "/AI/Prompting/", terms[1].Pattern)
	assert.Equal(t, "/AI/", terms[2].Pattern)
}

func TestTopicTermRepository_List_TiesByCreationOrder(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewTopicTermRepository(pool)

	base := time.Now().UTC().Truncate(time.Microsecond)
	first := newTerm("/aaa/", 1)
	first.CreatedAt = base
	second := newTerm("/zzz/", 2)
	second.CreatedAt = base.Add(time.Second)

	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, first))

	terms, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, terms, 2)
	assert.Equal(t, "/aaa/", terms[0].Pattern)
	assert.Equal(t, "/zzz/", terms[1].Pattern)
}

func TestTopicTermRepository_Delete(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewTopicTermRepository(pool)

	term := newTerm("/docs/", 1)
	require.NoError(t, repo.Create(ctx, term))
	require.NoError(t, repo.Delete(ctx, term.ID))

	_, err := repo.GetByID(ctx, term.ID)
	assert.Equal(t, domain.ErrTopicNotFound, err)

	assert.Equal(t, domain.ErrTopicNotFound, repo.Delete(ctx, term.ID))
}
