package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sie-engine/siechat/internal/domain"
)

type TopicTermRepository struct {
	pool *pgxpool.Pool
}

func NewTopicTermRepository(pool *pgxpool.Pool) *TopicTermRepository {
	return &TopicTermRepository{pool: pool}
}

func (r *TopicTermRepository) Create(ctx context.Context, term *domain.TopicTerm) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO topic_terms (id, pattern, topic_id, name, created_at) VALUES ($1, $2, $3, $4, $5)`,
		term.ID, term.Pattern, term.TopicID, term.Name, term.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrTopicAlreadyExists
		}
		return err
	}
	return nil
}

// List returns all terms with a non-empty pattern. Length-descending with a
// stable tie order (creation order), so the mapping endpoint's output is
// reproducible for unchanged input.
func (r *TopicTermRepository) List(ctx context.Context) ([]*domain.TopicTerm, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, pattern, topic_id, name, created_at
		 FROM topic_terms
		 WHERE pattern <> ''
		 ORDER BY length(pattern) DESC, created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var terms []*domain.TopicTerm
	for rows.Next() {
		var t domain.TopicTerm
		if err := rows.Scan(&t.ID, &t.Pattern, &t.TopicID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		terms = append(terms, &t)
	}
	return terms, rows.Err()
}

func (r *TopicTermRepository) GetByID(ctx context.Context, id string) (*domain.TopicTerm, error) {
	var t domain.TopicTerm
	err := r.pool.QueryRow(ctx,
		`SELECT id, pattern, topic_id, name, created_at FROM topic_terms WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Pattern, &t.TopicID, &t.Name, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTopicNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TopicTermRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM topic_terms WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrTopicNotFound
	}
	return nil
}
