package postgres

import (
	"context"

	"go.uber.org/zap"

	"microtask/internal/core/domain/entities"
	"microtask/internal/infrastructure/db"
)

type ReviewRepository struct {
	db  db.Querier
	log *zap.Logger
}

func NewReviewRepository(db db.Querier, log *zap.Logger) *ReviewRepository {
	if db == nil {
		log.Fatal("database querier is nil")
	}
	if log == nil {
		panic("logger is nil")
	}
	return &ReviewRepository{
		db:  db,
		log: log,
	}
}

func (r *ReviewRepository) Create(ctx context.Context, review *entities.Review) error {
	query := `INSERT INTO reviews (task_id, reviewer_id, reviewee_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	if err := r.db.QueryRow(
		ctx,
		query,
		review.TaskID,
		review.ReviewerID,
		review.RevieweeID,
		review.Rating,
		review.Comment,
		review.CreatedAt,
	).Scan(&review.ID); err != nil {
		r.log.Error("failed to create review", zap.Error(err))
		return err
	}
	return nil
}

func (r *ReviewRepository) ListForUser(ctx context.Context, userID string) ([]*entities.Review, error) {
	query := `SELECT id, task_id, reviewer_id, reviewee_id, rating, comment, created_at
		FROM reviews WHERE reviewee_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.log.Error("failed to list reviews", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	reviews := make([]*entities.Review, 0)
	for rows.Next() {
		review := entities.Review{}
		if err := rows.Scan(
			&review.ID,
			&review.TaskID,
			&review.ReviewerID,
			&review.RevieweeID,
			&review.Rating,
			&review.Comment,
			&review.CreatedAt,
		); err != nil {
			r.log.Error("failed to scan review row", zap.Error(err))
			return nil, err
		}
		reviews = append(reviews, &review)
	}

	if err := rows.Err(); err != nil {
		r.log.Error("failed to iterate review rows", zap.Error(err))
		return nil, err
	}

	return reviews, nil
}
