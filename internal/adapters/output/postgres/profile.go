package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"microtask/internal/core/domain/entities"
	"microtask/internal/core/domain/exceptions"
	"microtask/internal/infrastructure/db"
)

type ProfileRepository struct {
	db  db.Querier
	log *zap.Logger
}

func NewProfileRepository(db db.Querier, log *zap.Logger) *ProfileRepository {
	if db == nil {
		log.Fatal("database querier is nil")
	}
	if log == nil {
		panic("logger is nil")
	}
	return &ProfileRepository{
		db:  db,
		log: log,
	}
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*entities.Profile, error) {
	query := `SELECT id, name, phone, avatar_url, is_verified, rating, rating_count, address_line, city, created_at
		FROM profiles WHERE id = $1`

	profile := entities.Profile{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&profile.ID,
		&profile.Name,
		&profile.Phone,
		&profile.AvatarURL,
		&profile.IsVerified,
		&profile.Rating,
		&profile.RatingCount,
		&profile.AddressLine,
		&profile.City,
		&profile.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, exceptions.ErrProfileNotFound
		}
		r.log.Error("failed to get profile", zap.Error(err))
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepository) Create(ctx context.Context, profile *entities.Profile) error {
	query := `INSERT INTO profiles (id, name, phone, avatar_url, is_verified, rating, rating_count, address_line, city, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`

	if _, err := r.db.Exec(
		ctx,
		query,
		profile.ID,
		profile.Name,
		profile.Phone,
		profile.AvatarURL,
		profile.IsVerified,
		profile.Rating,
		profile.RatingCount,
		profile.AddressLine,
		profile.City,
		profile.CreatedAt,
	); err != nil {
		r.log.Error("failed to create profile", zap.Error(err))
		return err
	}
	return nil
}

func (r *ProfileRepository) Update(ctx context.Context, profile *entities.Profile) error {
	query := `UPDATE profiles
		SET name = $2, phone = $3, avatar_url = $4, address_line = $5, city = $6
		WHERE id = $1`

	tag, err := r.db.Exec(
		ctx,
		query,
		profile.ID,
		profile.Name,
		profile.Phone,
		profile.AvatarURL,
		profile.AddressLine,
		profile.City,
	)
	if err != nil {
		r.log.Error("failed to update profile", zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return exceptions.ErrProfileNotFound
	}
	return nil
}
