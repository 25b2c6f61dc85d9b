package postgres

import (
	"context"

	"go.uber.org/zap"

	"microtask/internal/core/domain/entities"
	"microtask/internal/infrastructure/db"
)

type ApplicationRepository struct {
	db  db.Querier
	log *zap.Logger
}

func NewApplicationRepository(db db.Querier, log *zap.Logger) *ApplicationRepository {
	if db == nil {
		log.Fatal("database querier is nil")
	}
	if log == nil {
		panic("logger is nil")
	}
	return &ApplicationRepository{
		db:  db,
		log: log,
	}
}

func (r *ApplicationRepository) Create(ctx context.Context, application *entities.Application) error {
	query := `INSERT INTO task_applications (task_id, applicant_id, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	if err := r.db.QueryRow(
		ctx,
		query,
		application.TaskID,
		application.ApplicantID,
		application.Message,
		application.Status,
		application.CreatedAt,
	).Scan(&application.ID); err != nil {
		r.log.Error("failed to create application", zap.Error(err))
		return err
	}
	return nil
}

func (r *ApplicationRepository) ListByTask(ctx context.Context, taskID string) ([]*entities.Application, error) {
	query := `SELECT id, task_id, applicant_id, message, status, created_at
		FROM task_applications WHERE task_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, taskID)
	if err != nil {
		r.log.Error("failed to list applications", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	applications := make([]*entities.Application, 0)
	for rows.Next() {
		application := entities.Application{}
		if err := rows.Scan(
			&application.ID,
			&application.TaskID,
			&application.ApplicantID,
			&application.Message,
			&application.Status,
			&application.CreatedAt,
		); err != nil {
			r.log.Error("failed to scan application row", zap.Error(err))
			return nil, err
		}
		applications = append(applications, &application)
	}

	if err := rows.Err(); err != nil {
		r.log.Error("failed to iterate application rows", zap.Error(err))
		return nil, err
	}

	return applications, nil
}
