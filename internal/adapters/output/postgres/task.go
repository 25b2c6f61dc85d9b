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

type TaskRepository struct {
	db  db.Querier
	log *zap.Logger
}

func NewTaskRepository(db db.Querier, log *zap.Logger) *TaskRepository {
	if db == nil {
		log.Fatal("database querier is nil")
	}
	if log == nil {
		panic("logger is nil")
	}
	return &TaskRepository{
		db:  db,
		log: log,
	}
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*entities.Task, error) {
	query := `SELECT id, author_id, title, description, status, reward, duration, latitude, longitude, helper_id, created_at, updated_at
		FROM tasks WHERE id = $1`

	task := entities.Task{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&task.ID,
		&task.AuthorID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Reward,
		&task.Duration,
		&task.Latitude,
		&task.Longitude,
		&task.HelperID,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, exceptions.ErrTaskNotFound
		}
		r.log.Error("failed to get task", zap.Error(err))
		return nil, err
	}
	return &task, nil
}

// ListOpen returns open tasks newest first with the author profile embedded,
// so the feed needs a single round trip.
func (r *TaskRepository) ListOpen(ctx context.Context) ([]*entities.Task, error) {
	query := `SELECT t.id, t.author_id, t.title, t.description, t.status, t.reward, t.duration,
			t.latitude, t.longitude, t.helper_id, t.created_at, t.updated_at,
			p.name, p.avatar_url, p.is_verified, p.rating, p.rating_count
		FROM tasks t
		JOIN profiles p ON p.id = t.author_id
		WHERE t.status = 'open'
		ORDER BY t.created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.Error("failed to list open tasks", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*entities.Task, 0)
	for rows.Next() {
		task := entities.Task{}
		author := entities.Profile{}
		if err := rows.Scan(
			&task.ID,
			&task.AuthorID,
			&task.Title,
			&task.Description,
			&task.Status,
			&task.Reward,
			&task.Duration,
			&task.Latitude,
			&task.Longitude,
			&task.HelperID,
			&task.CreatedAt,
			&task.UpdatedAt,
			&author.Name,
			&author.AvatarURL,
			&author.IsVerified,
			&author.Rating,
			&author.RatingCount,
		); err != nil {
			r.log.Error("failed to scan task row", zap.Error(err))
			return nil, err
		}
		author.ID = task.AuthorID
		task.Author = &author
		tasks = append(tasks, &task)
	}

	if err := rows.Err(); err != nil {
		r.log.Error("failed to iterate task rows", zap.Error(err))
		return nil, err
	}

	return tasks, nil
}

func (r *TaskRepository) Create(ctx context.Context, task *entities.Task) error {
	query := `INSERT INTO tasks (author_id, title, description, status, reward, duration, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	if err := r.db.QueryRow(
		ctx,
		query,
		task.AuthorID,
		task.Title,
		task.Description,
		task.Status,
		task.Reward,
		task.Duration,
		task.Latitude,
		task.Longitude,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt); err != nil {
		r.log.Error("failed to create task", zap.Error(err))
		return err
	}
	return nil
}

func (r *TaskRepository) Cancel(ctx context.Context, taskID string) error {
	query := `UPDATE tasks SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status = 'open'`

	tag, err := r.db.Exec(ctx, query, taskID)
	if err != nil {
		r.log.Error("failed to cancel task", zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return exceptions.ErrTaskNotFound
	}
	return nil
}

// ListHistory reads the task_history view: closed tasks seen from the
// user's side, with the counterparty resolved server-side.
func (r *TaskRepository) ListHistory(ctx context.Context, userID string) ([]*entities.HistoryEntry, error) {
	query := `SELECT task_id, title, status, role, counterparty_name, closed_at
		FROM task_history WHERE user_id = $1 ORDER BY closed_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.log.Error("failed to list task history", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	entries := make([]*entities.HistoryEntry, 0)
	for rows.Next() {
		entry := entities.HistoryEntry{}
		if err := rows.Scan(
			&entry.TaskID,
			&entry.Title,
			&entry.Status,
			&entry.Role,
			&entry.CounterpartyName,
			&entry.ClosedAt,
		); err != nil {
			r.log.Error("failed to scan history row", zap.Error(err))
			return nil, err
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		r.log.Error("failed to iterate history rows", zap.Error(err))
		return nil, err
	}

	return entries, nil
}
