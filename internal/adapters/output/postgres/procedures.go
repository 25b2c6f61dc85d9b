package postgres

import (
	"context"

	"go.uber.org/zap"

	"microtask/internal/core/domain/entities"
	"microtask/internal/infrastructure/db"
)

// Procedures calls the backend's stored procedures by name. All transition
// logic and its atomicity live server-side; this adapter only relays.
type Procedures struct {
	db  db.Querier
	log *zap.Logger
}

func NewProcedures(db db.Querier, log *zap.Logger) *Procedures {
	if db == nil {
		log.Fatal("database querier is nil")
	}
	if log == nil {
		panic("logger is nil")
	}
	return &Procedures{
		db:  db,
		log: log,
	}
}

func (p *Procedures) AcceptTask(ctx context.Context, taskID, helperID string) error {
	return p.call(ctx, `SELECT accept_task($1, $2)`, taskID, helperID)
}

func (p *Procedures) StartTask(ctx context.Context, taskID string) error {
	return p.call(ctx, `SELECT start_task($1)`, taskID)
}

func (p *Procedures) CompleteTask(ctx context.Context, taskID string) error {
	return p.call(ctx, `SELECT complete_task($1)`, taskID)
}

func (p *Procedures) MarkTaskCompleted(ctx context.Context, taskID, helperID string) error {
	return p.call(ctx, `SELECT mark_task_completed($1, $2)`, taskID, helperID)
}

func (p *Procedures) AcceptApplication(ctx context.Context, applicationID string) error {
	return p.call(ctx, `SELECT accept_application($1)`, applicationID)
}

func (p *Procedures) ApproveTaskStart(ctx context.Context, requestID string) error {
	return p.call(ctx, `SELECT approve_task_start($1)`, requestID)
}

func (p *Procedures) RejectTaskStart(ctx context.Context, requestID string) error {
	return p.call(ctx, `SELECT reject_task_start($1)`, requestID)
}

func (p *Procedures) Increment(ctx context.Context, table, column, id string) error {
	return p.call(ctx, `SELECT increment($1, $2, $3)`, table, column, id)
}

// SearchTasksByDistance returns open tasks within radiusKm of the point,
// nearest first, ordering and haversine math done by the procedure.
func (p *Procedures) SearchTasksByDistance(ctx context.Context, lat, lng, radiusKm float64) ([]*entities.Task, error) {
	query := `SELECT id, author_id, title, description, status, reward, duration, latitude, longitude, helper_id, created_at, updated_at
		FROM search_tasks_by_distance($1, $2, $3)`

	rows, err := p.db.Query(ctx, query, lat, lng, radiusKm)
	if err != nil {
		p.log.Error("failed to search tasks by distance", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*entities.Task, 0)
	for rows.Next() {
		task := entities.Task{}
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
		); err != nil {
			p.log.Error("failed to scan distance search row", zap.Error(err))
			return nil, err
		}
		tasks = append(tasks, &task)
	}

	if err := rows.Err(); err != nil {
		p.log.Error("failed to iterate distance search rows", zap.Error(err))
		return nil, err
	}

	return tasks, nil
}

func (p *Procedures) call(ctx context.Context, query string, args ...any) error {
	if _, err := p.db.Exec(ctx, query, args...); err != nil {
		p.log.Warn("procedure call failed", zap.String("query", query), zap.Error(err))
		return err
	}
	return nil
}
