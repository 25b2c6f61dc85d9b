package ports

import (
	"context"

	"microtask/internal/core/domain/entities"
)

// Procedures is the contract over the backend's opaque stored procedures.
// The transition logic (who may move a task to which status, atomicity of
// accept/assign) lives entirely server-side; the client only calls by name
// and surfaces the result. A rejected transition comes back as an error.
type Procedures interface {
	AcceptTask(ctx context.Context, taskID, helperID string) error
	StartTask(ctx context.Context, taskID string) error
	CompleteTask(ctx context.Context, taskID string) error
	MarkTaskCompleted(ctx context.Context, taskID, helperID string) error
	AcceptApplication(ctx context.Context, applicationID string) error
	ApproveTaskStart(ctx context.Context, requestID string) error
	RejectTaskStart(ctx context.Context, requestID string) error
	SearchTasksByDistance(ctx context.Context, lat, lng, radiusKm float64) ([]*entities.Task, error)
	// Increment bumps a counter column on a row, server-side and atomic.
	Increment(ctx context.Context, table, column, id string) error
}
