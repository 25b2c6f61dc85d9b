package ports

import (
	"context"
	"time"

	"microtask/internal/core/domain/entities"
)

type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*entities.Profile, error)
	Create(ctx context.Context, profile *entities.Profile) error
	Update(ctx context.Context, profile *entities.Profile) error
}

type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*entities.Task, error)
	// ListOpen returns open tasks newest first with the author profile
	// embedded.
	ListOpen(ctx context.Context) ([]*entities.Task, error)
	Create(ctx context.Context, task *entities.Task) error
	Cancel(ctx context.Context, taskID string) error
	ListHistory(ctx context.Context, userID string) ([]*entities.HistoryEntry, error)
}

type MessageRepository interface {
	Create(ctx context.Context, message *entities.Message) error
	ListByTask(ctx context.Context, taskID string) ([]*entities.Message, error)
	// CountSince counts messages on a task newer than since, excluding
	// those authored by excludeSender.
	CountSince(ctx context.Context, taskID, excludeSender string, since time.Time) (int, error)
	// ListRecentUnread returns the newest unread messages addressed to the
	// user across all tasks they participate in, newest first.
	ListRecentUnread(ctx context.Context, userID string, limit int) ([]*entities.Message, error)
}

type ApplicationRepository interface {
	Create(ctx context.Context, application *entities.Application) error
	ListByTask(ctx context.Context, taskID string) ([]*entities.Application, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, review *entities.Review) error
	ListForUser(ctx context.Context, userID string) ([]*entities.Review, error)
}
