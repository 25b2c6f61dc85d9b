package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"microtask/internal/core/domain/entities"
	"microtask/internal/core/domain/exceptions"
	"microtask/internal/core/ports"
)

// Lifecycle is the typed front over the backend's opaque task procedures,
// plus the client-issued writes around them (posting, applying, reviewing).
// It never re-implements transition rules; a transition the backend rejects
// surfaces as the procedure's error.
type Lifecycle struct {
	tasks        ports.TaskRepository
	applications ports.ApplicationRepository
	reviews      ports.ReviewRepository
	procs        ports.Procedures
	now          func() time.Time
	log          *zap.Logger
}

func NewLifecycle(
	tasks ports.TaskRepository,
	applications ports.ApplicationRepository,
	reviews ports.ReviewRepository,
	procs ports.Procedures,
	log *zap.Logger,
) (*Lifecycle, error) {
	if tasks == nil || applications == nil || reviews == nil {
		return nil, errors.New("repository is nil")
	}
	if procs == nil {
		return nil, errors.New("procedures are nil")
	}
	if log == nil {
		return nil, errors.New("logger is nil")
	}
	return &Lifecycle{
		tasks:        tasks,
		applications: applications,
		reviews:      reviews,
		procs:        procs,
		now:          time.Now,
		log:          log,
	}, nil
}

type TaskDraft struct {
	Title       string
	Description string
	Reward      float64
	Duration    string
	Latitude    float64
	Longitude   float64
}

// Post validates the draft locally and inserts the task. Validation happens
// before any remote call.
func (l *Lifecycle) Post(ctx context.Context, authorID string, draft TaskDraft) (*entities.Task, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return nil, fmt.Errorf("%w: title is empty", exceptions.ErrEmptyContent)
	}
	if draft.Reward < 0 {
		return nil, fmt.Errorf("reward must not be negative")
	}
	if draft.Duration != "" {
		if _, err := time.ParseDuration(draft.Duration); err != nil {
			return nil, fmt.Errorf("%w: %q", exceptions.ErrInvalidDuration, draft.Duration)
		}
	}

	task := &entities.Task{
		AuthorID:    authorID,
		Title:       strings.TrimSpace(draft.Title),
		Description: draft.Description,
		Status:      entities.TaskStatusOpen,
		Reward:      draft.Reward,
		Duration:    draft.Duration,
		Latitude:    draft.Latitude,
		Longitude:   draft.Longitude,
		CreatedAt:   l.now(),
	}
	if err := l.tasks.Create(ctx, task); err != nil {
		l.log.Warn("usecase: post task failed", zap.Error(err))
		return nil, err
	}
	l.log.Info("usecase: task posted", zap.String("task_id", task.ID))
	return task, nil
}

func (l *Lifecycle) Accept(ctx context.Context, taskID, helperID string) error {
	l.log.Info("usecase: accept task", zap.String("task_id", taskID), zap.String("helper_id", helperID))
	return l.procs.AcceptTask(ctx, taskID, helperID)
}

func (l *Lifecycle) Start(ctx context.Context, taskID string) error {
	l.log.Info("usecase: start task", zap.String("task_id", taskID))
	return l.procs.StartTask(ctx, taskID)
}

func (l *Lifecycle) Complete(ctx context.Context, taskID string) error {
	l.log.Info("usecase: complete task", zap.String("task_id", taskID))
	return l.procs.CompleteTask(ctx, taskID)
}

func (l *Lifecycle) MarkCompleted(ctx context.Context, taskID, helperID string) error {
	l.log.Info("usecase: mark task completed", zap.String("task_id", taskID))
	return l.procs.MarkTaskCompleted(ctx, taskID, helperID)
}

func (l *Lifecycle) ApproveStart(ctx context.Context, requestID string) error {
	l.log.Info("usecase: approve task start", zap.String("request_id", requestID))
	return l.procs.ApproveTaskStart(ctx, requestID)
}

func (l *Lifecycle) RejectStart(ctx context.Context, requestID string) error {
	l.log.Info("usecase: reject task start", zap.String("request_id", requestID))
	return l.procs.RejectTaskStart(ctx, requestID)
}

func (l *Lifecycle) Cancel(ctx context.Context, taskID string) error {
	l.log.Info("usecase: cancel task", zap.String("task_id", taskID))
	return l.tasks.Cancel(ctx, taskID)
}

func (l *Lifecycle) Apply(ctx context.Context, taskID, applicantID, message string) (*entities.Application, error) {
	app := &entities.Application{
		TaskID:      taskID,
		ApplicantID: applicantID,
		Message:     message,
		Status:      entities.ApplicationPending,
		CreatedAt:   l.now(),
	}
	if err := l.applications.Create(ctx, app); err != nil {
		l.log.Warn("usecase: apply failed", zap.String("task_id", taskID), zap.Error(err))
		return nil, err
	}
	l.log.Info("usecase: applied", zap.String("task_id", taskID), zap.String("application_id", app.ID))
	return app, nil
}

func (l *Lifecycle) AcceptApplication(ctx context.Context, applicationID string) error {
	l.log.Info("usecase: accept application", zap.String("application_id", applicationID))
	return l.procs.AcceptApplication(ctx, applicationID)
}

func (l *Lifecycle) Applications(ctx context.Context, taskID string) ([]*entities.Application, error) {
	return l.applications.ListByTask(ctx, taskID)
}

func (l *Lifecycle) History(ctx context.Context, userID string) ([]*entities.HistoryEntry, error) {
	return l.tasks.ListHistory(ctx, userID)
}

func (l *Lifecycle) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]*entities.Task, error) {
	return l.procs.SearchTasksByDistance(ctx, lat, lng, radiusKm)
}

// SubmitReview stores the review and bumps the reviewee's rating count
// through the server-side counter procedure.
func (l *Lifecycle) SubmitReview(ctx context.Context, review *entities.Review) error {
	if review.Rating < 1 || review.Rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5")
	}
	review.CreatedAt = l.now()
	if err := l.reviews.Create(ctx, review); err != nil {
		l.log.Warn("usecase: submit review failed", zap.Error(err))
		return err
	}
	if err := l.procs.Increment(ctx, "profiles", "rating_count", review.RevieweeID); err != nil {
		l.log.Warn("usecase: rating count increment failed", zap.String("user_id", review.RevieweeID), zap.Error(err))
		return err
	}
	l.log.Info("usecase: review submitted", zap.String("task_id", review.TaskID))
	return nil
}
