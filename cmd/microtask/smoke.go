package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"microtask/internal/adapters/output/postgres"
	"microtask/internal/core/domain/entities"
	"microtask/internal/core/domain/exceptions"
	"microtask/internal/infrastructure/db"
)

func runRepoSmokeTest(ctx context.Context, log *zap.Logger, q db.Querier) {
	profileRepo := postgres.NewProfileRepository(q, log)
	taskRepo := postgres.NewTaskRepository(q, log)
	messageRepo := postgres.NewMessageRepository(q, log)
	applicationRepo := postgres.NewApplicationRepository(q, log)

	authorID := uuid.NewString()
	helperID := uuid.NewString()

	log.Info("smoke test: creating profiles")
	author := entities.NewDefaultProfile(authorID, time.Now())
	author.Name = fmt.Sprintf("smoke-author-%d", time.Now().UnixNano())
	if err := profileRepo.Create(ctx, author); err != nil {
		log.Error("smoke test: failed to create author profile", zap.Error(err))
		return
	}
	defer cleanupSmokeProfile(ctx, log, q, authorID)

	helper := entities.NewDefaultProfile(helperID, time.Now())
	if err := profileRepo.Create(ctx, helper); err != nil {
		log.Error("smoke test: failed to create helper profile", zap.Error(err))
		return
	}
	defer cleanupSmokeProfile(ctx, log, q, helperID)

	log.Info("smoke test: fetching missing profile")
	if _, err := profileRepo.GetByID(ctx, uuid.NewString()); !errors.Is(err, exceptions.ErrProfileNotFound) {
		log.Error("smoke test: expected profile not found", zap.Error(err))
		return
	}

	log.Info("smoke test: creating task")
	task := &entities.Task{
		AuthorID:    authorID,
		Title:       "Smoke Test Task",
		Description: "Temporary task for repository smoke test",
		Status:      entities.TaskStatusOpen,
		Reward:      10,
		Duration:    "1h",
	}
	if err := taskRepo.Create(ctx, task); err != nil {
		log.Error("smoke test: failed to create task", zap.Error(err))
		return
	}
	log.Info("smoke test: task created", zap.String("task_id", task.ID))
	defer cleanupSmokeTask(ctx, log, q, task.ID)

	log.Info("smoke test: listing open tasks")
	tasks, err := taskRepo.ListOpen(ctx)
	if err != nil {
		log.Error("smoke test: failed to list tasks", zap.Error(err))
		return
	}
	if len(tasks) == 0 {
		log.Error("smoke test: open tasks list is empty")
		return
	}

	log.Info("smoke test: getting task by id", zap.String("task_id", task.ID))
	if _, err := taskRepo.GetByID(ctx, task.ID); err != nil {
		log.Error("smoke test: failed to get task", zap.Error(err))
		return
	}

	log.Info("smoke test: applying to task")
	application := &entities.Application{
		TaskID:      task.ID,
		ApplicantID: helperID,
		Message:     "I can help with this",
		Status:      entities.ApplicationPending,
	}
	if err := applicationRepo.Create(ctx, application); err != nil {
		log.Error("smoke test: failed to create application", zap.Error(err))
		return
	}
	applications, err := applicationRepo.ListByTask(ctx, task.ID)
	if err != nil || len(applications) == 0 {
		log.Error("smoke test: failed to list applications", zap.Error(err))
		return
	}

	log.Info("smoke test: sending message")
	before := time.Now().Add(-time.Second)
	message := &entities.Message{
		ID:        uuid.NewString(),
		TaskID:    task.ID,
		SenderID:  helperID,
		Content:   "Is this still available?",
		CreatedAt: time.Now(),
	}
	if err := messageRepo.Create(ctx, message); err != nil {
		log.Error("smoke test: failed to create message", zap.Error(err))
		return
	}

	count, err := messageRepo.CountSince(ctx, task.ID, authorID, before)
	if err != nil {
		log.Error("smoke test: failed to count messages", zap.Error(err))
		return
	}
	if count != 1 {
		log.Error("smoke test: unexpected unread count", zap.Int("count", count))
		return
	}

	log.Info("smoke test: cancelling task", zap.String("task_id", task.ID))
	if err := taskRepo.Cancel(ctx, task.ID); err != nil {
		log.Error("smoke test: failed to cancel task", zap.Error(err))
		return
	}
	log.Info("smoke test: done")
}

func cleanupSmokeTask(ctx context.Context, log *zap.Logger, q db.Querier, id string) {
	if id == "" {
		return
	}
	if _, err := q.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id); err != nil {
		log.Error("smoke test: failed to cleanup task", zap.Error(err))
	}
}

func cleanupSmokeProfile(ctx context.Context, log *zap.Logger, q db.Querier, id string) {
	if _, err := q.Exec(ctx, "DELETE FROM profiles WHERE id = $1", id); err != nil {
		log.Error("smoke test: failed to cleanup profile", zap.Error(err))
	}
}
