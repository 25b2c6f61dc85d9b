package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"microtask/internal/core/domain/entities"
	"microtask/internal/core/domain/exceptions"
	"microtask/internal/core/ports"
)

// Messages handles the per-task chat: sending, listing, and unread counts
// derived from the locally stored last-visit timestamps.
type Messages struct {
	userID   string
	messages ports.MessageRepository
	visits   ports.VisitStore
	now      func() time.Time
	log      *zap.Logger
}

func NewMessages(userID string, messages ports.MessageRepository, visits ports.VisitStore, log *zap.Logger) (*Messages, error) {
	if userID == "" {
		return nil, errors.New("user id is empty")
	}
	if messages == nil {
		return nil, errors.New("message repository is nil")
	}
	if visits == nil {
		return nil, errors.New("visit store is nil")
	}
	if log == nil {
		return nil, errors.New("logger is nil")
	}
	return &Messages{
		userID:   userID,
		messages: messages,
		visits:   visits,
		now:      time.Now,
		log:      log,
	}, nil
}

func (m *Messages) Send(ctx context.Context, taskID, content string) (*entities.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: message body", exceptions.ErrEmptyContent)
	}
	msg := &entities.Message{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		SenderID:  m.userID,
		Content:   content,
		CreatedAt: m.now(),
	}
	if err := m.messages.Create(ctx, msg); err != nil {
		m.log.Warn("usecase: send message failed", zap.String("task_id", taskID), zap.Error(err))
		return nil, err
	}
	return msg, nil
}

func (m *Messages) ForTask(ctx context.Context, taskID string) ([]*entities.Message, error) {
	return m.messages.ListByTask(ctx, taskID)
}

// UnreadCount counts messages from the counterparty since the user last
// opened the task's conversation. A task never visited counts everything.
func (m *Messages) UnreadCount(ctx context.Context, taskID string) (int, error) {
	since, _ := m.visits.LastVisit(taskID)
	return m.messages.CountSince(ctx, taskID, m.userID, since)
}

// Visit records that the user opened the conversation now.
func (m *Messages) Visit(taskID string) error {
	return m.visits.Visit(taskID, m.now())
}
