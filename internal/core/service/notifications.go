package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"microtask/internal/core/domain/entities"
	"microtask/internal/core/ports"
)

const backfillLimit = 10

// Notifications aggregates realtime activity on the signed-in user's tasks
// into two session-scoped lists: message notifications and task-status
// updates. It is independent of the feed cache and never persists anything.
type Notifications struct {
	userID   string
	tasks    ports.TaskRepository
	profiles ports.ProfileRepository
	messages ports.MessageRepository
	realtime ports.Realtime
	alerts   ports.AlertSink
	alertsOn bool

	now func() time.Time

	mu      sync.Mutex
	list    []*entities.Notification
	updates []*entities.TaskUpdate
	unread  int
	subs    []ports.Subscription

	log *zap.Logger
}

func NewNotifications(
	userID string,
	tasks ports.TaskRepository,
	profiles ports.ProfileRepository,
	messages ports.MessageRepository,
	realtime ports.Realtime,
	alerts ports.AlertSink,
	alertsOn bool,
	log *zap.Logger,
) (*Notifications, error) {
	if userID == "" {
		return nil, errors.New("user id is empty")
	}
	if tasks == nil || profiles == nil || messages == nil {
		return nil, errors.New("repository is nil")
	}
	if realtime == nil {
		return nil, errors.New("realtime source is nil")
	}
	if log == nil {
		return nil, errors.New("logger is nil")
	}
	return &Notifications{
		userID:   userID,
		tasks:    tasks,
		profiles: profiles,
		messages: messages,
		realtime: realtime,
		alerts:   alerts,
		alertsOn: alertsOn && alerts != nil,
		now:      time.Now,
		log:      log,
	}, nil
}

// Start backfills recent unread messages and subscribes to the change
// feeds. A backfill failure is logged, not fatal: the lists just start
// empty.
func (n *Notifications) Start(ctx context.Context) {
	if err := n.backfill(ctx); err != nil {
		n.log.Warn("sync: notification backfill failed", zap.Error(err))
	}
	n.subs = append(n.subs,
		n.realtime.SubscribeMessages(n.handleMessage),
		n.realtime.SubscribeTasks(n.handleTask),
	)
}

func (n *Notifications) Close() {
	for _, sub := range n.subs {
		sub.Unsubscribe()
	}
	n.subs = nil
}

func (n *Notifications) List() []*entities.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*entities.Notification, len(n.list))
	copy(out, n.list)
	return out
}

func (n *Notifications) Updates() []*entities.TaskUpdate {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*entities.TaskUpdate, len(n.updates))
	copy(out, n.updates)
	return out
}

func (n *Notifications) Unread() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.unread
}

func (n *Notifications) MarkRead(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, notif := range n.list {
		if notif.ID == id && !notif.Read {
			notif.Read = true
			if n.unread > 0 {
				n.unread--
			}
			return
		}
	}
}

// MarkAllRead flags every notification read and zeroes the unread counter
// unconditionally.
func (n *Notifications) MarkAllRead() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, notif := range n.list {
		notif.Read = true
	}
	n.unread = 0
}

func (n *Notifications) Remove(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	i := slices.IndexFunc(n.list, func(notif *entities.Notification) bool { return notif.ID == id })
	if i < 0 {
		return
	}
	if !n.list[i].Read && n.unread > 0 {
		n.unread--
	}
	n.list = slices.Delete(n.list, i, i+1)
}

func (n *Notifications) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = nil
	n.unread = 0
}

// handleMessage folds a realtime message insert into the notification list.
// Self-authored messages never notify. Lookup failures are logged and the
// event dropped; the subscription survives.
func (n *Notifications) handleMessage(ch entities.MessageChange) {
	if ch.Op != entities.ChangeInsert || ch.Message == nil {
		return
	}
	msg := ch.Message
	if msg.SenderID == n.userID {
		return
	}

	ctx := context.Background()
	task, err := n.tasks.GetByID(ctx, msg.TaskID)
	if err != nil {
		n.log.Warn("sync: notification task lookup failed", zap.String("task_id", msg.TaskID), zap.Error(err))
		return
	}
	if !task.Involves(n.userID) {
		return
	}

	senderName := "Unknown"
	if sender, err := n.profiles.GetByID(ctx, msg.SenderID); err != nil {
		n.log.Warn("sync: notification sender lookup failed", zap.String("sender_id", msg.SenderID), zap.Error(err))
	} else {
		senderName = sender.Name
	}

	notif := &entities.Notification{
		ID:         uuid.NewString(),
		TaskID:     task.ID,
		TaskTitle:  task.Title,
		SenderID:   msg.SenderID,
		SenderName: senderName,
		Content:    msg.Content,
		CreatedAt:  msg.CreatedAt,
	}

	n.mu.Lock()
	n.list = append([]*entities.Notification{notif}, n.list...)
	n.unread++
	n.mu.Unlock()

	if n.alertsOn {
		n.alerts.Notify(senderName+" · "+task.Title, msg.Content)
	}
}

// handleTask records status changes and assignments for tasks the user is
// party to.
func (n *Notifications) handleTask(ch entities.TaskChange) {
	if ch.Op != entities.ChangeUpdate || ch.Task == nil || ch.Old == nil {
		return
	}
	task, old := ch.Task, ch.Old
	if !task.Involves(n.userID) && old.AuthorID != n.userID {
		return
	}

	if old.Status != task.Status {
		kind := entities.UpdateStatusChange
		switch task.Status {
		case entities.TaskStatusCompleted:
			kind = entities.UpdateCompleted
		case entities.TaskStatusCancelled:
			kind = entities.UpdateCancelled
		}
		n.appendUpdate(&entities.TaskUpdate{
			Kind:      kind,
			TaskID:    task.ID,
			OldStatus: old.Status,
			NewStatus: task.Status,
			At:        n.now(),
		})
		switch task.Status {
		case entities.TaskStatusCompleted:
			n.alert("Task completed", task.Title)
		case entities.TaskStatusInProgress:
			n.alert("Task started", task.Title)
		}
	}

	if old.HelperID == nil && task.HelperID != nil {
		n.appendUpdate(&entities.TaskUpdate{
			Kind:     entities.UpdateAssigned,
			TaskID:   task.ID,
			HelperID: *task.HelperID,
			At:       n.now(),
		})
		if task.AuthorID == n.userID {
			n.alert("Helper assigned", task.Title)
		}
	}
}

func (n *Notifications) backfill(ctx context.Context) error {
	msgs, err := n.messages.ListRecentUnread(ctx, n.userID, backfillLimit)
	if err != nil {
		return err
	}

	// Newest first from the query; append keeps that order.
	var backfilled []*entities.Notification
	for _, msg := range msgs {
		task, err := n.tasks.GetByID(ctx, msg.TaskID)
		if err != nil {
			n.log.Warn("sync: backfill task lookup failed", zap.String("task_id", msg.TaskID), zap.Error(err))
			continue
		}
		senderName := "Unknown"
		if sender, err := n.profiles.GetByID(ctx, msg.SenderID); err == nil {
			senderName = sender.Name
		}
		backfilled = append(backfilled, &entities.Notification{
			ID:         uuid.NewString(),
			TaskID:     task.ID,
			TaskTitle:  task.Title,
			SenderID:   msg.SenderID,
			SenderName: senderName,
			Content:    msg.Content,
			CreatedAt:  msg.CreatedAt,
		})
	}

	n.mu.Lock()
	n.list = append(backfilled, n.list...)
	n.unread += len(backfilled)
	n.mu.Unlock()
	n.log.Debug("sync: notifications backfilled", zap.Int("count", len(backfilled)))
	return nil
}

func (n *Notifications) appendUpdate(update *entities.TaskUpdate) {
	n.mu.Lock()
	n.updates = append(n.updates, update)
	n.mu.Unlock()
}

func (n *Notifications) alert(title, body string) {
	if n.alertsOn {
		n.alerts.Notify(title, body)
	}
}
