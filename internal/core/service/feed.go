package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"microtask/internal/core/domain/entities"
	"microtask/internal/core/ports"
)

const DefaultFeedTTL = 3 * time.Minute

// Feed serves the open-task list from a time-windowed cache. While the
// cache is fresh, realtime events patch it in place instead of triggering a
// refetch; once it goes stale, incremental events are ignored and the next
// Load performs a full reload. Patching a cache old enough to have missed
// earlier events would mean reconciling diverging histories, so staleness
// always wins.
type Feed struct {
	tasks ports.TaskRepository
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	cached    []*entities.Task
	fetchedAt time.Time

	log *zap.Logger
}

func NewFeed(tasks ports.TaskRepository, ttl time.Duration, log *zap.Logger) (*Feed, error) {
	if tasks == nil {
		return nil, errors.New("task repository is nil")
	}
	if log == nil {
		return nil, errors.New("logger is nil")
	}
	if ttl <= 0 {
		ttl = DefaultFeedTTL
	}
	return &Feed{
		tasks: tasks,
		ttl:   ttl,
		now:   time.Now,
		log:   log,
	}, nil
}

// Load returns the open-task feed. Without force, a fresh non-empty cache
// is served as-is with no remote query. A remote failure falls back to a
// stale cache when one exists rather than returning an empty list.
func (f *Feed) Load(ctx context.Context, force bool) ([]*entities.Task, error) {
	f.mu.Lock()
	if !force && len(f.cached) > 0 && f.freshLocked() {
		out := snapshot(f.cached)
		f.mu.Unlock()
		f.log.Debug("sync: feed served from cache", zap.Int("tasks", len(out)))
		return out, nil
	}
	f.mu.Unlock()

	tasks, err := f.tasks.ListOpen(ctx)
	if err != nil {
		f.mu.Lock()
		stale := snapshot(f.cached)
		f.mu.Unlock()
		if len(stale) > 0 {
			f.log.Warn("sync: feed reload failed, serving stale cache", zap.Error(err), zap.Int("tasks", len(stale)))
			return stale, nil
		}
		f.log.Warn("sync: feed reload failed", zap.Error(err))
		return nil, err
	}

	f.mu.Lock()
	f.cached = tasks
	f.fetchedAt = f.now()
	out := snapshot(f.cached)
	f.mu.Unlock()

	f.log.Debug("sync: feed reloaded", zap.Int("tasks", len(out)))
	return out, nil
}

// ApplyChange folds a realtime task event into the cache. Stale caches are
// left untouched; the next Load refetches everything.
func (f *Feed) ApplyChange(ch entities.TaskChange) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.freshLocked() {
		f.log.Debug("sync: feed stale, dropping realtime event",
			zap.String("op", string(ch.Op)), zap.String("task_id", ch.TaskID))
		return
	}

	switch ch.Op {
	case entities.ChangeInsert:
		if ch.Task == nil || !ch.Task.Open() {
			return
		}
		if f.indexLocked(ch.Task.ID) >= 0 {
			return
		}
		f.cached = append([]*entities.Task{ch.Task}, f.cached...)
	case entities.ChangeDelete:
		if i := f.indexLocked(ch.TaskID); i >= 0 {
			f.cached = slices.Delete(f.cached, i, i+1)
		}
	case entities.ChangeUpdate:
		if ch.Task == nil {
			return
		}
		i := f.indexLocked(ch.Task.ID)
		if i < 0 {
			return
		}
		if !ch.Task.Open() {
			// The feed only lists open tasks; a closing update removes it.
			f.cached = slices.Delete(f.cached, i, i+1)
			return
		}
		f.cached[i] = ch.Task
	}
}

// Wake is the visibility-change hook: a backgrounded client misses realtime
// events, so on regaining the foreground a stale cache reloads immediately.
func (f *Feed) Wake(ctx context.Context) {
	f.mu.Lock()
	stale := !f.freshLocked()
	f.mu.Unlock()
	if !stale {
		return
	}
	if _, err := f.Load(ctx, true); err != nil {
		f.log.Warn("sync: feed wake reload failed", zap.Error(err))
	}
}

func (f *Feed) freshLocked() bool {
	return !f.fetchedAt.IsZero() && f.now().Sub(f.fetchedAt) < f.ttl
}

func (f *Feed) indexLocked(taskID string) int {
	return slices.IndexFunc(f.cached, func(t *entities.Task) bool { return t.ID == taskID })
}

func snapshot(tasks []*entities.Task) []*entities.Task {
	if tasks == nil {
		return nil
	}
	out := make([]*entities.Task, len(tasks))
	copy(out, tasks)
	return out
}
