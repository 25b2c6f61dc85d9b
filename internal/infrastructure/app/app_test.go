package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"microtask/internal/core/domain/entities"
	"microtask/internal/core/domain/exceptions"
	"microtask/internal/core/ports"
	"microtask/internal/core/service"
)

type fakeSub struct{}

func (fakeSub) Unsubscribe() {}

type fakeAuth struct{}

func (fakeAuth) GetSession(ctx context.Context) (*entities.Session, error) {
	return &entities.Session{AccessToken: "t", UserID: "u1"}, nil
}

func (fakeAuth) SignInWithPassword(ctx context.Context, email, password string) (*entities.Session, error) {
	return nil, exceptions.ErrInvalidCredentials
}

func (fakeAuth) SignUp(ctx context.Context, email, password, name string) (*entities.Session, error) {
	return nil, exceptions.ErrInvalidCredentials
}

func (fakeAuth) SignOut(ctx context.Context) error { return nil }

func (fakeAuth) OnAuthStateChange(fn func(ports.AuthEvent, *entities.Session)) ports.Subscription {
	return fakeSub{}
}

type fakeProfiles struct{}

func (fakeProfiles) GetByID(ctx context.Context, id string) (*entities.Profile, error) {
	return nil, exceptions.ErrProfileNotFound
}

func (fakeProfiles) Create(ctx context.Context, profile *entities.Profile) error { return nil }
func (fakeProfiles) Update(ctx context.Context, profile *entities.Profile) error { return nil }

type fakeTasks struct {
	open      []*entities.Task
	listCalls int
}

func (f *fakeTasks) GetByID(ctx context.Context, id string) (*entities.Task, error) {
	return nil, exceptions.ErrTaskNotFound
}

func (f *fakeTasks) ListOpen(ctx context.Context) ([]*entities.Task, error) {
	f.listCalls++
	return f.open, nil
}

func (f *fakeTasks) Create(ctx context.Context, task *entities.Task) error { return nil }
func (f *fakeTasks) Cancel(ctx context.Context, taskID string) error       { return nil }
func (f *fakeTasks) ListHistory(ctx context.Context, userID string) ([]*entities.HistoryEntry, error) {
	return nil, nil
}

type fakeRealtime struct {
	taskFns []func(entities.TaskChange)
}

func (f *fakeRealtime) SubscribeTasks(fn func(entities.TaskChange)) ports.Subscription {
	f.taskFns = append(f.taskFns, fn)
	return fakeSub{}
}

func (f *fakeRealtime) SubscribeMessages(fn func(entities.MessageChange)) ports.Subscription {
	return fakeSub{}
}

func (f *fakeRealtime) emitTask(ch entities.TaskChange) {
	for _, fn := range f.taskFns {
		fn(ch)
	}
}

func TestBindFeedPatchesCacheFromRealtime(t *testing.T) {
	tasks := &fakeTasks{open: []*entities.Task{
		{ID: "t1", AuthorID: "u1", Title: "Shelf", Status: entities.TaskStatusOpen},
	}}
	feed, err := service.NewFeed(tasks, 3*time.Minute, zap.NewNop())
	require.NoError(t, err)
	health, err := service.NewHealth(fakeAuth{}, fakeProfiles{}, time.Minute, zap.NewNop())
	require.NoError(t, err)
	rt := &fakeRealtime{}

	bindFeed(feed, rt, health)
	require.Len(t, rt.taskFns, 1)

	got, err := feed.Load(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, got, 1)

	rt.emitTask(entities.TaskChange{
		Op:     entities.ChangeInsert,
		TaskID: "t2",
		Task:   &entities.Task{ID: "t2", AuthorID: "u2", Title: "Dog walk", Status: entities.TaskStatusOpen},
	})

	// Still inside the TTL: the insert must be visible without a refetch.
	got, err = feed.Load(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "t2", got[0].ID)
	assert.Equal(t, 1, tasks.listCalls)
}

func TestBindFeedWakesOnReconnect(t *testing.T) {
	tasks := &fakeTasks{}
	feed, err := service.NewFeed(tasks, time.Nanosecond, zap.NewNop())
	require.NoError(t, err)
	health, err := service.NewHealth(fakeAuth{}, fakeProfiles{}, time.Minute, zap.NewNop())
	require.NoError(t, err)

	bindFeed(feed, &fakeRealtime{}, health)

	_, err = feed.Load(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 1, tasks.listCalls)

	health.SetOnline(context.Background(), false)
	// Coming back online reconnects and wakes the now-stale feed.
	health.SetOnline(context.Background(), true)
	assert.Equal(t, 2, tasks.listCalls)
}
