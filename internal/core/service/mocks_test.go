package service

import (
	"context"
	"sync"
	"time"

	"microtask/internal/core/domain/entities"
	"microtask/internal/core/domain/exceptions"
	"microtask/internal/core/ports"
)

// Hand-written in-memory fakes for the ports. Counters let tests assert
// exactly how many remote calls a path issued.

type mockProfiles struct {
	mu           sync.Mutex
	rows         map[string]*entities.Profile
	getCalls     int
	createCalls  int
	getErr       error // permanent failure
	transientErr error // fails failGets calls, then recovers
	failGets     int
	gate         chan struct{}
}

func newMockProfiles() *mockProfiles {
	return &mockProfiles{rows: make(map[string]*entities.Profile)}
}

func (m *mockProfiles) GetByID(_ context.Context, id string) (*entities.Profile, error) {
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.failGets > 0 {
		m.failGets--
		return nil, m.transientErr
	}
	if m.getErr != nil {
		return nil, m.getErr
	}
	row, ok := m.rows[id]
	if !ok {
		return nil, exceptions.ErrProfileNotFound
	}
	copied := *row
	return &copied, nil
}

func (m *mockProfiles) Create(_ context.Context, profile *entities.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	copied := *profile
	m.rows[profile.ID] = &copied
	return nil
}

func (m *mockProfiles) Update(_ context.Context, profile *entities.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *profile
	m.rows[profile.ID] = &copied
	return nil
}

type mockTasks struct {
	mu        sync.Mutex
	rows      map[string]*entities.Task
	open      []*entities.Task
	history   []*entities.HistoryEntry
	listCalls int
	listErr   error
	createN   int
}

func newMockTasks() *mockTasks {
	return &mockTasks{rows: make(map[string]*entities.Task)}
}

func (m *mockTasks) GetByID(_ context.Context, id string) (*entities.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, exceptions.ErrTaskNotFound
	}
	copied := *row
	return &copied, nil
}

func (m *mockTasks) ListOpen(_ context.Context) ([]*entities.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*entities.Task, len(m.open))
	copy(out, m.open)
	return out, nil
}

func (m *mockTasks) Create(_ context.Context, task *entities.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createN++
	if task.ID == "" {
		task.ID = "task-" + string(rune('0'+m.createN))
	}
	copied := *task
	m.rows[task.ID] = &copied
	return nil
}

func (m *mockTasks) Cancel(_ context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[taskID]
	if !ok {
		return exceptions.ErrTaskNotFound
	}
	row.Status = entities.TaskStatusCancelled
	return nil
}

func (m *mockTasks) ListHistory(_ context.Context, _ string) ([]*entities.HistoryEntry, error) {
	return m.history, nil
}

type countSinceCall struct {
	taskID        string
	excludeSender string
	since         time.Time
}

type mockMessages struct {
	mu           sync.Mutex
	byTask       map[string][]*entities.Message
	recentUnread []*entities.Message
	sinceCalls   []countSinceCall
	sinceCount   int
}

func newMockMessages() *mockMessages {
	return &mockMessages{byTask: make(map[string][]*entities.Message)}
}

func (m *mockMessages) Create(_ context.Context, msg *entities.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *msg
	m.byTask[msg.TaskID] = append(m.byTask[msg.TaskID], &copied)
	return nil
}

func (m *mockMessages) ListByTask(_ context.Context, taskID string) ([]*entities.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byTask[taskID], nil
}

func (m *mockMessages) CountSince(_ context.Context, taskID, excludeSender string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinceCalls = append(m.sinceCalls, countSinceCall{taskID, excludeSender, since})
	return m.sinceCount, nil
}

func (m *mockMessages) ListRecentUnread(_ context.Context, _ string, limit int) ([]*entities.Message, error) {
	if len(m.recentUnread) > limit {
		return m.recentUnread[:limit], nil
	}
	return m.recentUnread, nil
}

type mockApplications struct {
	mu   sync.Mutex
	rows []*entities.Application
}

func (m *mockApplications) Create(_ context.Context, app *entities.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if app.ID == "" {
		app.ID = "app-1"
	}
	copied := *app
	m.rows = append(m.rows, &copied)
	return nil
}

func (m *mockApplications) ListByTask(_ context.Context, taskID string) ([]*entities.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entities.Application
	for _, app := range m.rows {
		if app.TaskID == taskID {
			out = append(out, app)
		}
	}
	return out, nil
}

type mockReviews struct {
	mu   sync.Mutex
	rows []*entities.Review
}

func (m *mockReviews) Create(_ context.Context, review *entities.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if review.ID == "" {
		review.ID = "rev-1"
	}
	copied := *review
	m.rows = append(m.rows, &copied)
	return nil
}

func (m *mockReviews) ListForUser(_ context.Context, userID string) ([]*entities.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entities.Review
	for _, review := range m.rows {
		if review.RevieweeID == userID {
			out = append(out, review)
		}
	}
	return out, nil
}

type procCall struct {
	name string
	args []string
}

type mockProcedures struct {
	mu    sync.Mutex
	calls []procCall
	err   error
	found []*entities.Task
}

func (m *mockProcedures) record(name string, args ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, procCall{name, args})
	return m.err
}

func (m *mockProcedures) AcceptTask(_ context.Context, taskID, helperID string) error {
	return m.record("accept_task", taskID, helperID)
}
func (m *mockProcedures) StartTask(_ context.Context, taskID string) error {
	return m.record("start_task", taskID)
}
func (m *mockProcedures) CompleteTask(_ context.Context, taskID string) error {
	return m.record("complete_task", taskID)
}
func (m *mockProcedures) MarkTaskCompleted(_ context.Context, taskID, helperID string) error {
	return m.record("mark_task_completed", taskID, helperID)
}
func (m *mockProcedures) AcceptApplication(_ context.Context, applicationID string) error {
	return m.record("accept_application", applicationID)
}
func (m *mockProcedures) ApproveTaskStart(_ context.Context, requestID string) error {
	return m.record("approve_task_start", requestID)
}
func (m *mockProcedures) RejectTaskStart(_ context.Context, requestID string) error {
	return m.record("reject_task_start", requestID)
}
func (m *mockProcedures) SearchTasksByDistance(_ context.Context, _, _, _ float64) ([]*entities.Task, error) {
	if err := m.record("search_tasks_by_distance"); err != nil {
		return nil, err
	}
	return m.found, nil
}
func (m *mockProcedures) Increment(_ context.Context, table, column, id string) error {
	return m.record("increment", table, column, id)
}

type mockAuth struct {
	mu           sync.Mutex
	session      *entities.Session
	getErr       error // permanent failure
	transientErr error // fails failGets calls, then recovers
	failGets     int
	getCalls     int
	handlers     []func(ports.AuthEvent, *entities.Session)
}

func (m *mockAuth) GetSession(_ context.Context) (*entities.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.failGets > 0 {
		m.failGets--
		return nil, m.transientErr
	}
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.session, nil
}

func (m *mockAuth) SignInWithPassword(_ context.Context, _, _ string) (*entities.Session, error) {
	if m.session == nil {
		return nil, exceptions.ErrInvalidCredentials
	}
	return m.session, nil
}

func (m *mockAuth) SignUp(_ context.Context, _, _, _ string) (*entities.Session, error) {
	return m.session, nil
}

func (m *mockAuth) SignOut(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

func (m *mockAuth) OnAuthStateChange(fn func(ports.AuthEvent, *entities.Session)) ports.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, fn)
	return fakeSub{}
}

type fakeSub struct{}

func (fakeSub) Unsubscribe() {}

type fakeRealtime struct {
	mu       sync.Mutex
	taskFns  []func(entities.TaskChange)
	msgFns   []func(entities.MessageChange)
	unsubbed int
}

func (f *fakeRealtime) SubscribeTasks(fn func(entities.TaskChange)) ports.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taskFns = append(f.taskFns, fn)
	return &countSub{n: &f.unsubbed, mu: &f.mu}
}

func (f *fakeRealtime) SubscribeMessages(fn func(entities.MessageChange)) ports.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgFns = append(f.msgFns, fn)
	return &countSub{n: &f.unsubbed, mu: &f.mu}
}

func (f *fakeRealtime) emitMessage(ch entities.MessageChange) {
	f.mu.Lock()
	fns := append([]func(entities.MessageChange){}, f.msgFns...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(ch)
	}
}

func (f *fakeRealtime) emitTask(ch entities.TaskChange) {
	f.mu.Lock()
	fns := append([]func(entities.TaskChange){}, f.taskFns...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(ch)
	}
}

type countSub struct {
	n  *int
	mu *sync.Mutex
}

func (s *countSub) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.n++
}

type alertRecord struct {
	title string
	body  string
}

type fakeAlerts struct {
	mu    sync.Mutex
	sent  []alertRecord
}

func (f *fakeAlerts) Notify(title, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, alertRecord{title, body})
}

type memProfileStore struct {
	mu      sync.Mutex
	entries map[string]entities.Profile
	putErr  error
}

func newMemProfileStore() *memProfileStore {
	return &memProfileStore{entries: make(map[string]entities.Profile)}
}

func (s *memProfileStore) Get(id string) (*entities.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	copied := entry
	return &copied, true
}

func (s *memProfileStore) Put(profile *entities.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.entries[profile.ID] = *profile
	return nil
}

func (s *memProfileStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

type memVisitStore struct {
	mu     sync.Mutex
	visits map[string]time.Time
}

func newMemVisitStore() *memVisitStore {
	return &memVisitStore{visits: make(map[string]time.Time)}
}

func (s *memVisitStore) LastVisit(taskID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.visits[taskID]
	return at, ok
}

func (s *memVisitStore) Visit(taskID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visits[taskID] = at
	return nil
}

func strptr(s string) *string { return &s }

func noTestSleep(_ context.Context, _ time.Duration) error { return nil }
