package postgres

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"microtask/internal/core/domain/entities"
	"microtask/internal/core/ports"
	"microtask/internal/mapper"
	"microtask/internal/retry"
)

const (
	tasksChannel    = "tasks_changes"
	messagesChannel = "messages_changes"
)

// Listener implements ports.Realtime over LISTEN/NOTIFY. Backend triggers
// notify the two channels with the JSON envelope mapper decodes. One pooled
// connection is held for the lifetime of Run and blocks in
// WaitForNotification; on connection loss the loop reconnects with backoff
// and re-issues the LISTENs. Events sent while disconnected are simply
// missed — consumers already tolerate gaps via their stale-cache reloads.
type Listener struct {
	pool *pgxpool.Pool
	log  *zap.Logger

	mu      sync.Mutex
	nextID  int
	taskFns map[int]func(entities.TaskChange)
	msgFns  map[int]func(entities.MessageChange)
}

func NewListener(pool *pgxpool.Pool, log *zap.Logger) *Listener {
	if pool == nil {
		log.Fatal("database pool is nil")
	}
	if log == nil {
		panic("logger is nil")
	}
	return &Listener{
		pool:    pool,
		log:     log,
		taskFns: make(map[int]func(entities.TaskChange)),
		msgFns:  make(map[int]func(entities.MessageChange)),
	}
}

func (l *Listener) SubscribeTasks(fn func(entities.TaskChange)) ports.Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	l.taskFns[id] = fn
	return &subscription{cancel: func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.taskFns, id)
	}}
}

func (l *Listener) SubscribeMessages(fn func(entities.MessageChange)) ports.Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	l.msgFns[id] = fn
	return &subscription{cancel: func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.msgFns, id)
	}}
}

// Run blocks until ctx is cancelled, delivering notifications to the
// registered handlers.
func (l *Listener) Run(ctx context.Context) error {
	for {
		conn, err := l.connect(ctx)
		if err != nil {
			return err
		}

		err = l.listen(ctx, conn)
		conn.Release()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.log.Warn("realtime connection lost, reconnecting", zap.Error(err))
	}
}

func (l *Listener) connect(ctx context.Context) (*pgxpool.Conn, error) {
	return retry.Do(ctx, func(ctx context.Context) (*pgxpool.Conn, error) {
		conn, err := l.pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		for _, channel := range []string{tasksChannel, messagesChannel} {
			if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
				conn.Release()
				return nil, err
			}
		}
		l.log.Info("realtime channels subscribed")
		return conn, nil
	}, retry.Options{})
}

func (l *Listener) listen(ctx context.Context, conn *pgxpool.Conn) error {
	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.dispatch(notification)
	}
}

func (l *Listener) dispatch(n *pgconn.Notification) {
	switch n.Channel {
	case tasksChannel:
		change, err := mapper.TaskChange([]byte(n.Payload))
		if err != nil {
			l.log.Warn("bad task change payload", zap.Error(err))
			return
		}
		for _, fn := range l.taskHandlers() {
			fn(change)
		}
	case messagesChannel:
		change, err := mapper.MessageChange([]byte(n.Payload))
		if err != nil {
			l.log.Warn("bad message change payload", zap.Error(err))
			return
		}
		for _, fn := range l.messageHandlers() {
			fn(change)
		}
	default:
		l.log.Debug("notification on unknown channel", zap.String("channel", n.Channel))
	}
}

func (l *Listener) taskHandlers() []func(entities.TaskChange) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fns := make([]func(entities.TaskChange), 0, len(l.taskFns))
	for _, fn := range l.taskFns {
		fns = append(fns, fn)
	}
	return fns
}

func (l *Listener) messageHandlers() []func(entities.MessageChange) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fns := make([]func(entities.MessageChange), 0, len(l.msgFns))
	for _, fn := range l.msgFns {
		fns = append(fns, fn)
	}
	return fns
}

type subscription struct {
	once   sync.Once
	cancel func()
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

var _ ports.Realtime = (*Listener)(nil)
