package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"microtask/internal/adapters/output/alert"
	"microtask/internal/adapters/output/localauth"
	"microtask/internal/adapters/output/postgres"
	"microtask/internal/cache"
	"microtask/internal/config"
	"microtask/internal/core/domain/entities"
	"microtask/internal/core/ports"
	"microtask/internal/core/service"
	dbinfra "microtask/internal/infrastructure/db"
	"microtask/internal/logger"
)

type App struct {
	Config *config.Config
	Log    *zap.Logger
	Pool   *pgxpool.Pool

	Session   *service.Session
	Feed      *service.Feed
	Health    *service.Health
	Lifecycle *service.Lifecycle
	Listener  *postgres.Listener

	tasks    ports.TaskRepository
	profiles ports.ProfileRepository
	messages ports.MessageRepository
	visits   ports.VisitStore
	alerts   ports.AlertSink

	close func()
}

func Init() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config load error: %w", err)
	}

	log, err := logger.Init(cfg.Logger.Env)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	pool, err := dbinfra.ConnectToDB(cfg.Database.GetDSN(), log)
	if err != nil {
		log.Error("failed to connect to db", zap.Error(err))
		_ = log.Sync()
		return nil, err
	}

	if err := os.MkdirAll(cfg.Cache.Dir, 0o700); err != nil {
		log.Error("failed to create cache dir", zap.Error(err))
		pool.Close()
		_ = log.Sync()
		return nil, err
	}

	profileStore := cache.NewProfileStore(filepath.Join(cfg.Cache.Dir, "profiles.json"), log)
	visitStore := cache.NewVisitStore(filepath.Join(cfg.Cache.Dir, "visits.json"), log)

	auth, err := localauth.NewProvider(pool, cfg.Cache.Dir, log)
	if err != nil {
		log.Error("failed to init auth provider", zap.Error(err))
		pool.Close()
		_ = log.Sync()
		return nil, err
	}

	profileRepo := postgres.NewProfileRepository(pool, log)
	taskRepo := postgres.NewTaskRepository(pool, log)
	messageRepo := postgres.NewMessageRepository(pool, log)
	applicationRepo := postgres.NewApplicationRepository(pool, log)
	reviewRepo := postgres.NewReviewRepository(pool, log)
	procedures := postgres.NewProcedures(pool, log)
	listener := postgres.NewListener(pool, log)

	session, err := service.NewSession(auth, profileRepo, profileStore, cfg.Logger.Env, log)
	if err != nil {
		return nil, closeOnInitError("session service", err, pool, log)
	}
	feed, err := service.NewFeed(taskRepo, cfg.Sync.FeedTTL, log)
	if err != nil {
		return nil, closeOnInitError("feed service", err, pool, log)
	}
	health, err := service.NewHealth(auth, profileRepo, cfg.Sync.HealthInterval, log)
	if err != nil {
		return nil, closeOnInitError("health service", err, pool, log)
	}
	lifecycle, err := service.NewLifecycle(taskRepo, applicationRepo, reviewRepo, procedures, log)
	if err != nil {
		return nil, closeOnInitError("lifecycle service", err, pool, log)
	}

	var alerts ports.AlertSink
	if cfg.Sync.DesktopAlerts {
		alerts = alert.NewLogSink(log)
	}

	bindFeed(feed, listener, health)

	return &App{
		Config:    cfg,
		Log:       log,
		Pool:      pool,
		Session:   session,
		Feed:      feed,
		Health:    health,
		Lifecycle: lifecycle,
		Listener:  listener,
		tasks:     taskRepo,
		profiles:  profileRepo,
		messages:  messageRepo,
		visits:    visitStore,
		alerts:    alerts,
		close: func() {
			pool.Close()
			_ = log.Sync()
		},
	}, nil
}

// UserServices builds the per-user services once a session exists.
func (a *App) UserServices(userID string) (*service.Notifications, *service.Messages, error) {
	notifications, err := service.NewNotifications(
		userID,
		a.tasks,
		a.profiles,
		a.messages,
		a.Listener,
		a.alerts,
		a.Config.Sync.DesktopAlerts,
		a.Log,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("notifications init: %w", err)
	}
	messages, err := service.NewMessages(userID, a.messages, a.visits, a.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("messages init: %w", err)
	}
	return notifications, messages, nil
}

// bindFeed hooks the feed cache into the rest of the graph: realtime task
// events patch it while fresh, and a regained connection wakes it so a stale
// cache refreshes without waiting for the next Load.
func bindFeed(feed *service.Feed, realtime ports.Realtime, health *service.Health) {
	realtime.SubscribeTasks(feed.ApplyChange)

	wasConnected := true
	health.Subscribe(func(state entities.ConnectionState) {
		if state.Connected && !wasConnected {
			feed.Wake(context.Background())
		}
		wasConnected = state.Connected
	})
}

func (a *App) Close() {
	if a == nil || a.close == nil {
		return
	}
	a.close()
}

func closeOnInitError(what string, err error, pool *pgxpool.Pool, log *zap.Logger) error {
	log.Error("failed to init "+what, zap.Error(err))
	pool.Close()
	_ = log.Sync()
	return err
}
