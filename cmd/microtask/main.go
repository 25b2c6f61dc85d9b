package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"microtask/internal/infrastructure/app"
)

func main() {
	smoke := flag.Bool("smoke", false, "run the repository smoke test and exit")
	flag.Parse()

	application, err := app.Init()
	if err != nil {
		fmt.Printf("app init error: %v\n", err)
		return
	}
	defer application.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *smoke {
		runRepoSmokeTest(ctx, application.Log, application.Pool)
		return
	}

	go func() {
		if err := application.Listener.Run(ctx); err != nil && ctx.Err() == nil {
			application.Log.Error("realtime listener stopped", zap.Error(err))
		}
	}()
	go application.Health.Run(ctx)

	if err := application.Session.Restore(ctx); err != nil {
		application.Log.Warn("session restore failed, continuing signed out", zap.Error(err))
	}

	if userID := application.Session.UserID(); userID != "" {
		notifications, _, err := application.UserServices(userID)
		if err != nil {
			application.Log.Error("user services init failed", zap.Error(err))
		} else {
			notifications.Start(ctx)
			defer notifications.Close()
		}
	}

	if _, err := application.Feed.Load(ctx, false); err != nil {
		application.Log.Warn("initial feed load failed", zap.Error(err))
	}

	application.Log.Info("client is running", zap.String("env", application.Config.Logger.Env))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	s := <-quit
	application.Log.Info("shutting down", zap.String("signal", s.String()))
	cancel()
	application.Log.Info("client stopped")
}
