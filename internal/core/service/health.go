package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"microtask/internal/core/domain/entities"
	"microtask/internal/core/domain/exceptions"
	"microtask/internal/core/ports"
	"microtask/internal/retry"
)

const (
	DefaultHealthInterval    = 30 * time.Second
	reconnectAttempts        = 5
	reconnectBaseDelay       = time.Second
	reconnectMaxDelay        = 30 * time.Second
	// Any fixed id works for the probe: not-found still proves the backend
	// answered.
	healthProbeID = "00000000-0000-0000-0000-000000000000"
)

// Health tracks coarse online/offline state, independent of the caches.
// Multiple consumers subscribe to one monitor instead of each polling.
type Health struct {
	auth     ports.AuthProvider
	profiles ports.ProfileRepository
	interval time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	state   entities.ConnectionState
	subs    map[int]func(entities.ConnectionState)
	nextSub int

	authSub ports.Subscription
	log     *zap.Logger
}

func NewHealth(auth ports.AuthProvider, profiles ports.ProfileRepository, interval time.Duration, log *zap.Logger) (*Health, error) {
	if auth == nil {
		return nil, errors.New("auth provider is nil")
	}
	if profiles == nil {
		return nil, errors.New("profile repository is nil")
	}
	if log == nil {
		return nil, errors.New("logger is nil")
	}
	if interval <= 0 {
		interval = DefaultHealthInterval
	}
	h := &Health{
		auth:     auth,
		profiles: profiles,
		interval: interval,
		now:      time.Now,
		sleep:    sleepCtx,
		state:    entities.ConnectionState{Connected: true},
		subs:     make(map[int]func(entities.ConnectionState)),
		log:      log,
	}
	h.state.LastConnected = h.now()
	h.authSub = auth.OnAuthStateChange(h.handleAuthEvent)
	return h, nil
}

// Subscribe registers an observer of connection-state changes and returns
// its unsubscribe func. The observer is called immediately with the current
// state.
func (h *Health) Subscribe(fn func(entities.ConnectionState)) func() {
	h.mu.Lock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = fn
	state := h.state
	h.mu.Unlock()

	fn(state)
	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

func (h *Health) State() entities.ConnectionState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// SetOnline is the platform online/offline hook. Going offline marks the
// monitor disconnected; coming back online while disconnected triggers a
// reconnection attempt.
func (h *Health) SetOnline(ctx context.Context, online bool) {
	if !online {
		h.markDisconnected(errors.New("network offline"))
		return
	}
	if !h.State().Connected {
		h.Reconnect(ctx)
	}
}

// Reconnect verifies the backend is reachable by checking for a session,
// with capped exponential backoff.
func (h *Health) Reconnect(ctx context.Context) {
	h.log.Info("sync: reconnecting")
	_, err := retry.Do(ctx, func(ctx context.Context) (*entities.Session, error) {
		return h.auth.GetSession(ctx)
	}, retry.Options{
		MaxAttempts: reconnectAttempts,
		BaseDelay:   reconnectBaseDelay,
		MaxDelay:    reconnectMaxDelay,
		Sleep:       h.sleep,
		OnState: func(st retry.State) {
			h.mu.Lock()
			h.state.Attempts = st.Attempt
			h.mu.Unlock()
		},
	})
	if err != nil {
		h.log.Warn("sync: reconnect failed", zap.Error(err))
		h.markDisconnected(err)
		return
	}
	h.markConnected()
}

// Run drives the periodic health probe until ctx is cancelled.
func (h *Health) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if h.State().Connected {
				h.Probe(ctx)
			}
		}
	}
}

// Probe issues a trivial remote read. Anything but success or not-found
// flips the monitor to disconnected.
func (h *Health) Probe(ctx context.Context) {
	_, err := h.profiles.GetByID(ctx, healthProbeID)
	if err != nil && !errors.Is(err, exceptions.ErrProfileNotFound) {
		h.log.Warn("sync: health probe failed", zap.Error(err))
		h.markDisconnected(err)
		return
	}
	h.markConnected()
}

func (h *Health) Close() {
	if h.authSub != nil {
		h.authSub.Unsubscribe()
	}
}

func (h *Health) handleAuthEvent(event ports.AuthEvent, _ *entities.Session) {
	switch event {
	case ports.AuthSignedIn, ports.AuthTokenRefreshed:
		h.markConnected()
	}
}

func (h *Health) markConnected() {
	h.mu.Lock()
	changed := !h.state.Connected
	h.state.Connected = true
	h.state.LastConnected = h.now()
	h.state.Attempts = 0
	h.state.LastError = nil
	subs := h.snapshotSubsLocked()
	state := h.state
	h.mu.Unlock()

	if changed {
		h.log.Info("sync: connected")
		notify(subs, state)
	}
}

func (h *Health) markDisconnected(err error) {
	h.mu.Lock()
	changed := h.state.Connected
	h.state.Connected = false
	h.state.LastError = err
	subs := h.snapshotSubsLocked()
	state := h.state
	h.mu.Unlock()

	if changed {
		h.log.Warn("sync: disconnected", zap.Error(err))
		notify(subs, state)
	}
}

func (h *Health) snapshotSubsLocked() []func(entities.ConnectionState) {
	subs := make([]func(entities.ConnectionState), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(entities.ConnectionState), state entities.ConnectionState) {
	for _, fn := range subs {
		fn(state)
	}
}
