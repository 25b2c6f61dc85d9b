package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"microtask/internal/cache"
	"microtask/internal/core/domain/entities"
	"microtask/internal/core/domain/exceptions"
	"microtask/internal/core/ports"
)

const profileLoadAttempts = 3

// Session resolves "who is the current user and what is their profile"
// once per session change, minimizing remote calls. The profile cache and
// the in-flight set are shared by every consumer through this one service.
type Session struct {
	auth     ports.AuthProvider
	profiles ports.ProfileRepository
	store    ports.ProfileStore
	inflight *cache.InFlight
	env      string

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	session *entities.Session
	profile *entities.Profile
	loading bool
	lastErr error

	authSub ports.Subscription
	log     *zap.Logger
}

func NewSession(
	auth ports.AuthProvider,
	profiles ports.ProfileRepository,
	store ports.ProfileStore,
	env string,
	log *zap.Logger,
) (*Session, error) {
	if auth == nil {
		return nil, errors.New("auth provider is nil")
	}
	if profiles == nil {
		return nil, errors.New("profile repository is nil")
	}
	if store == nil {
		return nil, errors.New("profile store is nil")
	}
	if log == nil {
		return nil, errors.New("logger is nil")
	}
	return &Session{
		auth:     auth,
		profiles: profiles,
		store:    store,
		inflight: cache.NewInFlight(),
		env:      env,
		now:      time.Now,
		sleep:    sleepCtx,
		loading:  true,
		log:      log,
	}, nil
}

// Restore queries the auth provider for an existing session. With one
// present it loads the profile; without one it just finishes loading. It
// also hooks subsequent provider push events.
func (s *Session) Restore(ctx context.Context) error {
	s.authSub = s.auth.OnAuthStateChange(s.handleAuthEvent)

	sess, err := s.auth.GetSession(ctx)
	if err != nil {
		s.finishLoading(err)
		s.log.Warn("sync: session restore failed", zap.Error(err))
		return err
	}
	if sess == nil {
		s.log.Debug("sync: no session to restore")
		s.finishLoading(nil)
		return nil
	}

	s.setSession(sess)
	s.log.Info("sync: session restored", zap.String("user_id", sess.UserID))
	return s.loadProfile(ctx, sess.UserID)
}

func (s *Session) SignIn(ctx context.Context, email, password string) error {
	sess, err := s.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		s.log.Warn("sync: sign in failed", zap.Error(err))
		return err
	}
	s.setSession(sess)
	return s.loadProfile(ctx, sess.UserID)
}

func (s *Session) SignUp(ctx context.Context, email, password, name string) error {
	sess, err := s.auth.SignUp(ctx, email, password, name)
	if err != nil {
		s.log.Warn("sync: sign up failed", zap.Error(err))
		return err
	}
	s.setSession(sess)
	return s.loadProfile(ctx, sess.UserID)
}

// SignOut clears the local session and profile state. Durable cache entries
// survive: they are copies and the remote store stays authoritative.
func (s *Session) SignOut(ctx context.Context) error {
	err := s.auth.SignOut(ctx)
	s.mu.Lock()
	s.session = nil
	s.profile = nil
	s.lastErr = nil
	s.loading = false
	s.mu.Unlock()
	return err
}

func (s *Session) Close() {
	if s.authSub != nil {
		s.authSub.Unsubscribe()
	}
}

func (s *Session) Current() *entities.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	copied := *s.session
	return &copied
}

func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ""
	}
	return s.session.UserID
}

func (s *Session) Profile() *entities.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return nil
	}
	copied := *s.profile
	return &copied
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) handleAuthEvent(event ports.AuthEvent, sess *entities.Session) {
	s.log.Debug("sync: auth event", zap.String("event", string(event)))
	switch event {
	case ports.AuthSignedIn, ports.AuthTokenRefreshed, ports.AuthUserUpdated:
		if sess == nil {
			return
		}
		s.setSession(sess)
		// Provider callbacks carry no context; the load is bounded by its
		// own retry budget.
		if err := s.loadProfile(context.Background(), sess.UserID); err != nil {
			s.log.Warn("sync: profile load after auth event failed", zap.Error(err))
		}
	case ports.AuthSignedOut:
		s.mu.Lock()
		s.session = nil
		s.profile = nil
		s.loading = false
		s.mu.Unlock()
	}
}

// loadProfile serves from the durable cache when possible, de-duplicates
// concurrent fetches per user id, and otherwise fetches (creating a default
// profile on first access) with up to three linearly delayed attempts.
func (s *Session) loadProfile(ctx context.Context, userID string) error {
	if cached, ok := s.store.Get(userID); ok {
		s.log.Debug("sync: profile cache hit", zap.String("user_id", userID))
		s.setProfile(cached)
		return nil
	}

	if !s.inflight.Begin(userID) {
		s.log.Debug("sync: profile load already in flight", zap.String("user_id", userID))
		return nil
	}
	defer s.inflight.End(userID)

	stop := s.watchLoad(userID)
	defer stop()

	var profile *entities.Profile
	var err error
	for attempt := 1; attempt <= profileLoadAttempts; attempt++ {
		profile, err = s.fetchOrCreate(ctx, userID)
		if err == nil {
			break
		}
		s.log.Warn("sync: profile fetch failed",
			zap.String("user_id", userID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt < profileLoadAttempts {
			if serr := s.sleep(ctx, time.Duration(attempt)*time.Second); serr != nil {
				s.finishLoading(serr)
				return serr
			}
		}
	}
	if err != nil {
		s.finishLoading(err)
		return err
	}

	if perr := s.store.Put(profile); perr != nil {
		// Cache persistence failure is not fatal; the profile is live.
		s.log.Warn("sync: profile cache write failed", zap.Error(perr))
	}
	s.setProfile(profile)
	s.log.Info("sync: profile loaded", zap.String("user_id", userID))
	return nil
}

func (s *Session) fetchOrCreate(ctx context.Context, userID string) (*entities.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, exceptions.ErrProfileNotFound) {
		return nil, err
	}

	created := entities.NewDefaultProfile(userID, s.now())
	if err := s.profiles.Create(ctx, created); err != nil {
		return nil, err
	}
	s.log.Info("sync: default profile created", zap.String("user_id", userID))
	return created, nil
}

func (s *Session) setSession(sess *entities.Session) {
	s.mu.Lock()
	copied := *sess
	s.session = &copied
	s.loading = true
	s.lastErr = nil
	s.mu.Unlock()
}

func (s *Session) setProfile(profile *entities.Profile) {
	s.mu.Lock()
	s.profile = profile
	s.loading = false
	s.lastErr = nil
	s.mu.Unlock()
}

func (s *Session) finishLoading(err error) {
	s.mu.Lock()
	s.loading = false
	s.lastErr = err
	s.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
