package localauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"microtask/internal/core/domain/entities"
	"microtask/internal/core/domain/exceptions"
	"microtask/internal/core/ports"
	"microtask/internal/infrastructure/db"
)

// Provider implements ports.AuthProvider against the backend's auth
// functions (auth_sign_in, auth_sign_up, auth_refresh). Each returns a
// signed JWT whose claims carry the user id and expiry; the token is parsed
// without verification since the backend signed it and we only need the
// claims. The current session is persisted to a JSON file so a restart
// resumes signed in.
type Provider struct {
	db   db.Querier
	path string
	log  *zap.Logger
	now  func() time.Time

	mu       sync.Mutex
	session  *entities.Session
	nextID   int
	handlers map[int]func(ports.AuthEvent, *entities.Session)
}

func NewProvider(querier db.Querier, cacheDir string, log *zap.Logger) (*Provider, error) {
	if querier == nil {
		return nil, errors.New("querier is nil")
	}
	if log == nil {
		return nil, errors.New("logger is nil")
	}

	p := &Provider{
		db:       querier,
		path:     filepath.Join(cacheDir, "session.json"),
		log:      log,
		now:      time.Now,
		handlers: make(map[int]func(ports.AuthEvent, *entities.Session)),
	}
	p.session = p.loadSession()
	return p, nil
}

// GetSession returns the current session, refreshing it first when the
// token has expired. (nil, nil) means signed out.
func (p *Provider) GetSession(ctx context.Context) (*entities.Session, error) {
	p.mu.Lock()
	session := p.session
	p.mu.Unlock()

	if session == nil {
		return nil, nil
	}
	if !session.Expired(p.now()) {
		copied := *session
		return &copied, nil
	}

	refreshed, err := p.refresh(ctx, session.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	p.setSession(refreshed, ports.AuthTokenRefreshed)
	copied := *refreshed
	return &copied, nil
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*entities.Session, error) {
	var token string
	err := p.db.QueryRow(ctx, "SELECT auth_sign_in($1, $2)", email, password).Scan(&token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, exceptions.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("sign in: %w", err)
	}

	session, err := sessionFromToken(token)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	p.setSession(session, ports.AuthSignedIn)
	copied := *session
	return &copied, nil
}

func (p *Provider) SignUp(ctx context.Context, email, password, name string) (*entities.Session, error) {
	var token string
	err := p.db.QueryRow(ctx, "SELECT auth_sign_up($1, $2, $3)", email, password, name).Scan(&token)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}

	session, err := sessionFromToken(token)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	p.setSession(session, ports.AuthSignedIn)
	copied := *session
	return &copied, nil
}

func (p *Provider) SignOut(ctx context.Context) error {
	p.setSession(nil, ports.AuthSignedOut)
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		p.log.Warn("remove session file", zap.Error(err))
	}
	return nil
}

func (p *Provider) OnAuthStateChange(fn func(ports.AuthEvent, *entities.Session)) ports.Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.handlers[id] = fn
	return &subscription{cancel: func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.handlers, id)
	}}
}

func (p *Provider) refresh(ctx context.Context, token string) (*entities.Session, error) {
	var fresh string
	if err := p.db.QueryRow(ctx, "SELECT auth_refresh($1)", token).Scan(&fresh); err != nil {
		return nil, err
	}
	return sessionFromToken(fresh)
}

func (p *Provider) setSession(session *entities.Session, event ports.AuthEvent) {
	p.mu.Lock()
	p.session = session
	handlers := make([]func(ports.AuthEvent, *entities.Session), 0, len(p.handlers))
	for _, fn := range p.handlers {
		handlers = append(handlers, fn)
	}
	p.mu.Unlock()

	if session != nil {
		p.saveSession(session)
	}
	for _, fn := range handlers {
		var copied *entities.Session
		if session != nil {
			c := *session
			copied = &c
		}
		fn(event, copied)
	}
}

// loadSession reads the persisted session; any problem with the file is
// treated as signed out.
func (p *Provider) loadSession() *entities.Session {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if !os.IsNotExist(err) {
			p.log.Warn("read session file", zap.Error(err))
		}
		return nil
	}
	var session entities.Session
	if err := json.Unmarshal(data, &session); err != nil {
		p.log.Warn("corrupt session file, discarding", zap.Error(err))
		return nil
	}
	if session.AccessToken == "" || session.UserID == "" {
		return nil
	}
	return &session
}

func (p *Provider) saveSession(session *entities.Session) {
	data, err := json.Marshal(session)
	if err != nil {
		p.log.Warn("encode session", zap.Error(err))
		return
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		p.log.Warn("write session file", zap.Error(err))
		return
	}
	if err := os.Rename(tmp, p.path); err != nil {
		p.log.Warn("replace session file", zap.Error(err))
	}
}

// sessionFromToken extracts user id and expiry from the backend-issued JWT.
// The signature is not checked here; the token is only forwarded back to
// the backend, which verifies it.
func sessionFromToken(token string) (*entities.Session, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	subject, err := parsed.Claims.GetSubject()
	if err != nil || subject == "" {
		return nil, errors.New("token has no subject")
	}

	session := &entities.Session{
		AccessToken: token,
		UserID:      subject,
	}
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		session.ExpiresAt = exp.Time
	}
	return session, nil
}

type subscription struct {
	once   sync.Once
	cancel func()
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

var _ ports.AuthProvider = (*Provider)(nil)
