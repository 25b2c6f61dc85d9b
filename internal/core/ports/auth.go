package ports

import (
	"context"

	"microtask/internal/core/domain/entities"
)

type AuthEvent string

const (
	AuthSignedIn       AuthEvent = "SIGNED_IN"
	AuthSignedOut      AuthEvent = "SIGNED_OUT"
	AuthTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	AuthUserUpdated    AuthEvent = "USER_UPDATED"
)

// AuthProvider is the managed auth backend. GetSession returns (nil, nil)
// when no session exists; an expired persisted session is refreshed
// transparently.
type AuthProvider interface {
	GetSession(ctx context.Context) (*entities.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*entities.Session, error)
	SignUp(ctx context.Context, email, password, name string) (*entities.Session, error)
	SignOut(ctx context.Context) error
	OnAuthStateChange(fn func(AuthEvent, *entities.Session)) Subscription
}
