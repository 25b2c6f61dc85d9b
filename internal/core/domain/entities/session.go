package entities

import "time"

// Session mirrors the auth provider's session locally. At most one value
// exists at a time; it is mutated only by provider push events or explicit
// sign-in/out calls.
type Session struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
