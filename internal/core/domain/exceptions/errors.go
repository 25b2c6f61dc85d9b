package exceptions

import "errors"

var (
	ErrProfileNotFound     = errors.New("profile not found")
	ErrTaskNotFound        = errors.New("task not found")
	ErrMessageNotFound     = errors.New("message not found")
	ErrApplicationNotFound = errors.New("application not found")
	ErrNoSession           = errors.New("no active session")
	ErrSessionExpired      = errors.New("session expired")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidDuration     = errors.New("invalid duration")
	ErrEmptyContent        = errors.New("empty content")
	ErrRetriesExhausted    = errors.New("retries exhausted")
)

// IsNotFound reports whether err is one of the not-found sentinels. A
// missing profile is a creation trigger, not a failure, so callers branch on
// this before treating an error as remote trouble.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProfileNotFound) ||
		errors.Is(err, ErrTaskNotFound) ||
		errors.Is(err, ErrMessageNotFound) ||
		errors.Is(err, ErrApplicationNotFound)
}
