package ports

import (
	"time"

	"microtask/internal/core/domain/entities"
)

// ProfileStore is the durable local profile cache. Entries are whole
// snapshots, replaced wholesale; the remote store stays authoritative on
// conflict.
type ProfileStore interface {
	Get(id string) (*entities.Profile, bool)
	Put(profile *entities.Profile) error
	Delete(id string) error
}

// VisitStore records when the user last opened a task's conversation, for
// unread counting.
type VisitStore interface {
	LastVisit(taskID string) (time.Time, bool)
	Visit(taskID string, at time.Time) error
}

// AlertSink raises a user-facing alert (the platform notification analog).
type AlertSink interface {
	Notify(title, body string)
}
