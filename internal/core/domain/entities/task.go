package entities

import "time"

type TaskStatus string

// Normalized status vocabulary. The backend's stored procedures own the
// transition rules; the client never advances a status locally.
const (
	TaskStatusOpen            TaskStatus = "open"
	TaskStatusAssigned        TaskStatus = "assigned"
	TaskStatusPendingApproval TaskStatus = "pending_approval"
	TaskStatusInProgress      TaskStatus = "in_progress"
	TaskStatusCompleted       TaskStatus = "completed"
	TaskStatusCancelled       TaskStatus = "cancelled"
	TaskStatusExpired         TaskStatus = "expired"
)

type Task struct {
	ID          string     `json:"id"`
	AuthorID    string     `json:"author_id"`
	Author      *Profile   `json:"author,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Reward      float64    `json:"reward"`
	Duration    string     `json:"duration"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	HelperID    *string    `json:"helper_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (t *Task) Open() bool {
	return t.Status == TaskStatusOpen
}

// Involves reports whether the given user is a party to the task,
// either as its author or as the assigned helper.
func (t *Task) Involves(userID string) bool {
	if t.AuthorID == userID {
		return true
	}
	return t.HelperID != nil && *t.HelperID == userID
}
