package entities

import "time"

// Notification is a session-scoped alert about a new message on one of the
// user's tasks. Notifications are never persisted beyond the session.
type Notification struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	TaskTitle  string    `json:"task_title"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

type UpdateKind string

// Terminal transitions get their own kind so consumers can react without
// inspecting NewStatus; every other status move is a plain status_change.
const (
	UpdateStatusChange UpdateKind = "status_change"
	UpdateAssigned     UpdateKind = "assigned"
	UpdateCompleted    UpdateKind = "completed"
	UpdateCancelled    UpdateKind = "cancelled"
)

// TaskUpdate is a tagged variant over the kinds of task activity the
// aggregator tracks. OldStatus/NewStatus are set for the status kinds,
// HelperID for assigned.
type TaskUpdate struct {
	Kind      UpdateKind `json:"kind"`
	TaskID    string     `json:"task_id"`
	OldStatus TaskStatus `json:"old_status,omitempty"`
	NewStatus TaskStatus `json:"new_status,omitempty"`
	HelperID  string     `json:"helper_id,omitempty"`
	At        time.Time  `json:"at"`
}
