package entities

import "time"

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

type Application struct {
	ID          string            `json:"id"`
	TaskID      string            `json:"task_id"`
	ApplicantID string            `json:"applicant_id"`
	Message     string            `json:"message"`
	Status      ApplicationStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
}

type Acceptance struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	HelperID  string    `json:"helper_id"`
	CreatedAt time.Time `json:"created_at"`
}

type PendingStartRequest struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	HelperID  string    `json:"helper_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Review struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	ReviewerID string    `json:"reviewer_id"`
	RevieweeID string    `json:"reviewee_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

// HistoryEntry is one row of the task_history view: a closed task seen from
// one participant's side.
type HistoryEntry struct {
	TaskID           string     `json:"task_id"`
	Title            string     `json:"title"`
	Status           TaskStatus `json:"status"`
	Role             string     `json:"role"`
	CounterpartyName string     `json:"counterparty_name"`
	ClosedAt         time.Time  `json:"closed_at"`
}
