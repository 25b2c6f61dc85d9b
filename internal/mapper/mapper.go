// Package mapper decodes realtime change payloads into domain entities.
// The backend's triggers NOTIFY a JSON envelope of the shape
//
//	{"op":"INSERT|UPDATE|DELETE","table":"tasks","record":{...},"old":{...}}
//
// where record is the new row (absent on delete) and old the previous row
// (absent on insert).
package mapper

import (
	"encoding/json"
	"fmt"
	"time"

	"microtask/internal/core/domain/entities"
)

type envelope struct {
	Op     string          `json:"op"`
	Table  string          `json:"table"`
	Record json.RawMessage `json:"record"`
	Old    json.RawMessage `json:"old"`
}

type taskRow struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"author_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Reward      float64   `json:"reward"`
	Duration    string    `json:"duration"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	HelperID    *string   `json:"helper_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type messageRow struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskChange decodes a tasks-channel payload.
func TaskChange(payload []byte) (entities.TaskChange, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return entities.TaskChange{}, fmt.Errorf("task change payload: %w", err)
	}
	op, err := changeOp(env.Op)
	if err != nil {
		return entities.TaskChange{}, err
	}

	ch := entities.TaskChange{Op: op}
	if len(env.Record) > 0 {
		task, err := decodeTask(env.Record)
		if err != nil {
			return entities.TaskChange{}, err
		}
		ch.Task = task
		ch.TaskID = task.ID
	}
	if len(env.Old) > 0 {
		old, err := decodeTask(env.Old)
		if err != nil {
			return entities.TaskChange{}, err
		}
		ch.Old = old
		if ch.TaskID == "" {
			ch.TaskID = old.ID
		}
	}
	if ch.TaskID == "" {
		return entities.TaskChange{}, fmt.Errorf("task change payload: no task id")
	}
	return ch, nil
}

// MessageChange decodes a messages-channel payload.
func MessageChange(payload []byte) (entities.MessageChange, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return entities.MessageChange{}, fmt.Errorf("message change payload: %w", err)
	}
	op, err := changeOp(env.Op)
	if err != nil {
		return entities.MessageChange{}, err
	}
	raw := env.Record
	if len(raw) == 0 {
		// Deletes carry only the previous row.
		raw = env.Old
	}
	if len(raw) == 0 {
		return entities.MessageChange{}, fmt.Errorf("message change payload: no record")
	}

	var row messageRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return entities.MessageChange{}, fmt.Errorf("message row: %w", err)
	}
	return entities.MessageChange{
		Op: op,
		Message: &entities.Message{
			ID:        row.ID,
			TaskID:    row.TaskID,
			SenderID:  row.SenderID,
			Content:   row.Content,
			Read:      row.Read,
			CreatedAt: row.CreatedAt,
		},
	}, nil
}

func decodeTask(raw json.RawMessage) (*entities.Task, error) {
	var row taskRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, fmt.Errorf("task row: %w", err)
	}
	return &entities.Task{
		ID:          row.ID,
		AuthorID:    row.AuthorID,
		Title:       row.Title,
		Description: row.Description,
		Status:      entities.TaskStatus(row.Status),
		Reward:      row.Reward,
		Duration:    row.Duration,
		Latitude:    row.Latitude,
		Longitude:   row.Longitude,
		HelperID:    row.HelperID,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

func changeOp(op string) (entities.ChangeOp, error) {
	switch entities.ChangeOp(op) {
	case entities.ChangeInsert, entities.ChangeUpdate, entities.ChangeDelete:
		return entities.ChangeOp(op), nil
	default:
		return "", fmt.Errorf("unknown change op %q", op)
	}
}
