package postgres

import (
	"context"
	"time"

	"go.uber.org/zap"

	"microtask/internal/core/domain/entities"
	"microtask/internal/infrastructure/db"
)

type MessageRepository struct {
	db  db.Querier
	log *zap.Logger
}

func NewMessageRepository(db db.Querier, log *zap.Logger) *MessageRepository {
	if db == nil {
		log.Fatal("database querier is nil")
	}
	if log == nil {
		panic("logger is nil")
	}
	return &MessageRepository{
		db:  db,
		log: log,
	}
}

func (r *MessageRepository) Create(ctx context.Context, message *entities.Message) error {
	query := `INSERT INTO messages (id, task_id, sender_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.db.Exec(
		ctx,
		query,
		message.ID,
		message.TaskID,
		message.SenderID,
		message.Content,
		message.CreatedAt,
	); err != nil {
		r.log.Error("failed to create message", zap.Error(err))
		return err
	}
	return nil
}

func (r *MessageRepository) ListByTask(ctx context.Context, taskID string) ([]*entities.Message, error) {
	query := `SELECT id, task_id, sender_id, content, read, created_at
		FROM messages WHERE task_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, taskID)
	if err != nil {
		r.log.Error("failed to list messages", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	messages := make([]*entities.Message, 0)
	for rows.Next() {
		message := entities.Message{}
		if err := rows.Scan(
			&message.ID,
			&message.TaskID,
			&message.SenderID,
			&message.Content,
			&message.Read,
			&message.CreatedAt,
		); err != nil {
			r.log.Error("failed to scan message row", zap.Error(err))
			return nil, err
		}
		messages = append(messages, &message)
	}

	if err := rows.Err(); err != nil {
		r.log.Error("failed to iterate message rows", zap.Error(err))
		return nil, err
	}

	return messages, nil
}

func (r *MessageRepository) CountSince(ctx context.Context, taskID, excludeSender string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM messages
		WHERE task_id = $1 AND sender_id <> $2 AND created_at > $3`

	var count int
	if err := r.db.QueryRow(ctx, query, taskID, excludeSender, since).Scan(&count); err != nil {
		r.log.Error("failed to count messages", zap.Error(err))
		return 0, err
	}
	return count, nil
}

func (r *MessageRepository) ListRecentUnread(ctx context.Context, userID string, limit int) ([]*entities.Message, error) {
	query := `SELECT m.id, m.task_id, m.sender_id, m.content, m.read, m.created_at
		FROM messages m
		JOIN tasks t ON t.id = m.task_id
		WHERE m.sender_id <> $1
			AND m.read = false
			AND (t.author_id = $1 OR t.helper_id = $1)
		ORDER BY m.created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		r.log.Error("failed to list unread messages", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	messages := make([]*entities.Message, 0)
	for rows.Next() {
		message := entities.Message{}
		if err := rows.Scan(
			&message.ID,
			&message.TaskID,
			&message.SenderID,
			&message.Content,
			&message.Read,
			&message.CreatedAt,
		); err != nil {
			r.log.Error("failed to scan unread message row", zap.Error(err))
			return nil, err
		}
		messages = append(messages, &message)
	}

	if err := rows.Err(); err != nil {
		r.log.Error("failed to iterate unread message rows", zap.Error(err))
		return nil, err
	}

	return messages, nil
}
