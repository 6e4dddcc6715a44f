package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhive/messaging-platform/internal/apperr"
	"github.com/taskhive/messaging-platform/internal/model"
	"github.com/taskhive/messaging-platform/internal/store"
)

// MessageStore is a pgx-backed store.MessageStore.
type MessageStore struct {
	db *pgxpool.Pool
}

// NewMessageStore creates a message store over the given pool.
func NewMessageStore(db *pgxpool.Pool) *MessageStore {
	return &MessageStore{db: db}
}

const messageColumns = `id, sender_id, receiver_id, task_id, content, status, read, created_at`

func scanMessage(row pgx.Row) (*model.Message, error) {
	var msg model.Message
	err := row.Scan(
		&msg.ID,
		&msg.SenderID,
		&msg.ReceiverID,
		&msg.TaskID,
		&msg.Content,
		&msg.Status,
		&msg.Read,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// CreateMessage validates and persists a new message.
func (s *MessageStore) CreateMessage(ctx context.Context, senderID, receiverID, content string, taskID *string) (*model.Message, error) {
	if err := store.ValidateNewMessage(senderID, receiverID, content); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ID:         uuid.Must(uuid.NewV7()).String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		TaskID:     taskID,
		Content:    strings.TrimSpace(content),
		Status:     model.StatusSent,
		CreatedAt:  time.Now(),
	}

	query := `
		INSERT INTO messages (id, sender_id, receiver_id, task_id, content, status, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.Exec(ctx, query,
		msg.ID,
		msg.SenderID,
		msg.ReceiverID,
		msg.TaskID,
		msg.Content,
		msg.Status,
		msg.Read,
		msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return msg, nil
}

// GetMessage returns a message by id.
func (s *MessageStore) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	msg, err := scanMessage(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("message %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ConversationMessages returns all messages between two users ascending
// by creation time.
func (s *MessageStore) ConversationMessages(ctx context.Context, userA, userB string) ([]model.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.Query(ctx, query, userA, userB)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectMessages(rows)
}

// MarkRead sets read=true and status=read. Idempotent.
func (s *MessageStore) MarkRead(ctx context.Context, id string) (*model.Message, error) {
	query := `
		UPDATE messages SET read = TRUE, status = $2
		WHERE id = $1
		RETURNING ` + messageColumns

	msg, err := scanMessage(s.db.QueryRow(ctx, query, id, model.StatusRead))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("message %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// MarkDelivered transitions sent -> delivered. The status guard in the
// WHERE clause makes a late call after MarkRead a no-op.
func (s *MessageStore) MarkDelivered(ctx context.Context, id string) (*model.Message, error) {
	query := `
		UPDATE messages SET status = $2
		WHERE id = $1 AND status = $3
		RETURNING ` + messageColumns

	msg, err := scanMessage(s.db.QueryRow(ctx, query, id, model.StatusDelivered, model.StatusSent))
	if err == nil {
		return msg, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// Either missing or already past sent; fetch to tell the two apart.
	return s.GetMessage(ctx, id)
}

// UnreadFrom returns unread messages from senderID to receiverID.
func (s *MessageStore) UnreadFrom(ctx context.Context, receiverID, senderID string) ([]model.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE receiver_id = $1 AND sender_id = $2 AND read = FALSE
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.Query(ctx, query, receiverID, senderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectMessages(rows)
}

// ConversationSummaries groups the user's messages by conversation
// partner in a single query.
func (s *MessageStore) ConversationSummaries(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	query := `
		WITH convo AS (
			SELECT
				CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS peer_id,
				content,
				created_at,
				id,
				CASE WHEN receiver_id = $1 AND NOT read THEN 1 ELSE 0 END AS unread
			FROM messages
			WHERE sender_id = $1 OR receiver_id = $1
		)
		SELECT
			peer_id,
			(array_agg(content ORDER BY created_at DESC, id DESC))[1] AS last_message,
			MAX(created_at) AS last_message_at,
			SUM(unread)::int AS unread_count
		FROM convo
		GROUP BY peer_id
	`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ConversationSummary
	for rows.Next() {
		var sum model.ConversationSummary
		if err := rows.Scan(&sum.PeerID, &sum.LastMessage, &sum.LastMessageAt, &sum.UnreadCount); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func collectMessages(rows pgx.Rows) ([]model.Message, error) {
	var msgs []model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *msg)
	}
	return msgs, rows.Err()
}
