package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhive/messaging-platform/internal/apperr"
	"github.com/taskhive/messaging-platform/internal/model"
	"github.com/taskhive/messaging-platform/internal/store"
)

// NotificationStore is a pgx-backed store.NotificationStore.
type NotificationStore struct {
	db *pgxpool.Pool
}

// NewNotificationStore creates a notification store over the given pool.
func NewNotificationStore(db *pgxpool.Pool) *NotificationStore {
	return &NotificationStore{db: db}
}

const notificationColumns = `id, user_id, type, task_id, offer_id, text, sender_id, sender_name, read, created_at`

func scanNotification(row pgx.Row) (*model.Notification, error) {
	var n model.Notification
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Type,
		&n.TaskID,
		&n.OfferID,
		&n.Text,
		&n.SenderID,
		&n.SenderName,
		&n.Read,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// CreateNotification validates and persists a notification.
func (s *NotificationStore) CreateNotification(ctx context.Context, req *model.CreateNotificationRequest) (*model.Notification, error) {
	if err := store.ValidateNewNotification(req); err != nil {
		return nil, err
	}

	n := &model.Notification{
		ID:         uuid.Must(uuid.NewV7()).String(),
		UserID:     req.UserID,
		Type:       req.Type,
		TaskID:     req.TaskID,
		OfferID:    req.OfferID,
		Text:       req.Text,
		SenderID:   req.SenderID,
		SenderName: req.SenderName,
		CreatedAt:  time.Now(),
	}

	query := `
		INSERT INTO notifications (id, user_id, type, task_id, offer_id, text, sender_id, sender_name, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.Exec(ctx, query,
		n.ID,
		n.UserID,
		n.Type,
		n.TaskID,
		n.OfferID,
		n.Text,
		n.SenderID,
		n.SenderName,
		n.Read,
		n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return n, nil
}

// ListForUser returns a user's notifications, newest first.
func (s *NotificationStore) ListForUser(ctx context.Context, userID string) ([]model.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// CountUnread returns the number of unread notifications.
func (s *NotificationStore) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`,
		userID,
	).Scan(&count)
	return count, err
}

// MarkRead sets read=true, rejecting ids owned by another user.
func (s *NotificationStore) MarkRead(ctx context.Context, id, userID string) (*model.Notification, error) {
	query := `
		UPDATE notifications SET read = TRUE
		WHERE id = $1 AND user_id = $2
		RETURNING ` + notificationColumns

	n, err := scanNotification(s.db.QueryRow(ctx, query, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("notification %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Clear deletes all of a user's notifications.
func (s *NotificationStore) Clear(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID)
	return err
}
