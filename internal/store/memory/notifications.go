package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/messaging-platform/internal/apperr"
	"github.com/taskhive/messaging-platform/internal/model"
	"github.com/taskhive/messaging-platform/internal/store"
)

// NotificationStore is an in-memory store.NotificationStore.
type NotificationStore struct {
	mu            sync.RWMutex
	notifications map[string]*model.Notification
}

// NewNotificationStore creates an empty in-memory notification store.
func NewNotificationStore() *NotificationStore {
	return &NotificationStore{
		notifications: make(map[string]*model.Notification),
	}
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
		Read:       false,
		CreatedAt:  time.Now(),
	}

	s.mu.Lock()
	s.notifications[n.ID] = n
	s.mu.Unlock()

	out := *n
	return &out, nil
}

// ListForUser returns a user's notifications, newest first.
func (s *NotificationStore) ListForUser(ctx context.Context, userID string) ([]model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// CountUnread returns the number of unread notifications.
func (s *NotificationStore) CountUnread(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

// MarkRead sets read=true. The ownership check rejects cross-user
// read-marking with the same not-found error as a missing id.
func (s *NotificationStore) MarkRead(ctx context.Context, id, userID string) (*model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return nil, apperr.NotFound("notification %s not found", id)
	}

	n.Read = true
	out := *n
	return &out, nil
}

// Clear deletes all of a user's notifications.
func (s *NotificationStore) Clear(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, n := range s.notifications {
		if n.UserID == userID {
			delete(s.notifications, id)
		}
	}
	return nil
}
