package service

import (
	"context"

	"github.com/taskhive/messaging-platform/internal/model"
	"github.com/taskhive/messaging-platform/internal/store"
	"github.com/taskhive/messaging-platform/pkg/logger"
)

// NotificationService handles the notification read surface. Creation
// goes through the dispatcher so live delivery and push stay in one
// place.
type NotificationService struct {
	notifications store.NotificationStore
	logger        *logger.Logger
}

// NewNotificationService creates a notification service.
func NewNotificationService(notifications store.NotificationStore, log *logger.Logger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		logger:        log,
	}
}

// List returns a user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string) (*model.ListNotificationsResponse, error) {
	notifications, err := s.notifications.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.ListNotificationsResponse{Notifications: notifications}, nil
}

// CountUnread returns the unread badge count.
func (s *NotificationService) CountUnread(ctx context.Context, userID string) (*model.UnreadCountResponse, error) {
	count, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.UnreadCountResponse{Count: count}, nil
}

// MarkRead acknowledges one notification on behalf of its target user.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) (*model.Notification, error) {
	return s.notifications.MarkRead(ctx, id, userID)
}

// Clear deletes all of a user's notifications.
func (s *NotificationService) Clear(ctx context.Context, userID string) error {
	return s.notifications.Clear(ctx, userID)
}
