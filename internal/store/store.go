// Package store defines the persistence contracts for messages and
// notifications. Implementations live in the memory and postgres
// subpackages.
package store

import (
	"context"
	"strings"

	"github.com/taskhive/messaging-platform/internal/apperr"
	"github.com/taskhive/messaging-platform/internal/model"
)

// MessageStore is the durable record of messages between two users.
type MessageStore interface {
	// CreateMessage validates and persists a new message with
	// status=sent, read=false.
	CreateMessage(ctx context.Context, senderID, receiverID, content string, taskID *string) (*model.Message, error)

	// GetMessage returns a message by id.
	GetMessage(ctx context.Context, id string) (*model.Message, error)

	// ConversationMessages returns all messages between two users,
	// ascending by creation time.
	ConversationMessages(ctx context.Context, userA, userB string) ([]model.Message, error)

	// MarkRead sets read=true and status=read. No-op if already read.
	MarkRead(ctx context.Context, id string) (*model.Message, error)

	// MarkDelivered transitions sent -> delivered. No-op from any other
	// status, so a late MarkDelivered never regresses a read message.
	MarkDelivered(ctx context.Context, id string) (*model.Message, error)

	// UnreadFrom returns the unread messages sent by senderID to
	// receiverID, ascending by creation time.
	UnreadFrom(ctx context.Context, receiverID, senderID string) ([]model.Message, error)

	// ConversationSummaries computes one row per conversation partner
	// for userID: last message content/time and the viewer's unread
	// count. Row order is implementation-defined.
	ConversationSummaries(ctx context.Context, userID string) ([]model.ConversationSummary, error)
}

// NotificationStore is the durable record of events needing attention.
type NotificationStore interface {
	// CreateNotification validates and persists a notification with
	// read=false.
	CreateNotification(ctx context.Context, req *model.CreateNotificationRequest) (*model.Notification, error)

	// ListForUser returns a user's notifications, descending by
	// creation time.
	ListForUser(ctx context.Context, userID string) ([]model.Notification, error)

	// CountUnread returns the number of unread notifications.
	CountUnread(ctx context.Context, userID string) (int, error)

	// MarkRead sets read=true. Fails with a not-found error when the
	// notification does not exist or does not belong to userID.
	MarkRead(ctx context.Context, id, userID string) (*model.Notification, error)

	// Clear deletes all of a user's notifications.
	Clear(ctx context.Context, userID string) error
}

// ValidateNewMessage checks the inputs shared by all MessageStore
// implementations.
func ValidateNewMessage(senderID, receiverID, content string) error {
	if senderID == "" {
		return apperr.Validation("sender id is required")
	}
	if receiverID == "" {
		return apperr.Validation("receiver id is required")
	}
	if senderID == receiverID {
		return apperr.Validation("sender and receiver must be distinct")
	}
	if strings.TrimSpace(content) == "" {
		return apperr.Validation("content cannot be empty")
	}
	return nil
}

// ValidateNewNotification checks the inputs shared by all
// NotificationStore implementations.
func ValidateNewNotification(req *model.CreateNotificationRequest) error {
	if req.UserID == "" {
		return apperr.Validation("target user id is required")
	}
	if !req.Type.Valid() {
		return apperr.Validation("unknown notification type %q", req.Type)
	}
	if req.Type.RequiresOfferRef() {
		if req.TaskID == nil || *req.TaskID == "" {
			return apperr.Validation("%s notification requires a task reference", req.Type)
		}
		if req.OfferID == nil || *req.OfferID == "" {
			return apperr.Validation("%s notification requires an offer reference", req.Type)
		}
	}
	return nil
}
