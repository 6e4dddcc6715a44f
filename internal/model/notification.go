package model

import (
	"time"
)

// NotificationType represents the kind of event a notification carries.
type NotificationType string

const (
	NotificationOffer         NotificationType = "offer"
	NotificationMessage       NotificationType = "message"
	NotificationOfferAccepted NotificationType = "offer_accepted"
	NotificationOfferRejected NotificationType = "offer_rejected"
)

// Valid reports whether t is one of the enumerated kinds.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationOffer, NotificationMessage, NotificationOfferAccepted, NotificationOfferRejected:
		return true
	}
	return false
}

// RequiresOfferRef reports whether this kind must carry task and offer
// references.
func (t NotificationType) RequiresOfferRef() bool {
	switch t {
	case NotificationOffer, NotificationOfferAccepted, NotificationOfferRejected:
		return true
	case NotificationMessage:
		return false
	}
	return false
}

// Notification represents an event needing a user's attention.
type Notification struct {
	ID     string           `json:"id"`
	UserID string           `json:"user_id"`
	Type   NotificationType `json:"type"`

	TaskID  *string `json:"task_id,omitempty"`
	OfferID *string `json:"offer_id,omitempty"`

	Text string `json:"text"`

	SenderID string `json:"sender_id"`
	// SenderName is denormalized for display without a directory lookup.
	SenderName string `json:"sender_name"`

	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateNotificationRequest is the payload accepted from business-event
// producers.
type CreateNotificationRequest struct {
	UserID     string           `json:"user_id"`
	Type       NotificationType `json:"type"`
	TaskID     *string          `json:"task_id,omitempty"`
	OfferID    *string          `json:"offer_id,omitempty"`
	Text       string           `json:"text"`
	SenderID   string           `json:"sender_id"`
	SenderName string           `json:"sender_name"`
}

// ListNotificationsResponse is the response for listing notifications.
type ListNotificationsResponse struct {
	Notifications []Notification `json:"notifications"`
}

// UnreadCountResponse is the response for the unread-count query.
type UnreadCountResponse struct {
	Count int `json:"count"`
}
