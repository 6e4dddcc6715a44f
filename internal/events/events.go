// Package events bridges marketplace business events to the messaging
// core over NATS. Offer lifecycle events are published by the offer
// service and consumed here to produce notifications, keeping the
// coupling explicit instead of hiding it in entity save hooks.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/taskhive/messaging-platform/internal/model"
	natsclient "github.com/taskhive/messaging-platform/internal/nats"
	"github.com/taskhive/messaging-platform/pkg/logger"
)

const (
	// SubjectOfferCreated is published when a user submits an offer.
	SubjectOfferCreated = "offer.created"
	// SubjectOfferAccepted is published when a task owner accepts an offer.
	SubjectOfferAccepted = "offer.accepted"
	// SubjectOfferRejected is published when a task owner rejects an offer.
	SubjectOfferRejected = "offer.rejected"

	// offerWildcard subscribes to the whole offer lifecycle.
	offerWildcard = "offer.*"
)

// OfferEvent is the wire payload for all offer lifecycle subjects.
type OfferEvent struct {
	TaskID       string    `json:"task_id"`
	OfferID      string    `json:"offer_id"`
	TargetUserID string    `json:"target_user_id"`
	ActorID      string    `json:"actor_id"`
	ActorName    string    `json:"actor_name"`
	Text         string    `json:"text"`
	At           time.Time `json:"at"`
}

// kindForSubject maps an offer subject to the notification kind it
// produces.
func kindForSubject(subject string) (model.NotificationType, bool) {
	switch subject {
	case SubjectOfferCreated:
		return model.NotificationOffer, true
	case SubjectOfferAccepted:
		return model.NotificationOfferAccepted, true
	case SubjectOfferRejected:
		return model.NotificationOfferRejected, true
	}
	return "", false
}

// SubjectForKind is the inverse mapping, used by publishers.
func SubjectForKind(kind model.NotificationType) (string, bool) {
	switch kind {
	case model.NotificationOffer:
		return SubjectOfferCreated, true
	case model.NotificationOfferAccepted:
		return SubjectOfferAccepted, true
	case model.NotificationOfferRejected:
		return SubjectOfferRejected, true
	}
	return "", false
}

// Handler consumes decoded offer events.
type Handler interface {
	HandleOfferEvent(ctx context.Context, kind model.NotificationType, evt *OfferEvent) error
}

// Publisher publishes offer lifecycle events.
type Publisher struct {
	client *natsclient.Client
}

// NewPublisher creates a publisher over the given client.
func NewPublisher(client *natsclient.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish emits an offer event on the subject for its kind.
func (p *Publisher) Publish(kind model.NotificationType, evt *OfferEvent) error {
	subject, ok := SubjectForKind(kind)
	if !ok {
		return fmt.Errorf("no subject for notification kind %q", kind)
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal offer event: %w", err)
	}
	return p.client.Conn().Publish(subject, data)
}

// Subscriber consumes offer events and forwards them to a handler.
type Subscriber struct {
	client  *natsclient.Client
	handler Handler
	logger  *logger.Logger
}

// NewSubscriber creates a subscriber delivering to handler.
func NewSubscriber(client *natsclient.Client, handler Handler, log *logger.Logger) *Subscriber {
	return &Subscriber{
		client:  client,
		handler: handler,
		logger:  log,
	}
}

// Start subscribes to the offer lifecycle subjects. The returned stop
// function drains the subscription.
func (s *Subscriber) Start(ctx context.Context) (func(), error) {
	sub, err := s.client.Conn().Subscribe(offerWildcard, func(m *nats.Msg) {
		s.handle(ctx, m.Subject, m.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", offerWildcard, err)
	}

	return func() { _ = sub.Drain() }, nil
}

func (s *Subscriber) handle(ctx context.Context, subject string, data []byte) {
	kind, ok := kindForSubject(subject)
	if !ok {
		s.logger.Warn("unexpected offer subject", zap.String("subject", subject))
		return
	}

	var evt OfferEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		s.logger.Error("failed to decode offer event",
			zap.String("subject", subject),
			zap.Error(err),
		)
		return
	}

	if err := s.handler.HandleOfferEvent(ctx, kind, &evt); err != nil {
		s.logger.Error("offer event handling failed",
			zap.String("subject", subject),
			zap.String("task_id", evt.TaskID),
			zap.String("offer_id", evt.OfferID),
			zap.Error(err),
		)
	}
}
