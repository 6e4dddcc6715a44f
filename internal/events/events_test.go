package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/taskhive/messaging-platform/internal/model"
	"github.com/taskhive/messaging-platform/pkg/logger"
)

func TestSubjectKindMapping(t *testing.T) {
	tests := []struct {
		subject string
		kind    model.NotificationType
	}{
		{SubjectOfferCreated, model.NotificationOffer},
		{SubjectOfferAccepted, model.NotificationOfferAccepted},
		{SubjectOfferRejected, model.NotificationOfferRejected},
	}

	for _, tt := range tests {
		kind, ok := kindForSubject(tt.subject)
		if !ok || kind != tt.kind {
			t.Errorf("kindForSubject(%s) = %q, %v", tt.subject, kind, ok)
		}

		subject, ok := SubjectForKind(tt.kind)
		if !ok || subject != tt.subject {
			t.Errorf("SubjectForKind(%s) = %q, %v", tt.kind, subject, ok)
		}
	}

	if _, ok := kindForSubject("offer.weird"); ok {
		t.Error("unknown subject mapped to a kind")
	}
	// Message notifications never travel the offer subjects.
	if _, ok := SubjectForKind(model.NotificationMessage); ok {
		t.Error("message kind mapped to an offer subject")
	}
}

type capturingHandler struct {
	kind model.NotificationType
	evt  *OfferEvent
}

func (h *capturingHandler) HandleOfferEvent(ctx context.Context, kind model.NotificationType, evt *OfferEvent) error {
	h.kind = kind
	h.evt = evt
	return nil
}

func TestHandleDecodesAndRoutes(t *testing.T) {
	handler := &capturingHandler{}
	sub := NewSubscriber(nil, handler, logger.NewNop())

	evt := OfferEvent{
		TaskID:       "task-1",
		OfferID:      "offer-1",
		TargetUserID: "alice",
		ActorID:      "bob",
		ActorName:    "Bob",
		Text:         "Bob offered $40",
		At:           time.Now().UTC(),
	}
	data, _ := json.Marshal(evt)

	sub.handle(context.Background(), SubjectOfferAccepted, data)

	if handler.evt == nil {
		t.Fatal("handler never invoked")
	}
	if handler.kind != model.NotificationOfferAccepted {
		t.Errorf("kind %q", handler.kind)
	}
	if handler.evt.TaskID != "task-1" || handler.evt.ActorName != "Bob" {
		t.Errorf("payload mangled: %+v", handler.evt)
	}
}

func TestHandleIgnoresBadInput(t *testing.T) {
	handler := &capturingHandler{}
	sub := NewSubscriber(nil, handler, logger.NewNop())
	ctx := context.Background()

	sub.handle(ctx, "offer.unknown", []byte(`{}`))
	sub.handle(ctx, SubjectOfferCreated, []byte(`{not json`))

	if handler.evt != nil {
		t.Error("handler invoked for undecodable input")
	}
}
