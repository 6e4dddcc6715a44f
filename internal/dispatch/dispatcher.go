// Package dispatch orchestrates message and notification delivery:
// persist first, then fan out live or fall back to remote push. All
// delivery failures degrade gracefully; only persistence failures are
// surfaced to the sender.
package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/taskhive/messaging-platform/internal/cache"
	"github.com/taskhive/messaging-platform/internal/directory"
	"github.com/taskhive/messaging-platform/internal/model"
	"github.com/taskhive/messaging-platform/internal/presence"
	"github.com/taskhive/messaging-platform/internal/push"
	"github.com/taskhive/messaging-platform/internal/store"
	"github.com/taskhive/messaging-platform/pkg/logger"
	"github.com/taskhive/messaging-platform/pkg/metrics"
)

// TaskUpdater receives offer lifecycle events so the task record's
// bookkeeping (last-offer timestamp) stays decoupled from this core.
type TaskUpdater interface {
	OfferActivity(ctx context.Context, taskID, offerID string, at time.Time) error
}

// NopTaskUpdater ignores offer activity.
type NopTaskUpdater struct{}

// OfferActivity implements TaskUpdater.
func (NopTaskUpdater) OfferActivity(ctx context.Context, taskID, offerID string, at time.Time) error {
	return nil
}

// Dispatcher is the orchestration point for every message send and
// notification-producing business event.
type Dispatcher struct {
	messages      store.MessageStore
	notifications store.NotificationStore
	registry      *presence.Registry
	directory     directory.Directory
	provider      push.Provider    // nil disables remote push
	reconciler    *push.Reconciler // nil disables receipt tracking
	convCache     *cache.Conversations
	taskUpdater   TaskUpdater
	logger        *logger.Logger
}

// Options carries the optional dispatcher collaborators.
type Options struct {
	Provider    push.Provider
	Reconciler  *push.Reconciler
	ConvCache   *cache.Conversations
	TaskUpdater TaskUpdater
}

// New creates a dispatcher.
func New(
	messages store.MessageStore,
	notifications store.NotificationStore,
	registry *presence.Registry,
	dir directory.Directory,
	opts Options,
	log *logger.Logger,
) *Dispatcher {
	if opts.TaskUpdater == nil {
		opts.TaskUpdater = NopTaskUpdater{}
	}
	return &Dispatcher{
		messages:      messages,
		notifications: notifications,
		registry:      registry,
		directory:     dir,
		provider:      opts.Provider,
		reconciler:    opts.Reconciler,
		convCache:     opts.ConvCache,
		taskUpdater:   opts.TaskUpdater,
		logger:        log,
	}
}

// SendMessage persists a message and delivers it: live fan-out when the
// receiver has connections, remote push otherwise. Persistence failures
// are returned; delivery failures are logged only.
func (d *Dispatcher) SendMessage(ctx context.Context, senderID string, req *model.SendMessageRequest) (*model.Message, error) {
	start := time.Now()

	msg, err := d.messages.CreateMessage(ctx, senderID, req.ReceiverID, req.Content, req.TaskID)
	if err != nil {
		return nil, err
	}
	metrics.MessagesTotal.WithLabelValues("sent").Inc()

	d.recordInCache(ctx, msg)

	receiverConns := d.registry.ConnectionsFor(msg.ReceiverID)
	if len(receiverConns) > 0 {
		delivered := d.fanOut(receiverConns, model.EventNewMessage, msg)

		// Multi-device echo so the sender's other clients render the
		// message without a refetch.
		d.fanOut(d.registry.ConnectionsFor(msg.SenderID), model.EventNewMessage, msg)

		if delivered > 0 {
			if updated, err := d.messages.MarkDelivered(ctx, msg.ID); err != nil {
				d.logger.Error("failed to mark message delivered",
					zap.String("message_id", msg.ID),
					zap.Error(err),
				)
			} else {
				msg = updated
				metrics.MessagesTotal.WithLabelValues("delivered").Inc()
				d.fanOut(d.registry.ConnectionsFor(msg.SenderID), model.EventMessageDelivered,
					model.MessageRef{MessageID: msg.ID})
			}
		}
		metrics.RecordDispatch("live", time.Since(start).Seconds())
	} else {
		d.remotePushMessage(ctx, msg)
		metrics.RecordDispatch("push", time.Since(start).Seconds())
	}

	// Idempotent, order-independent refresh signal for any open
	// conversation-list view.
	d.fanOut(receiverConns, model.EventConversationUpdate, model.PeerRef{PeerID: msg.SenderID})

	return msg, nil
}

// MarkConversationRead marks all unread messages from peerID to userID
// as read and routes a read receipt to the sender when connected. Safe
// to call repeatedly: an already-read conversation yields no events.
func (d *Dispatcher) MarkConversationRead(ctx context.Context, userID, peerID string) error {
	unread, err := d.messages.UnreadFrom(ctx, userID, peerID)
	if err != nil {
		return err
	}
	if len(unread) == 0 {
		return nil
	}

	senderConns := d.registry.ConnectionsFor(peerID)

	for _, msg := range unread {
		if _, err := d.messages.MarkRead(ctx, msg.ID); err != nil {
			d.logger.Error("failed to mark message read",
				zap.String("message_id", msg.ID),
				zap.String("user_id", userID),
				zap.Error(err),
			)
			continue
		}
		metrics.MessagesTotal.WithLabelValues("read").Inc()
		d.fanOut(senderConns, model.EventMessageRead, model.MessageRef{MessageID: msg.ID})
	}

	if d.convCache != nil {
		if err := d.convCache.MarkRead(ctx, userID, peerID); err != nil {
			d.logger.Warn("conversation cache mark-read failed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// MarkDelivered records a receiver-side delivery acknowledgment and
// notifies the sender's connections.
func (d *Dispatcher) MarkDelivered(ctx context.Context, messageID string) error {
	msg, err := d.messages.MarkDelivered(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.Status == model.StatusDelivered {
		d.fanOut(d.registry.ConnectionsFor(msg.SenderID), model.EventMessageDelivered,
			model.MessageRef{MessageID: msg.ID})
	}
	return nil
}

// CreateNotification persists a notification from a business-event
// producer and delivers it live or via remote push.
func (d *Dispatcher) CreateNotification(ctx context.Context, req *model.CreateNotificationRequest) (*model.Notification, error) {
	n, err := d.notifications.CreateNotification(ctx, req)
	if err != nil {
		return nil, err
	}
	metrics.NotificationsTotal.WithLabelValues(string(n.Type)).Inc()

	conns := d.registry.ConnectionsFor(n.UserID)
	if len(conns) > 0 {
		d.fanOut(conns, model.EventNotification, n)
	} else {
		d.remotePushNotification(ctx, n)
	}

	return n, nil
}

// recordInCache keeps the conversation cache warm; cache failures never
// affect the send.
func (d *Dispatcher) recordInCache(ctx context.Context, msg *model.Message) {
	if d.convCache == nil {
		return
	}
	if err := d.convCache.RecordMessage(ctx, msg); err != nil {
		d.logger.Warn("conversation cache update failed",
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
	}
}

// fanOut sends an event to every connection and returns the number of
// successful sends. Transport errors are logged and otherwise ignored:
// the record is already persisted and the receiver sees it on next
// fetch.
func (d *Dispatcher) fanOut(conns []presence.Conn, eventType model.EventType, data any) int {
	if len(conns) == 0 {
		return 0
	}

	event, err := model.NewEvent(eventType, data)
	if err != nil {
		d.logger.Error("failed to encode event", zap.String("event", string(eventType)), zap.Error(err))
		return 0
	}

	sent := 0
	for _, conn := range conns {
		if err := conn.SendEvent(event); err != nil {
			metrics.LiveDeliveriesTotal.WithLabelValues(string(eventType), "error").Inc()
			d.logger.Warn("live delivery failed",
				zap.String("event", string(eventType)),
				zap.Error(err),
			)
			continue
		}
		metrics.LiveDeliveriesTotal.WithLabelValues(string(eventType), "ok").Inc()
		sent++
	}
	return sent
}

// remotePushMessage queues a remote push for an offline receiver. The
// message stays at status sent: push delivery is asynchronous and never
// authoritative.
func (d *Dispatcher) remotePushMessage(ctx context.Context, msg *model.Message) {
	if d.provider == nil {
		return
	}

	receiver, err := d.directory.FindUser(ctx, msg.ReceiverID)
	if err != nil || receiver.PushToken == "" {
		return
	}

	senderName := msg.SenderID
	if sender, err := d.directory.FindUser(ctx, msg.SenderID); err == nil {
		senderName = sender.Name
	}

	d.submitPush(ctx, push.Message{
		To:       receiver.PushToken,
		Title:    senderName,
		Body:     snippet(msg.Content),
		Data:     map[string]string{"kind": "message", "sender_id": msg.SenderID, "message_id": msg.ID},
		Sound:    "default",
		Priority: "high",
	})
}

func (d *Dispatcher) remotePushNotification(ctx context.Context, n *model.Notification) {
	if d.provider == nil {
		return
	}

	target, err := d.directory.FindUser(ctx, n.UserID)
	if err != nil || target.PushToken == "" {
		return
	}

	data := map[string]string{"kind": string(n.Type)}
	if n.TaskID != nil {
		data["task_id"] = *n.TaskID
	}
	if n.OfferID != nil {
		data["offer_id"] = *n.OfferID
	}

	d.submitPush(ctx, push.Message{
		To:       target.PushToken,
		Title:    n.SenderName,
		Body:     snippet(n.Text),
		Data:     data,
		Sound:    "default",
		Priority: "high",
	})
}

func (d *Dispatcher) submitPush(ctx context.Context, msg push.Message) {
	tickets, err := d.provider.Send(ctx, []push.Message{msg})
	if err != nil {
		metrics.PushesTotal.WithLabelValues("error").Inc()
		d.logger.Error("remote push failed", zap.Error(err))
		return
	}

	for _, t := range tickets {
		if t.Status == push.StatusOK {
			metrics.PushesTotal.WithLabelValues("ok").Inc()
		} else {
			metrics.PushesTotal.WithLabelValues("error").Inc()
			d.logger.Warn("remote push rejected", zap.String("reason", t.Message))
		}
	}

	if d.reconciler != nil {
		d.reconciler.Track(tickets)
	}
}

// snippet truncates content for a push notification body.
func snippet(content string) string {
	const max = 120
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max-1]) + "…"
}
