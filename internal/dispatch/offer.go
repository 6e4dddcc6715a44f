package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/taskhive/messaging-platform/internal/events"
	"github.com/taskhive/messaging-platform/internal/model"
)

// HandleOfferEvent implements events.Handler: an offer lifecycle event
// becomes a notification for its target user, and the task's last-offer
// bookkeeping is updated through the explicit TaskUpdater hook.
func (d *Dispatcher) HandleOfferEvent(ctx context.Context, kind model.NotificationType, evt *events.OfferEvent) error {
	taskID := evt.TaskID
	offerID := evt.OfferID

	_, err := d.CreateNotification(ctx, &model.CreateNotificationRequest{
		UserID:     evt.TargetUserID,
		Type:       kind,
		TaskID:     &taskID,
		OfferID:    &offerID,
		Text:       evt.Text,
		SenderID:   evt.ActorID,
		SenderName: evt.ActorName,
	})
	if err != nil {
		return err
	}

	if err := d.taskUpdater.OfferActivity(ctx, taskID, offerID, evt.At); err != nil {
		// Task bookkeeping is eventually consistent and independently
		// retryable; the notification already exists.
		d.logger.Warn("task offer-activity update failed",
			zap.String("task_id", taskID),
			zap.String("offer_id", offerID),
			zap.Error(err),
		)
	}

	return nil
}
