// Package push integrates with the remote push provider. Push is a
// notification channel only: outcomes here never feed back into message
// status.
package push

import (
	"context"
)

// Message is one remote push notification to a device token.
type Message struct {
	To       string            `json:"to"`
	Title    string            `json:"title,omitempty"`
	Body     string            `json:"body,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
	Sound    string            `json:"sound,omitempty"`
	Priority string            `json:"priority,omitempty"`
}

// Ticket is the provider's handle for a submitted push message.
type Ticket struct {
	ID      string `json:"id,omitempty"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Receipt is the provider's delivery outcome for a ticket.
type Receipt struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

const (
	// StatusOK marks a successful ticket or receipt.
	StatusOK = "ok"
	// StatusError marks a failed ticket or receipt.
	StatusError = "error"
)

// Provider accepts batches of push messages and exposes the receipt
// lookup API.
type Provider interface {
	// Send submits a batch and returns one ticket per message, in
	// order.
	Send(ctx context.Context, messages []Message) ([]Ticket, error)

	// Receipts fetches delivery receipts for outstanding ticket ids.
	// Absent ids mean the receipt is not available yet.
	Receipts(ctx context.Context, ticketIDs []string) (map[string]Receipt, error)
}
