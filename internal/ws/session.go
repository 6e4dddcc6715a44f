// Package ws implements the live socket layer over gorilla/websocket:
// one Session per connection, with a buffered write pump and a read
// pump dispatching inbound client actions.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/taskhive/messaging-platform/internal/dispatch"
	"github.com/taskhive/messaging-platform/internal/model"
	"github.com/taskhive/messaging-platform/internal/presence"
	"github.com/taskhive/messaging-platform/pkg/logger"
	"github.com/taskhive/messaging-platform/pkg/metrics"
)

const (
	// writeWait is the deadline for a single socket write.
	writeWait = 10 * time.Second
	// pongWait is how long to wait for a pong before dropping the peer.
	pongWait = 60 * time.Second
	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize bounds inbound frames.
	maxMessageSize = 8192
	// sendBufferSize is the per-connection outbound queue length.
	sendBufferSize = 256
)

// ErrSendBufferFull is returned when a slow client's outbound queue is
// full; the event is dropped, the record stays in the store.
var ErrSendBufferFull = errors.New("send buffer full")

// Session is one authenticated socket connection.
type Session struct {
	userID     string
	conn       *websocket.Conn
	send       chan []byte
	registry   *presence.Registry
	dispatcher *dispatch.Dispatcher
	ackTimeout time.Duration
	logger     *logger.Logger
	done       chan struct{}
}

// NewSession wraps an upgraded connection for the given user.
func NewSession(
	userID string,
	conn *websocket.Conn,
	registry *presence.Registry,
	dispatcher *dispatch.Dispatcher,
	ackTimeout time.Duration,
	log *logger.Logger,
) *Session {
	return &Session{
		userID:     userID,
		conn:       conn,
		send:       make(chan []byte, sendBufferSize),
		registry:   registry,
		dispatcher: dispatcher,
		ackTimeout: ackTimeout,
		logger:     log.WithUser(userID),
		done:       make(chan struct{}),
	}
}

// UserID returns the authenticated user behind this connection.
func (s *Session) UserID() string {
	return s.userID
}

// SendEvent queues an event for delivery. Implements presence.Conn.
func (s *Session) SendEvent(event *model.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	select {
	case s.send <- data:
		return nil
	case <-s.done:
		return websocket.ErrCloseSent
	default:
		return ErrSendBufferFull
	}
}

// Run registers the session, starts the pumps, and blocks until the
// connection closes. The registry entry is always cleaned up.
func (s *Session) Run(ctx context.Context) {
	s.registry.Register(s.userID, s)
	metrics.IncrementSocketConnections()

	defer func() {
		s.registry.Unregister(s.userID, s)
		metrics.DecrementSocketConnections()
		close(s.done)
		s.conn.Close()
	}()

	go s.writePump()
	s.readPump(ctx)
}

func (s *Session) readPump(ctx context.Context) {
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("socket closed unexpectedly", zap.Error(err))
			}
			return
		}

		var event model.Event
		if err := json.Unmarshal(data, &event); err != nil {
			s.logger.Warn("dropping malformed event", zap.Error(err))
			continue
		}

		s.handleEvent(ctx, &event)
	}
}

func (s *Session) handleEvent(ctx context.Context, event *model.Event) {
	switch event.Type {
	case model.EventSendMessage:
		s.handleSendMessage(ctx, event.Data)

	case model.EventJoinConversation:
		var ref model.PeerRef
		if err := json.Unmarshal(event.Data, &ref); err != nil || ref.PeerID == "" {
			s.logger.Warn("dropping malformed join", zap.Error(err))
			return
		}
		s.registry.Join(s.userID, s, ref.PeerID)
		// Entering a conversation reads everything in it.
		if err := s.dispatcher.MarkConversationRead(ctx, s.userID, ref.PeerID); err != nil {
			s.logger.Error("mark-read on join failed",
				zap.String("peer_id", ref.PeerID),
				zap.Error(err),
			)
		}

	case model.EventMessageDelivered:
		// Receiver-side receipt confirming the client rendered the
		// message. A late receipt for a read message is a no-op.
		var ref model.MessageRef
		if err := json.Unmarshal(event.Data, &ref); err != nil || ref.MessageID == "" {
			return
		}
		if err := s.dispatcher.MarkDelivered(ctx, ref.MessageID); err != nil {
			s.logger.Warn("delivery receipt failed",
				zap.String("message_id", ref.MessageID),
				zap.Error(err),
			)
		}

	case model.EventLeaveConversation:
		var ref model.PeerRef
		if err := json.Unmarshal(event.Data, &ref); err != nil || ref.PeerID == "" {
			return
		}
		s.registry.Leave(s.userID, s, ref.PeerID)

	case model.EventMarkRead:
		var ref model.PeerRef
		if err := json.Unmarshal(event.Data, &ref); err != nil || ref.PeerID == "" {
			s.logger.Warn("dropping malformed mark-read", zap.Error(err))
			return
		}
		if err := s.dispatcher.MarkConversationRead(ctx, s.userID, ref.PeerID); err != nil {
			s.logger.Error("mark-read failed",
				zap.String("peer_id", ref.PeerID),
				zap.Error(err),
			)
		}

	default:
		s.logger.Warn("unknown event type", zap.String("type", string(event.Type)))
	}
}

// handleSendMessage dispatches a send under the ack timeout. The client
// holds a provisional message keyed by client_temp_id; the ack resolves
// it to confirmed or error.
func (s *Session) handleSendMessage(ctx context.Context, data json.RawMessage) {
	var req model.SendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendAck(model.SendMessageAck{Success: false, Error: "malformed request"})
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.ackTimeout)
	defer cancel()

	msg, err := s.dispatcher.SendMessage(sendCtx, s.userID, &req)
	if err != nil {
		s.logger.Warn("send failed",
			zap.String("receiver_id", req.ReceiverID),
			zap.Error(err),
		)
		s.sendAck(model.SendMessageAck{
			ClientTempID: req.ClientTempID,
			Success:      false,
			Error:        err.Error(),
		})
		return
	}

	s.sendAck(model.SendMessageAck{
		ClientTempID: req.ClientTempID,
		Success:      true,
		MessageID:    msg.ID,
	})
}

func (s *Session) sendAck(ack model.SendMessageAck) {
	event, err := model.NewEvent(model.EventSendAck, ack)
	if err != nil {
		return
	}
	if err := s.SendEvent(event); err != nil {
		s.logger.Warn("failed to queue ack", zap.Error(err))
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.done:
			return
		}
	}
}
