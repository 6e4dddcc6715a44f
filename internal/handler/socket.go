package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/taskhive/messaging-platform/internal/dispatch"
	"github.com/taskhive/messaging-platform/internal/middleware"
	"github.com/taskhive/messaging-platform/internal/presence"
	"github.com/taskhive/messaging-platform/internal/ws"
	"github.com/taskhive/messaging-platform/pkg/logger"
)

// SocketHandler upgrades authenticated clients to the live socket.
type SocketHandler struct {
	registry   *presence.Registry
	dispatcher *dispatch.Dispatcher
	jwtSecret  string
	ackTimeout time.Duration
	upgrader   websocket.Upgrader
	logger     *logger.Logger
}

// NewSocketHandler creates a new socket handler.
func NewSocketHandler(
	registry *presence.Registry,
	dispatcher *dispatch.Dispatcher,
	jwtSecret string,
	ackTimeout time.Duration,
	log *logger.Logger,
) *SocketHandler {
	return &SocketHandler{
		registry:   registry,
		dispatcher: dispatcher,
		jwtSecret:  jwtSecret,
		ackTimeout: ackTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Origin checks belong to the CORS layer in front.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: log,
	}
}

// Serve handles GET /ws. Browsers cannot set headers on websocket
// upgrades, so the bearer token may also arrive as ?token=.
func (h *SocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		if auth := r.Header.Get("Authorization"); len(auth) > 7 {
			tokenString = auth[7:]
		}
	}
	if tokenString == "" {
		writeError(w, http.StatusUnauthorized, "missing token")
		return
	}

	claims, err := middleware.ParseToken(tokenString, h.jwtSecret)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	session := ws.NewSession(claims.Subject, conn, h.registry, h.dispatcher, h.ackTimeout, h.logger)

	h.logger.Info("socket connected", zap.String("user_id", claims.Subject))
	// The request context dies when this handler returns, so the
	// session runs on its own context until the peer disconnects.
	session.Run(context.Background())
	h.logger.Info("socket disconnected", zap.String("user_id", claims.Subject))
}
