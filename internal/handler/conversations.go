// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/taskhive/messaging-platform/internal/dispatch"
	"github.com/taskhive/messaging-platform/internal/middleware"
	"github.com/taskhive/messaging-platform/internal/service"
	"github.com/taskhive/messaging-platform/pkg/logger"
)

// ConversationHandler handles the conversation read surface.
type ConversationHandler struct {
	service    *service.ConversationService
	dispatcher *dispatch.Dispatcher
	logger     *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc *service.ConversationService, d *dispatch.Dispatcher, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service:    svc,
		dispatcher: d,
		logger:     log,
	}
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	resp, err := h.service.List(ctx, userID)
	if err != nil {
		h.logger.Error("failed to list conversations",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Messages handles GET /api/v1/conversations/{peerID}/messages
func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	peerID := chi.URLParam(r, "peerID")

	if err := middleware.ValidateUserID(peerID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.Messages(ctx, userID, peerID)
	if err != nil {
		h.logger.Error("failed to list messages",
			zap.String("user_id", userID),
			zap.String("peer_id", peerID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// MarkRead handles POST /api/v1/conversations/{peerID}/read, the REST
// path for clients without a live socket. Idempotent.
func (h *ConversationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	peerID := chi.URLParam(r, "peerID")

	if err := middleware.ValidateUserID(peerID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.dispatcher.MarkConversationRead(ctx, userID, peerID); err != nil {
		h.logger.Error("failed to mark conversation read",
			zap.String("user_id", userID),
			zap.String("peer_id", peerID),
			zap.Error(err),
		)
		writeAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
