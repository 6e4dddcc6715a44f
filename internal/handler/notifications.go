package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/taskhive/messaging-platform/internal/dispatch"
	"github.com/taskhive/messaging-platform/internal/middleware"
	"github.com/taskhive/messaging-platform/internal/model"
	"github.com/taskhive/messaging-platform/internal/service"
	"github.com/taskhive/messaging-platform/pkg/logger"
)

// NotificationHandler handles notification endpoints.
type NotificationHandler struct {
	service    *service.NotificationService
	dispatcher *dispatch.Dispatcher
	logger     *logger.Logger
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(svc *service.NotificationService, d *dispatch.Dispatcher, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		service:    svc,
		dispatcher: d,
		logger:     log,
	}
}

// List handles GET /api/v1/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	resp, err := h.service.List(ctx, userID)
	if err != nil {
		h.logger.Error("failed to list notifications",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// UnreadCount handles GET /api/v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	resp, err := h.service.CountUnread(ctx, userID)
	if err != nil {
		h.logger.Error("failed to count unread notifications",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to count notifications")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// MarkRead handles POST /api/v1/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	id := chi.URLParam(r, "id")

	if err := middleware.ValidateNotificationID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, err := h.service.MarkRead(ctx, id, userID)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, n)
}

// Clear handles DELETE /api/v1/notifications
func (h *NotificationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	if err := h.service.Clear(ctx, userID); err != nil {
		h.logger.Error("failed to clear notifications",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to clear notifications")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Create handles POST /api/v1/notifications, the producer endpoint for
// collaborators without a NATS connection. Guarded by the
// notifications:write scope.
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.CreateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	n, err := h.dispatcher.CreateNotification(ctx, &req)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, n)
}
