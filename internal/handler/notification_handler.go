package handler

import (
	"net/http"

	"canteen-tracker/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// NotificationSlot is the single visible notification.
type NotificationSlot interface {
	Current() (model.Notification, bool)
	Dismiss(id uuid.UUID) bool
}

// NotificationHandler handles notification slot HTTP requests.
type NotificationHandler struct {
	slot   NotificationSlot
	logger zerolog.Logger
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(slot NotificationSlot, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		slot:   slot,
		logger: logger.With().Str("handler", "notification").Logger(),
	}
}

// Current handles GET /api/notifications/current requests.
func (h *NotificationHandler) Current(w http.ResponseWriter, r *http.Request) {
	n, ok := h.slot.Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Dismiss handles DELETE /api/notifications/{id} requests.
func (h *NotificationHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidID, "invalid notification ID format", h.logger)
		return
	}

	if !h.slot.Dismiss(id) {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotificationGone, "notification is no longer shown", h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
