package handler

import (
	"context"
	"net/http"
	"time"

	"canteen-tracker/internal/scheduler"
	"canteen-tracker/internal/service"

	"github.com/rs/zerolog"
)

// AnalyticsViews opens and closes the analytics view refresh cycle.
type AnalyticsViews interface {
	OpenAnalytics(ctx context.Context, refresh scheduler.Task) *scheduler.Handle
	CloseAnalytics() bool
	AnalyticsOpen() bool
}

type viewResponse struct {
	Open bool `json:"open"`
}

// AnalyticsHandler handles analytics HTTP requests.
type AnalyticsHandler struct {
	service service.AnalyticsService
	views   AnalyticsViews
	// base outlives individual requests; view cycles run under it.
	base   context.Context
	now    func() time.Time
	logger zerolog.Logger
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(
	base context.Context,
	service service.AnalyticsService,
	views AnalyticsViews,
	logger zerolog.Logger,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		views:   views,
		base:    base,
		now:     time.Now,
		logger:  logger.With().Str("handler", "analytics").Logger(),
	}
}

// Report handles GET /api/analytics requests.
func (h *AnalyticsHandler) Report(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Report(h.now()))
}

// OpenView handles POST /api/views/analytics requests.
func (h *AnalyticsHandler) OpenView(w http.ResponseWriter, r *http.Request) {
	h.views.OpenAnalytics(h.base, h.service.RefreshBackend)
	writeJSON(w, http.StatusOK, viewResponse{Open: h.views.AnalyticsOpen()})
}

// CloseView handles DELETE /api/views/analytics requests.
func (h *AnalyticsHandler) CloseView(w http.ResponseWriter, r *http.Request) {
	h.views.CloseAnalytics()
	writeJSON(w, http.StatusOK, viewResponse{Open: h.views.AnalyticsOpen()})
}
