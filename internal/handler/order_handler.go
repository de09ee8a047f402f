package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"canteen-tracker/internal/model"
	"canteen-tracker/internal/service"

	"github.com/rs/zerolog"
)

// placeOrderRequest is the body of POST /api/orders.
type placeOrderRequest struct {
	FoodItemIDs []int64 `json:"foodItemIds"`
}

// queueResponse is the body of GET /api/queue.
type queueResponse struct {
	Size  int  `json:"size"`
	Known bool `json:"known"`
}

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// maxRecommendations bounds the limit accepted by GET /api/recommendations.
const maxRecommendations = 50

// Menu handles GET /api/menu requests. The optional category and q query parameters
// filter the menu.
func (h *OrderHandler) Menu(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := model.MenuFilter{Category: query.Get("category"), Query: query.Get("q")}

	items, err := h.service.Menu(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Recommendations handles GET /api/recommendations requests.
// With ?with={foodItemId} it returns the items ordered together with that item,
// otherwise the items ordered most today.
func (h *OrderHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxRecommendations {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "limit must be between 1 and 50", h.logger)
			return
		}
		limit = parsed
	}

	var (
		items []model.MenuItem
		err   error
	)
	if raw := query.Get("with"); raw != "" {
		itemID, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil || itemID <= 0 {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidID, "invalid food item ID format", h.logger)
			return
		}
		items, err = h.service.FrequentlyWith(r.Context(), itemID, limit)
	} else {
		items, err = h.service.Recommendations(r.Context(), limit)
	}
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// List handles GET /api/orders requests.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Orders())
}

// Place handles POST /api/orders requests.
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	order, err := h.service.Place(r.Context(), req.FoodItemIDs)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// Cancel handles POST /api/orders/{id}/cancel requests.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidID, "invalid order ID format", h.logger)
		return
	}

	if err := h.service.Cancel(r.Context(), id); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Queue handles GET /api/queue requests.
func (h *OrderHandler) Queue(w http.ResponseWriter, r *http.Request) {
	size, known := h.service.QueueSize()
	writeJSON(w, http.StatusOK, queueResponse{Size: size, Known: known})
}

// Transitions handles GET /api/transitions requests.
func (h *OrderHandler) Transitions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Recent())
}
