package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"canteen-tracker/internal/coupon"
	"canteen-tracker/internal/model"
	"canteen-tracker/internal/service"

	"github.com/rs/zerolog"
)

// PaymentHandler handles payment and coupon HTTP requests.
type PaymentHandler struct {
	service service.PaymentService
	logger  zerolog.Logger
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(service service.PaymentService, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		logger:  logger.With().Str("handler", "payment").Logger(),
	}
}

// Direct handles POST /api/payments/{id}/direct requests.
func (h *PaymentHandler) Direct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	c, err := h.service.PayDirect(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// BeginGateway handles POST /api/payments/{id}/gateway requests.
func (h *PaymentHandler) BeginGateway(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	gs, err := h.service.BeginGateway(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, gs)
}

// Callback handles POST /api/payments/{id}/callback requests.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var cb model.GatewayCallback
	if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}
	if cb.GatewayPaymentID == "" || cb.Signature == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "razorpayPaymentId and razorpaySignature are required", h.logger)
		return
	}

	c, err := h.service.CompleteGateway(r.Context(), id, cb)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Close handles DELETE /api/payments/{id} requests.
func (h *PaymentHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	h.service.Close(id)
	w.WriteHeader(http.StatusNoContent)
}

// Session handles GET /api/payments/{id} requests.
func (h *PaymentHandler) Session(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.service.Session(id))
}

// Coupons handles GET /api/coupons requests.
func (h *PaymentHandler) Coupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.service.Coupons(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, coupons)
}

// CouponLookup handles GET /api/coupons/lookup?code={code} requests.
func (h *PaymentHandler) CouponLookup(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "code is required", h.logger)
		return
	}

	c, err := h.service.CouponByCode(r.Context(), code)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CouponQR handles GET /api/coupons/{id}/qr requests.
func (h *PaymentHandler) CouponQR(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	size := coupon.DefaultQRSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 64 || parsed > 1024 {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "size must be between 64 and 1024", h.logger)
			return
		}
		size = parsed
	}

	png, err := h.service.CouponQR(r.Context(), id, size)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *PaymentHandler) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidID, "invalid order ID format", h.logger)
	}
	return id, ok
}
