package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"canteen-tracker/internal/backend"
	"canteen-tracker/internal/middleware"
	"canteen-tracker/internal/model"

	"github.com/rs/zerolog"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code, code and message.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	logger.Error().
		Str("error", code).
		Str("message", message).
		Int("status", status).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: middleware.RequestIDFromContext(r.Context()),
	})
}

// writeServiceError maps a service error to its HTTP representation.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		writeError(w, r, domainStatus(domainErr.Code), domainErr.Code, domainErr.Message, logger)
		return
	}

	var backendErr *backend.Error
	if errors.As(err, &backendErr) {
		status := http.StatusBadGateway
		if backendErr.Kind == backend.KindNetwork {
			status = http.StatusServiceUnavailable
		}
		writeError(w, r, status, model.ErrCodeBackend, backend.Message(err, backendErr.Error()), logger)
		return
	}

	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
}

func domainStatus(code string) int {
	switch code {
	case model.ErrCodeInvalidJSON, model.ErrCodeMissingField, model.ErrCodeInvalidID, model.ErrCodeEmptyOrder:
		return http.StatusBadRequest
	case model.ErrCodeOrderNotFound, model.ErrCodeCouponNotFound, model.ErrCodeNotificationGone:
		return http.StatusNotFound
	case model.ErrCodeInvalidTransition, model.ErrCodePaymentInFlight,
		model.ErrCodeNotAwaitingPayment, model.ErrCodeAlreadyPaid:
		return http.StatusConflict
	case model.ErrCodePaymentDeclined:
		return http.StatusPaymentRequired
	case model.ErrCodeNoSession, model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodeInvalidAnalytics:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// pathID parses the numeric {id} path segment.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
