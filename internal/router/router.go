package router

import (
	"net/http"

	"canteen-tracker/internal/handler"
	"canteen-tracker/internal/middleware"

	"github.com/rs/zerolog"
)

// Handlers groups the handlers served by the local API.
type Handlers struct {
	Order        *handler.OrderHandler
	Payment      *handler.PaymentHandler
	Analytics    *handler.AnalyticsHandler
	Notification *handler.NotificationHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, apiKey string, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "healthy"}`))
	})

	mux.HandleFunc("GET /api/menu", h.Order.Menu)
	mux.HandleFunc("GET /api/recommendations", h.Order.Recommendations)
	mux.HandleFunc("GET /api/orders", h.Order.List)
	mux.HandleFunc("POST /api/orders", h.Order.Place)
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.Order.Cancel)
	mux.HandleFunc("GET /api/queue", h.Order.Queue)
	mux.HandleFunc("GET /api/transitions", h.Order.Transitions)

	mux.HandleFunc("GET /api/payments/{id}", h.Payment.Session)
	mux.HandleFunc("DELETE /api/payments/{id}", h.Payment.Close)
	mux.HandleFunc("POST /api/payments/{id}/direct", h.Payment.Direct)
	mux.HandleFunc("POST /api/payments/{id}/gateway", h.Payment.BeginGateway)
	mux.HandleFunc("POST /api/payments/{id}/callback", h.Payment.Callback)
	mux.HandleFunc("GET /api/coupons", h.Payment.Coupons)
	mux.HandleFunc("GET /api/coupons/lookup", h.Payment.CouponLookup)
	mux.HandleFunc("GET /api/coupons/{id}/qr", h.Payment.CouponQR)

	mux.HandleFunc("GET /api/analytics", h.Analytics.Report)
	mux.HandleFunc("POST /api/views/analytics", h.Analytics.OpenView)
	mux.HandleFunc("DELETE /api/views/analytics", h.Analytics.CloseView)

	mux.HandleFunc("GET /api/notifications/current", h.Notification.Current)
	mux.HandleFunc("DELETE /api/notifications/{id}", h.Notification.Dismiss)

	// Apply middleware in order: Recovery -> RequestID -> Logging -> CORS -> APIKeyAuth
	var handler http.Handler = mux
	handler = middleware.APIKeyAuth(apiKey, logger)(handler)
	handler = middleware.CORS(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}
