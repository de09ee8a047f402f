// Package backend is the HTTP collaborator for the canteen backend API.
package backend

import (
	"context"

	"canteen-tracker/internal/model"
)

// MenuSource serves the menu.
type MenuSource interface {
	AvailableMenu(ctx context.Context) ([]model.MenuItem, error)
}

// RecommendationSource serves menu recommendations.
type RecommendationSource interface {
	Recommendations(ctx context.Context, limit int) ([]model.MenuItem, error)
	FrequentlyWith(ctx context.Context, foodItemID int64, limit int) ([]model.MenuItem, error)
}

// CouponSource looks up coupons the backend issued.
// A coupon the backend does not know yields model.ErrCouponNotFound.
type CouponSource interface {
	CouponByOrder(ctx context.Context, orderID int64) (*model.Coupon, error)
	CouponByCode(ctx context.Context, code string) (*model.Coupon, error)
}

// OrderSource serves order and queue state.
type OrderSource interface {
	OrdersForUser(ctx context.Context, userID int64) ([]model.Order, error)
	QueueSize(ctx context.Context) (int, error)
}

// WaitTimeSource serves per-order wait estimates in minutes.
type WaitTimeSource interface {
	WaitTime(ctx context.Context, orderID int64) (int, error)
}

// OrderWriter places and cancels orders.
type OrderWriter interface {
	PlaceOrder(ctx context.Context, req model.PlaceOrderRequest) (*model.Order, error)
	CancelOrder(ctx context.Context, orderID int64) (*model.Order, error)
}

// PaymentGateway settles payments, directly or through the external gateway.
type PaymentGateway interface {
	Pay(ctx context.Context, orderID int64, method model.PaymentMethod) (*model.PaymentResult, error)
	CreateGatewaySession(ctx context.Context, orderID int64) (*model.GatewaySession, error)
	VerifyGatewayPayment(ctx context.Context, orderID int64, cb model.GatewayCallback) (*model.PaymentResult, error)
}

// AnalyticsSource serves the backend's precomputed analytics.
type AnalyticsSource interface {
	BackendAnalytics(ctx context.Context, days, bestsellerLimit int) (*model.BackendAnalytics, error)
}

// Backend is the full collaborator surface.
type Backend interface {
	MenuSource
	RecommendationSource
	CouponSource
	OrderSource
	WaitTimeSource
	OrderWriter
	PaymentGateway
	AnalyticsSource
}
