package service

import (
	"context"
	"time"

	"canteen-tracker/internal/model"
)

// OrderService defines the user's order actions and tracked order views.
type OrderService interface {
	// Menu retrieves the available items that match filter.
	Menu(ctx context.Context, filter model.MenuFilter) ([]model.MenuItem, error)

	// Recommendations retrieves the items ordered most today.
	Recommendations(ctx context.Context, limit int) ([]model.MenuItem, error)

	// FrequentlyWith retrieves the items most often ordered together with a food item.
	FrequentlyWith(ctx context.Context, foodItemID int64, limit int) ([]model.MenuItem, error)

	// Place submits a new order for the given food item ids.
	Place(ctx context.Context, foodItemIDs []int64) (*model.Order, error)

	// Cancel cancels an order that has not reached a terminal status.
	Cancel(ctx context.Context, orderID int64) error

	// Orders returns the tracked orders with their wait-time estimates.
	Orders() []model.TrackedOrder

	// QueueSize returns the last observed canteen queue size.
	QueueSize() (int, bool)

	// Recent returns the recently observed status transitions.
	Recent() []model.Transition
}

// PaymentService defines payment actions and access to issued coupons.
type PaymentService interface {
	// PayDirect settles an order in a single round trip.
	PayDirect(ctx context.Context, orderID int64) (*model.Coupon, error)

	// BeginGateway opens a gateway checkout for an order.
	BeginGateway(ctx context.Context, orderID int64) (*model.GatewaySession, error)

	// CompleteGateway verifies the gateway callback for an order.
	CompleteGateway(ctx context.Context, orderID int64, cb model.GatewayCallback) (*model.Coupon, error)

	// Close resets the local payment session when the payment view is dismissed.
	Close(orderID int64) bool

	// Session returns the payment session of an order.
	Session(orderID int64) model.PaymentSession

	// Coupons lists the user's coupons, newest first.
	Coupons(ctx context.Context) ([]model.Coupon, error)

	// CouponByCode looks up a coupon by its code.
	CouponByCode(ctx context.Context, code string) (*model.Coupon, error)

	// CouponQR renders the coupon of an order as a PNG.
	CouponQR(ctx context.Context, orderID int64, size int) ([]byte, error)
}

// AnalyticsService defines the merged analytics report operations.
type AnalyticsService interface {
	// Report merges local analytics with the last validated backend analytics.
	Report(now time.Time) *model.AnalyticsReport

	// RefreshBackend fetches the backend's precomputed analytics.
	RefreshBackend(ctx context.Context) error

	// Export writes the report and returns its location.
	Export(ctx context.Context, now time.Time) (string, error)
}

// Notifier surfaces the outcome of user actions.
type Notifier interface {
	Notify(message string, severity model.Severity) model.Notification
}

// OrderTracker is the tracked order state the services read and refresh.
type OrderTracker interface {
	RefreshOrders(ctx context.Context) error
	Tracked() []model.TrackedOrder
	Snapshot() []model.Order
	Order(id int64) (model.Order, bool)
	QueueSize() (int, bool)
	Recent() []model.Transition
}
