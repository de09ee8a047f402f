package repository

import (
	"context"

	"canteen-tracker/internal/model"
)

// CouponRepository defines the interface for coupon journal operations.
// It satisfies coupon.Store.
type CouponRepository interface {
	// Save inserts a coupon, replacing any coupon already kept for the same order.
	Save(ctx context.Context, coupon *model.Coupon) error

	// GetByOrderID retrieves the coupon of an order.
	// Returns model.ErrCouponNotFound if the order has no coupon.
	GetByOrderID(ctx context.Context, orderID int64) (*model.Coupon, error)

	// ListByUser retrieves a user's coupons, most recently issued first.
	ListByUser(ctx context.Context, userID int64) ([]model.Coupon, error)
}

// TransitionRepository defines the interface for the observed-transition journal.
type TransitionRepository interface {
	// Record appends the transitions observed for userID in a single batch.
	Record(ctx context.Context, userID int64, transitions []model.Transition) error

	// ListByOrder retrieves the transitions of an order in observation order.
	ListByOrder(ctx context.Context, orderID int64) ([]model.Transition, error)
}
