// Package coupon keeps the coupons issued for paid orders and renders them for pickup.
package coupon

import (
	"context"

	"canteen-tracker/internal/model"
)

// Store persists issued coupons. Saving a coupon for an order that already has one replaces it.
type Store interface {
	Save(ctx context.Context, coupon *model.Coupon) error

	// GetByOrderID returns model.ErrCouponNotFound when the order has no coupon.
	GetByOrderID(ctx context.Context, orderID int64) (*model.Coupon, error)

	// ListByUser returns the user's coupons, most recently issued first.
	ListByUser(ctx context.Context, userID int64) ([]model.Coupon, error)
}
