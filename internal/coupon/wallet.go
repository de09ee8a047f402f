package coupon

import (
	"context"
	"errors"
	"fmt"

	"canteen-tracker/internal/model"

	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
)

// DefaultQRSize is the edge length in pixels of rendered coupon codes.
const DefaultQRSize = 256

// Lookup fetches coupons the backend issued.
// Unknown coupons yield model.ErrCouponNotFound.
type Lookup interface {
	CouponByOrder(ctx context.Context, orderID int64) (*model.Coupon, error)
	CouponByCode(ctx context.Context, code string) (*model.Coupon, error)
}

// WalletOption customises a Wallet.
type WalletOption func(*Wallet)

// WithLookup makes the wallet ask the backend for coupons missing from its store.
func WithLookup(lookup Lookup) WalletOption {
	return func(w *Wallet) {
		w.lookup = lookup
	}
}

// Wallet holds the signed-in user's coupons.
type Wallet struct {
	store  Store
	lookup Lookup
	userID int64
	logger zerolog.Logger
}

// NewWallet creates a wallet for userID backed by store.
func NewWallet(store Store, userID int64, logger zerolog.Logger, opts ...WalletOption) *Wallet {
	w := &Wallet{
		store:  store,
		userID: userID,
		logger: logger.With().Str("component", "coupon-wallet").Logger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Keep stores an issued coupon.
func (w *Wallet) Keep(ctx context.Context, coupon *model.Coupon) error {
	if coupon == nil || coupon.OrderID <= 0 {
		return fmt.Errorf("coupon without order")
	}
	if coupon.UserID == 0 {
		coupon.UserID = w.userID
	}

	if err := w.store.Save(ctx, coupon); err != nil {
		w.logger.Error().Err(err).Int64("order_id", coupon.OrderID).Msg("failed to keep coupon")
		return fmt.Errorf("failed to keep coupon for order %d: %w", coupon.OrderID, err)
	}

	w.logger.Info().
		Int64("order_id", coupon.OrderID).
		Str("code", coupon.Code).
		Msg("coupon kept")
	return nil
}

// Get returns the coupon issued for orderID. A coupon missing from the store is fetched from
// the backend and kept.
func (w *Wallet) Get(ctx context.Context, orderID int64) (*model.Coupon, error) {
	c, err := w.store.GetByOrderID(ctx, orderID)
	if err == nil || w.lookup == nil || !errors.Is(err, model.ErrCouponNotFound) {
		return c, err
	}

	c, err = w.lookup.CouponByOrder(ctx, orderID)
	if err != nil {
		if !errors.Is(err, model.ErrCouponNotFound) {
			w.logger.Warn().Err(err).Int64("order_id", orderID).Msg("backend coupon lookup failed")
		}
		return nil, err
	}

	if err := w.Keep(ctx, c); err != nil {
		w.logger.Warn().Err(err).Int64("order_id", orderID).Msg("fetched coupon not kept")
	}
	return c, nil
}

// ByCode returns the coupon with the given code, asking the backend when the wallet does
// not hold it.
func (w *Wallet) ByCode(ctx context.Context, code string) (*model.Coupon, error) {
	coupons, err := w.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range coupons {
		if coupons[i].Code == code {
			return &coupons[i], nil
		}
	}

	if w.lookup == nil {
		return nil, model.ErrCouponNotFound
	}
	return w.lookup.CouponByCode(ctx, code)
}

// List returns every coupon of the wallet's user, newest first.
func (w *Wallet) List(ctx context.Context) ([]model.Coupon, error) {
	return w.store.ListByUser(ctx, w.userID)
}

// RenderQR encodes the coupon code as a PNG shown at the pickup counter.
func RenderQR(coupon *model.Coupon, size int) ([]byte, error) {
	if coupon == nil || coupon.Code == "" {
		return nil, fmt.Errorf("coupon has no code")
	}
	if size <= 0 {
		size = DefaultQRSize
	}

	png, err := qrcode.Encode(coupon.Code, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render coupon %s: %w", coupon.Code, err)
	}
	return png, nil
}
