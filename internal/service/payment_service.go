package service

import (
	"context"
	"errors"
	"fmt"

	"canteen-tracker/internal/coupon"
	"canteen-tracker/internal/model"

	"github.com/rs/zerolog"
)

// PaymentWorkflow is the payment state machine driven by the service.
type PaymentWorkflow interface {
	PayDirect(ctx context.Context, orderID int64) (*model.Coupon, error)
	BeginGateway(ctx context.Context, orderID int64) (*model.GatewaySession, error)
	CompleteGateway(ctx context.Context, orderID int64, cb model.GatewayCallback) (*model.Coupon, error)
	Close(orderID int64) bool
	Session(orderID int64) model.PaymentSession
}

// Wallet keeps issued coupons.
type Wallet interface {
	Keep(ctx context.Context, c *model.Coupon) error
	Get(ctx context.Context, orderID int64) (*model.Coupon, error)
	ByCode(ctx context.Context, code string) (*model.Coupon, error)
	List(ctx context.Context) ([]model.Coupon, error)
}

// paymentService implements PaymentService.
type paymentService struct {
	workflow PaymentWorkflow
	wallet   Wallet
	tracker  OrderTracker
	logger   zerolog.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(workflow PaymentWorkflow, wallet Wallet, tracker OrderTracker, logger zerolog.Logger) PaymentService {
	return &paymentService{
		workflow: workflow,
		wallet:   wallet,
		tracker:  tracker,
		logger:   logger.With().Str("service", "payment").Logger(),
	}
}

// PayDirect settles an order in a single round trip and keeps the issued coupon.
func (s *paymentService) PayDirect(ctx context.Context, orderID int64) (*model.Coupon, error) {
	c, err := s.workflow.PayDirect(ctx, orderID)
	return s.settle(ctx, orderID, c, err)
}

// BeginGateway opens a gateway checkout for an order.
func (s *paymentService) BeginGateway(ctx context.Context, orderID int64) (*model.GatewaySession, error) {
	gs, err := s.workflow.BeginGateway(ctx, orderID)
	if err != nil && attempted(err) {
		s.refresh(ctx)
	}
	return gs, err
}

// CompleteGateway verifies the gateway callback and keeps the issued coupon.
func (s *paymentService) CompleteGateway(ctx context.Context, orderID int64, cb model.GatewayCallback) (*model.Coupon, error) {
	c, err := s.workflow.CompleteGateway(ctx, orderID, cb)
	return s.settle(ctx, orderID, c, err)
}

// Close resets the local payment session.
func (s *paymentService) Close(orderID int64) bool {
	return s.workflow.Close(orderID)
}

// Session returns the payment session of an order.
func (s *paymentService) Session(orderID int64) model.PaymentSession {
	return s.workflow.Session(orderID)
}

// Coupons lists the user's coupons.
func (s *paymentService) Coupons(ctx context.Context) ([]model.Coupon, error) {
	coupons, err := s.wallet.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list coupons")
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	return coupons, nil
}

// CouponByCode looks up a coupon by its code.
func (s *paymentService) CouponByCode(ctx context.Context, code string) (*model.Coupon, error) {
	if code == "" {
		return nil, model.ErrCouponNotFound
	}
	return s.wallet.ByCode(ctx, code)
}

// CouponQR renders the coupon of an order.
func (s *paymentService) CouponQR(ctx context.Context, orderID int64, size int) ([]byte, error) {
	c, err := s.wallet.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return coupon.RenderQR(c, size)
}

func (s *paymentService) settle(ctx context.Context, orderID int64, c *model.Coupon, err error) (*model.Coupon, error) {
	if err != nil {
		if attempted(err) {
			s.refresh(ctx)
		}
		return nil, err
	}

	if keepErr := s.wallet.Keep(ctx, c); keepErr != nil {
		s.logger.Error().Err(keepErr).Int64("order_id", orderID).Msg("coupon issued but not kept")
	}
	s.refresh(ctx)
	return c, nil
}

// attempted reports whether err came from an attempt that reached the backend.
func attempted(err error) bool {
	return !errors.Is(err, model.ErrPaymentInFlight) &&
		!errors.Is(err, model.ErrNotAwaitingCallback) &&
		!errors.Is(err, model.ErrAlreadyPaid)
}

func (s *paymentService) refresh(ctx context.Context) {
	if err := s.tracker.RefreshOrders(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to refresh orders after payment")
	}
}
