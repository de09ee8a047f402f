// Package payment drives the direct and gateway payment paths of an order to a coupon.
package payment

import (
	"context"
	"sync"
	"time"

	"canteen-tracker/internal/backend"
	"canteen-tracker/internal/model"

	"github.com/rs/zerolog"
)

const (
	msgPaymentSuccess = "Payment successful!"
	msgPaymentFailed  = "Payment failed!"
)

// ErrDeclined is returned when the backend answers without a SUCCESS payment status.
// Server-side rejections stay backend errors of kind Rejected.
var ErrDeclined = model.ErrPaymentDeclined

// Notifier surfaces the outcome of an attempt to the user.
type Notifier interface {
	Notify(message string, severity model.Severity) model.Notification
}

// Workflow keeps one payment session per order.
type Workflow struct {
	gateway  backend.PaymentGateway
	notifier Notifier
	userID   int64
	now      func() time.Time
	logger   zerolog.Logger

	mu       sync.Mutex
	sessions map[int64]*model.PaymentSession
}

// New creates a payment workflow for userID.
func New(gateway backend.PaymentGateway, notifier Notifier, userID int64, logger zerolog.Logger) *Workflow {
	return &Workflow{
		gateway:  gateway,
		notifier: notifier,
		userID:   userID,
		now:      time.Now,
		logger:   logger.With().Str("component", "payment").Logger(),
		sessions: make(map[int64]*model.PaymentSession),
	}
}

// PayDirect settles orderID in a single round trip.
func (w *Workflow) PayDirect(ctx context.Context, orderID int64) (*model.Coupon, error) {
	if err := w.begin(orderID, model.PaymentDirect); err != nil {
		return nil, err
	}

	result, err := w.gateway.Pay(ctx, orderID, model.PaymentDirect)
	return w.finish(orderID, model.PaymentDirect, result, err)
}

// BeginGateway opens a gateway checkout for orderID and waits for its callback.
func (w *Workflow) BeginGateway(ctx context.Context, orderID int64) (*model.GatewaySession, error) {
	if err := w.begin(orderID, model.PaymentGateway); err != nil {
		return nil, err
	}

	gs, err := w.gateway.CreateGatewaySession(ctx, orderID)
	if err != nil {
		w.fail(orderID, err)
		return nil, err
	}

	w.mu.Lock()
	s := w.sessions[orderID]
	ref := gs.GatewayOrderID
	s.State = model.PaymentAwaitingCallback
	s.GatewayReference = &ref
	s.UpdatedAt = w.now()
	w.mu.Unlock()

	w.logger.Info().
		Int64("order_id", orderID).
		Str("gateway_order_id", ref).
		Msg("awaiting gateway callback")

	return gs, nil
}

// CompleteGateway verifies the gateway callback of orderID.
// It is only accepted while the order's session awaits a callback.
func (w *Workflow) CompleteGateway(ctx context.Context, orderID int64, cb model.GatewayCallback) (*model.Coupon, error) {
	w.mu.Lock()
	s, ok := w.sessions[orderID]
	if !ok || s.State != model.PaymentAwaitingCallback || s.GatewayReference == nil {
		w.mu.Unlock()
		return nil, model.ErrNotAwaitingCallback
	}
	if cb.GatewayOrderID == "" {
		cb.GatewayOrderID = *s.GatewayReference
	}
	if cb.GatewayOrderID != *s.GatewayReference {
		w.mu.Unlock()
		return nil, model.ErrNotAwaitingCallback
	}
	s.State = model.PaymentVerifying
	s.UpdatedAt = w.now()
	w.mu.Unlock()

	result, err := w.gateway.VerifyGatewayPayment(ctx, orderID, cb)
	return w.finish(orderID, model.PaymentGateway, result, err)
}

// Close resets the local session of orderID when the payment view is dismissed.
// Pending server-side transactions are left untouched.
func (w *Workflow) Close(orderID int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.sessions[orderID]
	if !ok {
		return false
	}
	switch s.State {
	case model.PaymentAwaitingCallback, model.PaymentSucceeded:
		delete(w.sessions, orderID)
		return true
	}
	return false
}

// Session returns the payment session of orderID. Unknown orders are IDLE.
func (w *Workflow) Session(orderID int64) model.PaymentSession {
	w.mu.Lock()
	defer w.mu.Unlock()

	if s, ok := w.sessions[orderID]; ok {
		return *s
	}
	return model.PaymentSession{OrderID: orderID, State: model.PaymentIdle}
}

// begin atomically claims orderID for a new attempt.
func (w *Workflow) begin(orderID int64, method model.PaymentMethod) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if s, ok := w.sessions[orderID]; ok {
		if s.State.InFlight() {
			return model.ErrPaymentInFlight
		}
		if s.State == model.PaymentSucceeded {
			return model.ErrAlreadyPaid
		}
	}

	w.sessions[orderID] = &model.PaymentSession{
		OrderID:   orderID,
		Method:    method,
		State:     model.PaymentInitiated,
		UpdatedAt: w.now(),
	}
	return nil
}

func (w *Workflow) finish(orderID int64, method model.PaymentMethod, result *model.PaymentResult, err error) (*model.Coupon, error) {
	if err != nil {
		w.fail(orderID, err)
		return nil, err
	}
	if !result.Succeeded() {
		w.fail(orderID, ErrDeclined)
		return nil, ErrDeclined
	}

	coupon := &model.Coupon{
		OrderID:       orderID,
		UserID:        w.userID,
		TransactionID: result.TransactionID,
		Method:        method,
		IssuedAt:      w.now(),
	}
	if result.CouponCode != nil {
		coupon.Code = *result.CouponCode
	}
	if result.OrderSummary != nil {
		coupon.Amount = result.OrderSummary.TotalAmount
	}

	w.mu.Lock()
	if s, ok := w.sessions[orderID]; ok {
		s.State = model.PaymentSucceeded
		s.LastError = ""
		s.UpdatedAt = coupon.IssuedAt
	}
	w.mu.Unlock()

	if coupon.Code == "" {
		w.logger.Warn().Int64("order_id", orderID).Msg("payment succeeded without a coupon code")
	}
	w.logger.Info().
		Int64("order_id", orderID).
		Str("method", string(method)).
		Str("transaction_id", coupon.TransactionID).
		Msg("payment succeeded")

	w.notifier.Notify(msgPaymentSuccess, model.SeveritySuccess)
	return coupon, nil
}

// fail returns the session to IDLE and surfaces one error notification carrying the backend's
// message when it sent one.
func (w *Workflow) fail(orderID int64, err error) {
	w.mu.Lock()
	if s, ok := w.sessions[orderID]; ok {
		s.State = model.PaymentIdle
		s.GatewayReference = nil
		s.LastError = backend.Message(err, err.Error())
		s.UpdatedAt = w.now()
	}
	w.mu.Unlock()

	w.logger.Warn().
		Err(err).
		Int64("order_id", orderID).
		Msg("payment failed")

	w.notifier.Notify(backend.Message(err, msgPaymentFailed), model.SeverityError)
}
