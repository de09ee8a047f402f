package payment

import (
	"context"
	"errors"
	"sync"
	"testing"

	"canteen-tracker/internal/backend"
	"canteen-tracker/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockGateway is a mock implementation of backend.PaymentGateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Pay(ctx context.Context, orderID int64, method model.PaymentMethod) (*model.PaymentResult, error) {
	args := m.Called(ctx, orderID, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentResult), args.Error(1)
}

func (m *MockGateway) CreateGatewaySession(ctx context.Context, orderID int64) (*model.GatewaySession, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GatewaySession), args.Error(1)
}

func (m *MockGateway) VerifyGatewayPayment(ctx context.Context, orderID int64, cb model.GatewayCallback) (*model.PaymentResult, error) {
	args := m.Called(ctx, orderID, cb)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentResult), args.Error(1)
}

// recordingNotifier counts notifications per severity.
type recordingNotifier struct {
	mu    sync.Mutex
	items []model.Notification
}

func (r *recordingNotifier) Notify(message string, severity model.Severity) model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := model.Notification{Message: message, Severity: severity}
	r.items = append(r.items, n)
	return n
}

func (r *recordingNotifier) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return ""
	}
	return r.items[len(r.items)-1].Message
}

func (r *recordingNotifier) count(severity model.Severity) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, item := range r.items {
		if item.Severity == severity {
			n++
		}
	}
	return n
}

func success(orderID int64, code string) *model.PaymentResult {
	return &model.PaymentResult{
		PaymentStatus: model.PaymentStatusSuccess,
		CouponCode:    &code,
		OrderID:       orderID,
		TransactionID: "TX-1",
		OrderSummary:  &model.OrderSummary{TotalAmount: 120},
	}
}

func TestWorkflow_PayDirect(t *testing.T) {
	tests := []struct {
		name          string
		result        *model.PaymentResult
		err           error
		expectErr     error
		expectState   model.PaymentState
		expectSuccess int
		expectErrors  int
		expectMessage string
	}{
		{
			name:          "Success issues coupon",
			result:        success(5, "CPN-5"),
			expectState:   model.PaymentSucceeded,
			expectSuccess: 1,
			expectMessage: "Payment successful!",
		},
		{
			name:         "Declined returns to idle",
			result:       &model.PaymentResult{PaymentStatus: "FAILED", OrderID: 5},
			expectErr:     ErrDeclined,
			expectState:   model.PaymentIdle,
			expectErrors:  1,
			expectMessage: "Payment failed!",
		},
		{
			name:         "Server rejection returns to idle",
			err:           &backend.Error{Kind: backend.KindRejected, Op: "payment", StatusCode: 400, Message: "Order already paid"},
			expectState:   model.PaymentIdle,
			expectErrors:  1,
			expectMessage: "Order already paid",
		},
		{
			name:          "Rejection without a message falls back",
			err:           &backend.Error{Kind: backend.KindRejected, Op: "payment", StatusCode: 500},
			expectState:   model.PaymentIdle,
			expectErrors:  1,
			expectMessage: "Payment failed!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := new(MockGateway)
			notifier := &recordingNotifier{}
			w := New(gateway, notifier, 42, zerolog.Nop())

			gateway.On("Pay", mock.Anything, int64(5), model.PaymentDirect).Return(tt.result, tt.err)

			coupon, err := w.PayDirect(context.Background(), 5)

			session := w.Session(5)
			assert.Equal(t, tt.expectState, session.State)
			assert.Equal(t, tt.expectSuccess, notifier.count(model.SeveritySuccess))
			assert.Equal(t, tt.expectErrors, notifier.count(model.SeverityError))
			assert.Equal(t, tt.expectMessage, notifier.last())

			if tt.expectSuccess > 0 {
				require.NoError(t, err)
				assert.Equal(t, "CPN-5", coupon.Code)
				assert.Equal(t, int64(42), coupon.UserID)
				assert.Equal(t, "TX-1", coupon.TransactionID)
				assert.Equal(t, 120.0, coupon.Amount)
				assert.Equal(t, model.PaymentDirect, coupon.Method)
			} else {
				require.Error(t, err)
				assert.Nil(t, coupon)
				assert.NotEmpty(t, session.LastError)
			}
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
			}
			gateway.AssertExpectations(t)
		})
	}
}

func TestWorkflow_RejectedMessageRecorded(t *testing.T) {
	gateway := new(MockGateway)
	w := New(gateway, &recordingNotifier{}, 42, zerolog.Nop())

	gateway.On("Pay", mock.Anything, int64(5), model.PaymentDirect).
		Return(nil, &backend.Error{Kind: backend.KindRejected, Op: "payment", Message: "Order already paid"})

	_, err := w.PayDirect(context.Background(), 5)
	require.Error(t, err)
	assert.True(t, backend.IsRejected(err))
	assert.Equal(t, "Order already paid", w.Session(5).LastError)
}

func TestWorkflow_ConcurrentInitiation(t *testing.T) {
	gateway := new(MockGateway)
	notifier := &recordingNotifier{}
	w := New(gateway, notifier, 42, zerolog.Nop())

	entered := make(chan struct{})
	release := make(chan struct{})
	gateway.On("Pay", mock.Anything, int64(5), model.PaymentDirect).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(success(5, "CPN-5"), nil).
		Once()

	done := make(chan error, 1)
	go func() {
		_, err := w.PayDirect(context.Background(), 5)
		done <- err
	}()
	<-entered

	assert.Equal(t, model.PaymentInitiated, w.Session(5).State)

	_, err := w.PayDirect(context.Background(), 5)
	assert.ErrorIs(t, err, model.ErrPaymentInFlight)
	_, err = w.BeginGateway(context.Background(), 5)
	assert.ErrorIs(t, err, model.ErrPaymentInFlight)
	assert.Equal(t, model.PaymentInitiated, w.Session(5).State)
	assert.Zero(t, notifier.count(model.SeverityError))

	close(release)
	require.NoError(t, <-done)

	_, err = w.PayDirect(context.Background(), 5)
	assert.ErrorIs(t, err, model.ErrAlreadyPaid)
	gateway.AssertNumberOfCalls(t, "Pay", 1)
}

func TestWorkflow_GatewayPath(t *testing.T) {
	gateway := new(MockGateway)
	notifier := &recordingNotifier{}
	w := New(gateway, notifier, 42, zerolog.Nop())

	gateway.On("CreateGatewaySession", mock.Anything, int64(9)).
		Return(&model.GatewaySession{GatewayOrderID: "order_abc", Amount: 12000, Currency: "INR", OrderID: 9}, nil)

	callback := model.GatewayCallback{GatewayOrderID: "order_abc", GatewayPaymentID: "pay_1", Signature: "sig"}
	gateway.On("VerifyGatewayPayment", mock.Anything, int64(9), callback).Return(success(9, "CPN-9"), nil)

	gs, err := w.BeginGateway(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, "order_abc", gs.GatewayOrderID)

	session := w.Session(9)
	assert.Equal(t, model.PaymentAwaitingCallback, session.State)
	require.NotNil(t, session.GatewayReference)
	assert.Equal(t, "order_abc", *session.GatewayReference)

	coupon, err := w.CompleteGateway(context.Background(), 9, model.GatewayCallback{GatewayPaymentID: "pay_1", Signature: "sig"})
	require.NoError(t, err)
	assert.Equal(t, "CPN-9", coupon.Code)
	assert.Equal(t, model.PaymentGateway, coupon.Method)
	assert.Equal(t, model.PaymentSucceeded, w.Session(9).State)
	assert.Equal(t, 1, notifier.count(model.SeveritySuccess))

	assert.True(t, w.Close(9))
	assert.Equal(t, model.PaymentIdle, w.Session(9).State)
}

func TestWorkflow_GatewayVerificationRejected(t *testing.T) {
	gateway := new(MockGateway)
	notifier := &recordingNotifier{}
	w := New(gateway, notifier, 42, zerolog.Nop())

	gateway.On("CreateGatewaySession", mock.Anything, int64(9)).
		Return(&model.GatewaySession{GatewayOrderID: "order_abc"}, nil)
	gateway.On("VerifyGatewayPayment", mock.Anything, int64(9), mock.Anything).
		Return(nil, &backend.Error{Kind: backend.KindRejected, Op: "gateway-verify", Message: "Payment verification failed"})

	_, err := w.BeginGateway(context.Background(), 9)
	require.NoError(t, err)

	_, err = w.CompleteGateway(context.Background(), 9, model.GatewayCallback{GatewayOrderID: "order_abc"})
	require.Error(t, err)

	session := w.Session(9)
	assert.Equal(t, model.PaymentIdle, session.State)
	assert.Nil(t, session.GatewayReference)
	assert.Equal(t, "Payment verification failed", session.LastError)
	assert.Equal(t, 1, notifier.count(model.SeverityError))
}

func TestWorkflow_CompleteGatewayGuards(t *testing.T) {
	gateway := new(MockGateway)
	w := New(gateway, &recordingNotifier{}, 42, zerolog.Nop())

	_, err := w.CompleteGateway(context.Background(), 3, model.GatewayCallback{})
	assert.ErrorIs(t, err, model.ErrNotAwaitingCallback)

	gateway.On("CreateGatewaySession", mock.Anything, int64(3)).
		Return(&model.GatewaySession{GatewayOrderID: "order_xyz"}, nil)
	_, err = w.BeginGateway(context.Background(), 3)
	require.NoError(t, err)

	_, err = w.CompleteGateway(context.Background(), 3, model.GatewayCallback{GatewayOrderID: "order_other"})
	assert.ErrorIs(t, err, model.ErrNotAwaitingCallback)
	assert.Equal(t, model.PaymentAwaitingCallback, w.Session(3).State)

	// Closing before the callback only resets local state.
	assert.True(t, w.Close(3))
	_, err = w.CompleteGateway(context.Background(), 3, model.GatewayCallback{GatewayOrderID: "order_xyz"})
	assert.ErrorIs(t, err, model.ErrNotAwaitingCallback)
	gateway.AssertNotCalled(t, "VerifyGatewayPayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestWorkflow_BeginGatewayFailure(t *testing.T) {
	gateway := new(MockGateway)
	notifier := &recordingNotifier{}
	w := New(gateway, notifier, 42, zerolog.Nop())

	gateway.On("CreateGatewaySession", mock.Anything, int64(4)).
		Return(nil, &backend.Error{Kind: backend.KindNetwork, Op: "gateway-session", Message: "connection refused", Err: errors.New("connection refused")})

	_, err := w.BeginGateway(context.Background(), 4)
	require.Error(t, err)
	assert.True(t, backend.IsNetwork(err))
	assert.Equal(t, model.PaymentIdle, w.Session(4).State)
	assert.Equal(t, 1, notifier.count(model.SeverityError))
	assert.False(t, w.Close(4))
}
