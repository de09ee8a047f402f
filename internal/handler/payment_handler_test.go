package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"canteen-tracker/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPaymentService is a mock implementation of PaymentService.
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) PayDirect(ctx context.Context, orderID int64) (*model.Coupon, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Coupon), args.Error(1)
}

func (m *MockPaymentService) BeginGateway(ctx context.Context, orderID int64) (*model.GatewaySession, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GatewaySession), args.Error(1)
}

func (m *MockPaymentService) CompleteGateway(ctx context.Context, orderID int64, cb model.GatewayCallback) (*model.Coupon, error) {
	args := m.Called(ctx, orderID, cb)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Coupon), args.Error(1)
}

func (m *MockPaymentService) Close(orderID int64) bool {
	args := m.Called(orderID)
	return args.Bool(0)
}

func (m *MockPaymentService) Session(orderID int64) model.PaymentSession {
	args := m.Called(orderID)
	return args.Get(0).(model.PaymentSession)
}

func (m *MockPaymentService) Coupons(ctx context.Context) ([]model.Coupon, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Coupon), args.Error(1)
}

func (m *MockPaymentService) CouponByCode(ctx context.Context, code string) (*model.Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Coupon), args.Error(1)
}

func (m *MockPaymentService) CouponQR(ctx context.Context, orderID int64, size int) ([]byte, error) {
	args := m.Called(ctx, orderID, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func TestPaymentHandler_Direct(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name           string
		mockReturn     *model.Coupon
		mockError      error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "Success",
			mockReturn:     &model.Coupon{Code: "RBU-9-ABC123", OrderID: 9, Amount: 80},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Declined",
			mockError:      model.ErrPaymentDeclined,
			expectedStatus: http.StatusPaymentRequired,
			expectedCode:   model.ErrCodePaymentDeclined,
		},
		{
			name:           "Already in flight",
			mockError:      model.ErrPaymentInFlight,
			expectedStatus: http.StatusConflict,
			expectedCode:   model.ErrCodePaymentInFlight,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockPaymentService)
			mockService.On("PayDirect", mock.Anything, int64(9)).Return(tt.mockReturn, tt.mockError)

			handler := NewPaymentHandler(mockService, logger)

			req := httptest.NewRequest(http.MethodPost, "/api/payments/9/direct", nil)
			req.SetPathValue("id", "9")
			w := httptest.NewRecorder()

			handler.Direct(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeError(t, w).Error)
			} else {
				var c model.Coupon
				require.NoError(t, json.NewDecoder(w.Body).Decode(&c))
				assert.Equal(t, "RBU-9-ABC123", c.Code)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestPaymentHandler_Callback(t *testing.T) {
	logger := zerolog.Nop()
	cb := model.GatewayCallback{GatewayOrderID: "order_abc", GatewayPaymentID: "pay_1", Signature: "sig"}

	tests := []struct {
		name           string
		body           string
		expectService  bool
		mockError      error
		expectedStatus int
	}{
		{
			name:           "Success",
			body:           `{"razorpayOrderId": "order_abc", "razorpayPaymentId": "pay_1", "razorpaySignature": "sig"}`,
			expectService:  true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Not awaiting callback",
			body:           `{"razorpayOrderId": "order_abc", "razorpayPaymentId": "pay_1", "razorpaySignature": "sig"}`,
			expectService:  true,
			mockError:      model.ErrNotAwaitingCallback,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "Missing signature",
			body:           `{"razorpayOrderId": "order_abc", "razorpayPaymentId": "pay_1"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid JSON",
			body:           `not json`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockPaymentService)
			if tt.expectService {
				var ret *model.Coupon
				if tt.mockError == nil {
					ret = &model.Coupon{Code: "RBU-9-XYZ789", OrderID: 9}
				}
				mockService.On("CompleteGateway", mock.Anything, int64(9), cb).Return(ret, tt.mockError)
			}

			handler := NewPaymentHandler(mockService, logger)

			req := httptest.NewRequest(http.MethodPost, "/api/payments/9/callback", bytes.NewBufferString(tt.body))
			req.SetPathValue("id", "9")
			w := httptest.NewRecorder()

			handler.Callback(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectService {
				mockService.AssertExpectations(t)
			} else {
				mockService.AssertNotCalled(t, "CompleteGateway", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestPaymentHandler_CouponQR(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("Default size", func(t *testing.T) {
		mockService := new(MockPaymentService)
		mockService.On("CouponQR", mock.Anything, int64(9), 256).Return([]byte("\x89PNG"), nil)

		req := httptest.NewRequest(http.MethodGet, "/api/coupons/9/qr", nil)
		req.SetPathValue("id", "9")
		w := httptest.NewRecorder()

		NewPaymentHandler(mockService, logger).CouponQR(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
		mockService.AssertExpectations(t)
	})

	t.Run("Size out of range", func(t *testing.T) {
		mockService := new(MockPaymentService)

		req := httptest.NewRequest(http.MethodGet, "/api/coupons/9/qr?size=4096", nil)
		req.SetPathValue("id", "9")
		w := httptest.NewRecorder()

		NewPaymentHandler(mockService, logger).CouponQR(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "CouponQR", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("No coupon", func(t *testing.T) {
		mockService := new(MockPaymentService)
		mockService.On("CouponQR", mock.Anything, int64(9), 128).Return(nil, model.ErrCouponNotFound)

		req := httptest.NewRequest(http.MethodGet, "/api/coupons/9/qr?size=128", nil)
		req.SetPathValue("id", "9")
		w := httptest.NewRecorder()

		NewPaymentHandler(mockService, logger).CouponQR(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, model.ErrCodeCouponNotFound, decodeError(t, w).Error)
	})
}

func TestPaymentHandler_SessionAndClose(t *testing.T) {
	mockService := new(MockPaymentService)
	mockService.On("Session", int64(9)).Return(model.PaymentSession{OrderID: 9, State: model.PaymentAwaitingCallback})
	mockService.On("Close", int64(9)).Return(true)

	handler := NewPaymentHandler(mockService, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/payments/9", nil)
	req.SetPathValue("id", "9")
	w := httptest.NewRecorder()
	handler.Session(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var session model.PaymentSession
	require.NoError(t, json.NewDecoder(w.Body).Decode(&session))
	assert.Equal(t, model.PaymentAwaitingCallback, session.State)

	req = httptest.NewRequest(http.MethodDelete, "/api/payments/9", nil)
	req.SetPathValue("id", "9")
	w = httptest.NewRecorder()
	handler.Close(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	mockService.AssertExpectations(t)
}

func TestPaymentHandler_CouponLookup(t *testing.T) {
	mockService := new(MockPaymentService)
	mockService.On("CouponByCode", mock.Anything, "RBU-7-0A1B2C").
		Return(&model.Coupon{Code: "RBU-7-0A1B2C", OrderID: 7}, nil)
	mockService.On("CouponByCode", mock.Anything, "RBU-0-000000").Return(nil, model.ErrCouponNotFound)

	handler := NewPaymentHandler(mockService, zerolog.Nop())

	w := httptest.NewRecorder()
	handler.CouponLookup(w, httptest.NewRequest(http.MethodGet, "/api/coupons/lookup?code=RBU-7-0A1B2C", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var c model.Coupon
	require.NoError(t, json.NewDecoder(w.Body).Decode(&c))
	assert.Equal(t, int64(7), c.OrderID)

	w = httptest.NewRecorder()
	handler.CouponLookup(w, httptest.NewRequest(http.MethodGet, "/api/coupons/lookup?code=RBU-0-000000", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, model.ErrCodeCouponNotFound, decodeError(t, w).Error)

	w = httptest.NewRecorder()
	handler.CouponLookup(w, httptest.NewRequest(http.MethodGet, "/api/coupons/lookup", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "CouponByCode", mock.Anything, "")
}
