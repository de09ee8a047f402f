package model

import "errors"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON        = "INVALID_JSON"
	ErrCodeMissingField       = "MISSING_FIELD"
	ErrCodeInvalidID          = "INVALID_ID"
	ErrCodeEmptyOrder         = "EMPTY_ORDER"
	ErrCodeOrderNotFound      = "ORDER_NOT_FOUND"
	ErrCodeInvalidTransition  = "INVALID_TRANSITION"
	ErrCodePaymentInFlight    = "PAYMENT_IN_FLIGHT"
	ErrCodeNotAwaitingPayment = "NOT_AWAITING_CALLBACK"
	ErrCodePaymentDeclined    = "PAYMENT_DECLINED"
	ErrCodeAlreadyPaid        = "ALREADY_PAID"
	ErrCodeNoSession          = "NO_SESSION"
	ErrCodeInvalidAnalytics   = "INVALID_ANALYTICS"
	ErrCodeCouponNotFound     = "COUPON_NOT_FOUND"
	ErrCodeNotificationGone   = "NOTIFICATION_GONE"
	ErrCodeBackend            = "BACKEND_ERROR"
	ErrCodeUnauthorised       = "UNAUTHORIZED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped copies compare equal.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrEmptyOrder          = NewDomainError(ErrCodeEmptyOrder, "Order must contain at least one item")
	ErrOrderNotFound       = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrInvalidTransition   = NewDomainError(ErrCodeInvalidTransition, "Order can no longer be cancelled")
	ErrPaymentInFlight     = NewDomainError(ErrCodePaymentInFlight, "A payment for this order is already in progress")
	ErrNotAwaitingCallback = NewDomainError(ErrCodeNotAwaitingPayment, "No gateway payment is waiting for a callback")
	ErrPaymentDeclined     = NewDomainError(ErrCodePaymentDeclined, "Payment failed!")
	ErrAlreadyPaid         = NewDomainError(ErrCodeAlreadyPaid, "This order has already been paid")
	ErrNoSession           = NewDomainError(ErrCodeNoSession, "Session expired. Please login again.")
	ErrCouponNotFound      = NewDomainError(ErrCodeCouponNotFound, "No coupon issued for this order")
)
