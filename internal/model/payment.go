package model

import "time"

// PaymentMethod selects the payment path.
type PaymentMethod string

const (
	// PaymentDirect settles in a single round trip.
	PaymentDirect PaymentMethod = "DIRECT"
	// PaymentGateway redirects through the external gateway and waits for its callback.
	PaymentGateway PaymentMethod = "GATEWAY"
)

// PaymentState is the client-side state of a payment attempt.
type PaymentState string

const (
	PaymentIdle             PaymentState = "IDLE"
	PaymentInitiated        PaymentState = "INITIATED"
	PaymentAwaitingCallback PaymentState = "AWAITING_CALLBACK"
	PaymentVerifying        PaymentState = "VERIFYING"
	PaymentSucceeded        PaymentState = "SUCCESS"
	PaymentFailed           PaymentState = "FAILED"
)

// InFlight reports whether a payment attempt is still underway in this state.
func (s PaymentState) InFlight() bool {
	switch s {
	case PaymentInitiated, PaymentAwaitingCallback, PaymentVerifying:
		return true
	}
	return false
}

// PaymentSession tracks the payment attempt for one order.
type PaymentSession struct {
	OrderID          int64         `json:"orderId"`
	Method           PaymentMethod `json:"method,omitempty"`
	State            PaymentState  `json:"state"`
	GatewayReference *string       `json:"gatewayReference,omitempty"`
	LastError        string        `json:"lastError,omitempty"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// PaymentStatusSuccess is the only paymentStatus value that counts as paid.
const PaymentStatusSuccess = "SUCCESS"

// OrderSummary is the order digest returned alongside a payment result.
type OrderSummary struct {
	TotalAmount float64 `json:"totalAmount"`
	Status      Status  `json:"status,omitempty"`
}

// PaymentResult is the backend response to a direct payment or a gateway verification.
type PaymentResult struct {
	PaymentStatus string        `json:"paymentStatus"`
	CouponCode    *string       `json:"couponCode,omitempty"`
	OrderID       int64         `json:"orderId"`
	TransactionID string        `json:"transactionId,omitempty"`
	OrderSummary  *OrderSummary `json:"orderSummary,omitempty"`
}

// Succeeded reports whether the backend reported the payment as settled.
func (r *PaymentResult) Succeeded() bool {
	return r != nil && r.PaymentStatus == PaymentStatusSuccess
}

// GatewaySession holds the parameters needed to open the gateway checkout.
type GatewaySession struct {
	GatewayOrderID string `json:"razorpayOrderId"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	KeyID          string `json:"keyId"`
	OrderID        int64  `json:"orderId"`
}

// GatewayCallback carries the identifiers the gateway hands back after checkout.
type GatewayCallback struct {
	GatewayOrderID   string `json:"razorpayOrderId"`
	GatewayPaymentID string `json:"razorpayPaymentId"`
	Signature        string `json:"razorpaySignature"`
}

// Coupon is proof of payment presented at pickup.
type Coupon struct {
	Code          string        `json:"code"`
	OrderID       int64         `json:"orderId"`
	UserID        int64         `json:"userId"`
	TransactionID string        `json:"transactionId,omitempty"`
	Amount        float64       `json:"amount"`
	Method        PaymentMethod `json:"method"`
	IssuedAt      time.Time     `json:"issuedAt"`
}
