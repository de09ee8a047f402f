package backend

import (
	"fmt"
	"strings"
	"time"

	"canteen-tracker/internal/model"
)

// localDateTime is the layout of offset-less timestamps served by the backend.
const localDateTime = "2006-01-02T15:04:05.999999999"

// wireOrder is the order as it appears on the wire.
type wireOrder struct {
	ID            int64            `json:"id"`
	Status        model.Status     `json:"status"`
	OrderTime     string           `json:"orderTime"`
	ReadyTime     *string          `json:"readyTime"`
	CompletedTime *string          `json:"completedTime"`
	Items         []model.MenuItem `json:"items"`
	TotalAmount   float64          `json:"totalAmount"`
	CouponCode    *string          `json:"couponCode"`
}

// parseTime accepts RFC 3339 timestamps and offset-less local date-times in loc.
func parseTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(localDateTime, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", value)
	}
	return t, nil
}

func parseOptionalTime(value *string, loc *time.Location) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := parseTime(*value, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (w wireOrder) toModel(loc *time.Location) (model.Order, error) {
	if w.ID <= 0 {
		return model.Order{}, fmt.Errorf("order without id")
	}
	if !w.Status.Valid() {
		return model.Order{}, fmt.Errorf("order %d: unknown status %q", w.ID, w.Status)
	}

	orderTime, err := parseTime(w.OrderTime, loc)
	if err != nil {
		return model.Order{}, fmt.Errorf("order %d: orderTime: %w", w.ID, err)
	}
	readyTime, err := parseOptionalTime(w.ReadyTime, loc)
	if err != nil {
		return model.Order{}, fmt.Errorf("order %d: readyTime: %w", w.ID, err)
	}
	completedTime, err := parseOptionalTime(w.CompletedTime, loc)
	if err != nil {
		return model.Order{}, fmt.Errorf("order %d: completedTime: %w", w.ID, err)
	}

	items := make([]model.FoodItemRef, len(w.Items))
	for i, item := range w.Items {
		items[i] = item.FoodItemRef
	}

	return model.Order{
		ID:            w.ID,
		Status:        w.Status,
		OrderTime:     orderTime,
		ReadyTime:     readyTime,
		CompletedTime: completedTime,
		Items:         items,
		TotalAmount:   w.TotalAmount,
		CouponCode:    w.CouponCode,
	}, nil
}

// wireCoupon is a backend coupon. The embedded order may be omitted.
type wireCoupon struct {
	Code      string     `json:"code"`
	Order     *wireOrder `json:"order"`
	CreatedAt string     `json:"createdAt"`
}

func (w wireCoupon) toModel(loc *time.Location) (*model.Coupon, error) {
	if w.Code == "" {
		return nil, fmt.Errorf("coupon without code")
	}
	coupon := &model.Coupon{Code: w.Code}
	if w.CreatedAt != "" {
		issued, err := parseTime(w.CreatedAt, loc)
		if err != nil {
			return nil, fmt.Errorf("coupon %s: createdAt: %w", w.Code, err)
		}
		coupon.IssuedAt = issued
	}
	if w.Order != nil {
		coupon.OrderID = w.Order.ID
		coupon.Amount = w.Order.TotalAmount
	}
	return coupon, nil
}

type placeOrderBody struct {
	UserID      int64   `json:"userId"`
	FoodItemIDs []int64 `json:"foodItemIds"`
}

type paymentBody struct {
	OrderID int64  `json:"orderId"`
	Method  string `json:"method"`
}

type gatewayOrderBody struct {
	OrderID int64 `json:"orderId"`
}

type gatewayVerifyBody struct {
	OrderID          int64  `json:"orderId"`
	GatewayOrderID   string `json:"razorpayOrderId"`
	GatewayPaymentID string `json:"razorpayPaymentId"`
	Signature        string `json:"razorpaySignature"`
}

// methodTag maps a payment method to the tag understood by the payment endpoint.
func methodTag(method model.PaymentMethod) string {
	switch method {
	case model.PaymentGateway:
		return "RAZORPAY"
	default:
		return "MOCK"
	}
}
