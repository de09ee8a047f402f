package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"canteen-tracker/internal/model"
	"canteen-tracker/internal/session"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Client implements Backend over the canteen REST API.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Session
	loc     *time.Location
	logger  zerolog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout bounds every request. Zero leaves the transport default.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = timeout
	}
}

// WithLocation sets the zone used for offset-less backend timestamps.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		c.loc = loc
	}
}

// NewClient creates a backend client. Requests carry the session's bearer token.
func NewClient(baseURL string, sess *session.Session, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		session: sess,
		loc:     time.UTC,
		logger:  logger.With().Str("component", "backend-client").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AvailableMenu fetches the items currently on offer.
func (c *Client) AvailableMenu(ctx context.Context) ([]model.MenuItem, error) {
	var items []model.MenuItem
	if err := c.do(ctx, "menu", http.MethodGet, "/api/menu/available", nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Recommendations fetches the items ordered most today.
func (c *Client) Recommendations(ctx context.Context, limit int) ([]model.MenuItem, error) {
	var items []model.MenuItem
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.do(ctx, "recommendations", http.MethodGet, "/api/recommendations/most-ordered-today", q, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// FrequentlyWith fetches the items most often ordered together with foodItemID.
func (c *Client) FrequentlyWith(ctx context.Context, foodItemID int64, limit int) ([]model.MenuItem, error) {
	var items []model.MenuItem
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	path := fmt.Sprintf("/api/recommendations/frequently-with/%d", foodItemID)
	if err := c.do(ctx, "frequently-with", http.MethodGet, path, q, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CouponByOrder fetches the coupon the backend issued for orderID.
func (c *Client) CouponByOrder(ctx context.Context, orderID int64) (*model.Coupon, error) {
	coupon, err := c.coupon(ctx, "coupon-by-order", fmt.Sprintf("/api/coupons/order/%d", orderID))
	if err != nil {
		return nil, err
	}
	if coupon.OrderID == 0 {
		coupon.OrderID = orderID
	}
	return coupon, nil
}

// CouponByCode fetches the coupon with the given code.
func (c *Client) CouponByCode(ctx context.Context, code string) (*model.Coupon, error) {
	return c.coupon(ctx, "coupon-by-code", "/api/coupons/"+url.PathEscape(code))
}

func (c *Client) coupon(ctx context.Context, op, path string) (*model.Coupon, error) {
	var wire *wireCoupon
	if err := c.do(ctx, op, http.MethodGet, path, nil, nil, &wire); err != nil {
		var be *Error
		if errors.As(err, &be) && be.Kind == KindRejected && be.StatusCode == http.StatusNotFound {
			return nil, model.ErrCouponNotFound
		}
		return nil, err
	}
	if wire == nil {
		return nil, emptyBody(op)
	}
	coupon, err := wire.toModel(c.loc)
	if err != nil {
		return nil, &Error{Kind: KindParse, Op: op, Message: err.Error(), Err: err}
	}
	return coupon, nil
}

// OrdersForUser fetches every order of userID.
func (c *Client) OrdersForUser(ctx context.Context, userID int64) ([]model.Order, error) {
	const op = "orders"

	var wire []wireOrder
	if err := c.do(ctx, op, http.MethodGet, fmt.Sprintf("/api/orders/user/%d", userID), nil, nil, &wire); err != nil {
		return nil, err
	}

	orders := make([]model.Order, 0, len(wire))
	for _, w := range wire {
		order, err := w.toModel(c.loc)
		if err != nil {
			return nil, &Error{Kind: KindParse, Op: op, Message: err.Error(), Err: err}
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// QueueSize fetches the number of orders currently in the canteen queue.
func (c *Client) QueueSize(ctx context.Context) (int, error) {
	var size *int
	if err := c.do(ctx, "queue-size", http.MethodGet, "/api/orders/queue-size", nil, nil, &size); err != nil {
		return 0, err
	}
	if size == nil {
		return 0, emptyBody("queue-size")
	}
	return *size, nil
}

// WaitTime fetches the estimated minutes until orderID is ready.
func (c *Client) WaitTime(ctx context.Context, orderID int64) (int, error) {
	var minutes *int
	if err := c.do(ctx, "wait-time", http.MethodGet, fmt.Sprintf("/api/orders/%d/wait-time", orderID), nil, nil, &minutes); err != nil {
		return 0, err
	}
	if minutes == nil {
		return 0, emptyBody("wait-time")
	}
	return *minutes, nil
}

// PlaceOrder submits a new order and returns it as created by the backend.
func (c *Client) PlaceOrder(ctx context.Context, req model.PlaceOrderRequest) (*model.Order, error) {
	const op = "place-order"

	body := placeOrderBody{UserID: req.UserID, FoodItemIDs: req.FoodItemIDs}
	var wire *wireOrder
	if err := c.do(ctx, op, http.MethodPost, "/api/orders", nil, body, &wire); err != nil {
		return nil, err
	}
	if wire == nil {
		return nil, emptyBody(op)
	}
	order, err := wire.toModel(c.loc)
	if err != nil {
		return nil, &Error{Kind: KindParse, Op: op, Message: err.Error(), Err: err}
	}
	return &order, nil
}

// CancelOrder asks the backend to cancel orderID.
// A success response without a body yields a nil order and no error.
func (c *Client) CancelOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	const op = "cancel-order"

	query := url.Values{"status": {string(model.StatusCancelled)}}
	var wire *wireOrder
	if err := c.do(ctx, op, http.MethodPut, fmt.Sprintf("/api/orders/%d/status", orderID), query, nil, &wire); err != nil {
		return nil, err
	}
	if wire == nil {
		return nil, nil
	}
	order, err := wire.toModel(c.loc)
	if err != nil {
		return nil, &Error{Kind: KindParse, Op: op, Message: err.Error(), Err: err}
	}
	return &order, nil
}

// Pay submits a direct payment for orderID.
func (c *Client) Pay(ctx context.Context, orderID int64, method model.PaymentMethod) (*model.PaymentResult, error) {
	const op = "payment"

	body := paymentBody{OrderID: orderID, Method: methodTag(method)}
	var result *model.PaymentResult
	if err := c.do(ctx, op, http.MethodPost, "/api/payments", nil, body, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, emptyBody(op)
	}
	return result, nil
}

// CreateGatewaySession opens a gateway order for orderID.
func (c *Client) CreateGatewaySession(ctx context.Context, orderID int64) (*model.GatewaySession, error) {
	const op = "gateway-session"

	var gs *model.GatewaySession
	if err := c.do(ctx, op, http.MethodPost, "/api/payments/razorpay/order", nil, gatewayOrderBody{OrderID: orderID}, &gs); err != nil {
		return nil, err
	}
	if gs == nil || gs.GatewayOrderID == "" {
		return nil, emptyBody(op)
	}
	return gs, nil
}

// VerifyGatewayPayment submits the gateway callback identifiers for verification.
func (c *Client) VerifyGatewayPayment(ctx context.Context, orderID int64, cb model.GatewayCallback) (*model.PaymentResult, error) {
	const op = "gateway-verify"

	body := gatewayVerifyBody{
		OrderID:          orderID,
		GatewayOrderID:   cb.GatewayOrderID,
		GatewayPaymentID: cb.GatewayPaymentID,
		Signature:        cb.Signature,
	}
	var result *model.PaymentResult
	if err := c.do(ctx, op, http.MethodPost, "/api/payments/razorpay/verify", nil, body, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, emptyBody(op)
	}
	return result, nil
}

// BackendAnalytics fetches every precomputed analytics view and validates the result.
func (c *Client) BackendAnalytics(ctx context.Context, days, bestsellerLimit int) (*model.BackendAnalytics, error) {
	const op = "analytics"

	var out model.BackendAnalytics
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		q := url.Values{"limit": {strconv.Itoa(bestsellerLimit)}}
		return c.do(gctx, op, http.MethodGet, "/api/analytics/bestsellers", q, nil, &out.Bestsellers)
	})
	g.Go(func() error {
		return c.do(gctx, op, http.MethodGet, "/api/analytics/peak-hours", nil, nil, &out.PeakHours)
	})
	g.Go(func() error {
		q := url.Values{"days": {strconv.Itoa(days)}}
		return c.do(gctx, op, http.MethodGet, "/api/analytics/daily-orders", q, nil, &out.DailyOrders)
	})
	g.Go(func() error {
		q := url.Values{"days": {strconv.Itoa(days)}}
		return c.do(gctx, op, http.MethodGet, "/api/analytics/revenue-trend", q, nil, &out.RevenueTrend)
	})
	g.Go(func() error {
		return c.do(gctx, op, http.MethodGet, "/api/analytics/average-prep-time", nil, nil, &out.AveragePrepMinutes)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := out.Validate(); err != nil {
		return nil, &Error{Kind: KindParse, Op: op, Message: err.Error(), Err: err}
	}

	out.FetchedAt = time.Now()
	return &out, nil
}

// do performs one request. A success status with an empty body leaves out untouched.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindParse, Op: op, Message: "failed to encode request: " + err.Error(), Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &Error{Kind: KindParse, Op: op, Message: "failed to build request: " + err.Error(), Err: err}
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.session != nil {
		if token := c.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().
			Err(err).
			Str("op", op).
			Str("request_id", requestID).
			Msg("backend request failed")
		return &Error{Kind: KindNetwork, Op: op, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindNetwork, Op: op, StatusCode: resp.StatusCode, Message: err.Error(), Err: err}
	}

	c.logger.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Str("request_id", requestID).
		Msg("backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Kind:       KindRejected,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    rejectionMessage(resp.StatusCode, data),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindParse, Op: op, StatusCode: resp.StatusCode, Message: err.Error(), Err: err}
	}
	return nil
}

// rejectionMessage extracts the display text of a rejected request.
func rejectionMessage(status int, data []byte) string {
	text := strings.TrimSpace(string(data))

	var structured struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &structured) == nil {
		switch {
		case structured.Message != "":
			return structured.Message
		case structured.Error != "":
			return structured.Error
		}
	}

	if text == "" {
		return fmt.Sprintf("HTTP error! status: %d", status)
	}
	return text
}

func emptyBody(op string) error {
	return &Error{Kind: KindParse, Op: op, Message: "empty response body"}
}
