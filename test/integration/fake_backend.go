package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"canteen-tracker/internal/model"
)

const istLayout = "2006-01-02T15:04:05"

type fakeOrder struct {
	id        int64
	userID    int64
	status    model.Status
	placed    time.Time
	ready     *time.Time
	completed *time.Time
	items     []model.MenuItem
	total     float64
	coupon    string
	couponAt  time.Time
}

// FakeBackend is an in-memory canteen backend served over HTTP.
type FakeBackend struct {
	Server *httptest.Server

	mu        sync.Mutex
	loc       *time.Location
	menu      map[int64]model.MenuItem
	orders    map[int64]*fakeOrder
	nextID    int64
	queueSize int
	gateway   map[string]int64
	declines  map[int64]bool
}

// NewFakeBackend starts a fake backend with a small menu.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()

	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}

	b := &FakeBackend{
		loc:      loc,
		orders:   make(map[int64]*fakeOrder),
		nextID:   100,
		gateway:  make(map[string]int64),
		declines: make(map[int64]bool),
		menu: map[int64]model.MenuItem{
			1: {FoodItemRef: model.FoodItemRef{ID: 1, Name: "Masala Dosa", Category: "Meals", Price: 60, EstimatedPrepTime: 10}, Available: true},
			2: {FoodItemRef: model.FoodItemRef{ID: 2, Name: "Samosa", Category: "Snacks", Price: 20, EstimatedPrepTime: 5}, Available: true},
			3: {FoodItemRef: model.FoodItemRef{ID: 3, Name: "Masala Tea", Category: "Beverages", Price: 15, EstimatedPrepTime: 3}, Available: true},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/menu/available", b.handleMenu)
	mux.HandleFunc("GET /api/orders/user/{uid}", b.handleUserOrders)
	mux.HandleFunc("GET /api/orders/queue-size", b.handleQueueSize)
	mux.HandleFunc("GET /api/orders/{id}/wait-time", b.handleWaitTime)
	mux.HandleFunc("POST /api/orders", b.handlePlace)
	mux.HandleFunc("PUT /api/orders/{id}/status", b.handleStatus)
	mux.HandleFunc("POST /api/payments", b.handlePay)
	mux.HandleFunc("POST /api/payments/razorpay/order", b.handleGatewayOrder)
	mux.HandleFunc("POST /api/payments/razorpay/verify", b.handleGatewayVerify)
	mux.HandleFunc("GET /api/recommendations/most-ordered-today", b.handleMostOrdered)
	mux.HandleFunc("GET /api/recommendations/frequently-with/{id}", b.handleFrequentlyWith)
	mux.HandleFunc("GET /api/coupons/order/{orderId}", b.handleCouponByOrder)
	mux.HandleFunc("GET /api/coupons/{code}", b.handleCouponByCode)
	mux.HandleFunc("GET /api/analytics/bestsellers", b.handleBestsellers)
	mux.HandleFunc("GET /api/analytics/peak-hours", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]int64{"12 PM - 2 PM": 18, "6 PM - 8 PM": 9})
	})
	mux.HandleFunc("GET /api/analytics/daily-orders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]int64{time.Now().In(b.loc).Format(model.DateLayout): int64(b.orderCount())})
	})
	mux.HandleFunc("GET /api/analytics/revenue-trend", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]float64{time.Now().In(b.loc).Format(model.DateLayout): 95})
	})
	mux.HandleFunc("GET /api/analytics/average-prep-time", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 11.5)
	})

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the base URL of the fake backend.
func (b *FakeBackend) URL() string {
	return b.Server.URL
}

// SetQueueSize sets the reported queue size.
func (b *FakeBackend) SetQueueSize(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queueSize = n
}

// Advance moves an order to status as the canteen staff would.
func (b *FakeBackend) Advance(orderID int64, status model.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[orderID]
	if !ok {
		return
	}
	now := time.Now().In(b.loc)
	o.status = status
	switch status {
	case model.StatusReady:
		o.ready = &now
	case model.StatusCompleted:
		o.completed = &now
	}
}

// Decline makes every payment of orderID report a failed status.
func (b *FakeBackend) Decline(orderID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.declines[orderID] = true
}

func (b *FakeBackend) orderCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.orders)
}

func (b *FakeBackend) handleMenu(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := make([]model.MenuItem, 0, len(b.menu))
	for id := int64(1); id <= int64(len(b.menu)); id++ {
		items = append(items, b.menu[id])
	}
	writeJSON(w, items)
}

func (b *FakeBackend) handleUserOrders(w http.ResponseWriter, r *http.Request) {
	uid, _ := strconv.ParseInt(r.PathValue("uid"), 10, 64)

	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]map[string]any, 0)
	for id := b.nextID - int64(len(b.orders)) + 1; id <= b.nextID; id++ {
		if o, ok := b.orders[id]; ok && o.userID == uid {
			out = append(out, b.wire(o))
		}
	}
	writeJSON(w, out)
}

func (b *FakeBackend) handleQueueSize(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, b.queueSize)
}

func (b *FakeBackend) handleWaitTime(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)

	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[id]
	if !ok {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}
	minutes := 0
	for _, item := range o.items {
		minutes += item.EstimatedPrepTime
	}
	writeJSON(w, minutes)
}

func (b *FakeBackend) handlePlace(w http.ResponseWriter, r *http.Request) {
	var req model.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	o := &fakeOrder{userID: req.UserID, status: model.StatusPlaced, placed: time.Now().In(b.loc)}
	for _, id := range req.FoodItemIDs {
		item, ok := b.menu[id]
		if !ok {
			http.Error(w, fmt.Sprintf("Food item %d is not available", id), http.StatusBadRequest)
			return
		}
		o.items = append(o.items, item)
		o.total += item.Price
	}

	b.nextID++
	o.id = b.nextID
	b.orders[o.id] = o
	writeJSON(w, b.wire(o))
}

func (b *FakeBackend) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	status := model.Status(r.URL.Query().Get("status"))

	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[id]
	if !ok {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}
	if o.status.IsTerminal() {
		w.WriteHeader(http.StatusConflict)
		writeJSON(w, map[string]string{"message": "Order is already " + string(o.status)})
		return
	}
	o.status = status
	// The real backend answers cancellations without a body.
	w.WriteHeader(http.StatusOK)
}

func (b *FakeBackend) handlePay(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OrderID int64  `json:"orderId"`
		Method  string `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	b.settle(w, body.OrderID)
}

func (b *FakeBackend) handleGatewayOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OrderID int64 `json:"orderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[body.OrderID]
	if !ok {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}
	ref := fmt.Sprintf("order_%d_%d", o.id, len(b.gateway)+1)
	b.gateway[ref] = o.id
	writeJSON(w, model.GatewaySession{
		GatewayOrderID: ref,
		Amount:         int64(o.total * 100),
		Currency:       "INR",
		KeyID:          "rzp_test_key",
		OrderID:        o.id,
	})
}

func (b *FakeBackend) handleGatewayVerify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OrderID          int64  `json:"orderId"`
		GatewayOrderID   string `json:"razorpayOrderId"`
		GatewayPaymentID string `json:"razorpayPaymentId"`
		Signature        string `json:"razorpaySignature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	owner, ok := b.gateway[body.GatewayOrderID]
	b.mu.Unlock()

	if !ok || owner != body.OrderID || body.Signature != "valid-signature" {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]string{"error": "Payment verification failed"})
		return
	}
	b.settle(w, body.OrderID)
}

func (b *FakeBackend) settle(w http.ResponseWriter, orderID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[orderID]
	if !ok {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}
	if b.declines[orderID] {
		writeJSON(w, model.PaymentResult{PaymentStatus: "FAILED", OrderID: orderID})
		return
	}

	o.coupon = fmt.Sprintf("RBU-%d-%06X", o.id, o.id*7919)
	o.couponAt = time.Now().In(b.loc)
	code := o.coupon
	writeJSON(w, model.PaymentResult{
		PaymentStatus: model.PaymentStatusSuccess,
		CouponCode:    &code,
		OrderID:       orderID,
		TransactionID: fmt.Sprintf("TXN%d", o.id),
		OrderSummary:  &model.OrderSummary{TotalAmount: o.total, Status: o.status},
	})
}

func (b *FakeBackend) handleBestsellers(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	counts := make(map[int64]int)
	for _, o := range b.orders {
		for _, item := range o.items {
			counts[item.ID]++
		}
	}
	out := make([]model.MenuItem, 0)
	for id := int64(1); id <= int64(len(b.menu)); id++ {
		if counts[id] == 0 {
			continue
		}
		item := b.menu[id]
		item.TotalOrders = counts[id]
		out = append(out, item)
	}
	writeJSON(w, out)
}

func (b *FakeBackend) handleMostOrdered(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	writeJSON(w, b.ranked(func(o *fakeOrder) bool { return true }, 0, limitParam(r)))
}

func (b *FakeBackend) handleFrequentlyWith(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid food item", http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	with := func(o *fakeOrder) bool {
		for _, item := range o.items {
			if item.ID == id {
				return true
			}
		}
		return false
	}
	writeJSON(w, b.ranked(with, id, limitParam(r)))
}

// ranked counts items across the orders accepted by keep, most ordered first, skipping exclude.
func (b *FakeBackend) ranked(keep func(*fakeOrder) bool, exclude int64, limit int) []model.MenuItem {
	counts := make(map[int64]int)
	for _, o := range b.orders {
		if !keep(o) {
			continue
		}
		for _, item := range o.items {
			if item.ID != exclude {
				counts[item.ID]++
			}
		}
	}
	out := make([]model.MenuItem, 0, len(counts))
	for id := int64(1); id <= int64(len(b.menu)); id++ {
		if counts[id] == 0 {
			continue
		}
		item := b.menu[id]
		item.TotalOrders = counts[id]
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalOrders > out[j].TotalOrders })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (b *FakeBackend) handleCouponByOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("orderId"), 10, 64)

	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[id]
	if !ok || o.coupon == "" {
		http.Error(w, "Coupon not found", http.StatusNotFound)
		return
	}
	writeJSON(w, b.wireCoupon(o))
}

func (b *FakeBackend) handleCouponByCode(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, o := range b.orders {
		if o.coupon != "" && o.coupon == code {
			writeJSON(w, b.wireCoupon(o))
			return
		}
	}
	http.Error(w, "Coupon not found", http.StatusNotFound)
}

func (b *FakeBackend) wireCoupon(o *fakeOrder) map[string]any {
	return map[string]any{
		"id":        o.id,
		"code":      o.coupon,
		"order":     b.wire(o),
		"createdAt": o.couponAt.Format(istLayout),
	}
}

func limitParam(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return limit
}

// wire renders o the way the backend serializes orders, with offset-less local times.
func (b *FakeBackend) wire(o *fakeOrder) map[string]any {
	m := map[string]any{
		"id":            o.id,
		"status":        o.status,
		"orderTime":     o.placed.Format(istLayout),
		"readyTime":     nil,
		"completedTime": nil,
		"items":         o.items,
		"totalAmount":   o.total,
		"couponCode":    nil,
	}
	if o.ready != nil {
		m["readyTime"] = o.ready.Format(istLayout)
	}
	if o.completed != nil {
		m["completedTime"] = o.completed.Format(istLayout)
	}
	if o.coupon != "" {
		m["couponCode"] = o.coupon
	}
	return m
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
