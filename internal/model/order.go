package model

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a canteen order.
type Status string

const (
	StatusPlaced    Status = "PLACED"
	StatusPreparing Status = "PREPARING"
	StatusReady     Status = "READY"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// statusRank orders the forward path PLACED -> PREPARING -> READY -> COMPLETED.
var statusRank = map[Status]int{
	StatusPlaced:    0,
	StatusPreparing: 1,
	StatusReady:     2,
	StatusCompleted: 3,
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// IsTerminal reports whether no further transition can leave s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsActive reports whether the order is still waiting on the kitchen.
// Only active orders have a wait-time estimate.
func (s Status) IsActive() bool {
	return s == StatusPlaced || s == StatusPreparing
}

// InQueue reports whether the order counts towards the canteen queue size.
func (s Status) InQueue() bool {
	return s.IsActive() || s == StatusReady
}

// Notifiable reports whether reaching s is worth telling the user about.
func (s Status) Notifiable() bool {
	return s == StatusReady || s == StatusCompleted
}

// CanTransition reports whether an order may move from one status to another.
// Forward moves are monotonic; CANCELLED is reachable from any non-terminal status.
func CanTransition(from, to Status) bool {
	if from.IsTerminal() || !from.Valid() || !to.Valid() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	return statusRank[to] > statusRank[from]
}

// FoodItemRef is the snapshot of a menu item embedded in an order.
type FoodItemRef struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	Category          string  `json:"category"`
	Price             float64 `json:"price"`
	EstimatedPrepTime int     `json:"estimatedPrepTime"`
}

// MenuItem is a menu entry as served by the backend.
type MenuItem struct {
	FoodItemRef
	Available   bool `json:"available"`
	TotalOrders int  `json:"totalOrders"`
}

// MenuFilter narrows the menu. Empty fields match everything.
type MenuFilter struct {
	Category string `json:"category,omitempty"`
	Query    string `json:"q,omitempty"`
}

// Matches reports whether item is in the filter's category and its name contains the query,
// ignoring case.
func (f MenuFilter) Matches(item MenuItem) bool {
	if f.Category != "" && item.Category != f.Category {
		return false
	}
	query := strings.TrimSpace(f.Query)
	return query == "" || strings.Contains(strings.ToLower(item.Name), strings.ToLower(query))
}

// Order represents a placed canteen order.
type Order struct {
	ID            int64         `json:"id"`
	Status        Status        `json:"status"`
	OrderTime     time.Time     `json:"orderTime"`
	ReadyTime     *time.Time    `json:"readyTime,omitempty"`
	CompletedTime *time.Time    `json:"completedTime,omitempty"`
	Items         []FoodItemRef `json:"items"`
	TotalAmount   float64       `json:"totalAmount"`
	CouponCode    *string       `json:"couponCode,omitempty"`
}

// Transition is an observed status change of a single order.
type Transition struct {
	OrderID    int64     `json:"orderId"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	ObservedAt time.Time `json:"observedAt"`
	Notify     bool      `json:"notify"`
}

// PlaceOrderRequest is the payload for placing an order.
type PlaceOrderRequest struct {
	UserID      int64   `json:"userId"`
	FoodItemIDs []int64 `json:"foodItemIds"`
}

// TrackedOrder pairs an order with its current wait-time estimate, if any.
type TrackedOrder struct {
	Order
	ETAMinutes *int `json:"etaMinutes,omitempty"`
}
