package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name     string
		from     Status
		to       Status
		expected bool
	}{
		{"Placed to preparing", StatusPlaced, StatusPreparing, true},
		{"Placed straight to ready", StatusPlaced, StatusReady, true},
		{"Preparing to ready", StatusPreparing, StatusReady, true},
		{"Ready to completed", StatusReady, StatusCompleted, true},
		{"Ready back to preparing", StatusReady, StatusPreparing, false},
		{"Same status", StatusPreparing, StatusPreparing, false},
		{"Cancel placed order", StatusPlaced, StatusCancelled, true},
		{"Cancel ready order", StatusReady, StatusCancelled, true},
		{"Cancel completed order", StatusCompleted, StatusCancelled, false},
		{"Leave cancelled", StatusCancelled, StatusPlaced, false},
		{"Unknown target", StatusPlaced, Status("LOST"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusPlaced.IsActive())
	assert.True(t, StatusPreparing.IsActive())
	assert.False(t, StatusReady.IsActive())

	assert.True(t, StatusReady.InQueue())
	assert.False(t, StatusCompleted.InQueue())

	assert.True(t, StatusReady.Notifiable())
	assert.True(t, StatusCompleted.Notifiable())
	assert.False(t, StatusPreparing.Notifiable())
	assert.False(t, StatusCancelled.Notifiable())

	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, Status("").Valid())
}

func TestDomainError_Is(t *testing.T) {
	wrapped := fmt.Errorf("pay order 7: %w", ErrPaymentInFlight)

	assert.True(t, errors.Is(wrapped, ErrPaymentInFlight))
	assert.False(t, errors.Is(wrapped, ErrNotAwaitingCallback))
	assert.Equal(t, "A payment for this order is already in progress", ErrPaymentInFlight.Error())
}

func TestBackendAnalytics_Validate(t *testing.T) {
	valid := &BackendAnalytics{
		Bestsellers:  []MenuItem{{FoodItemRef: FoodItemRef{ID: 1, Name: "Samosa"}}},
		PeakHours:    map[string]int64{"12 PM - 2 PM": 4},
		DailyOrders:  map[string]int64{"2025-03-01": 3},
		RevenueTrend: map[string]float64{"2025-03-01": 120.5},
	}
	assert.NoError(t, valid.Validate())

	badDate := &BackendAnalytics{DailyOrders: map[string]int64{"March 1": 3}}
	err := badDate.Validate()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, NewDomainError(ErrCodeInvalidAnalytics, "")))

	negative := &BackendAnalytics{RevenueTrend: map[string]float64{"2025-03-01": -1}}
	assert.Error(t, negative.Validate())

	unnamed := &BackendAnalytics{Bestsellers: []MenuItem{{FoodItemRef: FoodItemRef{ID: 2}}}}
	assert.Error(t, unnamed.Validate())
}

func TestMenuFilter_Matches(t *testing.T) {
	samosa := MenuItem{FoodItemRef: FoodItemRef{ID: 1, Name: "Samosa", Category: "Snacks"}}

	tests := []struct {
		name     string
		filter   MenuFilter
		expected bool
	}{
		{"Empty filter", MenuFilter{}, true},
		{"Matching category", MenuFilter{Category: "Snacks"}, true},
		{"Category is exact", MenuFilter{Category: "snacks"}, false},
		{"Other category", MenuFilter{Category: "Beverages"}, false},
		{"Query ignores case", MenuFilter{Query: "SAMO"}, true},
		{"Query misses", MenuFilter{Query: "dosa"}, false},
		{"Both must match", MenuFilter{Category: "Beverages", Query: "samosa"}, false},
		{"Blank query", MenuFilter{Query: "  "}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.filter.Matches(samosa))
		})
	}
}
