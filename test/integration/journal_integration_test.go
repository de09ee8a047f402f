package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"canteen-tracker/internal/model"
	"canteen-tracker/internal/repository"
	"canteen-tracker/internal/tracker"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournal_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	CleanupDB(t, testDB.Pool)

	logger := zerolog.Nop()
	coupons := repository.NewCouponRepository(testDB.Pool, logger)
	transitions := repository.NewTransitionRepository(testDB.Pool, logger)

	s := newStack(t, coupons, tracker.WithJournal(transitions))
	ctx := context.Background()

	w := s.do(t, http.MethodPost, "/api/orders", map[string]any{"foodItemIds": []int64{1, 3}})
	require.Equal(t, http.StatusCreated, w.Code)

	s.backend.Advance(101, model.StatusPreparing)
	s.refresh(t)
	s.backend.Advance(101, model.StatusReady)
	s.refresh(t)

	t.Run("Transitions are journaled in observation order", func(t *testing.T) {
		recorded, err := transitions.ListByOrder(ctx, 101)
		require.NoError(t, err)
		require.Len(t, recorded, 2)

		assert.Equal(t, model.StatusPlaced, recorded[0].From)
		assert.Equal(t, model.StatusPreparing, recorded[0].To)
		assert.False(t, recorded[0].Notify)
		assert.Equal(t, model.StatusReady, recorded[1].To)
		assert.True(t, recorded[1].Notify)
	})

	t.Run("Issued coupons persist", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/payments/101/direct", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var issued model.Coupon
		require.NoError(t, json.NewDecoder(w.Body).Decode(&issued))

		stored, err := coupons.GetByOrderID(ctx, 101)
		require.NoError(t, err)
		assert.Equal(t, issued.Code, stored.Code)
		assert.Equal(t, testUserID, stored.UserID)
		assert.Equal(t, 75.0, stored.Amount)

		listed, err := coupons.ListByUser(ctx, testUserID)
		require.NoError(t, err)
		assert.Len(t, listed, 1)
	})
}
