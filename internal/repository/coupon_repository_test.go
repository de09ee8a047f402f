package repository

import (
	"context"
	"testing"
	"time"

	"canteen-tracker/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCouponRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewCouponRepository(pool, zerolog.Nop())
	issued := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("Save and get by order", func(t *testing.T) {
		c := &model.Coupon{
			Code:          "RBU-5-XY23AB",
			OrderID:       5,
			UserID:        42,
			TransactionID: "TX-5",
			Amount:        80.5,
			Method:        model.PaymentDirect,
			IssuedAt:      issued.Add(-time.Hour),
		}
		require.NoError(t, repo.Save(ctx, c))

		got, err := repo.GetByOrderID(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, "RBU-5-XY23AB", got.Code)
		assert.Equal(t, int64(42), got.UserID)
		assert.Equal(t, 80.5, got.Amount)
		assert.Equal(t, model.PaymentDirect, got.Method)
		assert.True(t, got.IssuedAt.Equal(c.IssuedAt))
	})

	t.Run("Save replaces coupon of the same order", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, &model.Coupon{
			Code: "RBU-5-NEWONE", OrderID: 5, UserID: 42, Method: model.PaymentGateway, IssuedAt: issued.Add(-time.Hour),
		}))

		got, err := repo.GetByOrderID(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, "RBU-5-NEWONE", got.Code)
		assert.Equal(t, model.PaymentGateway, got.Method)
	})

	t.Run("Missing coupon", func(t *testing.T) {
		_, err := repo.GetByOrderID(ctx, 999)
		assert.ErrorIs(t, err, model.ErrCouponNotFound)
	})

	t.Run("List by user newest first", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, &model.Coupon{Code: "RBU-6-AAAAAA", OrderID: 6, UserID: 42, Method: model.PaymentDirect, IssuedAt: issued}))
		require.NoError(t, repo.Save(ctx, &model.Coupon{Code: "RBU-7-BBBBBB", OrderID: 7, UserID: 43, Method: model.PaymentDirect, IssuedAt: issued}))

		coupons, err := repo.ListByUser(ctx, 42)
		require.NoError(t, err)
		require.Len(t, coupons, 2)
		assert.Equal(t, int64(6), coupons[0].OrderID)
		assert.Equal(t, int64(5), coupons[1].OrderID)

		none, err := repo.ListByUser(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}
