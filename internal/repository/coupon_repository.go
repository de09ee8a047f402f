package repository

import (
	"context"
	"errors"
	"fmt"

	"canteen-tracker/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// couponRepository implements the CouponRepository interface using PostgreSQL.
type couponRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCouponRepository creates a new PostgreSQL-backed coupon repository.
func NewCouponRepository(pool *pgxpool.Pool, logger zerolog.Logger) CouponRepository {
	return &couponRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "coupon").Logger(),
	}
}

// Save upserts a coupon by order id.
func (r *couponRepository) Save(ctx context.Context, coupon *model.Coupon) error {
	query := `
		INSERT INTO coupons (order_id, user_id, code, transaction_id, amount, method, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (order_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			code = EXCLUDED.code,
			transaction_id = EXCLUDED.transaction_id,
			amount = EXCLUDED.amount,
			method = EXCLUDED.method,
			issued_at = EXCLUDED.issued_at
	`

	_, err := r.pool.Exec(ctx, query,
		coupon.OrderID,
		coupon.UserID,
		coupon.Code,
		coupon.TransactionID,
		coupon.Amount,
		string(coupon.Method),
		coupon.IssuedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Int64("order_id", coupon.OrderID).
			Msg("failed to save coupon")
		return fmt.Errorf("failed to save coupon: %w", err)
	}

	r.logger.Debug().
		Int64("order_id", coupon.OrderID).
		Msg("coupon saved successfully")

	return nil
}

// GetByOrderID retrieves the coupon of an order.
func (r *couponRepository) GetByOrderID(ctx context.Context, orderID int64) (*model.Coupon, error) {
	query := `
		SELECT order_id, user_id, code, transaction_id, amount, method, issued_at
		FROM coupons
		WHERE order_id = $1
	`

	c, err := scanCoupon(r.pool.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("order_id", orderID).Msg("coupon not found")
			return nil, model.ErrCouponNotFound
		}
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to query coupon")
		return nil, fmt.Errorf("failed to query coupon: %w", err)
	}
	return c, nil
}

// ListByUser retrieves a user's coupons, most recently issued first.
func (r *couponRepository) ListByUser(ctx context.Context, userID int64) ([]model.Coupon, error) {
	query := `
		SELECT order_id, user_id, code, transaction_id, amount, method, issued_at
		FROM coupons
		WHERE user_id = $1
		ORDER BY issued_at DESC, order_id DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to query coupons")
		return nil, fmt.Errorf("failed to query coupons: %w", err)
	}
	defer rows.Close()

	coupons := []model.Coupon{}
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan coupon row")
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		coupons = append(coupons, *c)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating coupon rows")
		return nil, fmt.Errorf("error iterating coupons: %w", err)
	}

	return coupons, nil
}

func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var (
		c      model.Coupon
		method string
	)
	if err := row.Scan(&c.OrderID, &c.UserID, &c.Code, &c.TransactionID, &c.Amount, &method, &c.IssuedAt); err != nil {
		return nil, err
	}
	c.Method = model.PaymentMethod(method)
	return &c, nil
}
