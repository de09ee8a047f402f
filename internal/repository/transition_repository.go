package repository

import (
	"context"
	"fmt"

	"canteen-tracker/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// transitionRepository implements the TransitionRepository interface using PostgreSQL.
type transitionRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewTransitionRepository creates a new PostgreSQL-backed transition repository.
func NewTransitionRepository(pool *pgxpool.Pool, logger zerolog.Logger) TransitionRepository {
	return &transitionRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "transition").Logger(),
	}
}

// Record appends transitions in a single batch.
func (r *transitionRepository) Record(ctx context.Context, userID int64, transitions []model.Transition) error {
	if len(transitions) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_transitions (user_id, order_id, from_status, to_status, notified, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	batch := &pgx.Batch{}
	for _, tr := range transitions {
		batch.Queue(query, userID, tr.OrderID, string(tr.From), string(tr.To), tr.Notify, tr.ObservedAt)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(transitions); i++ {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Int64("order_id", transitions[i].OrderID).
				Msg("failed to record transition")
			return fmt.Errorf("failed to record transition: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(transitions)).
		Msg("transitions recorded successfully")

	return nil
}

// ListByOrder retrieves the transitions of an order in observation order.
func (r *transitionRepository) ListByOrder(ctx context.Context, orderID int64) ([]model.Transition, error) {
	query := `
		SELECT order_id, from_status, to_status, notified, observed_at
		FROM order_transitions
		WHERE order_id = $1
		ORDER BY observed_at, id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to query transitions")
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer rows.Close()

	transitions := []model.Transition{}
	for rows.Next() {
		var (
			tr       model.Transition
			from, to string
		)
		if err := rows.Scan(&tr.OrderID, &from, &to, &tr.Notify, &tr.ObservedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan transition row")
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		tr.From = model.Status(from)
		tr.To = model.Status(to)
		transitions = append(transitions, tr)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating transition rows")
		return nil, fmt.Errorf("error iterating transitions: %w", err)
	}

	return transitions, nil
}
