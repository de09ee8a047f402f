package service

import (
	"context"
	"fmt"

	"canteen-tracker/internal/backend"
	"canteen-tracker/internal/model"
	"canteen-tracker/internal/session"

	"github.com/rs/zerolog"
)

const (
	msgOrderPlaced       = "Order placed successfully!"
	msgOrderPlaceFailed  = "Failed to place order."
	msgOrderCancelled    = "Order cancelled."
	msgOrderCancelFailed = "Failed to cancel order."
)

// DefaultRecommendationLimit applies when a recommendation request gives no positive limit.
const DefaultRecommendationLimit = 5

// OrderBackend is the subset of the backend used for order actions.
type OrderBackend interface {
	backend.MenuSource
	backend.RecommendationSource
	backend.OrderWriter
}

// orderService implements OrderService.
type orderService struct {
	backend  OrderBackend
	tracker  OrderTracker
	notifier Notifier
	session  *session.Session
	logger   zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	b OrderBackend,
	tracker OrderTracker,
	notifier Notifier,
	sess *session.Session,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		backend:  b,
		tracker:  tracker,
		notifier: notifier,
		session:  sess,
		logger:   logger.With().Str("service", "order").Logger(),
	}
}

// Menu retrieves the available items that match filter, in menu order.
func (s *orderService) Menu(ctx context.Context, filter model.MenuFilter) ([]model.MenuItem, error) {
	items, err := s.backend.AvailableMenu(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch menu")
		return nil, fmt.Errorf("failed to fetch menu: %w", err)
	}

	matched := make([]model.MenuItem, 0, len(items))
	for _, item := range items {
		if filter.Matches(item) {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

// Recommendations retrieves the items ordered most today.
func (s *orderService) Recommendations(ctx context.Context, limit int) ([]model.MenuItem, error) {
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}
	items, err := s.backend.Recommendations(ctx, limit)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to fetch recommendations")
		return nil, fmt.Errorf("failed to fetch recommendations: %w", err)
	}
	return items, nil
}

// FrequentlyWith retrieves the items most often ordered together with foodItemID.
func (s *orderService) FrequentlyWith(ctx context.Context, foodItemID int64, limit int) ([]model.MenuItem, error) {
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}
	items, err := s.backend.FrequentlyWith(ctx, foodItemID, limit)
	if err != nil {
		s.logger.Warn().Err(err).Int64("food_item_id", foodItemID).Msg("failed to fetch pairings")
		return nil, fmt.Errorf("failed to fetch items ordered with %d: %w", foodItemID, err)
	}
	return items, nil
}

// Place submits a new order. The outcome surfaces as exactly one notification.
func (s *orderService) Place(ctx context.Context, foodItemIDs []int64) (*model.Order, error) {
	if !s.session.Active() {
		s.notifier.Notify(model.ErrNoSession.Message, model.SeverityError)
		return nil, model.ErrNoSession
	}
	if len(foodItemIDs) == 0 {
		s.notifier.Notify(model.ErrEmptyOrder.Message, model.SeverityError)
		return nil, model.ErrEmptyOrder
	}

	order, err := s.backend.PlaceOrder(ctx, model.PlaceOrderRequest{
		UserID:      s.session.UserID(),
		FoodItemIDs: foodItemIDs,
	})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Int("item_count", len(foodItemIDs)).
			Msg("failed to place order")
		s.notifier.Notify(backend.Message(err, msgOrderPlaceFailed), model.SeverityError)
		return nil, err
	}

	s.logger.Info().
		Int64("order_id", order.ID).
		Int("item_count", len(foodItemIDs)).
		Float64("total_amount", order.TotalAmount).
		Msg("order placed successfully")

	s.notifier.Notify(msgOrderPlaced, model.SeveritySuccess)
	s.refresh(ctx)
	return order, nil
}

// Cancel cancels an order. Orders known to be terminal are rejected without a backend call.
func (s *orderService) Cancel(ctx context.Context, orderID int64) error {
	if !s.session.Active() {
		s.notifier.Notify(model.ErrNoSession.Message, model.SeverityError)
		return model.ErrNoSession
	}
	if order, ok := s.tracker.Order(orderID); ok && !model.CanTransition(order.Status, model.StatusCancelled) {
		s.notifier.Notify(model.ErrInvalidTransition.Message, model.SeverityError)
		return model.ErrInvalidTransition
	}

	if _, err := s.backend.CancelOrder(ctx, orderID); err != nil {
		s.logger.Warn().Err(err).Int64("order_id", orderID).Msg("failed to cancel order")
		s.notifier.Notify(msgOrderCancelFailed, model.SeverityError)
		return err
	}

	s.logger.Info().Int64("order_id", orderID).Msg("order cancelled")
	s.notifier.Notify(msgOrderCancelled, model.SeveritySuccess)
	s.refresh(ctx)
	return nil
}

// Orders returns the tracked orders with their wait-time estimates.
func (s *orderService) Orders() []model.TrackedOrder {
	return s.tracker.Tracked()
}

// QueueSize returns the last observed canteen queue size.
func (s *orderService) QueueSize() (int, bool) {
	return s.tracker.QueueSize()
}

// Recent returns the recently observed status transitions.
func (s *orderService) Recent() []model.Transition {
	return s.tracker.Recent()
}

func (s *orderService) refresh(ctx context.Context) {
	if err := s.tracker.RefreshOrders(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to refresh orders after mutation")
	}
}
