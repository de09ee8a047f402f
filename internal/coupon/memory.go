package coupon

import (
	"context"
	"sort"
	"sync"

	"canteen-tracker/internal/model"
)

// memoryStore implements Store with a map keyed by order id.
type memoryStore struct {
	mu      sync.RWMutex
	coupons map[int64]model.Coupon
}

// NewMemoryStore creates a new in-memory coupon store. sizeHint presizes the map; the store
// never evicts.
func NewMemoryStore(sizeHint int) Store {
	return &memoryStore{
		coupons: make(map[int64]model.Coupon, sizeHint),
	}
}

func (s *memoryStore) Save(ctx context.Context, coupon *model.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coupons[coupon.OrderID] = *coupon
	return nil
}

func (s *memoryStore) GetByOrderID(ctx context.Context, orderID int64) (*model.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.coupons[orderID]
	if !ok {
		return nil, model.ErrCouponNotFound
	}
	return &c, nil
}

func (s *memoryStore) ListByUser(ctx context.Context, userID int64) ([]model.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Coupon, 0, len(s.coupons))
	for _, c := range s.coupons {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].OrderID > out[j].OrderID
		}
		return out[i].IssuedAt.After(out[j].IssuedAt)
	})
	return out, nil
}
