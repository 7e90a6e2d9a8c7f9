package memory

import (
	"context"
	"sync"

	"memescope/internal/domain"
	"memescope/internal/storage"
)

// TradeStore implements storage.TradeStore in memory.
type TradeStore struct {
	mu     sync.RWMutex
	nextID int64
	trades []*domain.Trade
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore() *TradeStore {
	return &TradeStore{nextID: 1}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Insert records a trade and returns its id.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	t.ID = id
	cp := *t
	s.trades = append(s.trades, &cp)
	return id, nil
}

// GetByToken retrieves all trades for a token, oldest first.
func (s *TradeStore) GetByToken(ctx context.Context, tokenID int64) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Trade
	for _, t := range s.trades {
		if t.TokenID == tokenID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}
