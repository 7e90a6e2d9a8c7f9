package memory

import (
	"context"
	"sync"

	"memescope/internal/domain"
	"memescope/internal/storage"
)

// PositionStore implements storage.PositionStore in memory, enforcing
// the partial unique constraint on open positions.
type PositionStore struct {
	mu        sync.RWMutex
	nextID    int64
	positions map[int64]*domain.Position
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore() *PositionStore {
	return &PositionStore{nextID: 1, positions: make(map[int64]*domain.Position)}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// Open inserts a position verbatim, like the Postgres store does. The
// caller stamps the status. Returns ErrDuplicateKey when an open
// position already exists for (token_id, is_paper, source).
func (s *PositionStore) Open(ctx context.Context, p *domain.Position) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.positions {
		if existing.Status == domain.PositionOpen &&
			existing.TokenID == p.TokenID &&
			existing.IsPaper == p.IsPaper &&
			existing.Source == p.Source {
			return 0, storage.ErrDuplicateKey
		}
	}

	id := s.nextID
	s.nextID++
	p.ID = id
	cp := *p
	s.positions[id] = &cp
	return id, nil
}

// Update persists mutated fields of a position in place.
func (s *PositionStore) Update(ctx context.Context, p *domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.positions[p.ID]; !ok {
		return storage.ErrNotFound
	}
	cp := *p
	s.positions[p.ID] = &cp
	return nil
}

// GetOpen retrieves the open position for (token_id, is_paper, source).
func (s *PositionStore) GetOpen(ctx context.Context, tokenID int64, isPaper bool, source string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.positions {
		if p.Status == domain.PositionOpen && p.TokenID == tokenID &&
			p.IsPaper == isPaper && p.Source == source {
			cp := *p
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

// ListOpen retrieves all open positions for (is_paper, source).
func (s *PositionStore) ListOpen(ctx context.Context, isPaper bool, source string) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Position
	for _, p := range s.positions {
		if p.Status == domain.PositionOpen && p.IsPaper == isPaper && p.Source == source {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ListOpenByWallet retrieves open copy-trade positions for (token, wallet).
func (s *PositionStore) ListOpenByWallet(ctx context.Context, tokenID int64, wallet string) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Position
	for _, p := range s.positions {
		if p.Status == domain.PositionOpen && p.TokenID == tokenID &&
			p.Source == domain.TradeSourceCopyTrade &&
			p.CopiedFromWallet != nil && *p.CopiedFromWallet == wallet {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// CountOpen counts open positions for (is_paper, source). An empty
// source counts across all sources.
func (s *PositionStore) CountOpen(ctx context.Context, isPaper bool, source string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, p := range s.positions {
		if p.Status == domain.PositionOpen && p.IsPaper == isPaper &&
			(source == "" || p.Source == source) {
			n++
		}
	}
	return n, nil
}

// CountOpenMicro counts open micro-entry positions.
func (s *PositionStore) CountOpenMicro(ctx context.Context, isPaper bool) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, p := range s.positions {
		if p.Status == domain.PositionOpen && p.IsPaper == isPaper && p.IsMicroEntry {
			n++
		}
	}
	return n, nil
}

// ByToken returns all positions for a token, open or closed, in id
// order (test helper).
func (s *PositionStore) ByToken(tokenID int64) []*domain.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Position
	for id := int64(1); id < s.nextID; id++ {
		p, ok := s.positions[id]
		if !ok || p.TokenID != tokenID {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out
}

// SumOpenExposure sums AmountSOL over open positions.
func (s *PositionStore) SumOpenExposure(ctx context.Context, isPaper bool) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0.0
	for _, p := range s.positions {
		if p.Status == domain.PositionOpen && p.IsPaper == isPaper {
			total += p.AmountSOL
		}
	}
	return total, nil
}
