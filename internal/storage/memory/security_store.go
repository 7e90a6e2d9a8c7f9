package memory

import (
	"context"
	"sync"

	"memescope/internal/domain"
	"memescope/internal/storage"
)

// SecurityStore implements storage.SecurityStore in memory.
type SecurityStore struct {
	mu      sync.RWMutex
	byToken map[int64]*domain.TokenSecurity
}

// NewSecurityStore creates a new SecurityStore.
func NewSecurityStore() *SecurityStore {
	return &SecurityStore{byToken: make(map[int64]*domain.TokenSecurity)}
}

// Compile-time interface check.
var _ storage.SecurityStore = (*SecurityStore)(nil)

// Upsert inserts or overwrites the security row.
func (s *SecurityStore) Upsert(ctx context.Context, sec *domain.TokenSecurity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sec
	s.byToken[sec.TokenID] = &cp
	return nil
}

// GetByToken retrieves the security row.
func (s *SecurityStore) GetByToken(ctx context.Context, tokenID int64) (*domain.TokenSecurity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sec, ok := s.byToken[tokenID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *sec
	return &cp, nil
}

// OutcomeStore implements storage.OutcomeStore in memory.
type OutcomeStore struct {
	mu      sync.RWMutex
	byToken map[int64]*domain.TokenOutcome
}

// NewOutcomeStore creates a new OutcomeStore.
func NewOutcomeStore() *OutcomeStore {
	return &OutcomeStore{byToken: make(map[int64]*domain.TokenOutcome)}
}

// Compile-time interface check.
var _ storage.OutcomeStore = (*OutcomeStore)(nil)

// Upsert inserts or updates the outcome row. Peak fields never move
// downward.
func (s *OutcomeStore) Upsert(ctx context.Context, o *domain.TokenOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byToken[o.TokenID]
	if !ok {
		cp := *o
		s.byToken[o.TokenID] = &cp
		return nil
	}

	if o.InitialMcapUSD != nil && existing.InitialMcapUSD == nil {
		existing.InitialMcapUSD = o.InitialMcapUSD
	}
	if greater(o.PeakMcapUSD, existing.PeakMcapUSD) {
		existing.PeakMcapUSD = o.PeakMcapUSD
		existing.TimeToPeakMs = o.TimeToPeakMs
	}
	if greater(o.PeakPriceUSD, existing.PeakPriceUSD) {
		existing.PeakPriceUSD = o.PeakPriceUSD
	}
	if greater(o.PeakMultiplier, existing.PeakMultiplier) {
		existing.PeakMultiplier = o.PeakMultiplier
	}
	if o.FinalMcapUSD != nil {
		existing.FinalMcapUSD = o.FinalMcapUSD
	}
	if o.FinalMultiplier != nil {
		existing.FinalMultiplier = o.FinalMultiplier
	}
	if o.IsRug {
		existing.IsRug = true
	}
	existing.UpdatedAt = o.UpdatedAt
	return nil
}

// greater reports a > b for nullable floats; nil never wins.
func greater(a, b *float64) bool {
	if a == nil {
		return false
	}
	return b == nil || *a > *b
}

// GetByToken retrieves the outcome row.
func (s *OutcomeStore) GetByToken(ctx context.Context, tokenID int64) (*domain.TokenOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.byToken[tokenID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

// CreatorStore implements storage.CreatorStore in memory.
type CreatorStore struct {
	mu        sync.RWMutex
	byCreator map[string]*domain.CreatorProfile
}

// NewCreatorStore creates a new CreatorStore.
func NewCreatorStore() *CreatorStore {
	return &CreatorStore{byCreator: make(map[string]*domain.CreatorProfile)}
}

// Compile-time interface check.
var _ storage.CreatorStore = (*CreatorStore)(nil)

// Upsert inserts or overwrites the creator profile.
func (s *CreatorStore) Upsert(ctx context.Context, p *domain.CreatorProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.byCreator[p.Creator] = &cp
	return nil
}

// GetByCreator retrieves a creator profile.
func (s *CreatorStore) GetByCreator(ctx context.Context, creator string) (*domain.CreatorProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byCreator[creator]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}
