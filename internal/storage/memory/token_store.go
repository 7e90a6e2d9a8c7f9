// Package memory provides in-memory store implementations for tests
// and local runs. All stores are safe for concurrent use.
package memory

import (
	"context"
	"strings"
	"sync"

	"memescope/internal/domain"
	"memescope/internal/storage"
)

// TokenStore implements storage.TokenStore in memory.
type TokenStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*domain.Token
	byKey  map[string]int64 // address:chain -> id

	// rugSymbols holds rug counts per upper-cased symbol, maintained
	// by the test or by the outcome store wiring.
	rugSymbols map[string]int
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		nextID:     1,
		byID:       make(map[int64]*domain.Token),
		byKey:      make(map[string]int64),
		rugSymbols: make(map[string]int),
	}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

func tokenKey(address, chain string) string {
	return address + ":" + chain
}

// Upsert inserts the token or additively updates the existing row.
func (s *TokenStore) Upsert(ctx context.Context, t *domain.Token) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tokenKey(t.Address, t.Chain)
	if id, ok := s.byKey[key]; ok {
		existing := s.byID[id]
		mergeToken(existing, t)
		t.ID = id
		return id, nil
	}

	id := s.nextID
	s.nextID++
	t.ID = id
	cp := *t
	s.byID[id] = &cp
	s.byKey[key] = id
	return id, nil
}

// mergeToken copies non-null incoming attributes over the existing row.
func mergeToken(dst, src *domain.Token) {
	if src.Name != nil {
		dst.Name = src.Name
	}
	if src.Symbol != nil {
		dst.Symbol = src.Symbol
	}
	if src.Creator != nil {
		dst.Creator = src.Creator
	}
	if src.InitialBuySOL != nil {
		dst.InitialBuySOL = src.InitialBuySOL
	}
	if src.InitialMcapSOL != nil {
		dst.InitialMcapSOL = src.InitialMcapSOL
	}
	if src.CurveProgress != nil {
		dst.CurveProgress = src.CurveProgress
	}
	if src.Twitter != nil {
		dst.Twitter = src.Twitter
	}
	if src.Telegram != nil {
		dst.Telegram = src.Telegram
	}
	if src.Website != nil {
		dst.Website = src.Website
	}
}

// GetByID retrieves a token by id.
func (s *TokenStore) GetByID(ctx context.Context, id int64) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// GetByAddress retrieves a token by (address, chain).
func (s *TokenStore) GetByAddress(ctx context.Context, address, chain string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[tokenKey(address, chain)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

// CountRugsBySymbol counts recorded rugs for a symbol.
func (s *TokenStore) CountRugsBySymbol(ctx context.Context, symbol string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rugSymbols[strings.ToUpper(symbol)], nil
}

// RecordRugSymbol increments the rug count for a symbol.
func (s *TokenStore) RecordRugSymbol(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rugSymbols[strings.ToUpper(symbol)]++
}
