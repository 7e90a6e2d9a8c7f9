package memory

import (
	"context"
	"sync"

	"memescope/internal/domain"
	"memescope/internal/storage"
)

// WalletStore implements storage.WalletStore in memory.
type WalletStore struct {
	mu        sync.RWMutex
	byAddress map[string]*domain.TrackedWallet
}

// NewWalletStore creates a new WalletStore.
func NewWalletStore() *WalletStore {
	return &WalletStore{byAddress: make(map[string]*domain.TrackedWallet)}
}

// Compile-time interface check.
var _ storage.WalletStore = (*WalletStore)(nil)

// Upsert inserts or overwrites the wallet row by address.
func (s *WalletStore) Upsert(ctx context.Context, w *domain.TrackedWallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *w
	s.byAddress[w.Address] = &cp
	return nil
}

// List retrieves all tracked wallets.
func (s *WalletStore) List(ctx context.Context) ([]*domain.TrackedWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.TrackedWallet, 0, len(s.byAddress))
	for _, w := range s.byAddress {
		cp := *w
		out = append(out, &cp)
	}
	return out, nil
}
