// Package wallets holds the tracked-wallet registry consumed by the
// copy trader.
package wallets

import (
	"sync/atomic"

	"memescope/internal/domain"
)

// Registry is an immutable-snapshot view of the tracked wallets. The
// admin surface replaces the whole map on mutation; readers never lock.
type Registry struct {
	snapshot atomic.Value // map[string]domain.TrackedWallet
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	r := &Registry{}
	r.snapshot.Store(map[string]domain.TrackedWallet{})
	return r
}

// Replace swaps in a new snapshot built from the given wallets.
func (r *Registry) Replace(ws []*domain.TrackedWallet) {
	m := make(map[string]domain.TrackedWallet, len(ws))
	for _, w := range ws {
		m[w.Address] = *w
	}
	r.snapshot.Store(m)
}

// Get looks up a wallet config by address.
func (r *Registry) Get(address string) (domain.TrackedWallet, bool) {
	m := r.snapshot.Load().(map[string]domain.TrackedWallet)
	w, ok := m[address]
	return w, ok
}

// Addresses returns the tracked addresses in the current snapshot.
func (r *Registry) Addresses() []string {
	m := r.snapshot.Load().(map[string]domain.TrackedWallet)
	out := make([]string, 0, len(m))
	for addr := range m {
		out = append(out, addr)
	}
	return out
}
