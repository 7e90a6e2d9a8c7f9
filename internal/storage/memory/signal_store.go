package memory

import (
	"context"
	"sync"

	"memescope/internal/domain"
	"memescope/internal/storage"
)

// SignalStore implements storage.SignalStore in memory.
type SignalStore struct {
	mu      sync.RWMutex
	nextID  int64
	signals []*domain.Signal
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore() *SignalStore {
	return &SignalStore{nextID: 1}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

// Transition expires any active signal of the same (token, status) and
// records the new signal, mimicking the two-step transactional path.
func (s *SignalStore) Transition(ctx context.Context, sig *domain.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sig.Status.IsActive() {
		for _, existing := range s.signals {
			if existing.TokenID == sig.TokenID && existing.Status == sig.Status {
				existing.Status = domain.SignalExpired
				existing.UpdatedAt = sig.CreatedAt
			}
		}
	}

	sig.ID = s.nextID
	s.nextID++
	cp := *sig
	s.signals = append(s.signals, &cp)
	return nil
}

// GetActive retrieves the active signal of a status for a token.
func (s *SignalStore) GetActive(ctx context.Context, tokenID int64, status domain.SignalStatus) (*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.signals) - 1; i >= 0; i-- {
		sig := s.signals[i]
		if sig.TokenID == tokenID && sig.Status == status && status.IsActive() {
			cp := *sig
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

// ExpireOlderThan expires all active signals last updated before cutoffMs.
func (s *SignalStore) ExpireOlderThan(ctx context.Context, cutoffMs int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, sig := range s.signals {
		if sig.Status.IsActive() && sig.UpdatedAt < cutoffMs {
			sig.Status = domain.SignalExpired
			n++
		}
	}
	return n, nil
}

// UpdateOutcome mirrors outcome data into all of a token's signals.
func (s *SignalStore) UpdateOutcome(ctx context.Context, tokenID int64, peakMult, peakROIPct *float64, isRug *bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sig := range s.signals {
		if sig.TokenID != tokenID {
			continue
		}
		if peakMult != nil {
			sig.PeakMultiplierAfter = peakMult
		}
		if peakROIPct != nil {
			sig.PeakROIPct = peakROIPct
		}
		if isRug != nil {
			sig.IsRugAfter = isRug
		}
	}
	return nil
}

// All returns a copy of all stored signals (test helper).
func (s *SignalStore) All() []*domain.Signal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Signal, len(s.signals))
	for i, sig := range s.signals {
		cp := *sig
		out[i] = &cp
	}
	return out
}
