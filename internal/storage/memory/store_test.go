package memory

import (
	"context"
	"errors"
	"testing"

	"memescope/internal/domain"
	"memescope/internal/storage"
)

func TestPositionStoreOpenDedup(t *testing.T) {
	ctx := context.Background()
	s := NewPositionStore()

	p := &domain.Position{TokenID: 1, Status: domain.PositionOpen, IsPaper: true, Source: domain.TradeSourceSignal}
	if _, err := s.Open(ctx, p); err != nil {
		t.Fatal(err)
	}

	dup := &domain.Position{TokenID: 1, Status: domain.PositionOpen, IsPaper: true, Source: domain.TradeSourceSignal}
	if _, err := s.Open(ctx, dup); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("err = %v, want ErrDuplicateKey", err)
	}

	// A different source is a different slot.
	other := &domain.Position{TokenID: 1, Status: domain.PositionOpen, IsPaper: true, Source: domain.TradeSourceCopyTrade}
	if _, err := s.Open(ctx, other); err != nil {
		t.Fatalf("copy-trade slot rejected: %v", err)
	}

	// Closing frees the slot.
	p.Status = domain.PositionClosed
	if err := s.Update(ctx, p); err != nil {
		t.Fatal(err)
	}
	again := &domain.Position{TokenID: 1, Status: domain.PositionOpen, IsPaper: true, Source: domain.TradeSourceSignal}
	if _, err := s.Open(ctx, again); err != nil {
		t.Fatalf("reopen after close rejected: %v", err)
	}
}

func TestSignalStoreTransitionExpiresConflicts(t *testing.T) {
	ctx := context.Background()
	s := NewSignalStore()

	first := &domain.Signal{TokenID: 1, Status: domain.SignalWatch, CreatedAt: 100, UpdatedAt: 100}
	if err := s.Transition(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := &domain.Signal{TokenID: 1, Status: domain.SignalWatch, CreatedAt: 200, UpdatedAt: 200}
	if err := s.Transition(ctx, second); err != nil {
		t.Fatal(err)
	}

	active := 0
	for _, sig := range s.All() {
		if sig.Status == domain.SignalWatch {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("active watch signals = %d, want 1", active)
	}

	got, err := s.GetActive(ctx, 1, domain.SignalWatch)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != second.ID {
		t.Fatalf("active signal id = %d, want %d", got.ID, second.ID)
	}
}

func TestSignalStoreExpireOlderThan(t *testing.T) {
	ctx := context.Background()
	s := NewSignalStore()

	old := &domain.Signal{TokenID: 1, Status: domain.SignalBuy, UpdatedAt: 100}
	fresh := &domain.Signal{TokenID: 2, Status: domain.SignalBuy, UpdatedAt: 900}
	if err := s.Transition(ctx, old); err != nil {
		t.Fatal(err)
	}
	if err := s.Transition(ctx, fresh); err != nil {
		t.Fatal(err)
	}

	n, err := s.ExpireOlderThan(ctx, 500)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expired = %d, want 1", n)
	}
	if _, err := s.GetActive(ctx, 2, domain.SignalBuy); err != nil {
		t.Fatal("fresh signal should stay active")
	}
	if _, err := s.GetActive(ctx, 1, domain.SignalBuy); err == nil {
		t.Fatal("old signal should be expired")
	}
}

func TestOutcomeStorePeaksAreMonotonic(t *testing.T) {
	ctx := context.Background()
	s := NewOutcomeStore()

	peak := 5.0
	if err := s.Upsert(ctx, &domain.TokenOutcome{TokenID: 1, PeakMultiplier: &peak}); err != nil {
		t.Fatal(err)
	}
	lower := 3.0
	if err := s.Upsert(ctx, &domain.TokenOutcome{TokenID: 1, PeakMultiplier: &lower}); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetByToken(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.PeakMultiplier == nil || *got.PeakMultiplier != 5.0 {
		t.Fatalf("peak multiplier = %v, want 5.0", got.PeakMultiplier)
	}
}

func TestTokenStoreUpsertIsAdditive(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore()

	name := "Pepe Classic"
	id, err := s.Upsert(ctx, &domain.Token{Address: "MintA", Chain: domain.ChainSolana, Name: &name})
	if err != nil {
		t.Fatal(err)
	}

	// Re-discovery without metadata must not wipe the name.
	id2, err := s.Upsert(ctx, &domain.Token{Address: "MintA", Chain: domain.ChainSolana})
	if err != nil {
		t.Fatal(err)
	}
	if id2 != id {
		t.Fatalf("upsert created a second row: %d vs %d", id2, id)
	}

	got, err := s.GetByID(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name == nil || *got.Name != name {
		t.Fatalf("name lost on re-upsert: %v", got.Name)
	}
}
