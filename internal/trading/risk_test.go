package trading

import (
	"context"
	"errors"
	"testing"
	"time"

	"memescope/internal/domain"
	"memescope/internal/storage/memory"
)

// fakeBalance serves a fixed wallet balance.
type fakeBalance struct {
	sol float64
}

func (f *fakeBalance) GetSOLBalance(ctx context.Context) (float64, error) {
	return f.sol, nil
}

func (f *fakeBalance) GetTokenBalance(ctx context.Context, mint string) (int64, int, error) {
	return 0, 0, nil
}

func f64(v float64) *float64 { return &v }

func TestRiskManagerApprovesHealthyBuy(t *testing.T) {
	ctx := context.Background()
	rm := NewRiskManager(DefaultRiskLimits(), &fakeBalance{sol: 5}, memory.NewPositionStore())

	if err := rm.CheckBuy(ctx, 0.5, f64(50000)); err != nil {
		t.Fatalf("healthy buy rejected: %v", err)
	}
}

func TestRiskManagerRejections(t *testing.T) {
	ctx := context.Background()
	limits := DefaultRiskLimits()

	t.Run("trade too large", func(t *testing.T) {
		rm := NewRiskManager(limits, &fakeBalance{sol: 5}, memory.NewPositionStore())
		// 1.6x of 0.5 is the ceiling.
		err := rm.CheckBuy(ctx, 0.9, f64(50000))
		if !errors.Is(err, ErrTradeTooLarge) {
			t.Fatalf("err = %v, want ErrTradeTooLarge", err)
		}
	})

	t.Run("low liquidity", func(t *testing.T) {
		rm := NewRiskManager(limits, &fakeBalance{sol: 5}, memory.NewPositionStore())
		if err := rm.CheckBuy(ctx, 0.5, f64(2000)); !errors.Is(err, ErrLowLiquidity) {
			t.Fatalf("err = %v, want ErrLowLiquidity", err)
		}
		if err := rm.CheckBuy(ctx, 0.5, nil); !errors.Is(err, ErrLowLiquidity) {
			t.Fatalf("err = %v, want ErrLowLiquidity for unknown liquidity", err)
		}
	})

	t.Run("insufficient balance", func(t *testing.T) {
		rm := NewRiskManager(limits, &fakeBalance{sol: 0.5}, memory.NewPositionStore())
		if err := rm.CheckBuy(ctx, 0.5, f64(50000)); !errors.Is(err, ErrInsufficientBalance) {
			t.Fatalf("err = %v, want ErrInsufficientBalance", err)
		}
	})

	t.Run("position cap", func(t *testing.T) {
		positions := memory.NewPositionStore()
		for i := int64(1); i <= int64(limits.MaxPositions); i++ {
			_, err := positions.Open(ctx, &domain.Position{
				TokenID: i, Status: domain.PositionOpen, AmountSOL: 0.1,
				Source: domain.TradeSourceSignal,
			})
			if err != nil {
				t.Fatal(err)
			}
		}
		rm := NewRiskManager(limits, &fakeBalance{sol: 5}, positions)
		if err := rm.CheckBuy(ctx, 0.5, f64(50000)); !errors.Is(err, ErrPositionCap) {
			t.Fatalf("err = %v, want ErrPositionCap", err)
		}
	})

	t.Run("exposure cap", func(t *testing.T) {
		positions := memory.NewPositionStore()
		_, err := positions.Open(ctx, &domain.Position{
			TokenID: 1, Status: domain.PositionOpen, AmountSOL: 2.8,
			Source: domain.TradeSourceSignal,
		})
		if err != nil {
			t.Fatal(err)
		}
		rm := NewRiskManager(limits, &fakeBalance{sol: 5}, positions)
		if err := rm.CheckBuy(ctx, 0.5, f64(50000)); !errors.Is(err, ErrExposureCap) {
			t.Fatalf("err = %v, want ErrExposureCap", err)
		}
	})
}

func TestBreakerTripsAndRecovers(t *testing.T) {
	b := NewBreaker("test", 3, 50*time.Millisecond)
	boom := errors.New("swap failed")

	for i := 0; i < 3; i++ {
		if err := b.Execute(func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("attempt %d: err = %v", i, err)
		}
	}
	if !b.Tripped() {
		t.Fatal("breaker should trip after 3 consecutive failures")
	}
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("tripped breaker admitted a call: %v", err)
	}

	// Cooldown resets lazily on the next use.
	time.Sleep(60 * time.Millisecond)
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("post-cooldown call failed: %v", err)
	}
	if b.Tripped() {
		t.Fatal("breaker should recover after a post-cooldown success")
	}
}

func TestBreakerOnTripFires(t *testing.T) {
	b := NewBreaker("test", 2, time.Minute)
	trips := 0
	b.OnTrip(func() { trips++ })
	boom := errors.New("swap failed")

	b.Execute(func() error { return boom })
	if trips != 0 {
		t.Fatal("callback fired before the trip threshold")
	}
	b.Execute(func() error { return boom })
	if trips != 1 {
		t.Fatalf("trips = %d, want 1", trips)
	}
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b := NewBreaker("test", 3, time.Minute)
	boom := errors.New("swap failed")

	b.Execute(func() error { return boom })
	b.Execute(func() error { return boom })
	b.Execute(func() error { return nil })
	b.Execute(func() error { return boom })
	b.Execute(func() error { return boom })

	if b.Tripped() {
		t.Fatal("interleaved success should reset the consecutive count")
	}
}
