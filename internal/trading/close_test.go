package trading

import (
	"testing"

	"memescope/internal/domain"
)

func openPosition(entry float64, openedAt int64) *domain.Position {
	return &domain.Position{
		Status:          domain.PositionOpen,
		EntryPriceUSD:   entry,
		CurrentPriceUSD: entry,
		MaxPriceUSD:     entry,
		AmountSOL:       0.75,
		OpenedAt:        openedAt,
	}
}

func TestDecideCloseRugWinsFirst(t *testing.T) {
	p := openPosition(0.001, 0)
	// Even at take-profit price, rug takes precedence.
	got := DecideClose(p, 0.0025, true, 60_000, DefaultCloseOptions())
	if got != domain.CloseReasonRug {
		t.Errorf("reason = %q, want rug", got)
	}
}

func TestDecideCloseTakeProfit(t *testing.T) {
	p := openPosition(0.001, 0)
	got := DecideClose(p, 0.0025, false, 60_000, DefaultCloseOptions())
	if got != domain.CloseReasonTakeProfit {
		t.Errorf("reason = %q, want take_profit", got)
	}
}

func TestDecideCloseTrailingStop(t *testing.T) {
	p := openPosition(0.001, 0)
	p.MaxPriceUSD = 0.0018 // 1.8x: trailing armed

	opts := DefaultCloseOptions()
	// 0.0013 is a 27.8% drawdown from max, pnl +30%: trailing stop.
	got := DecideClose(p, 0.0013, false, 60_000, opts)
	if got != domain.CloseReasonTrailingStop {
		t.Errorf("reason = %q, want trailing_stop", got)
	}
}

func TestDecideCloseTrailingDegradesToStopLoss(t *testing.T) {
	p := openPosition(0.001, 0)
	p.MaxPriceUSD = 0.0018

	// 0.0006 is deep drawdown from max AND pnl -40% <= stop loss.
	got := DecideClose(p, 0.0006, false, 60_000, DefaultCloseOptions())
	if got != domain.CloseReasonStopLoss {
		t.Errorf("reason = %q, want stop_loss", got)
	}
}

func TestDecideCloseStopLoss(t *testing.T) {
	p := openPosition(0.001, 0)
	// -40% with trailing never armed. Past the early-stop window.
	got := DecideClose(p, 0.0006, false, 2*60*60*1000, DefaultCloseOptions())
	if got != domain.CloseReasonStopLoss {
		t.Errorf("reason = %q, want stop_loss", got)
	}
}

func TestDecideCloseEarlyStop(t *testing.T) {
	p := openPosition(0.001, 0)
	// -25% at 10 minutes: early stop fires before the -35% stop.
	got := DecideClose(p, 0.00075, false, 10*60*1000, DefaultCloseOptions())
	if got != domain.CloseReasonEarlyStop {
		t.Errorf("reason = %q, want early_stop", got)
	}

	// Same pnl at 2 hours: outside the window, no close.
	got = DecideClose(p, 0.00075, false, 2*60*60*1000, DefaultCloseOptions())
	if got != "" {
		t.Errorf("reason = %q, want none", got)
	}
}

func TestDecideCloseTimeout(t *testing.T) {
	p := openPosition(0.001, 0)
	got := DecideClose(p, 0.0011, false, 25*60*60*1000, DefaultCloseOptions())
	if got != domain.CloseReasonTimeout {
		t.Errorf("reason = %q, want timeout", got)
	}
}

func TestDecideCloseLiquidityRemoved(t *testing.T) {
	p := openPosition(0.001, 0)
	opts := DefaultCloseOptions()
	liq := 1000.0
	opts.LiquidityUSD = &liq
	// Push the pnl-based stops out of the way so the liquidity branch
	// is what decides.
	opts.StopLossPct = -80
	opts.EarlyStopPct = -95

	// Price crashed below 50% of entry, past grace: liquidity_removed.
	got := DecideClose(p, 0.0004, false, 5*60*1000, opts)
	if got != domain.CloseReasonLiquidityRemoved {
		t.Errorf("reason = %q, want liquidity_removed", got)
	}

	// Within the grace period: no close.
	got = DecideClose(p, 0.0004, false, 30*1000, opts)
	if got != "" {
		t.Errorf("reason = %q, want none within grace", got)
	}
}

func TestDecideClosePriceCoherenceGuard(t *testing.T) {
	// Zero liquidity but price holding at entry: stale data, no close.
	p := openPosition(0.001, 0)
	opts := DefaultCloseOptions()
	liq := 0.0
	opts.LiquidityUSD = &liq

	got := DecideClose(p, 0.001, false, 10*60*1000, opts)
	if got != "" {
		t.Errorf("reason = %q, want none: price coherent with entry", got)
	}
}

func TestDecideCloseNoConditions(t *testing.T) {
	p := openPosition(0.001, 0)
	got := DecideClose(p, 0.0012, false, 60*60*1000, DefaultCloseOptions())
	if got != "" {
		t.Errorf("reason = %q, want none", got)
	}
}

func TestDecideCloseDeterministic(t *testing.T) {
	p := openPosition(0.001, 0)
	p.MaxPriceUSD = 0.002
	opts := DefaultCloseOptions()
	liq := 40000.0
	opts.LiquidityUSD = &liq

	first := DecideClose(p, 0.0014, false, 3*60*60*1000, opts)
	for run := 0; run < 10; run++ {
		if got := DecideClose(p, 0.0014, false, 3*60*60*1000, opts); got != first {
			t.Fatalf("run %d: decision not deterministic: %q != %q", run, got, first)
		}
	}
}
