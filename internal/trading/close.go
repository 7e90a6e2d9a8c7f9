// Package trading holds the position lifecycle: the close-conditions
// decider, the paper and real traders, the copy trader, and the risk
// manager with its circuit breaker.
package trading

import (
	"memescope/internal/domain"
)

// CloseOptions parameterise the close-conditions decision.
type CloseOptions struct {
	TakeProfitX         float64  // close when current/entry reaches this multiple
	StopLossPct         float64  // close when pnl falls to this signed percent (e.g. -35)
	TimeoutHours        float64  // close positions older than this
	TrailingActivationX float64  // trailing stop arms once max/entry reaches this
	TrailingDrawdownPct float64  // close on this drawdown from max (e.g. 0.25 = 25%)
	EarlyStopWindowMin  float64  // early-stop applies within this age
	EarlyStopPct        float64  // early-stop pnl threshold (signed percent)
	LiquidityUSD        *float64 // current pool liquidity, nil when unknown
	LiquidityFloorUSD   float64  // liquidity-removed threshold
	LiquidityGraceMs    int64    // ignore liquidity-removed before this age
	PriceCrashFraction  float64  // liquidity-removed needs price below this fraction of entry
	DeadPrice           bool     // price feed considers the pool dead
}

// DefaultCloseOptions returns the production defaults.
func DefaultCloseOptions() CloseOptions {
	return CloseOptions{
		TakeProfitX:         2.0,
		StopLossPct:         -35,
		TimeoutHours:        24,
		TrailingActivationX: 1.5,
		TrailingDrawdownPct: 0.25,
		EarlyStopWindowMin:  30,
		EarlyStopPct:        -20,
		LiquidityFloorUSD:   5000,
		LiquidityGraceMs:    90 * 1000,
		PriceCrashFraction:  0.5,
	}
}

// DecideClose maps (position, market) to a close reason, or "" for no
// close. Pure and deterministic; first matching condition wins:
// rug, take_profit, trailing_stop (degrading to stop_loss when the
// realised pnl is already at or past the stop), stop_loss, early_stop,
// timeout, liquidity_removed.
func DecideClose(p *domain.Position, currentPrice float64, isRug bool, nowMs int64, opts CloseOptions) string {
	if isRug {
		return domain.CloseReasonRug
	}

	entry := p.EntryPriceUSD
	if entry <= 0 || currentPrice <= 0 {
		return ""
	}

	pnlPct := (currentPrice - entry) / entry * 100

	if currentPrice/entry >= opts.TakeProfitX {
		return domain.CloseReasonTakeProfit
	}

	maxPrice := p.MaxPriceUSD
	if currentPrice > maxPrice {
		maxPrice = currentPrice
	}
	if maxPrice/entry >= opts.TrailingActivationX &&
		(maxPrice-currentPrice)/maxPrice >= opts.TrailingDrawdownPct {
		// A trailing exit that lands at or below the stop is a stop.
		if pnlPct <= opts.StopLossPct {
			return domain.CloseReasonStopLoss
		}
		return domain.CloseReasonTrailingStop
	}

	if pnlPct <= opts.StopLossPct {
		return domain.CloseReasonStopLoss
	}

	ageMs := p.AgeMs(nowMs)
	if float64(ageMs) <= opts.EarlyStopWindowMin*60*1000 && pnlPct <= opts.EarlyStopPct {
		return domain.CloseReasonEarlyStop
	}

	if float64(ageMs) >= opts.TimeoutHours*60*60*1000 {
		return domain.CloseReasonTimeout
	}

	// Liquidity removal needs price coherence: a healthy price with a
	// zero-liquidity reading is stale API data, not a rug.
	if opts.LiquidityUSD != nil && *opts.LiquidityUSD < opts.LiquidityFloorUSD {
		priceCrashed := currentPrice < entry*opts.PriceCrashFraction
		if (priceCrashed || opts.DeadPrice) && ageMs > opts.LiquidityGraceMs {
			return domain.CloseReasonLiquidityRemoved
		}
	}

	return ""
}
