package trading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"memescope/internal/domain"
	"memescope/internal/observability"
	"memescope/internal/providers"
	"memescope/internal/storage"
)

const (
	defaultBuySlippageBps = 500
	lamportsPerSOL        = 1_000_000_000
)

// sellSlippageLadder is the escalating slippage used on sell retries.
// A pool that rejects 25% slippage is treated as dead.
var sellSlippageLadder = []int{500, 1500, 2500}

// urgentCloseReasons bypass the circuit breaker: holding through a
// tripped breaker is worse than a failed exit attempt.
var urgentCloseReasons = map[string]bool{
	domain.CloseReasonRug:       true,
	domain.CloseReasonStopLoss:  true,
	domain.CloseReasonEarlyStop: true,
	domain.CloseReasonTimeout:   true,
}

// RealTrader executes positions on-chain through a SwapExecutor. Same
// public contract as the paper trader; entries pass the risk manager
// and the circuit breaker first.
type RealTrader struct {
	positions storage.PositionStore
	trades    storage.TradeStore
	tokens    storage.TokenStore
	executor  providers.SwapExecutor
	risk      *RiskManager
	breaker   *Breaker
	cfg       Config
	log       zerolog.Logger
	metrics   *observability.Metrics
	now       func() int64
}

// NewRealTrader creates a RealTrader.
func NewRealTrader(positions storage.PositionStore, trades storage.TradeStore, tokens storage.TokenStore, executor providers.SwapExecutor, risk *RiskManager, breaker *Breaker, cfg Config, log zerolog.Logger) *RealTrader {
	return &RealTrader{
		positions: positions,
		trades:    trades,
		tokens:    tokens,
		executor:  executor,
		risk:      risk,
		breaker:   breaker,
		cfg:       cfg,
		log:       log.With().Str("component", "real_trader").Logger(),
		now:       func() int64 { return time.Now().UnixMilli() },
	}
}

// WithMetrics attaches the position counters and hooks breaker trips.
func (t *RealTrader) WithMetrics(m *observability.Metrics) *RealTrader {
	t.metrics = m
	t.breaker.OnTrip(m.RecordBreakerTrip)
	return t
}

// OnSignal opens a real position on strong_buy/buy after the risk
// manager approves and the breaker admits the swap.
func (t *RealTrader) OnSignal(ctx context.Context, sig *domain.Signal, m MarketView) error {
	if sig.Status != domain.SignalStrongBuy && sig.Status != domain.SignalBuy {
		return nil
	}
	if m.PriceUSD <= 0 || m.IsRug || m.Mint == "" {
		return nil
	}
	if m.LPRemovedPct != nil && *m.LPRemovedPct >= t.cfg.LPRemovedRejectPct {
		return nil
	}

	if _, err := t.positions.GetOpen(ctx, sig.TokenID, false, domain.TradeSourceSignal); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("lookup open position: %w", err)
	}

	invest := t.cfg.SOLPerTrade * sizeFactor(t.cfg, sig.Status == domain.SignalStrongBuy)
	if err := t.risk.CheckBuy(ctx, invest, m.LiquidityUSD); err != nil {
		t.log.Warn().Err(err).Int64("token_id", sig.TokenID).Msg("entry rejected by risk manager")
		return nil
	}

	var res *providers.SwapResult
	err := t.breaker.Execute(func() error {
		r, err := t.executor.BuyToken(ctx, m.Mint, int64(invest*lamportsPerSOL), defaultBuySlippageBps)
		if err != nil {
			return err
		}
		if !r.Success {
			return fmt.Errorf("buy swap failed: %s", r.Error)
		}
		res = r
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrBreakerOpen) {
			t.log.Warn().Int64("token_id", sig.TokenID).Msg("entry skipped, breaker open")
			return nil
		}
		t.log.Error().Err(err).Int64("token_id", sig.TokenID).Msg("buy execution failed")
		return nil
	}

	entryPrice := m.PriceUSD
	if res.OutputAmount > 0 && m.SOLPriceUSD > 0 {
		entryPrice = res.InputAmount * m.SOLPriceUSD / res.OutputAmount
	}

	nowMs := t.now()
	p := &domain.Position{
		TokenID:         sig.TokenID,
		Status:          domain.PositionOpen,
		EntryPriceUSD:   entryPrice,
		CurrentPriceUSD: m.PriceUSD,
		MaxPriceUSD:     m.PriceUSD,
		AmountToken:     res.OutputAmount,
		AmountSOL:       res.InputAmount,
		IsPaper:         false,
		Source:          domain.TradeSourceSignal,
		SignalID:        &sig.ID,
		OpenedAt:        nowMs,
	}
	if _, err := t.positions.Open(ctx, p); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil
		}
		return fmt.Errorf("open position: %w", err)
	}

	tx := res.TxHash
	trade := &domain.Trade{
		TokenID:     sig.TokenID,
		Side:        domain.TradeSideBuy,
		AmountSOL:   res.InputAmount,
		AmountToken: res.OutputAmount,
		PriceUSD:    entryPrice,
		SlippagePct: res.PriceImpactPct,
		FeeSOL:      res.FeeSOL,
		TxHash:      &tx,
		IsPaper:     false,
		Source:      domain.TradeSourceSignal,
		Status:      domain.TradeStatusFilled,
		ExecutedAt:  nowMs,
	}
	if _, err := t.trades.Insert(ctx, trade); err != nil {
		return fmt.Errorf("record buy trade: %w", err)
	}

	t.metrics.RecordPositionOpened(domain.TradeSourceSignal, false)
	t.log.Info().Int64("token_id", sig.TokenID).Str("tx", res.TxHash).
		Float64("sol", res.InputAmount).Msg("real position opened")
	return nil
}

// UpdatePositions refreshes the token's open real position and sells it
// when a close condition fires.
func (t *RealTrader) UpdatePositions(ctx context.Context, tokenID int64, m MarketView) error {
	p, err := t.positions.GetOpen(ctx, tokenID, false, domain.TradeSourceSignal)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup open position: %w", err)
	}

	price := m.PriceUSD
	if price <= 0 || p.EntryPriceUSD <= 0 {
		return nil
	}
	if price/p.EntryPriceUSD > t.cfg.MaxEntryMultiple || price > t.cfg.MaxPriceUSD {
		return nil
	}

	p.CurrentPriceUSD = price
	if price > p.MaxPriceUSD {
		p.MaxPriceUSD = price
	}
	p.PnLPct = (price - p.EntryPriceUSD) / p.EntryPriceUSD * 100
	p.PnLUSD = p.AmountSOL * p.PnLPct / 100 * m.SOLPriceUSD

	nowMs := t.now()
	opts := t.cfg.Close
	opts.LiquidityUSD = m.LiquidityUSD
	opts.DeadPrice = m.DeadPrice

	reason := DecideClose(p, price, m.IsRug, nowMs, opts)
	if reason == "" {
		return t.positions.Update(ctx, p)
	}
	return t.sell(ctx, p, price, reason, m, nowMs)
}

// sell executes the exit with the escalating slippage ladder. The first
// attempt and all urgent closes bypass the breaker. When the ladder is
// exhausted the position is force-closed as a total loss.
func (t *RealTrader) sell(ctx context.Context, p *domain.Position, price float64, reason string, m MarketView, nowMs int64) error {
	if m.Mint == "" {
		tok, err := t.tokens.GetByID(ctx, p.TokenID)
		if err != nil {
			return fmt.Errorf("resolve mint for token %d: %w", p.TokenID, err)
		}
		m.Mint = tok.Address
	}

	rawAmount := int64(p.AmountToken)
	urgent := urgentCloseReasons[reason]

	for i, bps := range sellSlippageLadder {
		var res *providers.SwapResult
		attempt := func() error {
			r, err := t.executor.SellToken(ctx, m.Mint, rawAmount, bps)
			if err != nil {
				return err
			}
			if !r.Success {
				return fmt.Errorf("sell swap failed: %s", r.Error)
			}
			res = r
			return nil
		}

		var err error
		if urgent || i == 0 {
			err = attempt()
		} else {
			err = t.breaker.Execute(attempt)
		}
		if err != nil {
			t.log.Warn().Err(err).Int64("position_id", p.ID).Int("slippage_bps", bps).
				Msg("sell attempt failed")
			continue
		}

		return t.finalizeClose(ctx, p, price, reason, res, m, nowMs)
	}

	// Pool likely dead. Mark the position a total loss so exposure
	// accounting stays honest.
	t.log.Error().Int64("position_id", p.ID).Str("reason", reason).
		Msg("sell ladder exhausted, force closing")
	forced := domain.CloseReasonForceClose
	p.Status = domain.PositionClosed
	p.CloseReason = &forced
	p.ClosedAt = &nowMs
	p.PnLPct = -100
	p.PnLUSD = -p.AmountSOL * m.SOLPriceUSD
	if err := t.positions.Update(ctx, p); err != nil {
		return fmt.Errorf("force close position: %w", err)
	}
	t.metrics.RecordPositionClosed(forced, false)
	return nil
}

// finalizeClose records the sell trade and closes the position with
// P&L computed from actual SOL in vs SOL out.
func (t *RealTrader) finalizeClose(ctx context.Context, p *domain.Position, price float64, reason string, res *providers.SwapResult, m MarketView, nowMs int64) error {
	solOut := res.OutputAmount

	p.Status = domain.PositionClosed
	p.CloseReason = &reason
	p.ClosedAt = &nowMs
	p.CurrentPriceUSD = price
	if p.AmountSOL > 0 {
		p.PnLPct = (solOut - p.AmountSOL) / p.AmountSOL * 100
	}
	p.PnLUSD = (solOut - p.AmountSOL) * m.SOLPriceUSD
	if err := t.positions.Update(ctx, p); err != nil {
		return fmt.Errorf("close position: %w", err)
	}

	tx := res.TxHash
	trade := &domain.Trade{
		TokenID:     p.TokenID,
		Side:        domain.TradeSideSell,
		AmountSOL:   solOut,
		AmountToken: p.AmountToken,
		PriceUSD:    price,
		SlippagePct: res.PriceImpactPct,
		FeeSOL:      res.FeeSOL,
		TxHash:      &tx,
		IsPaper:     false,
		Source:      p.Source,
		Status:      domain.TradeStatusFilled,
		ExecutedAt:  nowMs,
	}
	if _, err := t.trades.Insert(ctx, trade); err != nil {
		return fmt.Errorf("record sell trade: %w", err)
	}

	t.metrics.RecordPositionClosed(reason, false)
	t.log.Info().Int64("position_id", p.ID).Str("reason", reason).
		Float64("pnl_pct", p.PnLPct).Msg("real position closed")
	return nil
}

// SweepStale sells every open real position older than the timeout.
func (t *RealTrader) SweepStale(ctx context.Context) (int, error) {
	open, err := t.positions.ListOpen(ctx, false, domain.TradeSourceSignal)
	if err != nil {
		return 0, fmt.Errorf("list open positions: %w", err)
	}

	nowMs := t.now()
	timeoutMs := int64(t.cfg.Close.TimeoutHours * 60 * 60 * 1000)
	closed := 0
	for _, p := range open {
		if p.AgeMs(nowMs) < timeoutMs {
			continue
		}
		m := MarketView{PriceUSD: p.CurrentPriceUSD, SOLPriceUSD: t.cfg.SOLPriceUSD}
		if err := t.sell(ctx, p, p.CurrentPriceUSD, domain.CloseReasonTimeout, m, nowMs); err != nil {
			t.log.Error().Err(err).Int64("position_id", p.ID).Msg("stale close failed")
			continue
		}
		closed++
	}
	return closed, nil
}
