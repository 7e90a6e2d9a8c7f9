package trading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"memescope/internal/domain"
	"memescope/internal/observability"
	"memescope/internal/storage"
)

// PaperTrader simulates the full position lifecycle without touching
// the chain. It mirrors the real trader's contract so the enrichment
// worker drives both identically.
type PaperTrader struct {
	positions storage.PositionStore
	trades    storage.TradeStore
	cfg       Config
	log       zerolog.Logger
	metrics   *observability.Metrics
	now       func() int64
}

// NewPaperTrader creates a PaperTrader.
func NewPaperTrader(positions storage.PositionStore, trades storage.TradeStore, cfg Config, log zerolog.Logger) *PaperTrader {
	return &PaperTrader{
		positions: positions,
		trades:    trades,
		cfg:       cfg,
		log:       log.With().Str("component", "paper_trader").Logger(),
		now:       func() int64 { return time.Now().UnixMilli() },
	}
}

// WithMetrics attaches the position open/close counters.
func (t *PaperTrader) WithMetrics(m *observability.Metrics) *PaperTrader {
	t.metrics = m
	return t
}

// OnSignal reacts to a freshly evaluated signal. Opens a position on
// strong_buy/buy, tops up an existing micro entry, or skips duplicates.
func (t *PaperTrader) OnSignal(ctx context.Context, sig *domain.Signal, m MarketView) error {
	if sig.Status != domain.SignalStrongBuy && sig.Status != domain.SignalBuy {
		return nil
	}
	if m.PriceUSD <= 0 || m.IsRug {
		return nil
	}
	if m.LPRemovedPct != nil && *m.LPRemovedPct >= t.cfg.LPRemovedRejectPct {
		t.log.Warn().Int64("token_id", sig.TokenID).Float64("lp_removed_pct", *m.LPRemovedPct).
			Msg("entry rejected, liquidity being pulled")
		return nil
	}

	open, err := t.positions.CountOpen(ctx, true, domain.TradeSourceSignal)
	if err != nil {
		return fmt.Errorf("count open positions: %w", err)
	}
	if open >= t.cfg.MaxPositions {
		return nil
	}

	existing, err := t.positions.GetOpen(ctx, sig.TokenID, true, domain.TradeSourceSignal)
	if err == nil {
		if existing.IsMicroEntry {
			return t.topUp(ctx, existing, sig, m)
		}
		return nil // duplicate signal for an already-open position
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("lookup open position: %w", err)
	}

	invest := t.cfg.SOLPerTrade * sizeFactor(t.cfg, sig.Status == domain.SignalStrongBuy)
	return t.open(ctx, sig.TokenID, &sig.ID, false, invest, m)
}

// OnPreScanEntry opens the tiny micro-snipe position during PRE_SCAN,
// before any signal exists.
func (t *PaperTrader) OnPreScanEntry(ctx context.Context, tokenID int64, m MarketView) error {
	if t.cfg.MicroSnipeSOL <= 0 || m.PriceUSD <= 0 || m.IsRug {
		return nil
	}

	micro, err := t.positions.CountOpenMicro(ctx, true)
	if err != nil {
		return fmt.Errorf("count micro positions: %w", err)
	}
	if micro >= t.cfg.MaxMicroPositions {
		return nil
	}

	if _, err := t.positions.GetOpen(ctx, tokenID, true, domain.TradeSourceSignal); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("lookup open position: %w", err)
	}

	return t.open(ctx, tokenID, nil, true, t.cfg.MicroSnipeSOL, m)
}

// open creates the position and records its buy trade.
func (t *PaperTrader) open(ctx context.Context, tokenID int64, signalID *int64, micro bool, investSOL float64, m MarketView) error {
	slip := slippagePct(investSOL*m.SOLPriceUSD, m.LiquidityUSD)
	entryPrice := m.PriceUSD * (1 + slip/100)

	tokenAmount := 0.0
	if entryPrice > 0 && m.SOLPriceUSD > 0 {
		tokenAmount = investSOL * m.SOLPriceUSD / entryPrice
	}

	nowMs := t.now()
	p := &domain.Position{
		TokenID:         tokenID,
		Status:          domain.PositionOpen,
		EntryPriceUSD:   entryPrice,
		CurrentPriceUSD: m.PriceUSD,
		MaxPriceUSD:     m.PriceUSD,
		AmountToken:     tokenAmount,
		AmountSOL:       investSOL,
		IsPaper:         true,
		Source:          domain.TradeSourceSignal,
		SignalID:        signalID,
		IsMicroEntry:    micro,
		OpenedAt:        nowMs,
	}

	if _, err := t.positions.Open(ctx, p); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Lost the race to a concurrent open.
			return nil
		}
		return fmt.Errorf("open position: %w", err)
	}

	trade := &domain.Trade{
		TokenID:     tokenID,
		Side:        domain.TradeSideBuy,
		AmountSOL:   investSOL,
		AmountToken: tokenAmount,
		PriceUSD:    entryPrice,
		SlippagePct: slip,
		IsPaper:     true,
		Source:      domain.TradeSourceSignal,
		Status:      domain.TradeStatusFilled,
		ExecutedAt:  nowMs,
	}
	if _, err := t.trades.Insert(ctx, trade); err != nil {
		return fmt.Errorf("record buy trade: %w", err)
	}

	t.metrics.RecordPositionOpened(domain.TradeSourceSignal, true)
	t.log.Info().Int64("token_id", tokenID).Float64("sol", investSOL).
		Float64("entry", entryPrice).Bool("micro", micro).Msg("paper position opened")
	return nil
}

// topUp grows a micro entry to full signal size, weighted-averaging the
// entry price and attaching the signal.
func (t *PaperTrader) topUp(ctx context.Context, p *domain.Position, sig *domain.Signal, m MarketView) error {
	full := t.cfg.SOLPerTrade * sizeFactor(t.cfg, sig.Status == domain.SignalStrongBuy)
	additional := full - p.AmountSOL
	if additional <= 0 {
		p.IsMicroEntry = false
		p.SignalID = &sig.ID
		return t.positions.Update(ctx, p)
	}

	slip := slippagePct(additional*m.SOLPriceUSD, m.LiquidityUSD)
	buyPrice := m.PriceUSD * (1 + slip/100)

	p.EntryPriceUSD = (p.AmountSOL*p.EntryPriceUSD + additional*buyPrice) / full
	if buyPrice > 0 && m.SOLPriceUSD > 0 {
		p.AmountToken += additional * m.SOLPriceUSD / buyPrice
	}
	p.AmountSOL = full
	p.IsMicroEntry = false
	p.SignalID = &sig.ID
	p.CurrentPriceUSD = m.PriceUSD
	if m.PriceUSD > p.MaxPriceUSD {
		p.MaxPriceUSD = m.PriceUSD
	}

	if err := t.positions.Update(ctx, p); err != nil {
		return fmt.Errorf("top up position: %w", err)
	}

	nowMs := t.now()
	trade := &domain.Trade{
		TokenID:     p.TokenID,
		Side:        domain.TradeSideBuy,
		AmountSOL:   additional,
		AmountToken: 0,
		PriceUSD:    buyPrice,
		SlippagePct: slip,
		IsPaper:     true,
		Source:      domain.TradeSourceSignal,
		Status:      domain.TradeStatusFilled,
		ExecutedAt:  nowMs,
	}
	if buyPrice > 0 && m.SOLPriceUSD > 0 {
		trade.AmountToken = additional * m.SOLPriceUSD / buyPrice
	}
	if _, err := t.trades.Insert(ctx, trade); err != nil {
		return fmt.Errorf("record top-up trade: %w", err)
	}

	t.log.Info().Int64("token_id", p.TokenID).Float64("sol", full).
		Float64("entry", p.EntryPriceUSD).Msg("micro entry topped up")
	return nil
}

// UpdatePositions refreshes the token's open position against the
// latest market view and closes it when a close condition fires.
func (t *PaperTrader) UpdatePositions(ctx context.Context, tokenID int64, m MarketView) error {
	p, err := t.positions.GetOpen(ctx, tokenID, true, domain.TradeSourceSignal)
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
	// Corrupt API data: a 1000x move or a memecoin above $1 is noise.
	if price/p.EntryPriceUSD > t.cfg.MaxEntryMultiple || price > t.cfg.MaxPriceUSD {
		t.log.Warn().Int64("token_id", tokenID).Float64("price", price).
			Msg("sanity reject, ignoring price update")
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
	return t.close(ctx, p, price, reason, m, nowMs)
}

// close records the exit trade and finalises the position.
func (t *PaperTrader) close(ctx context.Context, p *domain.Position, price float64, reason string, m MarketView, nowMs int64) error {
	exitValue := p.AmountToken * price
	slip := 0.0
	if reason == domain.CloseReasonLiquidityRemoved {
		exitValue *= quadraticExitFraction(exitValue, m.LiquidityUSD)
	} else {
		slip = slippagePct(exitValue, m.LiquidityUSD)
		exitValue *= 1 - slip/100
	}

	solOut := 0.0
	if m.SOLPriceUSD > 0 {
		solOut = exitValue / m.SOLPriceUSD
	}

	p.Status = domain.PositionClosed
	p.CloseReason = &reason
	p.ClosedAt = &nowMs
	p.CurrentPriceUSD = price
	if price > p.MaxPriceUSD {
		p.MaxPriceUSD = price
	}
	p.PnLPct = (price - p.EntryPriceUSD) / p.EntryPriceUSD * 100
	p.PnLUSD = p.AmountSOL * p.PnLPct / 100 * m.SOLPriceUSD

	if err := t.positions.Update(ctx, p); err != nil {
		return fmt.Errorf("close position: %w", err)
	}

	trade := &domain.Trade{
		TokenID:     p.TokenID,
		Side:        domain.TradeSideSell,
		AmountSOL:   solOut,
		AmountToken: p.AmountToken,
		PriceUSD:    price,
		SlippagePct: slip,
		IsPaper:     true,
		Source:      p.Source,
		Status:      domain.TradeStatusFilled,
		ExecutedAt:  nowMs,
	}
	if _, err := t.trades.Insert(ctx, trade); err != nil {
		return fmt.Errorf("record sell trade: %w", err)
	}

	t.metrics.RecordPositionClosed(reason, true)
	t.log.Info().Int64("token_id", p.TokenID).Str("reason", reason).
		Float64("pnl_pct", p.PnLPct).Msg("paper position closed")
	return nil
}

// SweepStale closes every open position older than the timeout at its
// last known price. Returns the number closed.
func (t *PaperTrader) SweepStale(ctx context.Context) (int, error) {
	open, err := t.positions.ListOpen(ctx, true, domain.TradeSourceSignal)
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
		if err := t.close(ctx, p, p.CurrentPriceUSD, domain.CloseReasonTimeout, m, nowMs); err != nil {
			t.log.Error().Err(err).Int64("position_id", p.ID).Msg("stale close failed")
			continue
		}
		closed++
	}
	return closed, nil
}
