package trading

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"memescope/internal/domain"
	"memescope/internal/observability"
	"memescope/internal/providers"
	"memescope/internal/storage"
	"memescope/internal/wallets"
)

const (
	// Signatures are remembered for this long; the feed can deliver the
	// same transaction from several subscriptions.
	signatureDedupTTL = 5 * time.Minute

	// Fee-sized SOL movements are not a buy.
	feeDustSOL = 0.01
)

// parseRetryDelays space the transaction-parse attempts. The parse
// endpoint needs deeper commitment than the log subscription that
// produced the event.
var parseRetryDelays = []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second}

// CopyStats are the copy trader's lifetime counters.
type CopyStats struct {
	EventsReceived int64
	SwapsParsed    int64
	BuysOpened     int64
	SellsMirrored  int64
	DedupSkips     int64
	Errors         int64
}

// CopyTrader mirrors the observed swaps of tracked wallets. Positions
// it opens carry source=copy_trade and the mirrored wallet, and flow
// through the same close-conditions decider as signal positions.
type CopyTrader struct {
	parser    providers.TxParser
	registry  *wallets.Registry
	tokens    storage.TokenStore
	positions storage.PositionStore
	trades    storage.TradeStore
	cfg       Config
	isPaper   bool
	log       zerolog.Logger
	metrics   *observability.Metrics
	now       func() int64
	sleep     func(context.Context, time.Duration) error

	mu    sync.Mutex
	seen  map[string]int64 // signature -> seen-at (ms)
	stats CopyStats
}

// NewCopyTrader creates a CopyTrader. Execution is simulated for now,
// so positions carry is_paper accordingly.
func NewCopyTrader(parser providers.TxParser, registry *wallets.Registry, tokens storage.TokenStore, positions storage.PositionStore, trades storage.TradeStore, cfg Config, isPaper bool, log zerolog.Logger) *CopyTrader {
	return &CopyTrader{
		parser:    parser,
		registry:  registry,
		tokens:    tokens,
		positions: positions,
		trades:    trades,
		cfg:       cfg,
		isPaper:   isPaper,
		log:       log.With().Str("component", "copy_trader").Logger(),
		now:       func() int64 { return time.Now().UnixMilli() },
		sleep:     sleepCtx,
		seen:      make(map[string]int64),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WithMetrics attaches the copy-trade event counters.
func (t *CopyTrader) WithMetrics(m *observability.Metrics) *CopyTrader {
	t.metrics = m
	return t
}

// Stats returns a snapshot of the lifetime counters.
func (t *CopyTrader) Stats() CopyStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// markSeen records the signature, returning false when it was already
// seen within the TTL. Expired entries are pruned on the way.
func (t *CopyTrader) markSeen(sig string, nowMs int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := nowMs - signatureDedupTTL.Milliseconds()
	for s, at := range t.seen {
		if at < cutoff {
			delete(t.seen, s)
		}
	}
	if _, ok := t.seen[sig]; ok {
		return false
	}
	t.seen[sig] = nowMs
	return true
}

func (t *CopyTrader) count(f func(*CopyStats)) {
	t.mu.Lock()
	f(&t.stats)
	t.mu.Unlock()
}

// OnWalletEvent handles one observed transaction involving a tracked
// wallet: dedup, parse with retries, derive the swap side, mirror it.
func (t *CopyTrader) OnWalletEvent(ctx context.Context, ev domain.WalletEvent) error {
	t.count(func(s *CopyStats) { s.EventsReceived++ })

	nowMs := t.now()
	if !t.markSeen(ev.Signature, nowMs) {
		t.count(func(s *CopyStats) { s.DedupSkips++ })
		t.metrics.RecordCopyEvent("dedup_skip")
		return nil
	}

	w, ok := t.registry.Get(ev.Wallet)
	if !ok || !w.Enabled {
		return nil
	}

	tx, err := t.parseWithRetry(ctx, ev.Signature)
	if err != nil {
		t.count(func(s *CopyStats) { s.Errors++ })
		t.metrics.RecordCopyEvent("parse_error")
		t.log.Warn().Err(err).Str("signature", ev.Signature).Msg("transaction parse failed")
		return nil
	}
	if tx.Type != providers.TxTypeSwap || tx.Err || tx.FeePayer != ev.Wallet {
		return nil
	}
	t.count(func(s *CopyStats) { s.SwapsParsed++ })

	side, mint, observedSOL := deriveSwapSide(tx, ev.Wallet)
	switch side {
	case domain.TradeSideBuy:
		return t.mirrorBuy(ctx, w, mint, observedSOL)
	case domain.TradeSideSell:
		if !w.MirrorSells {
			return nil
		}
		return t.mirrorSell(ctx, w, mint)
	}
	return nil
}

// parseWithRetry waits out the commitment lag before each attempt.
func (t *CopyTrader) parseWithRetry(ctx context.Context, signature string) (*providers.ParsedTransaction, error) {
	var lastErr error
	for _, delay := range parseRetryDelays {
		if err := t.sleep(ctx, delay); err != nil {
			return nil, err
		}
		tx, err := t.parser.ParseTransaction(ctx, signature)
		if err == nil {
			return tx, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("parse after %d attempts: %w", len(parseRetryDelays), lastErr)
}

// deriveSwapSide classifies the wallet's role from the transaction's
// native and token transfers. Returns ("", "", 0) when unclassifiable.
func deriveSwapSide(tx *providers.ParsedTransaction, wallet string) (side, mint string, observedSOL float64) {
	solOut, solIn := 0.0, 0.0
	for _, n := range tx.Native {
		if n.From == wallet {
			solOut += n.AmountSOL
		}
		if n.To == wallet {
			solIn += n.AmountSOL
		}
	}

	var tokenInMint, tokenOutMint string
	for _, tr := range tx.Tokens {
		if tr.To == wallet && tokenInMint == "" {
			tokenInMint = tr.Mint
		}
		if tr.From == wallet && tokenOutMint == "" {
			tokenOutMint = tr.Mint
		}
	}

	netSpent := solOut - solIn - tx.FeeSOL
	if tokenInMint != "" && netSpent > feeDustSOL {
		return domain.TradeSideBuy, tokenInMint, netSpent
	}
	if tokenOutMint != "" && solIn-solOut > 0 {
		return domain.TradeSideSell, tokenOutMint, 0
	}
	return "", "", 0
}

// mirrorBuy opens a copy position scaled from the observed buy.
func (t *CopyTrader) mirrorBuy(ctx context.Context, w domain.TrackedWallet, mint string, observedSOL float64) error {
	invest := observedSOL * w.Multiplier
	if invest > w.MaxSOL {
		invest = w.MaxSOL
	}
	if invest <= 0 {
		return nil
	}

	tokenID, err := t.tokens.Upsert(ctx, &domain.Token{Address: mint, Chain: domain.ChainSolana})
	if err != nil {
		return fmt.Errorf("upsert token %s: %w", mint, err)
	}

	nowMs := t.now()
	wallet := w.Address
	p := &domain.Position{
		TokenID:          tokenID,
		Status:           domain.PositionOpen,
		AmountSOL:        invest,
		IsPaper:          t.isPaper,
		Source:           domain.TradeSourceCopyTrade,
		CopiedFromWallet: &wallet,
		OpenedAt:         nowMs,
	}
	if _, err := t.positions.Open(ctx, p); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil
		}
		return fmt.Errorf("open copy position: %w", err)
	}

	trade := &domain.Trade{
		TokenID:          tokenID,
		Side:             domain.TradeSideBuy,
		AmountSOL:        invest,
		IsPaper:          t.isPaper,
		Source:           domain.TradeSourceCopyTrade,
		CopiedFromWallet: &wallet,
		Status:           domain.TradeStatusFilled,
		ExecutedAt:       nowMs,
	}
	if _, err := t.trades.Insert(ctx, trade); err != nil {
		return fmt.Errorf("record copy buy: %w", err)
	}

	t.count(func(s *CopyStats) { s.BuysOpened++ })
	t.metrics.RecordCopyEvent("buy_mirrored")
	t.metrics.RecordPositionOpened(domain.TradeSourceCopyTrade, t.isPaper)
	t.log.Info().Str("wallet", wallet).Str("mint", mint).Float64("sol", invest).
		Msg("copy buy mirrored")
	return nil
}

// mirrorSell closes every open copy position mirrored from the wallet
// for the token.
func (t *CopyTrader) mirrorSell(ctx context.Context, w domain.TrackedWallet, mint string) error {
	tok, err := t.tokens.GetByAddress(ctx, mint, domain.ChainSolana)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup token %s: %w", mint, err)
	}

	open, err := t.positions.ListOpenByWallet(ctx, tok.ID, w.Address)
	if err != nil {
		return fmt.Errorf("list copy positions: %w", err)
	}

	nowMs := t.now()
	for _, p := range open {
		reason := domain.CloseReasonMirrorSell
		p.Status = domain.PositionClosed
		p.CloseReason = &reason
		p.ClosedAt = &nowMs
		if p.EntryPriceUSD > 0 && p.CurrentPriceUSD > 0 {
			p.PnLPct = (p.CurrentPriceUSD - p.EntryPriceUSD) / p.EntryPriceUSD * 100
		}
		if err := t.positions.Update(ctx, p); err != nil {
			t.count(func(s *CopyStats) { s.Errors++ })
			t.log.Error().Err(err).Int64("position_id", p.ID).Msg("mirror sell close failed")
			continue
		}

		trade := &domain.Trade{
			TokenID:          p.TokenID,
			Side:             domain.TradeSideSell,
			AmountSOL:        p.AmountSOL * (1 + p.PnLPct/100),
			AmountToken:      p.AmountToken,
			PriceUSD:         p.CurrentPriceUSD,
			IsPaper:          p.IsPaper,
			Source:           domain.TradeSourceCopyTrade,
			CopiedFromWallet: p.CopiedFromWallet,
			Status:           domain.TradeStatusFilled,
			ExecutedAt:       nowMs,
		}
		if _, err := t.trades.Insert(ctx, trade); err != nil {
			t.count(func(s *CopyStats) { s.Errors++ })
			continue
		}
		t.count(func(s *CopyStats) { s.SellsMirrored++ })
		t.metrics.RecordCopyEvent("sell_mirrored")
		t.metrics.RecordPositionClosed(reason, p.IsPaper)
	}
	return nil
}

// SweepStale closes every open copy position older than the timeout at
// its last known price. Returns the number closed.
func (t *CopyTrader) SweepStale(ctx context.Context) (int, error) {
	open, err := t.positions.ListOpen(ctx, t.isPaper, domain.TradeSourceCopyTrade)
	if err != nil {
		return 0, fmt.Errorf("list copy positions: %w", err)
	}

	nowMs := t.now()
	timeoutMs := int64(t.cfg.Close.TimeoutHours * 60 * 60 * 1000)
	closed := 0
	for _, p := range open {
		if p.AgeMs(nowMs) < timeoutMs {
			continue
		}
		reason := domain.CloseReasonTimeout
		p.Status = domain.PositionClosed
		p.CloseReason = &reason
		p.ClosedAt = &nowMs
		if p.EntryPriceUSD > 0 && p.CurrentPriceUSD > 0 {
			p.PnLPct = (p.CurrentPriceUSD - p.EntryPriceUSD) / p.EntryPriceUSD * 100
			p.PnLUSD = p.AmountSOL * p.PnLPct / 100 * t.cfg.SOLPriceUSD
		}
		if err := t.positions.Update(ctx, p); err != nil {
			t.log.Error().Err(err).Int64("position_id", p.ID).Msg("stale copy close failed")
			continue
		}
		t.metrics.RecordPositionClosed(reason, p.IsPaper)
		closed++
	}
	return closed, nil
}

// UpdatePositions runs the close decider over the token's open copy
// positions with the latest market view.
func (t *CopyTrader) UpdatePositions(ctx context.Context, tokenID int64, m MarketView) error {
	open, err := t.positions.ListOpen(ctx, t.isPaper, domain.TradeSourceCopyTrade)
	if err != nil {
		return fmt.Errorf("list copy positions: %w", err)
	}

	nowMs := t.now()
	for _, p := range open {
		if p.TokenID != tokenID {
			continue
		}
		price := m.PriceUSD
		if price <= 0 {
			continue
		}

		if p.EntryPriceUSD <= 0 {
			// First price observation after a mirror open.
			p.EntryPriceUSD = price
			if m.SOLPriceUSD > 0 {
				p.AmountToken = p.AmountSOL * m.SOLPriceUSD / price
			}
		}
		p.CurrentPriceUSD = price
		if price > p.MaxPriceUSD {
			p.MaxPriceUSD = price
		}
		p.PnLPct = (price - p.EntryPriceUSD) / p.EntryPriceUSD * 100
		p.PnLUSD = p.AmountSOL * p.PnLPct / 100 * m.SOLPriceUSD

		opts := t.cfg.Close
		opts.LiquidityUSD = m.LiquidityUSD
		opts.DeadPrice = m.DeadPrice
		reason := DecideClose(p, price, m.IsRug, nowMs, opts)
		if reason == "" {
			if err := t.positions.Update(ctx, p); err != nil {
				return fmt.Errorf("update copy position: %w", err)
			}
			continue
		}

		p.Status = domain.PositionClosed
		p.CloseReason = &reason
		p.ClosedAt = &nowMs
		if err := t.positions.Update(ctx, p); err != nil {
			return fmt.Errorf("close copy position: %w", err)
		}
		t.metrics.RecordPositionClosed(reason, p.IsPaper)
	}
	return nil
}
