package trading

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"memescope/internal/domain"
	"memescope/internal/providers"
	"memescope/internal/storage/memory"
	"memescope/internal/wallets"
)

// fakeParser serves canned parsed transactions by signature.
type fakeParser struct {
	txs      map[string]*providers.ParsedTransaction
	failures int // attempts to fail before succeeding
	calls    int
}

func (f *fakeParser) ParseTransaction(ctx context.Context, signature string) (*providers.ParsedTransaction, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("not yet at required commitment")
	}
	tx, ok := f.txs[signature]
	if !ok {
		return nil, errors.New("unknown signature")
	}
	return tx, nil
}

const (
	trackedWallet = "TrkWa11etAddr"
	copyMint      = "MintCopyTrade"
)

func buyTx() *providers.ParsedTransaction {
	return &providers.ParsedTransaction{
		Type:     providers.TxTypeSwap,
		FeePayer: trackedWallet,
		FeeSOL:   0.0005,
		Native: []providers.NativeTransfer{
			{From: trackedWallet, To: "pool", AmountSOL: 1.2},
		},
		Tokens: []providers.TokenTransfer{
			{From: "pool", To: trackedWallet, Mint: copyMint, Amount: 50000},
		},
	}
}

func sellTx() *providers.ParsedTransaction {
	return &providers.ParsedTransaction{
		Type:     providers.TxTypeSwap,
		FeePayer: trackedWallet,
		FeeSOL:   0.0005,
		Native: []providers.NativeTransfer{
			{From: "pool", To: trackedWallet, AmountSOL: 0.9},
		},
		Tokens: []providers.TokenTransfer{
			{From: trackedWallet, To: "pool", Mint: copyMint, Amount: 50000},
		},
	}
}

func newCopyTrader(parser providers.TxParser, w domain.TrackedWallet) (*CopyTrader, *memory.TokenStore, *memory.PositionStore) {
	reg := wallets.NewRegistry()
	reg.Replace([]*domain.TrackedWallet{&w})
	tokens := memory.NewTokenStore()
	positions := memory.NewPositionStore()
	trades := memory.NewTradeStore()
	ct := NewCopyTrader(parser, reg, tokens, positions, trades, DefaultConfig(), true, zerolog.Nop())
	ct.now = func() int64 { return 1_700_000_000_000 }
	ct.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return ct, tokens, positions
}

func enabledWallet() domain.TrackedWallet {
	return domain.TrackedWallet{
		Address:     trackedWallet,
		Enabled:     true,
		Multiplier:  0.5,
		MaxSOL:      0.4,
		MirrorSells: true,
	}
}

func TestCopyTraderMirrorsBuy(t *testing.T) {
	ctx := context.Background()
	parser := &fakeParser{txs: map[string]*providers.ParsedTransaction{"sig1": buyTx()}}
	ct, tokens, positions := newCopyTrader(parser, enabledWallet())

	ev := domain.WalletEvent{Signature: "sig1", Wallet: trackedWallet}
	if err := ct.OnWalletEvent(ctx, ev); err != nil {
		t.Fatal(err)
	}

	tok, err := tokens.GetByAddress(ctx, copyMint, domain.ChainSolana)
	if err != nil {
		t.Fatal("token should be upserted on mirror buy")
	}
	open, _ := positions.ListOpenByWallet(ctx, tok.ID, trackedWallet)
	if len(open) != 1 {
		t.Fatalf("open copy positions = %d, want 1", len(open))
	}
	// Observed ~1.2 SOL net, x0.5 multiplier, capped at 0.4.
	if open[0].AmountSOL != 0.4 {
		t.Fatalf("mirrored size = %v, want the 0.4 cap", open[0].AmountSOL)
	}

	stats := ct.Stats()
	if stats.BuysOpened != 1 || stats.SwapsParsed != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestCopyTraderDeduplicatesBySignature(t *testing.T) {
	ctx := context.Background()
	parser := &fakeParser{txs: map[string]*providers.ParsedTransaction{"sig1": buyTx()}}
	ct, _, positions := newCopyTrader(parser, enabledWallet())

	ev := domain.WalletEvent{Signature: "sig1", Wallet: trackedWallet}
	if err := ct.OnWalletEvent(ctx, ev); err != nil {
		t.Fatal(err)
	}
	if err := ct.OnWalletEvent(ctx, ev); err != nil {
		t.Fatal(err)
	}

	n, _ := positions.CountOpen(ctx, true, domain.TradeSourceCopyTrade)
	if n != 1 {
		t.Fatalf("open = %d, want 1", n)
	}
	if ct.Stats().DedupSkips != 1 {
		t.Fatalf("dedup skips = %d, want 1", ct.Stats().DedupSkips)
	}
}

func TestCopyTraderSkipsDisabledWallet(t *testing.T) {
	ctx := context.Background()
	parser := &fakeParser{txs: map[string]*providers.ParsedTransaction{"sig1": buyTx()}}
	w := enabledWallet()
	w.Enabled = false
	ct, _, positions := newCopyTrader(parser, w)

	if err := ct.OnWalletEvent(ctx, domain.WalletEvent{Signature: "sig1", Wallet: trackedWallet}); err != nil {
		t.Fatal(err)
	}
	if n, _ := positions.CountOpen(ctx, true, domain.TradeSourceCopyTrade); n != 0 {
		t.Fatal("disabled wallet must not be mirrored")
	}
}

func TestCopyTraderParseRetries(t *testing.T) {
	ctx := context.Background()
	parser := &fakeParser{
		txs:      map[string]*providers.ParsedTransaction{"sig1": buyTx()},
		failures: 2,
	}
	ct, _, positions := newCopyTrader(parser, enabledWallet())

	if err := ct.OnWalletEvent(ctx, domain.WalletEvent{Signature: "sig1", Wallet: trackedWallet}); err != nil {
		t.Fatal(err)
	}
	if parser.calls != 3 {
		t.Fatalf("parse calls = %d, want 3", parser.calls)
	}
	if n, _ := positions.CountOpen(ctx, true, domain.TradeSourceCopyTrade); n != 1 {
		t.Fatal("buy should be mirrored after retries")
	}
}

func TestCopyTraderMirrorSellClosesAll(t *testing.T) {
	ctx := context.Background()
	parser := &fakeParser{txs: map[string]*providers.ParsedTransaction{
		"buy1":  buyTx(),
		"sell1": sellTx(),
	}}
	ct, tokens, positions := newCopyTrader(parser, enabledWallet())

	if err := ct.OnWalletEvent(ctx, domain.WalletEvent{Signature: "buy1", Wallet: trackedWallet}); err != nil {
		t.Fatal(err)
	}
	if err := ct.OnWalletEvent(ctx, domain.WalletEvent{Signature: "sell1", Wallet: trackedWallet}); err != nil {
		t.Fatal(err)
	}

	tok, _ := tokens.GetByAddress(ctx, copyMint, domain.ChainSolana)
	open, _ := positions.ListOpenByWallet(ctx, tok.ID, trackedWallet)
	if len(open) != 0 {
		t.Fatalf("mirror sell left %d open positions", len(open))
	}
	if ct.Stats().SellsMirrored != 1 {
		t.Fatalf("sells mirrored = %d, want 1", ct.Stats().SellsMirrored)
	}
}

func TestCopyTraderIgnoresForeignFeePayer(t *testing.T) {
	ctx := context.Background()
	tx := buyTx()
	tx.FeePayer = "someone-else"
	parser := &fakeParser{txs: map[string]*providers.ParsedTransaction{"sig1": tx}}
	ct, _, positions := newCopyTrader(parser, enabledWallet())

	if err := ct.OnWalletEvent(ctx, domain.WalletEvent{Signature: "sig1", Wallet: trackedWallet}); err != nil {
		t.Fatal(err)
	}
	if n, _ := positions.CountOpen(ctx, true, domain.TradeSourceCopyTrade); n != 0 {
		t.Fatal("inner instructions from foreign fee payers must not be mirrored")
	}
}

func TestCopyTraderUpdatePositionsClosesOnStopLoss(t *testing.T) {
	ctx := context.Background()
	parser := &fakeParser{txs: map[string]*providers.ParsedTransaction{"sig1": buyTx()}}
	ct, tokens, positions := newCopyTrader(parser, enabledWallet())

	if err := ct.OnWalletEvent(ctx, domain.WalletEvent{Signature: "sig1", Wallet: trackedWallet}); err != nil {
		t.Fatal(err)
	}
	tok, _ := tokens.GetByAddress(ctx, copyMint, domain.ChainSolana)

	// First observation fixes the entry price and token amount.
	if err := ct.UpdatePositions(ctx, tok.ID, MarketView{PriceUSD: 0.001, SOLPriceUSD: 150}); err != nil {
		t.Fatal(err)
	}
	open, _ := positions.ListOpenByWallet(ctx, tok.ID, trackedWallet)
	if len(open) != 1 || open[0].EntryPriceUSD != 0.001 {
		t.Fatalf("entry not fixed on first observation: %+v", open)
	}

	// A 50% drop trips the stop loss.
	if err := ct.UpdatePositions(ctx, tok.ID, MarketView{PriceUSD: 0.0005, SOLPriceUSD: 150}); err != nil {
		t.Fatal(err)
	}
	if open, _ = positions.ListOpenByWallet(ctx, tok.ID, trackedWallet); len(open) != 0 {
		t.Fatal("copy position should be closed by the stop loss")
	}

	all := positions.ByToken(tok.ID)
	if len(all) != 1 {
		t.Fatalf("positions for token = %d, want 1", len(all))
	}
	if all[0].CloseReason == nil || *all[0].CloseReason != domain.CloseReasonStopLoss {
		t.Fatalf("close reason = %v, want stop_loss", all[0].CloseReason)
	}
}

func TestCopyTraderSweepStaleClosesTimeout(t *testing.T) {
	ctx := context.Background()
	parser := &fakeParser{txs: map[string]*providers.ParsedTransaction{"sig1": buyTx()}}
	ct, tokens, positions := newCopyTrader(parser, enabledWallet())

	openedAt := int64(1_700_000_000_000)
	if err := ct.OnWalletEvent(ctx, domain.WalletEvent{Signature: "sig1", Wallet: trackedWallet}); err != nil {
		t.Fatal(err)
	}
	tok, _ := tokens.GetByAddress(ctx, copyMint, domain.ChainSolana)

	if err := ct.UpdatePositions(ctx, tok.ID, MarketView{PriceUSD: 0.001, SOLPriceUSD: 150}); err != nil {
		t.Fatal(err)
	}
	// Drift to 1.5x: arms the trailing stop but closes nothing.
	if err := ct.UpdatePositions(ctx, tok.ID, MarketView{PriceUSD: 0.0015, SOLPriceUSD: 150}); err != nil {
		t.Fatal(err)
	}

	// 25 hours later.
	ct.now = func() int64 { return openedAt + 25*60*60*1000 }
	closed, err := ct.SweepStale(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if closed != 1 {
		t.Fatalf("swept %d, want 1", closed)
	}

	all := positions.ByToken(tok.ID)
	if len(all) != 1 {
		t.Fatalf("positions for token = %d, want 1", len(all))
	}
	p := all[0]
	if p.CloseReason == nil || *p.CloseReason != domain.CloseReasonTimeout {
		t.Fatalf("close reason = %v, want timeout", p.CloseReason)
	}
	// 0.4 SOL, +50% at $150/SOL: the timeout close converts P&L to USD.
	if !approx(p.PnLUSD, 30, 1e-9) {
		t.Fatalf("timeout close pnl_usd = %v, want 30", p.PnLUSD)
	}
}

func TestDeriveSwapSide(t *testing.T) {
	side, mint, sol := deriveSwapSide(buyTx(), trackedWallet)
	if side != domain.TradeSideBuy || mint != copyMint {
		t.Fatalf("buy derivation: side=%s mint=%s", side, mint)
	}
	if sol <= 1.1 || sol >= 1.2 {
		t.Fatalf("observed SOL = %v, want ~1.2 minus fee", sol)
	}

	side, mint, _ = deriveSwapSide(sellTx(), trackedWallet)
	if side != domain.TradeSideSell || mint != copyMint {
		t.Fatalf("sell derivation: side=%s mint=%s", side, mint)
	}
}
