package trading

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"memescope/internal/domain"
	"memescope/internal/providers"
	"memescope/internal/storage"
	"memescope/internal/storage/memory"
	"memescope/internal/wallets"
)

// openRecorder captures the status carried by positions at the store
// boundary. Stores insert the row verbatim, so a trader that forgets
// to stamp the status would persist "" and the position would never
// show up in the open-position queries.
type openRecorder struct {
	storage.PositionStore
	statuses []string
}

func (r *openRecorder) Open(ctx context.Context, p *domain.Position) (int64, error) {
	r.statuses = append(r.statuses, p.Status)
	return r.PositionStore.Open(ctx, p)
}

func TestTradersStampOpenStatus(t *testing.T) {
	ctx := context.Background()

	assertOpen := func(t *testing.T, rec *openRecorder, want int) {
		t.Helper()
		if len(rec.statuses) != want {
			t.Fatalf("opens recorded = %d, want %d", len(rec.statuses), want)
		}
		for i, st := range rec.statuses {
			if st != domain.PositionOpen {
				t.Fatalf("open %d carried status %q, want %q", i, st, domain.PositionOpen)
			}
		}
	}

	t.Run("paper signal entry", func(t *testing.T) {
		rec := &openRecorder{PositionStore: memory.NewPositionStore()}
		tr := NewPaperTrader(rec, memory.NewTradeStore(), DefaultConfig(), zerolog.Nop())

		sig := &domain.Signal{ID: 1, TokenID: 1, Status: domain.SignalStrongBuy}
		if err := tr.OnSignal(ctx, sig, MarketView{PriceUSD: 0.001, SOLPriceUSD: 150}); err != nil {
			t.Fatal(err)
		}
		assertOpen(t, rec, 1)
		if _, err := rec.GetOpen(ctx, 1, true, domain.TradeSourceSignal); err != nil {
			t.Fatalf("opened position not visible to open queries: %v", err)
		}
	})

	t.Run("paper micro entry", func(t *testing.T) {
		rec := &openRecorder{PositionStore: memory.NewPositionStore()}
		tr := NewPaperTrader(rec, memory.NewTradeStore(), DefaultConfig(), zerolog.Nop())

		if err := tr.OnPreScanEntry(ctx, 2, MarketView{PriceUSD: 0.001, SOLPriceUSD: 150}); err != nil {
			t.Fatal(err)
		}
		assertOpen(t, rec, 1)
		if n, _ := rec.CountOpenMicro(ctx, true); n != 1 {
			t.Fatalf("open micro positions = %d, want 1", n)
		}
	})

	t.Run("real entry", func(t *testing.T) {
		rec := &openRecorder{PositionStore: memory.NewPositionStore()}
		exec := &fakeExecutor{buyResult: &providers.SwapResult{
			Success: true, TxHash: "tx1", InputAmount: 0.75, OutputAmount: 112500,
		}}
		rm := NewRiskManager(DefaultRiskLimits(), &fakeBalance{sol: 5}, rec)
		br := NewBreaker("test", 3, time.Minute)
		tr := NewRealTrader(rec, memory.NewTradeStore(), memory.NewTokenStore(), exec, rm, br, DefaultConfig(), zerolog.Nop())

		sig := &domain.Signal{ID: 1, TokenID: 3, Status: domain.SignalStrongBuy}
		m := MarketView{Mint: "MintReal", PriceUSD: 0.001, SOLPriceUSD: 150, LiquidityUSD: f64(50000)}
		if err := tr.OnSignal(ctx, sig, m); err != nil {
			t.Fatal(err)
		}
		assertOpen(t, rec, 1)
		if _, err := rec.GetOpen(ctx, 3, false, domain.TradeSourceSignal); err != nil {
			t.Fatalf("opened position not visible to open queries: %v", err)
		}
	})

	t.Run("copy buy mirror", func(t *testing.T) {
		rec := &openRecorder{PositionStore: memory.NewPositionStore()}
		w := enabledWallet()
		reg := wallets.NewRegistry()
		reg.Replace([]*domain.TrackedWallet{&w})
		parser := &fakeParser{txs: map[string]*providers.ParsedTransaction{"sig1": buyTx()}}
		ct := NewCopyTrader(parser, reg, memory.NewTokenStore(), rec, memory.NewTradeStore(), DefaultConfig(), true, zerolog.Nop())
		ct.sleep = func(ctx context.Context, d time.Duration) error { return nil }

		if err := ct.OnWalletEvent(ctx, domain.WalletEvent{Signature: "sig1", Wallet: trackedWallet}); err != nil {
			t.Fatal(err)
		}
		assertOpen(t, rec, 1)
		if n, _ := rec.CountOpen(ctx, true, domain.TradeSourceCopyTrade); n != 1 {
			t.Fatalf("open copy positions = %d, want 1", n)
		}
	})
}
