package solana

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"memescope/internal/domain"
)

// WalletEventHandler consumes one observed wallet transaction.
type WalletEventHandler func(ctx context.Context, ev domain.WalletEvent) error

// WalletWatcher subscribes to log notifications mentioning tracked
// wallets and forwards them as wallet events. One subscription per
// wallet: the RPC mentions filter takes a single address.
type WalletWatcher struct {
	ws      WSClient
	handler WalletEventHandler
	log     zerolog.Logger
	now     func() int64
}

// NewWalletWatcher creates a WalletWatcher.
func NewWalletWatcher(ws WSClient, handler WalletEventHandler, log zerolog.Logger) *WalletWatcher {
	return &WalletWatcher{
		ws:      ws,
		handler: handler,
		log:     log.With().Str("component", "wallet_watcher").Logger(),
		now:     func() int64 { return time.Now().UnixMilli() },
	}
}

// Run subscribes to every address and blocks dispatching events until
// ctx is cancelled. Program derived addresses are skipped: only wallets
// on the ed25519 curve can be the trader behind a swap.
func (w *WalletWatcher) Run(ctx context.Context, addresses []string) error {
	var wg sync.WaitGroup
	for _, addr := range addresses {
		if !IsOnCurve(addr) {
			w.log.Warn().Str("address", addr).Msg("skipping off-curve address")
			continue
		}

		ch, err := w.ws.SubscribeLogs(ctx, LogsFilter{Mentions: []string{addr}})
		if err != nil {
			w.log.Error().Err(err).Str("address", addr).Msg("subscribe failed")
			continue
		}
		w.log.Info().Str("address", addr).Msg("watching wallet")

		wg.Add(1)
		go func(addr string, ch <-chan LogNotification) {
			defer wg.Done()
			w.dispatch(ctx, addr, ch)
		}(addr, ch)
	}

	wg.Wait()
	return ctx.Err()
}

// dispatch forwards notifications for one wallet until the channel
// closes or ctx is cancelled. Failed transactions are dropped here so
// the parser never sees them.
func (w *WalletWatcher) dispatch(ctx context.Context, addr string, ch <-chan LogNotification) {
	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-ch:
			if !ok {
				return
			}
			if notif.Err != nil {
				continue
			}
			ev := domain.WalletEvent{
				Signature: notif.Signature,
				Wallet:    addr,
				Slot:      notif.Slot,
				SeenAt:    w.now(),
			}
			if err := w.handler(ctx, ev); err != nil {
				w.log.Error().Err(err).Str("wallet", addr).Str("signature", notif.Signature).
					Msg("wallet event handling failed")
			}
		}
	}
}
