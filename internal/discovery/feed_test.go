package discovery

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memescope/internal/domain"
)

func newTestFeed(handler Handler) *Feed {
	f := NewFeed("ws://unused", handler, DefaultFeedConfig(), zerolog.Nop())
	f.now = func() int64 { return 1_700_000_000_000 }
	return f
}

func TestFeedDecodeCreate(t *testing.T) {
	var got []domain.DiscoveryEvent
	f := newTestFeed(func(ctx context.Context, ev domain.DiscoveryEvent) error {
		got = append(got, ev)
		return nil
	})

	frame := []byte(`{
		"txType": "create",
		"mint": "MintAAA",
		"name": "Dog Wif Hat",
		"symbol": "WIF",
		"traderPublicKey": "Creator111",
		"solAmount": 2.5,
		"marketCapSol": 30.5,
		"pool": "pump"
	}`)
	f.handleMessage(context.Background(), frame)

	require.Len(t, got, 1)
	ev := got[0]
	assert.Equal(t, "MintAAA", ev.Mint)
	assert.Equal(t, domain.ChainSolana, ev.Chain)
	assert.Equal(t, "pump", ev.Source)
	require.NotNil(t, ev.Name)
	assert.Equal(t, "Dog Wif Hat", *ev.Name)
	require.NotNil(t, ev.Symbol)
	assert.Equal(t, "WIF", *ev.Symbol)
	require.NotNil(t, ev.Creator)
	assert.Equal(t, "Creator111", *ev.Creator)
	require.NotNil(t, ev.InitialBuySOL)
	assert.InDelta(t, 2.5, *ev.InitialBuySOL, 1e-9)
	require.NotNil(t, ev.InitialMcapSOL)
	assert.InDelta(t, 30.5, *ev.InitialMcapSOL, 1e-9)
	assert.Equal(t, int64(1_700_000_000_000), ev.DiscoveredAt)
}

func TestFeedSkipsNonCreateFrames(t *testing.T) {
	calls := 0
	f := newTestFeed(func(ctx context.Context, ev domain.DiscoveryEvent) error {
		calls++
		return nil
	})

	ctx := context.Background()
	f.handleMessage(ctx, []byte(`{"message": "Successfully subscribed to token creation events."}`))
	f.handleMessage(ctx, []byte(`{"txType": "buy", "mint": "MintAAA"}`))
	f.handleMessage(ctx, []byte(`{"txType": "create"}`))
	f.handleMessage(ctx, []byte(`not json`))

	assert.Zero(t, calls)
}

func TestFeedDeduplicatesMints(t *testing.T) {
	calls := 0
	f := newTestFeed(func(ctx context.Context, ev domain.DiscoveryEvent) error {
		calls++
		return nil
	})

	ctx := context.Background()
	frame := []byte(`{"txType": "create", "mint": "MintAAA"}`)
	f.handleMessage(ctx, frame)
	f.handleMessage(ctx, frame)
	f.handleMessage(ctx, []byte(`{"txType": "create", "mint": "MintBBB"}`))

	assert.Equal(t, 2, calls)
}

func TestFeedSeenSetResetsAtCap(t *testing.T) {
	cfg := DefaultFeedConfig()
	cfg.SeenCap = 2
	f := NewFeed("ws://unused", func(ctx context.Context, ev domain.DiscoveryEvent) error {
		return nil
	}, cfg, zerolog.Nop())

	f.markSeen("a")
	f.markSeen("b")
	require.Len(t, f.seen, 2)

	// Hitting the cap drops history before admitting the new mint.
	f.markSeen("c")
	assert.Len(t, f.seen, 1)
	_, ok := f.seen["c"]
	assert.True(t, ok)
}
