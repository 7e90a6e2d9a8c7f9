// Package discovery ingests token-launch events from a launchpad
// websocket feed and hands them to the pipeline.
package discovery

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"memescope/internal/domain"
)

// Handler consumes one deduplicated launch event.
type Handler func(ctx context.Context, ev domain.DiscoveryEvent) error

// FeedConfig configures feed reconnect behavior.
type FeedConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the exponential backoff.
	MaxReconnectDelay time.Duration
	// ReadTimeout is the per-message read deadline.
	ReadTimeout time.Duration
	// SeenCap bounds the in-memory mint dedupe set.
	SeenCap int
}

// DefaultFeedConfig returns the production defaults.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       90 * time.Second,
		SeenCap:           50_000,
	}
}

// Feed subscribes to the launchpad's new-token stream and forwards each
// first-seen mint as a discovery event. The feed replays recent events
// after a reconnect, so mints are deduplicated in memory.
type Feed struct {
	endpoint string
	handler  Handler
	cfg      FeedConfig
	log      zerolog.Logger

	seen map[string]struct{}
	now  func() int64
}

// NewFeed creates a Feed for the given websocket endpoint.
func NewFeed(endpoint string, handler Handler, cfg FeedConfig, log zerolog.Logger) *Feed {
	if cfg.SeenCap <= 0 {
		cfg.SeenCap = DefaultFeedConfig().SeenCap
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultFeedConfig().ReconnectDelay
	}
	if cfg.MaxReconnectDelay <= 0 {
		cfg.MaxReconnectDelay = DefaultFeedConfig().MaxReconnectDelay
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultFeedConfig().ReadTimeout
	}
	return &Feed{
		endpoint: endpoint,
		handler:  handler,
		cfg:      cfg,
		log:      log.With().Str("component", "discovery_feed").Logger(),
		seen:     make(map[string]struct{}),
		now:      func() int64 { return time.Now().UnixMilli() },
	}
}

// Run connects and blocks consuming the stream until ctx is cancelled.
// Connection errors trigger reconnection with exponential backoff.
func (f *Feed) Run(ctx context.Context) error {
	delay := f.cfg.ReconnectDelay
	for {
		if err := f.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Dur("retry_in", delay).Msg("feed connection lost")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > f.cfg.MaxReconnectDelay {
			delay = f.cfg.MaxReconnectDelay
		}
	}
}

// consume runs one connection: dial, subscribe, read until failure.
func (f *Feed) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Drop the connection when ctx is cancelled so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	sub := map[string]string{"method": "subscribeNewToken"}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}
	f.log.Info().Str("endpoint", f.endpoint).Msg("subscribed to launch feed")

	for {
		conn.SetReadDeadline(time.Now().Add(f.cfg.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		f.handleMessage(ctx, message)
	}
}

// handleMessage decodes one frame and forwards it if it is a first-seen
// token creation. Malformed frames are logged and skipped.
func (f *Feed) handleMessage(ctx context.Context, message []byte) {
	ev, ok := f.decode(message)
	if !ok {
		return
	}
	if _, dup := f.seen[ev.Mint]; dup {
		return
	}
	f.markSeen(ev.Mint)

	if err := f.handler(ctx, ev); err != nil {
		f.log.Error().Err(err).Str("mint", ev.Mint).Msg("discovery handling failed")
	}
}

// markSeen records the mint, resetting the set once it hits the cap.
// Losing history on reset only risks a duplicate upsert, which the
// token store absorbs.
func (f *Feed) markSeen(mint string) {
	if len(f.seen) >= f.cfg.SeenCap {
		f.seen = make(map[string]struct{})
	}
	f.seen[mint] = struct{}{}
}

// launchMessage is the feed's new-token frame. Non-create frames (the
// subscription ack, trade events) decode with an empty or foreign
// txType and are ignored.
type launchMessage struct {
	TxType       string   `json:"txType"`
	Mint         string   `json:"mint"`
	Name         string   `json:"name"`
	Symbol       string   `json:"symbol"`
	Creator      string   `json:"traderPublicKey"`
	SolAmount    *float64 `json:"solAmount"`
	MarketCapSol *float64 `json:"marketCapSol"`
	Pool         string   `json:"pool"`
}

func (f *Feed) decode(message []byte) (domain.DiscoveryEvent, bool) {
	var m launchMessage
	if err := json.Unmarshal(message, &m); err != nil {
		f.log.Debug().Err(err).Msg("undecodable feed frame")
		return domain.DiscoveryEvent{}, false
	}
	if m.TxType != "create" || m.Mint == "" {
		return domain.DiscoveryEvent{}, false
	}

	source := "pumpfun"
	if m.Pool != "" {
		source = m.Pool
	}

	ev := domain.DiscoveryEvent{
		Mint:           m.Mint,
		Chain:          domain.ChainSolana,
		Source:         source,
		InitialBuySOL:  m.SolAmount,
		InitialMcapSOL: m.MarketCapSol,
		DiscoveredAt:   f.now(),
	}
	if m.Name != "" {
		name := m.Name
		ev.Name = &name
	}
	if m.Symbol != "" {
		sym := m.Symbol
		ev.Symbol = &sym
	}
	if m.Creator != "" {
		creator := m.Creator
		ev.Creator = &creator
	}
	return ev, true
}
