package providers

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by Unavailable for lookups that need an
// external subscription.
var ErrNotConfigured = errors.New("provider not configured")

// Unavailable satisfies the data and quote contracts for deployments
// without market-data credentials. Every lookup reports as an outage,
// so the pipeline degrades to chain-derived data instead of treating
// the gap as a token signal.
type Unavailable struct{}

// Compile-time interface checks.
var (
	_ TokenData = Unavailable{}
	_ SwapQuote = Unavailable{}
)

func (Unavailable) Info(ctx context.Context, mint string, quick bool) (*TokenInfo, error) {
	return nil, ErrNotConfigured
}

func (Unavailable) Security(ctx context.Context, mint string) (*SecurityReport, error) {
	return nil, ErrNotConfigured
}

func (Unavailable) Holders(ctx context.Context, mint string) (*HolderReport, error) {
	return nil, ErrNotConfigured
}

func (Unavailable) AltDEX(ctx context.Context, mint string) (*AltDEXQuote, error) {
	return nil, ErrNotConfigured
}

func (Unavailable) Aggregator(ctx context.Context, mint string) (*AggregatorReport, error) {
	return nil, ErrNotConfigured
}

func (Unavailable) Candles(ctx context.Context, mint string, limit int) ([]Candle, error) {
	return nil, ErrNotConfigured
}

func (Unavailable) Quote(ctx context.Context, input, output string, amount float64, slippageBps int) (*Quote, error) {
	return nil, ErrNotConfigured
}

// SimulateSell reports an aggregator outage, which PRE_SCAN treats as
// inconclusive rather than unsellable.
func (Unavailable) SimulateSell(ctx context.Context, mint string, amount float64) (*SellSimResult, error) {
	return &SellSimResult{APIError: true}, nil
}
