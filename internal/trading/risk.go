package trading

import (
	"context"
	"errors"
	"fmt"

	"memescope/internal/providers"
	"memescope/internal/storage"
)

// Risk rejection errors
var (
	ErrInsufficientBalance = errors.New("wallet balance below invest plus reserve")
	ErrPositionCap         = errors.New("open position cap reached")
	ErrExposureCap         = errors.New("total exposure cap reached")
	ErrLowLiquidity        = errors.New("liquidity below minimum")
	ErrTradeTooLarge       = errors.New("trade size above cap")
)

// RiskLimits parameterise the pre-trade checks.
type RiskLimits struct {
	ReserveSOL      float64 // SOL kept untouched for fees and exits
	MaxPositions    int     // cap on concurrent open positions
	MaxExposureSOL  float64 // cap on total SOL across open positions
	MinLiquidityUSD float64 // refuse entries into pools below this
	BaseTradeSOL    float64 // nominal per-trade size
	TradeSizeFactor float64 // allowed multiple of BaseTradeSOL (1.6 covers strong_buy)
}

// DefaultRiskLimits returns the production defaults.
func DefaultRiskLimits() RiskLimits {
	return RiskLimits{
		ReserveSOL:      0.05,
		MaxPositions:    5,
		MaxExposureSOL:  3.0,
		MinLiquidityUSD: 10000,
		BaseTradeSOL:    0.5,
		TradeSizeFactor: 1.6,
	}
}

// RiskManager validates real trades before execution. Stateless: every
// check reads live wallet and store state.
type RiskManager struct {
	limits    RiskLimits
	balance   providers.WalletBalance
	positions storage.PositionStore
}

// NewRiskManager creates a RiskManager.
func NewRiskManager(limits RiskLimits, balance providers.WalletBalance, positions storage.PositionStore) *RiskManager {
	return &RiskManager{limits: limits, balance: balance, positions: positions}
}

// CheckBuy validates a prospective real buy. Returns nil when the trade
// may proceed, or one of the Err* sentinels.
func (r *RiskManager) CheckBuy(ctx context.Context, investSOL float64, liquidityUSD *float64) error {
	if investSOL > r.limits.BaseTradeSOL*r.limits.TradeSizeFactor {
		return ErrTradeTooLarge
	}

	if liquidityUSD == nil || *liquidityUSD < r.limits.MinLiquidityUSD {
		return ErrLowLiquidity
	}

	bal, err := r.balance.GetSOLBalance(ctx)
	if err != nil {
		return fmt.Errorf("read wallet balance: %w", err)
	}
	if bal < investSOL+r.limits.ReserveSOL {
		return ErrInsufficientBalance
	}

	open, err := r.positions.CountOpen(ctx, false, "")
	if err != nil {
		return fmt.Errorf("count open positions: %w", err)
	}
	if open >= r.limits.MaxPositions {
		return ErrPositionCap
	}

	exposure, err := r.positions.SumOpenExposure(ctx, false)
	if err != nil {
		return fmt.Errorf("sum open exposure: %w", err)
	}
	if exposure+investSOL > r.limits.MaxExposureSOL {
		return ErrExposureCap
	}

	return nil
}
