package reporting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func TestBuildSignalCalibration(t *testing.T) {
	samples := []signalSample{
		// Two finalized buys: one 5x winner, one rugged at 1.1x.
		{Status: "buy", PeakMult: ptr(5.0), PeakROIPct: ptr(400.0), IsRugAfter: ptr(false)},
		{Status: "buy", PeakMult: ptr(1.1), PeakROIPct: ptr(10.0), IsRugAfter: ptr(true)},
		// One buy still awaiting its outcome.
		{Status: "buy"},
		// A finalized avoid that rugged, as predicted.
		{Status: "avoid", PeakMult: ptr(1.0), IsRugAfter: ptr(true)},
	}

	rows := buildSignalCalibration(samples)
	require.Len(t, rows, 2)

	buy := rows[0]
	assert.Equal(t, "buy", buy.Status)
	assert.Equal(t, 3, buy.Count)
	assert.Equal(t, 2, buy.Finalized)
	assert.Equal(t, 1, buy.Winners)
	assert.Equal(t, 1, buy.Rugs)
	assert.InDelta(t, 3.05, buy.AvgPeakMult, 1e-9)
	assert.InDelta(t, 205.0, buy.AvgPeakROI, 1e-9)
	assert.InDelta(t, 50.0, buy.WinRatePct, 1e-9)
	assert.InDelta(t, 50.0, buy.RugRatePct, 1e-9)

	avoid := rows[1]
	assert.Equal(t, "avoid", avoid.Status)
	assert.Equal(t, 1, avoid.Finalized)
	assert.InDelta(t, 100.0, avoid.RugRatePct, 1e-9)
}

func TestBuildSignalCalibrationStatusOrder(t *testing.T) {
	samples := []signalSample{
		{Status: "expired"},
		{Status: "watch"},
		{Status: "strong_buy"},
	}
	rows := buildSignalCalibration(samples)
	require.Len(t, rows, 3)
	assert.Equal(t, "strong_buy", rows[0].Status)
	assert.Equal(t, "watch", rows[1].Status)
	assert.Equal(t, "expired", rows[2].Status)
}

func TestBuildTradingSummary(t *testing.T) {
	samples := []positionSample{
		{IsPaper: true, Source: "signal", PnLPct: 50, PnLUSD: 75},
		{IsPaper: true, Source: "signal", PnLPct: -30, PnLUSD: -45},
		{IsPaper: true, Source: "copy_trade", PnLPct: 10, PnLUSD: 5},
		{IsPaper: false, Source: "signal", PnLPct: -10, PnLUSD: -20},
	}

	rows := buildTradingSummary(samples)
	require.Len(t, rows, 3)

	// Paper rows sort before real, sources alphabetical within a mode.
	assert.True(t, rows[0].IsPaper)
	assert.Equal(t, "copy_trade", rows[0].Source)
	assert.Equal(t, 1, rows[0].Closed)

	paperSignal := rows[1]
	assert.Equal(t, "signal", paperSignal.Source)
	assert.Equal(t, 2, paperSignal.Closed)
	assert.Equal(t, 1, paperSignal.Wins)
	assert.InDelta(t, 50.0, paperSignal.WinRatePct, 1e-9)
	assert.InDelta(t, 10.0, paperSignal.AvgPnLPct, 1e-9)
	assert.InDelta(t, 30.0, paperSignal.TotalPnLUSD, 1e-9)

	assert.False(t, rows[2].IsPaper)
}

func TestBuildOutcomeSummary(t *testing.T) {
	samples := []outcomeSample{
		{PeakMult: ptr(8.0), FinalMult: ptr(6.0), IsRug: false},
		{PeakMult: ptr(2.0), FinalMult: ptr(0.1), IsRug: true},
		{PeakMult: ptr(1.5)},
		{},
	}

	sum := buildOutcomeSummary(samples)
	assert.Equal(t, 4, sum.Tracked)
	assert.Equal(t, 2, sum.Finalized)
	assert.Equal(t, 1, sum.Rugs)
	assert.InDelta(t, 25.0, sum.RugRatePct, 1e-9)
	assert.InDelta(t, (8.0+2.0+1.5)/3, sum.AvgPeakMult, 1e-9)
}

func TestBuildOutcomeSummaryEmpty(t *testing.T) {
	sum := buildOutcomeSummary(nil)
	assert.Zero(t, sum.Tracked)
	assert.Zero(t, sum.RugRatePct)
	assert.Zero(t, sum.AvgPeakMult)
}

func TestRenderMarkdown(t *testing.T) {
	r := &Report{
		GeneratedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Signals: []SignalCalibrationRow{
			{Status: "buy", Count: 10, Finalized: 8, Winners: 3, Rugs: 2,
				AvgPeakMult: 2.4, AvgPeakROI: 140, WinRatePct: 37.5, RugRatePct: 25},
		},
		Trading: []TradingSummaryRow{
			{IsPaper: true, Source: "signal", Closed: 5, Wins: 2,
				WinRatePct: 40, AvgPnLPct: 12.5, TotalPnLUSD: 62.5},
		},
		Outcomes: OutcomeSummary{Tracked: 20, Finalized: 12, Rugs: 9, RugRatePct: 45, AvgPeakMult: 1.8},
	}

	md := r.RenderMarkdown()
	assert.Contains(t, md, "# Calibration Report")
	assert.Contains(t, md, "Generated: 2026-08-01T12:00:00Z")
	assert.Contains(t, md, "- Rugs: 9 (45.0%)")
	assert.Contains(t, md, "| buy | 10 | 8 | 37.5% | 25.0% | 2.40x | 140.0% |")
	assert.Contains(t, md, "| paper | signal | 5 | 40.0% | 12.5% | 62.50 |")
}
