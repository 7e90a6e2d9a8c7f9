package reporting

import (
	"fmt"
	"strings"
	"time"
)

// Report is the signal calibration and trading performance summary.
type Report struct {
	GeneratedAt time.Time
	Signals     []SignalCalibrationRow
	Trading     []TradingSummaryRow
	Outcomes    OutcomeSummary
}

// SignalCalibrationRow aggregates the realized outcomes behind every
// signal of one status.
type SignalCalibrationRow struct {
	Status      string
	Count       int     // all signals ever emitted with this status
	Finalized   int     // signals whose token outcome was mirrored back
	Winners     int     // finalized with peak multiplier >= 2x
	Rugs        int     // finalized with the rug flag set
	AvgPeakMult float64 // mean peak multiplier over finalized
	AvgPeakROI  float64 // mean peak ROI percent over finalized
	WinRatePct  float64
	RugRatePct  float64
}

// TradingSummaryRow aggregates closed positions for one trading mode
// and entry source.
type TradingSummaryRow struct {
	IsPaper     bool
	Source      string
	Closed      int
	Wins        int // closed with positive P&L
	WinRatePct  float64
	AvgPnLPct   float64
	TotalPnLUSD float64
}

// OutcomeSummary aggregates the tracked token outcomes.
type OutcomeSummary struct {
	Tracked     int
	Finalized   int // reached the final multiplier
	Rugs        int
	RugRatePct  float64
	AvgPeakMult float64 // over outcomes with a known peak
}

// RenderMarkdown renders the report as a markdown document.
func (r *Report) RenderMarkdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Calibration Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339))

	fmt.Fprintf(&b, "## Token Outcomes\n\n")
	fmt.Fprintf(&b, "- Tracked: %d\n", r.Outcomes.Tracked)
	fmt.Fprintf(&b, "- Finalized: %d\n", r.Outcomes.Finalized)
	fmt.Fprintf(&b, "- Rugs: %d (%.1f%%)\n", r.Outcomes.Rugs, r.Outcomes.RugRatePct)
	fmt.Fprintf(&b, "- Avg peak multiplier: %.2fx\n\n", r.Outcomes.AvgPeakMult)

	fmt.Fprintf(&b, "## Signal Calibration\n\n")
	fmt.Fprintf(&b, "| Status | Count | Finalized | Win Rate | Rug Rate | Avg Peak | Avg Peak ROI |\n")
	fmt.Fprintf(&b, "|--------|-------|-----------|----------|----------|----------|--------------|\n")
	for _, row := range r.Signals {
		fmt.Fprintf(&b, "| %s | %d | %d | %.1f%% | %.1f%% | %.2fx | %.1f%% |\n",
			row.Status, row.Count, row.Finalized, row.WinRatePct, row.RugRatePct,
			row.AvgPeakMult, row.AvgPeakROI)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Closed Positions\n\n")
	fmt.Fprintf(&b, "| Mode | Source | Closed | Win Rate | Avg P&L | Total P&L (USD) |\n")
	fmt.Fprintf(&b, "|------|--------|--------|----------|---------|------------------|\n")
	for _, row := range r.Trading {
		mode := "real"
		if row.IsPaper {
			mode = "paper"
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %.1f%% | %.1f%% | %.2f |\n",
			mode, row.Source, row.Closed, row.WinRatePct, row.AvgPnLPct, row.TotalPnLUSD)
	}
	b.WriteString("\n")

	return b.String()
}
