// Package reporting builds the calibration report: how the emitted
// signals and the traders actually performed against realized token
// outcomes.
package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"memescope/internal/storage/postgres"
)

// winnerPeakMultiplier counts a finalized signal as a win.
const winnerPeakMultiplier = 2.0

// Generator produces reports from stored data.
type Generator struct {
	pool *postgres.Pool
	now  func() time.Time
}

// NewGenerator creates a report generator over the Postgres pool.
func NewGenerator(pool *postgres.Pool) *Generator {
	return &Generator{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate loads the raw rows and builds the full report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	signals, err := g.loadSignalSamples(ctx)
	if err != nil {
		return nil, fmt.Errorf("load signals: %w", err)
	}
	positions, err := g.loadPositionSamples(ctx)
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}
	outcomes, err := g.loadOutcomeSamples(ctx)
	if err != nil {
		return nil, fmt.Errorf("load outcomes: %w", err)
	}

	return &Report{
		GeneratedAt: g.now(),
		Signals:     buildSignalCalibration(signals),
		Trading:     buildTradingSummary(positions),
		Outcomes:    buildOutcomeSummary(outcomes),
	}, nil
}

// signalSample is one signal row reduced to its calibration columns.
type signalSample struct {
	Status     string
	PeakMult   *float64
	PeakROIPct *float64
	IsRugAfter *bool
}

// positionSample is one closed position row.
type positionSample struct {
	IsPaper bool
	Source  string
	PnLPct  float64
	PnLUSD  float64
}

// outcomeSample is one token outcome row.
type outcomeSample struct {
	PeakMult  *float64
	FinalMult *float64
	IsRug     bool
}

func (g *Generator) loadSignalSamples(ctx context.Context) ([]signalSample, error) {
	rows, err := g.pool.Query(ctx,
		`SELECT status, peak_multiplier_after, peak_roi_pct, is_rug_after FROM signals`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []signalSample
	for rows.Next() {
		var s signalSample
		if err := rows.Scan(&s.Status, &s.PeakMult, &s.PeakROIPct, &s.IsRugAfter); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

func (g *Generator) loadPositionSamples(ctx context.Context) ([]positionSample, error) {
	rows, err := g.pool.Query(ctx,
		`SELECT is_paper, source, pnl_pct, pnl_usd FROM positions WHERE status = 'closed'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []positionSample
	for rows.Next() {
		var s positionSample
		if err := rows.Scan(&s.IsPaper, &s.Source, &s.PnLPct, &s.PnLUSD); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

func (g *Generator) loadOutcomeSamples(ctx context.Context) ([]outcomeSample, error) {
	rows, err := g.pool.Query(ctx,
		`SELECT peak_multiplier, final_multiplier, is_rug FROM token_outcomes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []outcomeSample
	for rows.Next() {
		var s outcomeSample
		if err := rows.Scan(&s.PeakMult, &s.FinalMult, &s.IsRug); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// signalStatusOrder fixes the row order in the rendered report.
var signalStatusOrder = map[string]int{
	"strong_buy": 0,
	"buy":        1,
	"watch":      2,
	"avoid":      3,
	"expired":    4,
}

// buildSignalCalibration groups signals by status and computes realized
// hit rates over the finalized subset.
func buildSignalCalibration(samples []signalSample) []SignalCalibrationRow {
	byStatus := make(map[string]*SignalCalibrationRow)
	peakSums := make(map[string]float64)
	roiSums := make(map[string]float64)
	roiCounts := make(map[string]int)

	for _, s := range samples {
		row := byStatus[s.Status]
		if row == nil {
			row = &SignalCalibrationRow{Status: s.Status}
			byStatus[s.Status] = row
		}
		row.Count++

		if s.PeakMult == nil && s.IsRugAfter == nil {
			continue
		}
		row.Finalized++
		if s.PeakMult != nil {
			peakSums[s.Status] += *s.PeakMult
			if *s.PeakMult >= winnerPeakMultiplier {
				row.Winners++
			}
		}
		if s.PeakROIPct != nil {
			roiSums[s.Status] += *s.PeakROIPct
			roiCounts[s.Status]++
		}
		if s.IsRugAfter != nil && *s.IsRugAfter {
			row.Rugs++
		}
	}

	rows := make([]SignalCalibrationRow, 0, len(byStatus))
	for status, row := range byStatus {
		if row.Finalized > 0 {
			row.AvgPeakMult = peakSums[status] / float64(row.Finalized)
			row.WinRatePct = float64(row.Winners) * 100 / float64(row.Finalized)
			row.RugRatePct = float64(row.Rugs) * 100 / float64(row.Finalized)
		}
		if n := roiCounts[status]; n > 0 {
			row.AvgPeakROI = roiSums[status] / float64(n)
		}
		rows = append(rows, *row)
	}

	sort.Slice(rows, func(i, j int) bool {
		oi, oj := signalStatusOrder[rows[i].Status], signalStatusOrder[rows[j].Status]
		if oi != oj {
			return oi < oj
		}
		return rows[i].Status < rows[j].Status
	})
	return rows
}

// buildTradingSummary groups closed positions by (mode, source).
func buildTradingSummary(samples []positionSample) []TradingSummaryRow {
	type key struct {
		isPaper bool
		source  string
	}
	byKey := make(map[key]*TradingSummaryRow)
	pnlSums := make(map[key]float64)

	for _, s := range samples {
		k := key{isPaper: s.IsPaper, source: s.Source}
		row := byKey[k]
		if row == nil {
			row = &TradingSummaryRow{IsPaper: s.IsPaper, Source: s.Source}
			byKey[k] = row
		}
		row.Closed++
		if s.PnLPct > 0 {
			row.Wins++
		}
		row.TotalPnLUSD += s.PnLUSD
		pnlSums[k] += s.PnLPct
	}

	rows := make([]TradingSummaryRow, 0, len(byKey))
	for k, row := range byKey {
		row.WinRatePct = float64(row.Wins) * 100 / float64(row.Closed)
		row.AvgPnLPct = pnlSums[k] / float64(row.Closed)
		rows = append(rows, *row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].IsPaper != rows[j].IsPaper {
			return rows[i].IsPaper
		}
		return rows[i].Source < rows[j].Source
	})
	return rows
}

// buildOutcomeSummary aggregates the token outcome table.
func buildOutcomeSummary(samples []outcomeSample) OutcomeSummary {
	var sum OutcomeSummary
	peakSum := 0.0
	peakCount := 0

	for _, s := range samples {
		sum.Tracked++
		if s.FinalMult != nil {
			sum.Finalized++
		}
		if s.IsRug {
			sum.Rugs++
		}
		if s.PeakMult != nil {
			peakSum += *s.PeakMult
			peakCount++
		}
	}
	if sum.Tracked > 0 {
		sum.RugRatePct = float64(sum.Rugs) * 100 / float64(sum.Tracked)
	}
	if peakCount > 0 {
		sum.AvgPeakMult = peakSum / float64(peakCount)
	}
	return sum
}
