// Package enrichment drives the staged re-observation of discovered
// tokens: the stage schedule, the persistent task queue and the worker
// pool that executes each stage.
package enrichment

import (
	"time"

	"memescope/internal/domain"
)

// FetchPlan names the provider calls a stage performs.
type FetchPlan struct {
	Info       bool // full market info (price, volumes, trade counts, socials)
	QuickPrice bool // cheap price-only variant
	Security   bool // security report
	Holders    bool // ranked holders + smart-money counts
	AltDEX     bool // alternate-DEX price view
	Aggregator bool // aggregator cross-source view
	Candles    bool // recent OHLCV candles
}

// StagePlan is one row of the stage schedule.
type StagePlan struct {
	Offset     time.Duration // delay from discovery time
	Fetch      FetchPlan
	PruneBelow int // abandon further stages when score < this; 0 = never
}

// Schedule maps each stage to its plan. Offsets and prune thresholds
// are calibrated against historical token lifecycles; do not tune
// casually.
var Schedule = map[domain.Stage]StagePlan{
	domain.StagePreScan: {Offset: 5 * time.Second},
	domain.StageInitial: {
		Offset: 8 * time.Second,
		Fetch:  FetchPlan{Info: true, Security: true, Holders: true, Aggregator: true},
	},
	domain.StageMin2: {
		Offset: 15 * time.Second,
		Fetch:  FetchPlan{QuickPrice: true},
	},
	domain.StageMin5: {
		Offset:     5 * time.Minute,
		Fetch:      FetchPlan{Info: true, Holders: true, AltDEX: true, Candles: true},
		PruneBelow: 20,
	},
	domain.StageMin10: {
		Offset: 10 * time.Minute,
		Fetch:  FetchPlan{AltDEX: true},
	},
	domain.StageMin15: {
		Offset:     15 * time.Minute,
		Fetch:      FetchPlan{Info: true, Holders: true, Candles: true},
		PruneBelow: 25,
	},
	domain.StageMin30: {
		Offset: 30 * time.Minute,
		Fetch:  FetchPlan{Info: true, Security: true, Aggregator: true},
	},
	domain.StageHour1: {
		Offset: time.Hour,
		Fetch:  FetchPlan{Info: true, Holders: true, AltDEX: true, Candles: true},
	},
	domain.StageHour2: {
		Offset: 2 * time.Hour,
		Fetch:  FetchPlan{AltDEX: true},
	},
	domain.StageHour4: {
		Offset: 4 * time.Hour,
		Fetch:  FetchPlan{Info: true, Security: true, Candles: true, Aggregator: true},
	},
	domain.StageHour8: {
		Offset: 8 * time.Hour,
		Fetch:  FetchPlan{AltDEX: true},
	},
	domain.StageHour24: {
		Offset: 24 * time.Hour,
		Fetch:  FetchPlan{Info: true, Security: true, Aggregator: true},
	},
}

// StaleAfter returns how old a queued task of the stage may grow before
// the purge discards it. PRE_SCAN and INITIAL carry explicit overrides;
// every other stage (MIN_2 included) uses three times its offset.
func StaleAfter(stage domain.Stage) time.Duration {
	switch stage {
	case domain.StagePreScan:
		return 5 * time.Minute
	case domain.StageInitial:
		return 15 * time.Minute
	default:
		plan, ok := Schedule[stage]
		if !ok {
			return 0
		}
		return 3 * plan.Offset
	}
}
