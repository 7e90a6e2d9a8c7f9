// Package signals evaluates enriched token snapshots against a fixed
// rule set and classifies them into trading actions. Rule thresholds
// and weights are calibrated against historical rug-rate data; changing
// them changes the meaning of every stored signal.
package signals

import "memescope/internal/domain"

// Rule is one fired rule with its contribution.
type Rule struct {
	Name        string // stable identifier, stored with the signal
	Weight      int    // absolute contribution (sign carried by the list)
	Description string // operator-facing summary
}

// Result is the outcome of one evaluation.
type Result struct {
	Bullish []Rule // rules that added to the net score
	Bearish []Rule // rules that subtracted from the net score

	BullishSum int
	BearishSum int
	Net        int // BullishSum - BearishSum, after caps

	Action domain.SignalStatus
}

// RuleNames returns the names of all fired rules, bullish first.
func (r *Result) RuleNames() []string {
	names := make([]string, 0, len(r.Bullish)+len(r.Bearish))
	for _, rule := range r.Bullish {
		names = append(names, rule.Name)
	}
	for _, rule := range r.Bearish {
		names = append(names, rule.Name)
	}
	return names
}

// Classification thresholds on the net score.
const (
	strongBuyNet = 8
	buyNet       = 5
	watchNet     = 2

	// hardGateNet is the forced net score when a hard gate fires.
	hardGateNet = -10
)

// classify maps a net score to an action.
func classify(net int) domain.SignalStatus {
	switch {
	case net >= strongBuyNet:
		return domain.SignalStrongBuy
	case net >= buyNet:
		return domain.SignalBuy
	case net >= watchNet:
		return domain.SignalWatch
	default:
		return domain.SignalAvoid
	}
}
