package signals

import (
	"memescope/internal/domain"
	"memescope/internal/scoring"
)

// Hard-gate thresholds.
const (
	lowLiquidityGateUSD  = 5000.0
	extremeMcapLiqRatio  = 10.0
	compoundScamMinFlags = 3
	serialScamMinRugs    = 2
)

// gateResult builds the short-circuit result for a fired hard gate.
func gateResult(rule Rule) *Result {
	return &Result{
		Bearish:    []Rule{rule},
		BearishSum: rule.Weight,
		Net:        hardGateNet,
		Action:     domain.SignalAvoid,
	}
}

// lpUnsecured reports whether the LP is neither burned nor locked,
// per the security report. Unknown does not count.
func lpUnsecured(c *scoring.Context) bool {
	if !c.HasSecurity {
		return false
	}
	if c.LPBurned == nil && c.LPLocked == nil {
		return false
	}
	burned := c.LPBurned != nil && *c.LPBurned
	locked := c.LPLocked != nil && *c.LPLocked
	return !burned && !locked
}

// scamFlagCount counts the active compound-scam fingerprint flags.
func scamFlagCount(c *scoring.Context) int {
	n := 0
	if lpUnsecured(c) {
		n++
	}
	if c.Mintable != nil && *c.Mintable {
		n++
	}
	if c.BundledBuy {
		n++
	}
	if c.SerialDeployer {
		n++
	}
	if c.FeePayerSybil {
		n++
	}
	if len(c.RugcheckRisks) >= multiDangerRisks {
		n++
	}
	if c.Top10Pct != nil && *c.Top10Pct >= highConcentrationPct {
		n++
	}
	return n
}

// checkHardGates returns a short-circuit result when any hard gate
// fires, in fixed precedence order, or nil when none fire.
func checkHardGates(c *scoring.Context) *Result {
	if c.LiquidityUSD != nil && *c.LiquidityUSD > 0 && *c.LiquidityUSD < lowLiquidityGateUSD {
		return gateResult(Rule{
			Name:        "low_liquidity_gate",
			Weight:      10,
			Description: "liquidity below $5k: position cannot be exited",
		})
	}

	if c.LiquidityUSD != nil && *c.LiquidityUSD > 0 && c.McapToLiquidity() > extremeMcapLiqRatio {
		return gateResult(Rule{
			Name:        "extreme_mcap_liq_gate",
			Weight:      10,
			Description: "market cap more than 10x liquidity: exit impossible at size",
		})
	}

	if scamFlagCount(c) >= compoundScamMinFlags {
		return gateResult(Rule{
			Name:        "compound_scam_fingerprint",
			Weight:      10,
			Description: "three or more scam flags active simultaneously",
		})
	}

	if c.SymbolRugCount >= serialScamMinRugs {
		return gateResult(Rule{
			Name:        "copycat_serial_scam",
			Weight:      10,
			Description: "symbol already rugged two or more times",
		})
	}

	return nil
}
