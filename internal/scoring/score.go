package scoring

import "strings"

// Score bounds. Zero is reserved for hard disqualifiers, so a token that
// scores at all lands in [1, 100].
const (
	MaxScore = 100

	// completenessCap limits the score when fewer than
	// completenessMinPoints core data categories are available.
	completenessCap       = 40
	completenessMinPoints = 3

	// v3RugcheckRejectScore disqualifies outright in the momentum model.
	v3RugcheckRejectScore = 20000
)

// disqualified reports whether the context hits a hard disqualifier
// shared by both model variants.
func disqualified(c *Context) bool {
	if c.LiquidityUSD == nil {
		return true
	}
	if boolTrue(c.IsHoneypot) || c.AggregatorHoneypot {
		return true
	}
	if c.KnownBanned || c.MetadataBanned {
		return true
	}
	for _, r := range c.RugcheckRisks {
		if strings.Contains(strings.ToLower(r), "single holder") {
			return true
		}
	}
	return false
}

// finalize applies the completeness cap and clamps to [1, 100].
func finalize(c *Context, score int) int {
	if c.DataPoints() < completenessMinPoints && score > completenessCap {
		score = completenessCap
	}
	if score > MaxScore {
		return MaxScore
	}
	if score < 1 {
		return 1
	}
	return score
}

// band returns the contribution for the first threshold that v reaches.
// thresholds and points must be the same length, ordered descending.
func band(v float64, thresholds []float64, points []int) int {
	for i, t := range thresholds {
		if v >= t {
			return points[i]
		}
	}
	return 0
}

// sharedPenalties are deductions identical across model variants.
func sharedPenalties(c *Context) int {
	p := 0

	if c.SellSimFailed {
		p -= 15
	}
	if c.DangerousExtensions {
		p -= 20
	}
	// Mint soft flags accumulated in PRE_SCAN, 0..100 → 0..-20.
	p -= c.MintRiskBoost / 5

	if c.SellTaxPct != nil {
		p -= band(*c.SellTaxPct, []float64{25, 10, 5}, []int{15, 8, 4})
	}
	if c.LPRemovedPct != nil {
		p -= band(*c.LPRemovedPct, []float64{50, 30, 10}, []int{25, 15, 5})
	}
	if c.CreatorRiskScore != nil {
		p -= band(float64(*c.CreatorRiskScore), []float64{80, 60, 40}, []int{12, 8, 4})
	}
	if c.LLMRiskScore != nil {
		p -= band(*c.LLMRiskScore, []float64{80, 60}, []int{10, 5})
	}
	if c.WhaleScoreImpact != nil {
		p += *c.WhaleScoreImpact
	}

	return p
}

// securityScore converts the security report to a signed contribution.
func securityScore(c *Context) int {
	if !c.HasSecurity {
		return 0
	}
	s := 0
	if boolTrue(c.LPBurned) || boolTrue(c.LPLocked) {
		s += 8
	}
	if boolTrue(c.ContractRenounced) {
		s += 5
	}
	if boolFalse(c.Mintable) {
		s += 4
	} else if boolTrue(c.Mintable) {
		s -= 10
	}
	if c.RugcheckScore != nil {
		s -= band(*c.RugcheckScore, []float64{10000, 5000, 1000}, []int{15, 10, 5})
	}
	if c.SolSnifferScore != nil && *c.SolSnifferScore < 60 {
		s -= 8
	}
	if c.DevBalancePct != nil {
		s -= band(*c.DevBalancePct, []float64{30, 15, 5}, []int{12, 6, 3})
	}
	return s
}

// concentrationScore rewards decentralised supply, penalises heavy top-10.
func concentrationScore(c *Context) int {
	if c.Top10Pct == nil {
		return 0
	}
	switch {
	case *c.Top10Pct >= 80:
		return -12
	case *c.Top10Pct >= 60:
		return -8
	case *c.Top10Pct >= 40:
		return -3
	case *c.Top10Pct <= 20:
		return 5
	default:
		return 0
	}
}
