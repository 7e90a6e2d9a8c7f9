package signals

import (
	"math"

	"memescope/internal/scoring"
)

// Shared rule thresholds referenced by multiple rules.
const (
	highConcentrationPct = 60.0
	multiDangerRisks     = 3

	// Cap parameters.
	copycatNetCap       = 4
	graduationNetCap    = 2
	lowLiqBullishCap    = 8
	lowLiqCapUSD        = 20000.0
	graduationLiqUSD    = 150000.0
	graduationMcapRatio = 2.0
	graduationMaxAgeMs  = 3 * 60 * 1000

	freshTokenAgeMs = 30 * 60 * 1000
)

// Evaluate runs the full rule set over the context. score is the
// composite score computed for the same snapshot (the momentum model).
// prevNet, when known, is unused today but reserved for hysteresis.
func Evaluate(c *scoring.Context, score int) *Result {
	if r := checkHardGates(c); r != nil {
		return r
	}

	r := &Result{}
	collectBullish(c, score, r)
	collectBearish(c, r)

	for _, rule := range r.Bullish {
		r.BullishSum += rule.Weight
	}
	for _, rule := range r.Bearish {
		r.BearishSum += rule.Weight
	}

	applyCaps(c, r)
	r.Action = classify(r.Net)
	return r
}

// bull appends a bullish rule.
func bull(r *Result, name string, weight int, desc string) {
	r.Bullish = append(r.Bullish, Rule{Name: name, Weight: weight, Description: desc})
}

// bear appends a bearish rule.
func bear(r *Result, name string, weight int, desc string) {
	r.Bearish = append(r.Bearish, Rule{Name: name, Weight: weight, Description: desc})
}

func collectBullish(c *scoring.Context, score int, r *Result) {
	if score >= 60 {
		bull(r, "high_score", 3, "composite score at or above 60")
	}
	if c.BuySellRatio1h() >= 3 {
		bull(r, "buy_pressure", 2, "1h buys at least 3x sells")
	}
	if c.SmartWallets != nil && *c.SmartWallets >= 2 {
		bull(r, "smart_money", 2, "two or more smart wallets among top holders")
	}
	if c.HolderVelocityPerMin != nil && *c.HolderVelocityPerMin >= 50 {
		bull(r, "holder_velocity", 2, "gaining 50+ holders per minute")
	}
	if c.LiquidityUSD != nil && *c.LiquidityUSD >= 50000 {
		bull(r, "strong_liquidity", 2, "liquidity at or above $50k")
	}
	if c.VolToLiquidity() >= 2 {
		bull(r, "volume_spike", 1, "1h volume at least 2x liquidity")
	}
	if c.CreatorRiskScore != nil && *c.CreatorRiskScore <= 20 {
		bull(r, "safe_creator", 1, "creator history clean")
	}
	if securityCleared(c) {
		bull(r, "security_cleared", 2, "LP secured, renounced, no sell tax")
	}
	if c.PriceChangePct() >= 20 {
		bull(r, "price_momentum", 2, "price up 20%+ since last snapshot")
	}
	if c.Buys5m != nil && *c.Buys5m >= 50 {
		bull(r, "explosive_buy_velocity", 3, "50+ buys in 5 minutes")
	}
	if c.HolderAccelPerMin != nil && *c.HolderAccelPerMin >= 25 {
		bull(r, "holder_acceleration", 2, "holder growth accelerating 25+/min")
	}
	if c.SmartMoneyEarly != nil && *c.SmartMoneyEarly >= 3 {
		bull(r, "smart_money_early_entry", 3, "3+ smart wallets within 10 minutes of launch")
	}
	if c.VolumeSpikeRatio() >= 5 {
		bull(r, "volume_spike_ratio", 2, "5m volume 5x the previous snapshot")
	}
	if organicBuyPattern(c) {
		bull(r, "organic_buy_pattern", 1, "buy flow consistent with holder base")
	}
}

func collectBearish(c *scoring.Context, r *Result) {
	if c.IsHoneypot != nil && *c.IsHoneypot {
		bear(r, "honeypot", 10, "security provider confirms sells blocked")
	}
	if c.AggregatorHoneypot {
		bear(r, "aggregator_honeypot", 8, "aggregator confirms sells blocked")
	}
	if c.KnownBanned || c.MetadataBanned {
		bear(r, "banned_flag", 10, "token flagged banned")
	}
	if c.CreatorRiskScore != nil && *c.CreatorRiskScore >= 60 {
		bear(r, "risky_creator", 3, "creator history risky")
	}
	if c.Top10Pct != nil && *c.Top10Pct >= highConcentrationPct {
		bear(r, "high_concentration", 3, "top-10 holders own 60%+ of supply")
	}
	if c.LiquidityUSD != nil && *c.LiquidityUSD > 0 && *c.LiquidityUSD < 10000 {
		bear(r, "tiny_liquidity", 2, "liquidity under $10k")
	}
	if c.SellTaxPct != nil && *c.SellTaxPct >= 10 {
		bear(r, "high_sell_tax", 3, "sell tax at or above 10%")
	}
	if c.RugcheckScore != nil {
		switch {
		case *c.RugcheckScore >= 10000:
			bear(r, "rugcheck_danger", 5, "rugcheck score in the worst band")
		case *c.RugcheckScore >= 5000:
			bear(r, "rugcheck_danger", 4, "rugcheck score in the danger band")
		case *c.RugcheckScore >= 1000:
			bear(r, "rugcheck_danger", 2, "rugcheck score elevated")
		}
	}
	if c.SolSnifferScore != nil && *c.SolSnifferScore < 60 {
		bear(r, "solsniffer_danger", 3, "SolSniffer score below 60")
	}
	if c.DevBalancePct != nil && *c.DevBalancePct >= 15 {
		bear(r, "high_dev_holds", 2, "dev wallet holds 15%+ of supply")
	}
	if priceManipulated(c) {
		bear(r, "price_manipulation", 3, "cross-source prices diverge 30%+")
	}
	if volumeDriedUp(c) {
		bear(r, "volume_dried_up", 2, "5m volume collapsed relative to 1h")
	}
	if c.HolderAccelPerMin != nil && *c.HolderAccelPerMin <= -25 {
		bear(r, "holder_deceleration", 2, "holder growth reversing")
	}
	if c.LPRemovedPct != nil && *c.LPRemovedPct >= 30 {
		bear(r, "lp_removal_active", 4, "30%+ of LP already removed")
	}
	if c.CrossTokenCoordinated {
		bear(r, "cross_token_coordination", 3, "buyers shared across sibling launches")
	}
	if c.DangerousExtensions {
		bear(r, "dangerous_extensions", 5, "token-2022 dangerous extension present")
	}
	if c.SellSimFailed {
		bear(r, "sell_sim_failed", 5, "sell simulation found no route")
	}
	if c.BundledBuy {
		bear(r, "bundled_buy", 3, "launch bought in a bundled transaction")
	}
	if c.SerialDeployer {
		bear(r, "serial_deployer", 3, "creator deploys tokens continuously")
	} else if c.CreatorRiskScore != nil && *c.CreatorRiskScore >= 40 && *c.CreatorRiskScore < 60 {
		bear(r, "serial_deployer_mild", 1, "creator history mildly elevated")
	}
	if c.HasSecurity && c.LPBurned != nil && !*c.LPBurned && !isTrue(c.LPLocked) {
		bear(r, "lp_not_burned", 2, "LP neither burned nor locked")
	}
	if c.NoSocials {
		bear(r, "no_socials", 1, "no social links published")
	}
	if c.WashTrading {
		bear(r, "wash_trading", 3, "self-dealing volume detected")
	}
	if c.LLMRiskScore != nil && *c.LLMRiskScore >= 80 {
		bear(r, "critical_flags", 4, "LLM risk assessment critical")
	}
	if len(c.RugcheckRisks) >= multiDangerRisks {
		bear(r, "multi_danger_rugcheck", 4, "rugcheck reports 3+ distinct risks")
	}
	if c.HolderCount != nil && c.Top10Pct != nil && *c.HolderCount < 100 && *c.Top10Pct >= 40 {
		bear(r, "low_decentralization", 2, "few holders with concentrated supply")
	}
	if c.FeePayerSybil {
		bear(r, "fee_payer_sybil", 4, "many buyer wallets share one fee payer")
	}
	if c.SuspiciousFunding {
		bear(r, "suspicious_funding_chain", 3, "creator funded through a risky chain")
	}
	if c.TokenConvergence {
		bear(r, "token_convergence", 3, "holder overlap converging with a known rug")
	}
	if c.JitoBundleSnipe {
		bear(r, "jito_bundle_snipe", 2, "sniped via a Jito bundle at launch")
	}
	if c.MutableMetadata {
		bear(r, "mutable_metadata", 1, "metadata can still be changed")
	}
	if c.NameHomoglyph {
		bear(r, "name_homoglyphs", 2, "symbol or name uses homoglyph spoofing")
	}
	if c.InsiderNetwork {
		bear(r, "insider_network", 4, "holder graph links back to the creator")
	}
	if c.HolderCount != nil && *c.HolderCount < 30 {
		bear(r, "low_holders", 2, "fewer than 30 holders")
	}
	if lpUnsecured(c) && c.AgeMs < 10*60*1000 {
		bear(r, "unsecured_lp_fresh", 2, "unsecured LP on a minutes-old token")
	}
	if c.SymbolRugCount == 1 {
		bear(r, "copycat_rugged_symbol", 0, "symbol rugged once before; net capped")
	}
	if abnormalBuysPerHolder(c) {
		bear(r, "abnormal_buys_per_holder", 2, "buy count implausible for holder base")
	}
}

// applyCaps applies post-sum clamps and recomputes Net.
func applyCaps(c *scoring.Context, r *Result) {
	// Thin liquidity caps the bullish side before netting.
	if c.LiquidityUSD != nil && *c.LiquidityUSD > 0 && *c.LiquidityUSD < lowLiqCapUSD &&
		r.BullishSum > lowLiqBullishCap {
		bear(r, "low_liq_velocity_cap", 0, "bullish sum capped on thin liquidity")
		r.BullishSum = lowLiqBullishCap
	}

	r.Net = r.BullishSum - r.BearishSum

	if c.SymbolRugCount == 1 && r.Net > copycatNetCap {
		r.Net = copycatNetCap
	}

	if graduationRug(c) && r.Net > graduationNetCap {
		bear(r, "graduation_rug_structural", 0, "graduation-rug structure; net capped")
		r.Net = graduationNetCap
	}
}

// graduationRug matches the launchpad-graduation pattern: large seeded
// liquidity, market cap barely above it, and a very young token.
func graduationRug(c *scoring.Context) bool {
	if c.LiquidityUSD == nil || *c.LiquidityUSD < graduationLiqUSD {
		return false
	}
	ratio := c.McapToLiquidity()
	return ratio > 0 && ratio <= graduationMcapRatio && c.AgeMs < graduationMaxAgeMs
}

// securityCleared requires LP secured, renounced contract and at most
// a nominal sell tax.
func securityCleared(c *scoring.Context) bool {
	if !c.HasSecurity {
		return false
	}
	if !isTrue(c.LPBurned) && !isTrue(c.LPLocked) {
		return false
	}
	if !isTrue(c.ContractRenounced) {
		return false
	}
	return c.SellTaxPct == nil || *c.SellTaxPct <= 1
}

// volumeDriedUp fires when 1h volume dwarfs 5m volume, excluding fresh
// tokens whose 1h window is mostly empty anyway.
func volumeDriedUp(c *scoring.Context) bool {
	if c.AgeMs < freshTokenAgeMs {
		return false
	}
	if c.Volume1hUSD == nil || c.Volume5mUSD == nil || *c.Volume5mUSD <= 0 {
		return false
	}
	return *c.Volume1hUSD / *c.Volume5mUSD > 12
}

// priceManipulated fires when the primary price diverges 30%+ from any
// cross-source price.
func priceManipulated(c *scoring.Context) bool {
	if c.PriceUSD == nil || *c.PriceUSD <= 0 {
		return false
	}
	for _, alt := range []*float64{c.AltDEXPriceUSD, c.AggregatorPriceUSD} {
		if alt == nil || *alt <= 0 {
			continue
		}
		div := math.Abs(*c.PriceUSD-*alt) / *alt
		if div >= 0.30 {
			return true
		}
	}
	return false
}

// organicBuyPattern accepts moderate, sustained buying: pressure above
// parity but not frantic, with no wash-trading flag.
func organicBuyPattern(c *scoring.Context) bool {
	if c.WashTrading {
		return false
	}
	ratio := c.BuySellRatio1h()
	if ratio < 1.2 || ratio > 4 {
		return false
	}
	return c.HolderCount != nil && c.Buys1h != nil && *c.HolderCount > 0 &&
		float64(*c.Buys1h) <= float64(*c.HolderCount)*2
}

// abnormalBuysPerHolder flags buy counts implausible for the holder
// base, a bot-volume fingerprint.
func abnormalBuysPerHolder(c *scoring.Context) bool {
	if c.Buys5m == nil || c.HolderCount == nil || *c.HolderCount <= 0 {
		return false
	}
	return float64(*c.Buys5m) > float64(*c.HolderCount)*2
}

func isTrue(b *bool) bool {
	return b != nil && *b
}
