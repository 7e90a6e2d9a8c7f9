package signals

import (
	"reflect"
	"testing"

	"memescope/internal/domain"
	"memescope/internal/scoring"
)

func f64(v float64) *float64 { return &v }
func i(v int) *int           { return &v }
func b(v bool) *bool         { return &v }

// cleanStrongContext mirrors a healthy launch with strong flow.
func cleanStrongContext() *scoring.Context {
	return &scoring.Context{
		PriceUSD:     f64(0.00005),
		MarketCapUSD: f64(120000),
		LiquidityUSD: f64(60000),
		Volume1hUSD:  f64(200000),
		Buys1h:       i(100),
		Sells1h:      i(20),
		HolderCount:  i(300),
		Top10Pct:     f64(18),
		SmartWallets: i(2),

		HasSecurity:       true,
		LPBurned:          b(true),
		ContractRenounced: b(true),
		SellTaxPct:        f64(0),

		HolderVelocityPerMin: f64(80),
		AgeMs:                20 * 60 * 1000,
	}
}

func ruleNames(rules []Rule) []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	return names
}

func TestEvaluateCleanStrongBuy(t *testing.T) {
	r := Evaluate(cleanStrongContext(), 65)

	want := []string{
		"high_score", "buy_pressure", "smart_money", "holder_velocity",
		"strong_liquidity", "volume_spike", "security_cleared",
	}
	if got := ruleNames(r.Bullish); !reflect.DeepEqual(got, want) {
		t.Errorf("bullish rules = %v, want %v", got, want)
	}
	if len(r.Bearish) != 0 {
		t.Errorf("bearish rules = %v, want none", ruleNames(r.Bearish))
	}
	if r.Net < strongBuyNet {
		t.Errorf("net = %d, want >= %d", r.Net, strongBuyNet)
	}
	if r.Action != domain.SignalStrongBuy {
		t.Errorf("action = %s, want strong_buy", r.Action)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	ctx := cleanStrongContext()
	first := Evaluate(ctx, 65)
	for run := 0; run < 5; run++ {
		if got := Evaluate(ctx, 65); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: evaluation not deterministic", run)
		}
	}
}

func TestEvaluateHoneypotAvoid(t *testing.T) {
	ctx := cleanStrongContext()
	ctx.IsHoneypot = b(true)
	r := Evaluate(ctx, 0)

	found := false
	for _, rule := range r.Bearish {
		if rule.Name == "honeypot" {
			found = true
		}
	}
	if !found {
		t.Errorf("honeypot rule not fired: %v", ruleNames(r.Bearish))
	}
	if r.Action != domain.SignalAvoid {
		t.Errorf("action = %s, want avoid", r.Action)
	}
}

func TestEvaluateHardGates(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() *scoring.Context
		rule string
	}{
		{
			name: "low liquidity",
			ctx: func() *scoring.Context {
				c := cleanStrongContext()
				c.LiquidityUSD = f64(3000)
				return c
			},
			rule: "low_liquidity_gate",
		},
		{
			name: "extreme mcap to liquidity",
			ctx: func() *scoring.Context {
				c := cleanStrongContext()
				c.MarketCapUSD = f64(800000)
				return c
			},
			rule: "extreme_mcap_liq_gate",
		},
		{
			name: "compound scam fingerprint",
			ctx: func() *scoring.Context {
				c := cleanStrongContext()
				c.BundledBuy = true
				c.SerialDeployer = true
				c.FeePayerSybil = true
				return c
			},
			rule: "compound_scam_fingerprint",
		},
		{
			name: "copycat serial scam",
			ctx: func() *scoring.Context {
				c := cleanStrongContext()
				c.SymbolRugCount = 2
				return c
			},
			rule: "copycat_serial_scam",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Evaluate(tt.ctx(), 70)
			if r.Net != hardGateNet {
				t.Errorf("net = %d, want %d", r.Net, hardGateNet)
			}
			if r.Action != domain.SignalAvoid {
				t.Errorf("action = %s, want avoid", r.Action)
			}
			if len(r.Bearish) != 1 || len(r.Bullish) != 0 {
				t.Fatalf("fired = %v + %v, want exactly one rule",
					ruleNames(r.Bullish), ruleNames(r.Bearish))
			}
			if r.Bearish[0].Name != tt.rule {
				t.Errorf("rule = %s, want %s", r.Bearish[0].Name, tt.rule)
			}
		})
	}
}

func TestEvaluateCopycatSingleRugCapsNet(t *testing.T) {
	ctx := cleanStrongContext()
	ctx.SymbolRugCount = 1
	r := Evaluate(ctx, 65)
	if r.Net > copycatNetCap {
		t.Errorf("net = %d, want <= %d with one prior rug", r.Net, copycatNetCap)
	}
	if r.Action == domain.SignalStrongBuy {
		t.Errorf("action = strong_buy, cap should demote")
	}
}

func TestEvaluateGraduationRugCap(t *testing.T) {
	ctx := cleanStrongContext()
	ctx.LiquidityUSD = f64(200000)
	ctx.MarketCapUSD = f64(300000) // ratio 1.5
	ctx.AgeMs = 60 * 1000
	r := Evaluate(ctx, 65)
	if r.Net > graduationNetCap {
		t.Errorf("net = %d, want <= %d for graduation-rug structure", r.Net, graduationNetCap)
	}
}

func TestEvaluateLowLiqVelocityCap(t *testing.T) {
	ctx := cleanStrongContext()
	ctx.LiquidityUSD = f64(15000)
	r := Evaluate(ctx, 65)
	if r.BullishSum > lowLiqBullishCap {
		t.Errorf("bullish sum = %d, want <= %d under $20k liquidity", r.BullishSum, lowLiqBullishCap)
	}
}

func TestEvaluateVolumeDriedUpExcludesFresh(t *testing.T) {
	ctx := cleanStrongContext()
	ctx.Volume1hUSD = f64(130000)
	ctx.Volume5mUSD = f64(10000) // ratio 13

	ctx.AgeMs = 5 * 60 * 1000 // fresh: excluded
	r := Evaluate(ctx, 65)
	for _, rule := range r.Bearish {
		if rule.Name == "volume_dried_up" {
			t.Fatalf("volume_dried_up fired on a fresh token")
		}
	}

	ctx.AgeMs = 2 * 60 * 60 * 1000 // aged: fires
	r = Evaluate(ctx, 65)
	found := false
	for _, rule := range r.Bearish {
		if rule.Name == "volume_dried_up" {
			found = true
		}
	}
	if !found {
		t.Errorf("volume_dried_up did not fire: %v", ruleNames(r.Bearish))
	}
}

func TestEvaluateClassificationBands(t *testing.T) {
	tests := []struct {
		net  int
		want domain.SignalStatus
	}{
		{9, domain.SignalStrongBuy},
		{8, domain.SignalStrongBuy},
		{7, domain.SignalBuy},
		{5, domain.SignalBuy},
		{4, domain.SignalWatch},
		{2, domain.SignalWatch},
		{1, domain.SignalAvoid},
		{-10, domain.SignalAvoid},
	}
	for _, tt := range tests {
		if got := classify(tt.net); got != tt.want {
			t.Errorf("classify(%d) = %s, want %s", tt.net, got, tt.want)
		}
	}
}
