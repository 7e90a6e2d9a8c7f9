package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SOLANA_RPC_ENDPOINT", "https://rpc.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 8 {
		t.Errorf("workers = %d, want 8", cfg.Workers)
	}
	if cfg.SOLPriceUSD != 150 {
		t.Errorf("sol price = %f, want 150", cfg.SOLPriceUSD)
	}
	if !cfg.PaperTrading {
		t.Error("paper trading disabled by default")
	}
	if cfg.SignalDecayWindow != 30*time.Minute {
		t.Errorf("decay window = %v", cfg.SignalDecayWindow)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("metrics addr = %s", cfg.MetricsAddr)
	}
	if cfg.FeedEndpoint != "wss://pumpportal.fun/api/data" {
		t.Errorf("feed endpoint = %s", cfg.FeedEndpoint)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SOLANA_RPC_ENDPOINT", "https://rpc.example")
	t.Setenv("ENRICH_WORKERS", "4")
	t.Setenv("SOL_PRICE_USD", "210.5")
	t.Setenv("PAPER_TRADING", "false")
	t.Setenv("STALE_POSITION_MAX_AGE", "45m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 4 {
		t.Errorf("workers = %d, want 4", cfg.Workers)
	}
	if cfg.SOLPriceUSD != 210.5 {
		t.Errorf("sol price = %f", cfg.SOLPriceUSD)
	}
	if cfg.PaperTrading {
		t.Error("paper trading still enabled")
	}
	if cfg.StalePositionMaxAge != 45*time.Minute {
		t.Errorf("stale max age = %v", cfg.StalePositionMaxAge)
	}
}

func TestLoadMissingRPCEndpoint(t *testing.T) {
	t.Setenv("SOLANA_RPC_ENDPOINT", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing RPC endpoint")
	}
}

func TestLoadCopyTradingRequiresWS(t *testing.T) {
	t.Setenv("SOLANA_RPC_ENDPOINT", "https://rpc.example")
	t.Setenv("COPY_TRADING", "true")
	t.Setenv("SOLANA_WS_ENDPOINT", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing WS endpoint")
	}
}

func TestLoadMalformedValuesFallBack(t *testing.T) {
	t.Setenv("SOLANA_RPC_ENDPOINT", "https://rpc.example")
	t.Setenv("ENRICH_WORKERS", "not-a-number")
	t.Setenv("SIGNAL_DECAY_WINDOW", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 8 {
		t.Errorf("workers = %d, want default 8", cfg.Workers)
	}
	if cfg.SignalDecayWindow != 30*time.Minute {
		t.Errorf("decay window = %v, want default", cfg.SignalDecayWindow)
	}
}
