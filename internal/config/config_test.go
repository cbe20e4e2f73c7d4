package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"shibau-trading/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "DATABASE_URL", "REDIS_URL", "PRICE_SOURCE", "BROADCAST_INTERVAL", "CORS_ORIGIN", "MARKETS_FILE"} {
		t.Setenv(key, "")
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr should default to :8080, got %s", cfg.HTTPAddr)
	}
	if cfg.PriceSource != "sim" {
		t.Errorf("PriceSource should default to sim, got %s", cfg.PriceSource)
	}
	if cfg.BroadcastInterval != 5*time.Second {
		t.Errorf("BroadcastInterval should default to 5s, got %s", cfg.BroadcastInterval)
	}
	if cfg.CORSOrigin != "*" {
		t.Errorf("CORSOrigin should default to *, got %s", cfg.CORSOrigin)
	}
}

func TestLoad_InvalidPriceSource(t *testing.T) {
	t.Setenv("PRICE_SOURCE", "oracle")
	if _, err := config.Load(); err == nil {
		t.Error("expected an error for an unknown price source")
	}
}

func TestLoad_InvalidInterval(t *testing.T) {
	t.Setenv("PRICE_SOURCE", "")
	t.Setenv("BROADCAST_INTERVAL", "soon")
	if _, err := config.Load(); err == nil {
		t.Error("expected an error for a malformed interval")
	}

	t.Setenv("BROADCAST_INTERVAL", "-5s")
	if _, err := config.Load(); err == nil {
		t.Error("expected an error for a negative interval")
	}
}

func TestLoad_MarketsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "markets.toml")
	raw := `
[pairs."DOGE/USD"]
base = 0.12
vol = 0.0005
trend = 0.0
prec = 4
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write markets file: %v", err)
	}

	t.Setenv("PRICE_SOURCE", "")
	t.Setenv("BROADCAST_INTERVAL", "")
	t.Setenv("MARKETS_FILE", path)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	profile, ok := cfg.Markets["DOGE/USD"]
	if !ok {
		t.Fatal("expected DOGE/USD profile")
	}
	if profile.Base != 0.12 || profile.Prec != 4 {
		t.Errorf("unexpected profile %+v", profile)
	}
}

func TestLoad_MarketsFileRejectsBadBase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "markets.toml")
	raw := `
[pairs."BAD/USD"]
base = 0.0
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write markets file: %v", err)
	}

	t.Setenv("PRICE_SOURCE", "")
	t.Setenv("BROADCAST_INTERVAL", "")
	t.Setenv("MARKETS_FILE", path)

	if _, err := config.Load(); err == nil {
		t.Error("expected an error for a non-positive base price")
	}
}
