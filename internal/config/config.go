package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"shibau-trading/internal/marketdata"
)

type Config struct {
	HTTPAddr          string
	DatabaseURL       string
	RedisURL          string
	PriceSource       string
	BroadcastInterval time.Duration
	CORSOrigin        string
	MarketsFile       string
	Markets           map[string]marketdata.PairProfile
}

// Load reads configuration from the environment, with a best-effort
// .env for local development. Only PRICE_SOURCE is validated strictly;
// everything else has a working default so the binary starts with no
// environment at all.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	c.HTTPAddr = envOr("HTTP_ADDR", ":8080")
	c.DatabaseURL = os.Getenv("DATABASE_URL")
	c.RedisURL = os.Getenv("REDIS_URL")
	c.CORSOrigin = envOr("CORS_ORIGIN", "*")

	c.PriceSource = strings.ToLower(strings.TrimSpace(envOr("PRICE_SOURCE", marketdata.SourceSim)))
	if c.PriceSource != marketdata.SourceSim && c.PriceSource != marketdata.SourceExternal {
		return c, errors.New("invalid PRICE_SOURCE: use sim or external")
	}

	interval := envOr("BROADCAST_INTERVAL", "5s")
	d, err := time.ParseDuration(interval)
	if err != nil {
		return c, fmt.Errorf("invalid BROADCAST_INTERVAL: %w", err)
	}
	if d <= 0 {
		return c, errors.New("BROADCAST_INTERVAL must be positive")
	}
	c.BroadcastInterval = d

	c.MarketsFile = os.Getenv("MARKETS_FILE")
	if c.MarketsFile != "" {
		markets, err := loadMarkets(c.MarketsFile)
		if err != nil {
			return c, err
		}
		c.Markets = markets
	}

	return c, nil
}

type marketsFile struct {
	Pairs map[string]pairEntry `toml:"pairs"`
}

type pairEntry struct {
	Base  float64 `toml:"base"`
	Vol   float64 `toml:"vol"`
	Trend float64 `toml:"trend"`
	Prec  int     `toml:"prec"`
}

// loadMarkets reads a TOML file overriding the built-in pair profiles.
func loadMarkets(path string) (map[string]marketdata.PairProfile, error) {
	var f marketsFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("markets file %s: %w", path, err)
	}
	if len(f.Pairs) == 0 {
		return nil, fmt.Errorf("markets file %s: no pairs defined", path)
	}
	out := make(map[string]marketdata.PairProfile, len(f.Pairs))
	for sym, p := range f.Pairs {
		if p.Base <= 0 {
			return nil, fmt.Errorf("markets file %s: pair %s has non-positive base", path, sym)
		}
		out[sym] = marketdata.PairProfile{Base: p.Base, Vol: p.Vol, Trend: p.Trend, Prec: p.Prec}
	}
	return out, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
