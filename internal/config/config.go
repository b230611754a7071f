package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/WinneR641/crypto-arbitrage-bot/internal/types"
)

// FeeCfg mirrors a venue's published fee schedule. Rates are fractions
// (0.001 = 0.1%), withdrawal fees are absolute amounts per asset.
type FeeCfg struct {
	MakerRate         float64            `yaml:"maker_rate"`
	TakerRate         float64            `yaml:"taker_rate"`
	WithdrawalByAsset map[string]float64 `yaml:"withdrawal_by_asset"`
}

type VenueCfg struct {
	Enabled   bool   `yaml:"enabled"`
	ApiKey    string `yaml:"api_key"`
	ApiSecret string `yaml:"api_secret"`
	RestURL   string `yaml:"rest_url"`
	WsURL     string `yaml:"ws_url"`
	P2PURL    string `yaml:"p2p_url"`
	Fees      FeeCfg `yaml:"fees"`
}

type TriangleCfg struct {
	// Assets is the conversion cycle without the closing hop, e.g.
	// [BTC, ETH, USDT] meaning BTC -> ETH -> USDT -> BTC.
	Assets []string `yaml:"assets"`
}

type Config struct {
	Pairs       []string      `yaml:"pairs"`
	TradeAmount float64       `yaml:"trade_amount"`
	Triangles   []TriangleCfg `yaml:"triangles"`

	Venues struct {
		Binance VenueCfg `yaml:"binance"`
		Bybit   VenueCfg `yaml:"bybit"`
		OKX     VenueCfg `yaml:"okx"`
	} `yaml:"venues"`

	P2P struct {
		Crypto         string  `yaml:"crypto"`
		Fiat           string  `yaml:"fiat"`
		Amount         float64 `yaml:"amount"`
		ReferenceVenue string  `yaml:"reference_venue"`
	} `yaml:"p2p"`

	Monitor struct {
		IntervalSec      int     `yaml:"interval_sec"`
		NotifyMinPercent float64 `yaml:"notify_min_percent"`
		TopN             int     `yaml:"top_n"`
	} `yaml:"monitor"`

	Snapshot struct {
		VenueTimeoutMs  int `yaml:"venue_timeout_ms"`
		CycleDeadlineMs int `yaml:"cycle_deadline_ms"`
		Depth           int `yaml:"depth"`
	} `yaml:"snapshot"`

	Predictor struct {
		MinSamples  int     `yaml:"min_samples"`
		MinR2       float64 `yaml:"min_r2"`
		WidenFactor float64 `yaml:"widen_factor"`
		HistoryCap  int     `yaml:"history_cap"`
	} `yaml:"predictor"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Stream   string `yaml:"stream"`
	} `yaml:"redis"`

	Telegram struct {
		Token string `yaml:"-"` // env only, never in the file
	} `yaml:"telegram"`

	Metrics struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"metrics"`

	NBU struct {
		URL string `yaml:"url"`
	} `yaml:"nbu"`
}

func Load(path string) (*Config, error) {
	// .env is optional; real deployments pass secrets through the
	// environment directly.
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyEnv()
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&c.Venues.Binance.ApiKey, "BINANCE_API_KEY")
	override(&c.Venues.Binance.ApiSecret, "BINANCE_API_SECRET")
	override(&c.Venues.Bybit.ApiKey, "BYBIT_API_KEY")
	override(&c.Venues.Bybit.ApiSecret, "BYBIT_API_SECRET")
	override(&c.Venues.OKX.ApiKey, "OKX_API_KEY")
	override(&c.Venues.OKX.ApiSecret, "OKX_API_SECRET")
	override(&c.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	override(&c.Redis.Password, "REDIS_PASSWORD")
}

func (c *Config) applyDefaults() {
	if len(c.Pairs) == 0 {
		c.Pairs = []string{"BTC/USDT", "ETH/USDT"}
	}
	if c.TradeAmount == 0 {
		c.TradeAmount = 1
	}
	if len(c.Triangles) == 0 {
		c.Triangles = []TriangleCfg{{Assets: []string{"BTC", "ETH", "USDT"}}}
	}
	if c.P2P.Crypto == "" {
		c.P2P.Crypto = "USDT"
	}
	if c.P2P.Fiat == "" {
		c.P2P.Fiat = "UAH"
	}
	if c.P2P.Amount == 0 {
		c.P2P.Amount = 10000
	}
	if c.P2P.ReferenceVenue == "" {
		c.P2P.ReferenceVenue = string(types.VenueBinance)
	}
	if c.Monitor.IntervalSec == 0 {
		c.Monitor.IntervalSec = 300
	}
	if c.Monitor.NotifyMinPercent == 0 {
		c.Monitor.NotifyMinPercent = 1.0
	}
	if c.Monitor.TopN == 0 {
		c.Monitor.TopN = 3
	}
	if c.Snapshot.VenueTimeoutMs == 0 {
		c.Snapshot.VenueTimeoutMs = 5000
	}
	if c.Snapshot.CycleDeadlineMs == 0 {
		c.Snapshot.CycleDeadlineMs = 30000
	}
	if c.Snapshot.Depth == 0 {
		c.Snapshot.Depth = 5
	}
	if c.Predictor.MinSamples == 0 {
		c.Predictor.MinSamples = 100
	}
	if c.Predictor.MinR2 == 0 {
		c.Predictor.MinR2 = 0.5
	}
	if c.Predictor.WidenFactor == 0 {
		c.Predictor.WidenFactor = 1.1
	}
	if c.Predictor.HistoryCap == 0 {
		c.Predictor.HistoryCap = 5000
	}
	if c.Redis.Stream == "" {
		c.Redis.Stream = "arb:opportunities"
	}
	if c.NBU.URL == "" {
		c.NBU.URL = "https://bank.gov.ua/NBUStatService/v1/statdirectory/exchange?json"
	}
}

// Validate checks the startup-fatal part of the config: pair syntax, venue
// set, triangle shape. Per-cycle failures are handled at runtime instead.
func (c *Config) Validate() error {
	if len(c.EnabledVenues()) == 0 {
		return fmt.Errorf("config: no venues enabled")
	}
	for _, p := range c.Pairs {
		if _, err := types.ParseSymbol(p); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	for _, t := range c.Triangles {
		if len(t.Assets) != 3 {
			return fmt.Errorf("config: triangle must list exactly 3 assets, got %v", t.Assets)
		}
	}
	ref := types.VenueID(strings.ToLower(c.P2P.ReferenceVenue))
	if _, ok := c.Venue(ref); !ok {
		return fmt.Errorf("config: p2p reference venue %q is not an enabled venue", c.P2P.ReferenceVenue)
	}
	return nil
}

// EnabledVenues returns the IDs of all enabled venues in a fixed order, so
// every consumer iterates venues deterministically.
func (c *Config) EnabledVenues() []types.VenueID {
	var out []types.VenueID
	if c.Venues.Binance.Enabled {
		out = append(out, types.VenueBinance)
	}
	if c.Venues.Bybit.Enabled {
		out = append(out, types.VenueBybit)
	}
	if c.Venues.OKX.Enabled {
		out = append(out, types.VenueOKX)
	}
	return out
}

// Venue returns the config block for an enabled venue.
func (c *Config) Venue(id types.VenueID) (VenueCfg, bool) {
	switch id {
	case types.VenueBinance:
		if c.Venues.Binance.Enabled {
			return c.Venues.Binance, true
		}
	case types.VenueBybit:
		if c.Venues.Bybit.Enabled {
			return c.Venues.Bybit, true
		}
	case types.VenueOKX:
		if c.Venues.OKX.Enabled {
			return c.Venues.OKX, true
		}
	}
	return VenueCfg{}, false
}

// Symbols returns the configured pairs parsed. Call Validate first.
func (c *Config) Symbols() []types.Symbol {
	out := make([]types.Symbol, 0, len(c.Pairs))
	for _, p := range c.Pairs {
		if s, err := types.ParseSymbol(p); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalSec) * time.Second
}

func (c *Config) VenueTimeout() time.Duration {
	return time.Duration(c.Snapshot.VenueTimeoutMs) * time.Millisecond
}

func (c *Config) CycleDeadline() time.Duration {
	return time.Duration(c.Snapshot.CycleDeadlineMs) * time.Millisecond
}
