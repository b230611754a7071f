package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WinneR641/crypto-arbitrage-bot/internal/types"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalYAML = `
pairs: ["BTC/USDT"]
venues:
  binance:
    enabled: true
  bybit:
    enabled: true
`

func TestLoad_DefaultsApplied(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 300, cfg.Monitor.IntervalSec)
	assert.Equal(t, 1.0, cfg.Monitor.NotifyMinPercent)
	assert.Equal(t, 3, cfg.Monitor.TopN)
	assert.Equal(t, 5, cfg.Snapshot.Depth)
	assert.Equal(t, 5*time.Second, cfg.VenueTimeout())
	assert.Equal(t, 30*time.Second, cfg.CycleDeadline())
	assert.Equal(t, 100, cfg.Predictor.MinSamples)
	assert.Equal(t, 0.5, cfg.Predictor.MinR2)
	assert.Equal(t, 1.1, cfg.Predictor.WidenFactor)
	assert.Equal(t, "UAH", cfg.P2P.Fiat)
	assert.Equal(t, "USDT", cfg.P2P.Crypto)
	assert.Equal(t, string(types.VenueBinance), cfg.P2P.ReferenceVenue)
	assert.Equal(t, "arb:opportunities", cfg.Redis.Stream)
}

func TestLoad_EnvOverridesSecrets(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok-123")
	t.Setenv("BINANCE_API_KEY", "key-abc")

	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "tok-123", cfg.Telegram.Token)
	assert.Equal(t, "key-abc", cfg.Venues.Binance.ApiKey)
}

func TestValidate_MinimalConfigOK(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, []types.VenueID{types.VenueBinance, types.VenueBybit}, cfg.EnabledVenues())
	assert.Equal(t, []types.Symbol{"BTC/USDT"}, cfg.Symbols())
}

func TestValidate_NoVenuesEnabled(t *testing.T) {
	cfg, err := Load(writeConfig(t, `pairs: ["BTC/USDT"]`))
	require.NoError(t, err)

	assert.Error(t, cfg.Validate())
}

func TestValidate_MalformedPair(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
pairs: ["BTCUSDT"]
venues:
  binance:
    enabled: true
`))
	require.NoError(t, err)

	assert.Error(t, cfg.Validate())
}

func TestValidate_TriangleNeedsThreeAssets(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML+`
triangles:
  - assets: ["BTC", "ETH"]
`))
	require.NoError(t, err)

	assert.Error(t, cfg.Validate())
}

func TestValidate_P2PReferenceMustBeEnabled(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML+`
p2p:
  reference_venue: okx
`))
	require.NoError(t, err)

	assert.Error(t, cfg.Validate())
}

func TestVenue_DisabledNotReturned(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	_, ok := cfg.Venue(types.VenueOKX)
	assert.False(t, ok)
	_, ok = cfg.Venue(types.VenueBinance)
	assert.True(t, ok)
}
