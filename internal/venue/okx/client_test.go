package okx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/WinneR641/crypto-arbitrage-bot/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.VenueCfg{RestURL: srv.URL}, zap.NewNop())
}

func TestTicker_MapsSymbolToInstID(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v5/market/ticker", r.URL.Path)
		assert.Equal(t, "BTC-USDT", r.URL.Query().Get("instId"))
		w.Write([]byte(`{"code":"0","data":[{"bidPx":"64000.1","askPx":"64000.4"}]}`))
	})

	tick, err := c.Ticker(context.Background(), "BTC/USDT")

	require.NoError(t, err)
	assert.True(t, tick.Bid.Equal(decimal.RequireFromString("64000.1")))
	assert.True(t, tick.Ask.Equal(decimal.RequireFromString("64000.4")))
}

func TestTicker_ErrorCode(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"code":"51001","msg":"instrument not found","data":[]}`))
	})

	_, err := c.Ticker(context.Background(), "NOPE/USDT")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "51001")
}

func TestOrderBook_IgnoresExtraColumns(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v5/market/books", r.URL.Path)
		w.Write([]byte(`{"code":"0","data":[{
			"bids": [["64000.1","1.5","0","3"],["64000.0","0.5","0","1"]],
			"asks": [["64000.4","2.0","0","2"]]
		}]}`))
	})

	ob, err := c.OrderBook(context.Background(), "BTC/USDT", 5)

	require.NoError(t, err)
	require.Len(t, ob.Bids, 2)
	assert.True(t, ob.BidLiquidity(5).Equal(decimal.RequireFromString("2")))
}
