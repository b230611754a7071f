package binance

import (
	"context"
	"encoding/json"
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
	return NewClient(config.VenueCfg{RestURL: srv.URL, P2PURL: srv.URL + "/p2p"}, zap.NewNop())
}

func TestTicker_RestFallback(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/bookTicker", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"symbol":"BTCUSDT","bidPrice":"64000.10","askPrice":"64000.50"}`))
	})

	tick, err := c.Ticker(context.Background(), "BTC/USDT")

	require.NoError(t, err)
	assert.True(t, tick.Bid.Equal(decimal.RequireFromString("64000.10")))
	assert.True(t, tick.Ask.Equal(decimal.RequireFromString("64000.50")))
}

func TestTicker_PrefersWarmCache(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("REST must not be hit while the cache is warm")
	})
	c.book.Set("BTCUSDT", decimal.NewFromInt(100), decimal.NewFromInt(101))

	tick, err := c.Ticker(context.Background(), "BTC/USDT")

	require.NoError(t, err)
	assert.True(t, tick.Bid.Equal(decimal.NewFromInt(100)))
}

func TestOrderBook_ParsesLevels(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/depth", r.URL.Path)
		w.Write([]byte(`{
			"bids": [["100.0","2.5"],["99.9","1.5"],["bad","row"]],
			"asks": [["100.1","3.0"]]
		}`))
	})

	ob, err := c.OrderBook(context.Background(), "BTC/USDT", 5)

	require.NoError(t, err)
	require.Len(t, ob.Bids, 2)
	assert.True(t, ob.BidLiquidity(5).Equal(decimal.NewFromInt(4)))
	require.Len(t, ob.Asks, 1)
}

func TestP2PQuote_BestOfBothSides(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/p2p", r.URL.Path)
		var req p2pSearchReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "USDT", req.Asset)
		assert.Equal(t, "UAH", req.Fiat)
		price := "40.10"
		if req.TradeType == "SELL" {
			price = "40.60"
		}
		w.Write([]byte(`{"data":[{"adv":{"price":"` + price + `"}}]}`))
	})

	q, err := c.P2PQuote(context.Background(), "USDT", "UAH", decimal.NewFromInt(10000))

	require.NoError(t, err)
	assert.True(t, q.Buy.Equal(decimal.RequireFromString("40.10")))
	assert.True(t, q.Sell.Equal(decimal.RequireFromString("40.60")))
}

func TestP2PQuote_NoAds(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	})

	_, err := c.P2PQuote(context.Background(), "USDT", "UAH", decimal.NewFromInt(10000))

	assert.Error(t, err)
}

func TestTicker_HTTPErrorWrapped(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	_, err := c.Ticker(context.Background(), "BTC/USDT")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "venue binance")
}
