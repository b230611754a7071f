package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/WinneR641/crypto-arbitrage-bot/internal/snapshot"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/types"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/venue"
)

type fakeVenue struct {
	id      types.VenueID
	tickers map[types.Symbol]venue.Ticker
	size    decimal.Decimal
	p2p     types.P2PQuote
	p2pErr  error
}

func (f *fakeVenue) ID() types.VenueID { return f.id }

func (f *fakeVenue) Ticker(_ context.Context, sym types.Symbol) (venue.Ticker, error) {
	tick, ok := f.tickers[sym]
	if !ok {
		return venue.Ticker{}, venue.WrapErr(f.id, "ticker", errors.New("symbol not listed"))
	}
	return tick, nil
}

func (f *fakeVenue) OrderBook(_ context.Context, sym types.Symbol, _ int) (venue.OrderBook, error) {
	tick, ok := f.tickers[sym]
	if !ok {
		return venue.OrderBook{}, venue.WrapErr(f.id, "depth", errors.New("symbol not listed"))
	}
	return venue.OrderBook{Bids: []venue.BookLevel{{Price: tick.Bid, Size: f.size}}}, nil
}

func (f *fakeVenue) Fees() types.FeeSchedule { return types.FeeSchedule{} }

func (f *fakeVenue) Close() error { return nil }

type fakeP2PVenue struct{ fakeVenue }

func (f *fakeP2PVenue) P2PQuote(context.Context, string, string, decimal.Decimal) (types.P2PQuote, error) {
	return f.p2p, f.p2pErr
}

func tick(bid, ask string) venue.Ticker {
	return venue.Ticker{
		Bid: decimal.RequireFromString(bid),
		Ask: decimal.RequireFromString(ask),
	}
}

func newFake(id types.VenueID, bid, ask string) *fakeVenue {
	return &fakeVenue{
		id:      id,
		tickers: map[types.Symbol]venue.Ticker{"BTC/USDT": tick(bid, ask)},
		size:    decimal.NewFromInt(10),
	}
}

func newEngine(advisor SpreadAdvisor, hist HistorySink, gws ...venue.Gateway) *Engine {
	collector := snapshot.NewCollector(gws, time.Second, 5, zap.NewNop())
	return New(collector, advisor, hist, zap.NewNop())
}

type alwaysAdvisor struct{ answer bool }

func (a *alwaysAdvisor) IsProfitable(context.Context, types.PriceQuote) bool { return a.answer }

type recordingSink struct{ quotes []types.PriceQuote }

func (r *recordingSink) Append(_ context.Context, q types.PriceQuote) error {
	r.quotes = append(r.quotes, q)
	return nil
}

func TestEvaluateInterVenue_FindsSpread(t *testing.T) {
	eng := newEngine(nil, nil,
		newFake(types.VenueBinance, "100", "101"),
		newFake(types.VenueBybit, "103", "104"),
	)

	ops := eng.EvaluateInterVenue(context.Background(), "BTC/USDT", decimal.NewFromInt(1))

	require.Len(t, ops, 1)
	assert.Equal(t, types.VenueBinance, ops[0].BuyVenue)
	assert.Equal(t, types.VenueBybit, ops[0].SellVenue)
	assert.True(t, ops[0].Profit.Equal(decimal.NewFromInt(2)))
	assert.False(t, ops[0].Recommended)
}

func TestEvaluateInterVenue_AdvisorAnnotates(t *testing.T) {
	eng := newEngine(&alwaysAdvisor{answer: true}, nil,
		newFake(types.VenueBinance, "100", "101"),
		newFake(types.VenueBybit, "103", "104"),
	)

	ops := eng.EvaluateInterVenue(context.Background(), "BTC/USDT", decimal.NewFromInt(1))

	require.Len(t, ops, 1)
	assert.True(t, ops[0].Recommended)
}

func TestEvaluateInterVenue_FeedsHistory(t *testing.T) {
	sink := &recordingSink{}
	eng := newEngine(nil, sink,
		newFake(types.VenueBinance, "100", "101"),
		newFake(types.VenueBybit, "100", "101"),
	)

	eng.EvaluateInterVenue(context.Background(), "BTC/USDT", decimal.NewFromInt(1))

	require.Len(t, sink.quotes, 2)
	// fixed venue order regardless of map iteration
	assert.Equal(t, types.VenueBinance, sink.quotes[0].Venue)
	assert.Equal(t, types.VenueBybit, sink.quotes[1].Venue)
}

func TestEvaluateInterVenue_DeadVenueIgnored(t *testing.T) {
	dead := &fakeVenue{id: types.VenueOKX, tickers: nil, size: decimal.NewFromInt(10)}
	eng := newEngine(nil, nil,
		newFake(types.VenueBinance, "100", "101"),
		newFake(types.VenueBybit, "103", "104"),
		dead,
	)

	ops := eng.EvaluateInterVenue(context.Background(), "BTC/USDT", decimal.NewFromInt(1))

	require.Len(t, ops, 1)
}

func TestEvaluateInterVenue_ExpiredDeadlineDiscards(t *testing.T) {
	eng := newEngine(nil, nil,
		newFake(types.VenueBinance, "100", "101"),
		newFake(types.VenueBybit, "103", "104"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, eng.EvaluateInterVenue(ctx, "BTC/USDT", decimal.NewFromInt(1)))
}

func TestEvaluateTriangular_ClosedCycle(t *testing.T) {
	gw := &fakeVenue{
		id: types.VenueBinance,
		tickers: map[types.Symbol]venue.Ticker{
			"ETH/BTC":  tick("0.049", "0.05"),
			"ETH/USDT": tick("2000", "2001"),
			"BTC/USDT": tick("38990", "39000"),
		},
		size: decimal.NewFromInt(10),
	}
	eng := newEngine(nil, nil, gw)

	ops := eng.EvaluateTriangular(context.Background(), types.VenueBinance, []string{"BTC", "ETH", "USDT"})

	require.Len(t, ops, 1)
	assert.Equal(t, types.KindTriangular, ops[0].Kind)
	assert.InDelta(t, 2.5641, ops[0].ProfitPercent.InexactFloat64(), 0.0001)
}

func TestEvaluateTriangular_MissingLeg(t *testing.T) {
	gw := &fakeVenue{
		id: types.VenueBinance,
		tickers: map[types.Symbol]venue.Ticker{
			"ETH/BTC":  tick("0.049", "0.05"),
			"ETH/USDT": tick("2000", "2001"),
		},
		size: decimal.NewFromInt(10),
	}
	eng := newEngine(nil, nil, gw)

	ops := eng.EvaluateTriangular(context.Background(), types.VenueBinance, []string{"BTC", "ETH", "USDT"})

	assert.Empty(t, ops)
}

func TestEvaluateP2P_ComparesProviders(t *testing.T) {
	buyV := &fakeP2PVenue{fakeVenue: *newFake(types.VenueBinance, "100", "101")}
	buyV.fakeVenue.p2p = types.P2PQuote{
		Buy:  decimal.RequireFromString("40.0"),
		Sell: decimal.RequireFromString("40.2"),
	}
	sellV := &fakeP2PVenue{fakeVenue: *newFake(types.VenueBybit, "100", "101")}
	sellV.fakeVenue.p2p = types.P2PQuote{
		Buy:  decimal.RequireFromString("40.6"),
		Sell: decimal.RequireFromString("40.5"),
	}

	eng := newEngine(nil, nil, buyV, sellV)

	ops := eng.EvaluateP2P(context.Background(), "USDT", "UAH", decimal.NewFromInt(10000))

	require.Len(t, ops, 1)
	assert.Equal(t, types.KindPeerToPeer, ops[0].Kind)
	assert.True(t, ops[0].Profit.Equal(decimal.NewFromInt(5000)))
}

func TestEvaluateP2P_FailingProviderSkipped(t *testing.T) {
	broken := &fakeP2PVenue{fakeVenue: *newFake(types.VenueBinance, "100", "101")}
	broken.fakeVenue.p2pErr = errors.New("endpoint down")
	healthy := &fakeP2PVenue{fakeVenue: *newFake(types.VenueBybit, "100", "101")}
	healthy.fakeVenue.p2p = types.P2PQuote{
		Buy:  decimal.RequireFromString("40.0"),
		Sell: decimal.RequireFromString("40.5"),
	}

	eng := newEngine(nil, nil, broken, healthy)

	// Only one venue left: the ordered-pair comparison yields nothing.
	assert.Empty(t, eng.EvaluateP2P(context.Background(), "USDT", "UAH", decimal.NewFromInt(10000)))
}

func TestEvaluateP2P_NoProviders(t *testing.T) {
	eng := newEngine(nil, nil, newFake(types.VenueBinance, "100", "101"))

	assert.Empty(t, eng.EvaluateP2P(context.Background(), "USDT", "UAH", decimal.NewFromInt(10000)))
}
