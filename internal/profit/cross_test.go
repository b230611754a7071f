package profit

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WinneR641/crypto-arbitrage-bot/internal/types"
)

func quote(v types.VenueID, bid, ask, liquidity string) types.PriceQuote {
	return types.PriceQuote{
		Venue:        v,
		Symbol:       "BTC/USDT",
		Bid:          decimal.RequireFromString(bid),
		Ask:          decimal.RequireFromString(ask),
		BidLiquidity: decimal.RequireFromString(liquidity),
	}
}

func zeroFees(venues ...types.VenueID) map[types.VenueID]types.FeeSchedule {
	out := make(map[types.VenueID]types.FeeSchedule, len(venues))
	for _, v := range venues {
		out[v] = types.FeeSchedule{}
	}
	return out
}

func TestCrossVenue_SpreadAcrossVenues(t *testing.T) {
	snap := map[types.VenueID]types.PriceQuote{
		types.VenueBinance: quote(types.VenueBinance, "100", "101", "10"),
		types.VenueBybit:   quote(types.VenueBybit, "103", "104", "10"),
	}

	ops := CrossVenue(snap, decimal.NewFromInt(1), zeroFees(types.VenueBinance, types.VenueBybit))

	require.Len(t, ops, 1)
	op := ops[0]
	assert.Equal(t, types.KindCrossVenue, op.Kind)
	assert.Equal(t, types.VenueBinance, op.BuyVenue)
	assert.Equal(t, types.VenueBybit, op.SellVenue)
	assert.True(t, op.Profit.Equal(decimal.NewFromInt(2)), "profit = %s", op.Profit)
	assert.InDelta(t, 1.9802, op.ProfitPercent.InexactFloat64(), 0.0001)
}

func TestCrossVenue_IdenticalQuotesNoOpportunity(t *testing.T) {
	snap := map[types.VenueID]types.PriceQuote{
		types.VenueBinance: quote(types.VenueBinance, "100", "101", "10"),
		types.VenueBybit:   quote(types.VenueBybit, "100", "101", "10"),
		types.VenueOKX:     quote(types.VenueOKX, "100", "101", "10"),
	}

	ops := CrossVenue(snap, decimal.NewFromInt(1),
		zeroFees(types.VenueBinance, types.VenueBybit, types.VenueOKX))

	assert.Empty(t, ops)
}

func TestCrossVenue_FeeAccounting(t *testing.T) {
	snap := map[types.VenueID]types.PriceQuote{
		types.VenueBinance: quote(types.VenueBinance, "99", "100", "10"),
		types.VenueBybit:   quote(types.VenueBybit, "102", "103", "10"),
	}
	fees := map[types.VenueID]types.FeeSchedule{
		types.VenueBinance: {
			TakerRate:         decimal.RequireFromString("0.001"),
			WithdrawalByAsset: map[string]decimal.Decimal{"BTC": decimal.RequireFromString("0.0005")},
		},
		types.VenueBybit: {TakerRate: decimal.RequireFromString("0.001")},
	}

	ops := CrossVenue(snap, decimal.NewFromInt(1), fees)

	// buy: 100 + 0.1 taker + 0.0005 withdrawal = 100.1005
	// sell: 102 - 0.102 taker = 101.898
	require.Len(t, ops, 1)
	assert.True(t, ops[0].Profit.Equal(decimal.RequireFromString("1.7975")),
		"profit = %s", ops[0].Profit)
	assert.True(t, ops[0].ProfitPercent.Equal(decimal.RequireFromString("1.7975")),
		"percent = %s", ops[0].ProfitPercent)
}

func TestCrossVenue_FeesEraseGrossEdge(t *testing.T) {
	snap := map[types.VenueID]types.PriceQuote{
		types.VenueBinance: quote(types.VenueBinance, "100", "100.01", "10"),
		types.VenueBybit:   quote(types.VenueBybit, "100.05", "100.06", "10"),
	}
	fees := map[types.VenueID]types.FeeSchedule{
		types.VenueBinance: {TakerRate: decimal.RequireFromString("0.001")},
		types.VenueBybit:   {TakerRate: decimal.RequireFromString("0.001")},
	}

	assert.Empty(t, CrossVenue(snap, decimal.NewFromInt(1), fees))
}

func TestCrossVenue_InsufficientLiquiditySkipsBuyVenue(t *testing.T) {
	snap := map[types.VenueID]types.PriceQuote{
		types.VenueBinance: quote(types.VenueBinance, "100", "101", "1"),
		types.VenueBybit:   quote(types.VenueBybit, "103", "104", "0.5"),
	}

	// binance liquidity equals the amount and the filter is strict.
	ops := CrossVenue(snap, decimal.NewFromInt(1), zeroFees(types.VenueBinance, types.VenueBybit))

	assert.Empty(t, ops)
}

func TestCrossVenue_SingleVenueNoSelfPair(t *testing.T) {
	snap := map[types.VenueID]types.PriceQuote{
		types.VenueBinance: quote(types.VenueBinance, "100", "101", "10"),
	}

	assert.Empty(t, CrossVenue(snap, decimal.NewFromInt(1), zeroFees(types.VenueBinance)))
}

func TestCrossVenue_NonPositiveAmount(t *testing.T) {
	snap := map[types.VenueID]types.PriceQuote{
		types.VenueBinance: quote(types.VenueBinance, "100", "101", "10"),
		types.VenueBybit:   quote(types.VenueBybit, "103", "104", "10"),
	}

	assert.Empty(t, CrossVenue(snap, decimal.Zero, zeroFees(types.VenueBinance, types.VenueBybit)))
}
