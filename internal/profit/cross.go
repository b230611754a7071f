// Package profit holds the fee- and liquidity-adjusted profitability models.
// All functions are pure: they see only point-in-time snapshots and emit
// opportunities with strictly positive net profit percent.
package profit

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/WinneR641/crypto-arbitrage-bot/internal/types"
)

var hundred = decimal.NewFromInt(100)

// CrossVenue evaluates every ordered (buy, sell) venue pair in the snapshot.
//
// Fee accounting is asymmetric on purpose: the buy side pays taker plus the
// withdrawal fee for moving the asset off the venue, the sell side pays
// taker only. A buy venue whose bid-side liquidity does not exceed amount is
// skipped — the top-of-book price could not actually fill the trade.
func CrossVenue(snapshot map[types.VenueID]types.PriceQuote, amount decimal.Decimal, fees map[types.VenueID]types.FeeSchedule) []types.Opportunity {
	if !amount.IsPositive() {
		return nil
	}

	venues := sortedVenues(snapshot)
	var ops []types.Opportunity
	for _, buy := range venues {
		buyQ := snapshot[buy]
		if !buyQ.Valid() || !buyQ.BidLiquidity.GreaterThan(amount) {
			continue
		}
		for _, sell := range venues {
			if buy == sell {
				continue
			}
			sellQ := snapshot[sell]
			if !sellQ.Valid() {
				continue
			}

			notional := buyQ.Ask.Mul(amount)
			buyCost := notional.
				Add(notional.Mul(fees[buy].TakerRate)).
				Add(fees[buy].Withdrawal(buyQ.Symbol.Base()))

			gross := sellQ.Bid.Mul(amount)
			sellProceeds := gross.Sub(gross.Mul(fees[sell].TakerRate))

			net := sellProceeds.Sub(buyCost)
			pct := net.Div(notional).Mul(hundred)
			if !pct.IsPositive() {
				continue
			}

			ops = append(ops, types.Opportunity{
				Kind:          types.KindCrossVenue,
				BuyVenue:      buy,
				SellVenue:     sell,
				BuyPrice:      buyQ.Ask,
				SellPrice:     sellQ.Bid,
				Profit:        net,
				ProfitPercent: pct,
				Ts:            time.Now(),
			})
		}
	}
	return ops
}

// sortedVenues fixes the pair iteration order so identical snapshots always
// produce identically ordered output.
func sortedVenues(snapshot map[types.VenueID]types.PriceQuote) []types.VenueID {
	out := make([]types.VenueID, 0, len(snapshot))
	for v := range snapshot {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
