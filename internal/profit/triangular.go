package profit

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/WinneR641/crypto-arbitrage-bot/internal/types"
)

// Triangular evaluates one closed three-asset conversion cycle on a single
// venue, e.g. assets [BTC, ETH, USDT] meaning BTC -> ETH -> USDT -> BTC.
//
// Every leg keeps the running amount in a single unit of account: selling
// the base side converts at bid, buying converts at ask, and the venue's
// taker fee is taken out of each leg's output. Profit is the final amount of
// the starting asset minus the starting notional of 1.
//
// A missing or invalid quote for any leg makes the cycle unevaluable and the
// result is empty — a partial cycle is not an error, just no opportunity.
func Triangular(venueID types.VenueID, quotes map[types.Symbol]types.PriceQuote, assets []string, fee types.FeeSchedule) []types.Opportunity {
	if len(assets) != 3 {
		return nil
	}

	one := decimal.NewFromInt(1)
	amt := one
	path := make([]types.Symbol, 0, 3)

	for i := range assets {
		from, to := assets[i], assets[(i+1)%3]
		next, sym, ok := convert(amt, from, to, quotes, fee.TakerRate)
		if !ok {
			return nil
		}
		amt = next
		path = append(path, sym)
	}

	net := amt.Sub(one)
	pct := net.Mul(hundred)
	if !pct.IsPositive() {
		return nil
	}

	return []types.Opportunity{{
		Kind:          types.KindTriangular,
		Venue:         venueID,
		Path:          path,
		Profit:        net,
		ProfitPercent: pct,
		Ts:            time.Now(),
	}}
}

// convert moves amt of asset `from` into asset `to` using whichever pair the
// venue quotes. Holding the base of FROM/TO means selling at bid; holding
// the quote of TO/FROM means buying at ask.
func convert(amt decimal.Decimal, from, to string, quotes map[types.Symbol]types.PriceQuote, taker decimal.Decimal) (decimal.Decimal, types.Symbol, bool) {
	if q, ok := quotes[types.Symbol(from+"/"+to)]; ok && q.Valid() {
		out := amt.Mul(q.Bid)
		return out.Sub(out.Mul(taker)), q.Symbol, true
	}
	if q, ok := quotes[types.Symbol(to+"/"+from)]; ok && q.Valid() {
		out := amt.Div(q.Ask)
		return out.Sub(out.Mul(taker)), q.Symbol, true
	}
	return decimal.Zero, "", false
}
