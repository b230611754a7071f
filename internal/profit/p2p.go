package profit

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/WinneR641/crypto-arbitrage-bot/internal/types"
)

// PeerToPeer evaluates fiat spread arbitrage over per-venue buy/sell quotes.
// No trading fees are modeled: peer-to-peer settlement is fee-free at the
// reference layer, and that simplification is kept rather than silently
// "fixed". With a single populated venue the ordered-pair loop produces no
// opportunities by construction.
func PeerToPeer(quotes map[types.VenueID]types.P2PQuote, amount decimal.Decimal) []types.Opportunity {
	if !amount.IsPositive() {
		return nil
	}

	venues := make([]types.VenueID, 0, len(quotes))
	for v := range quotes {
		venues = append(venues, v)
	}
	sort.Slice(venues, func(i, j int) bool { return venues[i] < venues[j] })

	var ops []types.Opportunity
	for _, buy := range venues {
		buyP := quotes[buy].Buy
		if !buyP.IsPositive() {
			continue
		}
		for _, sell := range venues {
			if buy == sell {
				continue
			}
			sellP := quotes[sell].Sell
			if !sellP.IsPositive() {
				continue
			}

			spent := buyP.Mul(amount)
			net := sellP.Mul(amount).Sub(spent)
			pct := net.Div(spent).Mul(hundred)
			if !pct.IsPositive() {
				continue
			}

			ops = append(ops, types.Opportunity{
				Kind:          types.KindPeerToPeer,
				BuyVenue:      buy,
				SellVenue:     sell,
				BuyPrice:      buyP,
				SellPrice:     sellP,
				Profit:        net,
				ProfitPercent: pct,
				Ts:            time.Now(),
			})
		}
	}
	return ops
}
