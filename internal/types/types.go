package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// VenueID identifies a configured trading venue ("binance", "bybit", ...).
type VenueID string

const (
	VenueBinance VenueID = "binance"
	VenueBybit   VenueID = "bybit"
	VenueOKX     VenueID = "okx"
)

// Symbol is a base/quote trading pair in "BASE/QUOTE" form, e.g. "BTC/USDT".
type Symbol string

func ParseSymbol(s string) (Symbol, error) {
	base, quote, ok := strings.Cut(s, "/")
	if !ok || base == "" || quote == "" {
		return "", fmt.Errorf("malformed symbol %q, want BASE/QUOTE", s)
	}
	return Symbol(strings.ToUpper(base) + "/" + strings.ToUpper(quote)), nil
}

func (s Symbol) Base() string {
	base, _, _ := strings.Cut(string(s), "/")
	return base
}

func (s Symbol) Quote() string {
	_, quote, _ := strings.Cut(string(s), "/")
	return quote
}

// Compact returns the pair without the separator ("BTCUSDT"), the form most
// spot REST APIs expect.
func (s Symbol) Compact() string {
	return strings.ReplaceAll(string(s), "/", "")
}

// PriceQuote is a top-of-book sample from one venue. BidLiquidity is the
// summed size over the top bid levels and is a fill-feasibility proxy, not an
// execution guarantee.
type PriceQuote struct {
	Venue        VenueID         `json:"venue"`
	Symbol       Symbol          `json:"symbol"`
	Bid          decimal.Decimal `json:"bid"`
	Ask          decimal.Decimal `json:"ask"`
	BidLiquidity decimal.Decimal `json:"bid_liquidity"`
	SampledAt    time.Time       `json:"sampled_at"`
}

func (q PriceQuote) Spread() decimal.Decimal {
	return q.Ask.Sub(q.Bid)
}

// Valid reports whether the quote satisfies ask >= bid > 0.
func (q PriceQuote) Valid() bool {
	return q.Bid.IsPositive() && q.Ask.GreaterThanOrEqual(q.Bid)
}

// FeeSchedule is a venue's fee model: maker/taker as fractions (0.001 = 10
// bps), withdrawal fees as absolute amounts per asset.
type FeeSchedule struct {
	MakerRate         decimal.Decimal
	TakerRate         decimal.Decimal
	WithdrawalByAsset map[string]decimal.Decimal
}

// Withdrawal returns the flat withdrawal fee for asset, zero when unknown.
func (f FeeSchedule) Withdrawal(asset string) decimal.Decimal {
	if fee, ok := f.WithdrawalByAsset[strings.ToUpper(asset)]; ok {
		return fee
	}
	return decimal.Zero
}

// P2PQuote is a fiat buy/sell price pair from a peer-to-peer order-book feed.
type P2PQuote struct {
	Buy  decimal.Decimal
	Sell decimal.Decimal
}

// Kind tags the strategy an Opportunity came from.
type Kind string

const (
	KindCrossVenue Kind = "CROSS_VENUE"
	KindTriangular Kind = "TRIANGULAR"
	KindPeerToPeer Kind = "P2P"
)

// Opportunity is one profitable trade the scanner found. Which fields are
// set depends on Kind: cross-venue and P2P fill the buy/sell pair, triangular
// fills Venue and Path. Profit and ProfitPercent are always net of modeled
// fees and strictly positive for any emitted value.
type Opportunity struct {
	Kind Kind

	// CrossVenue / PeerToPeer
	BuyVenue  VenueID
	SellVenue VenueID
	BuyPrice  decimal.Decimal
	SellPrice decimal.Decimal

	// Triangular
	Venue VenueID
	Path  []Symbol

	Profit        decimal.Decimal
	ProfitPercent decimal.Decimal

	// Recommended is the predictor's advisory annotation. It never decides
	// inclusion, only how the opportunity is presented.
	Recommended bool

	Ts time.Time
}

// SpreadPrediction is the predictor's forecast of the forward spread for one
// (venue, symbol), together with the spread it was computed against.
type SpreadPrediction struct {
	Venue     VenueID
	Symbol    Symbol
	Predicted decimal.Decimal
	Basis     decimal.Decimal
}
