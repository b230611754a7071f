package venue

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/WinneR641/crypto-arbitrage-bot/internal/config"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/types"
)

// Ticker is a venue's current top of book.
type Ticker struct {
	Bid decimal.Decimal
	Ask decimal.Decimal
}

// BookLevel is one price level of an order book.
type BookLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// OrderBook holds the best levels of both sides, best price first.
type OrderBook struct {
	Bids []BookLevel
	Asks []BookLevel
}

// BidLiquidity sums the size of up to depth bid levels.
func (b OrderBook) BidLiquidity(depth int) decimal.Decimal {
	sum := decimal.Zero
	for i, lvl := range b.Bids {
		if i >= depth {
			break
		}
		sum = sum.Add(lvl.Size)
	}
	return sum
}

// Gateway is the per-venue adapter the scanner reads prices through. Any
// call may fail with a transient network or rate-limit error; callers must
// treat every failure as "venue unavailable this cycle".
type Gateway interface {
	ID() types.VenueID
	Ticker(ctx context.Context, symbol types.Symbol) (Ticker, error)
	OrderBook(ctx context.Context, symbol types.Symbol, depth int) (OrderBook, error)
	Fees() types.FeeSchedule
	Close() error
}

// P2PProvider is implemented by gateways that expose a peer-to-peer
// order-book feed. Only the reference venue is assumed reliable; the rest
// are best-effort.
type P2PProvider interface {
	P2PQuote(ctx context.Context, crypto, fiat string, amount decimal.Decimal) (types.P2PQuote, error)
}

// Error marks a gateway call failure. It is always non-fatal: the venue is
// skipped for the current cycle and retried on the next one.
type Error struct {
	Venue types.VenueID
	Op    string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("venue %s: %s: %v", e.Venue, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// WrapErr annotates err with the venue and operation it came from.
func WrapErr(venue types.VenueID, op string, err error) error {
	return &Error{Venue: venue, Op: op, Err: err}
}

// FeesFromConfig converts a config fee block into the decimal schedule used
// by the profit model.
func FeesFromConfig(cfg config.FeeCfg) types.FeeSchedule {
	fs := types.FeeSchedule{
		MakerRate: decimal.NewFromFloat(cfg.MakerRate),
		TakerRate: decimal.NewFromFloat(cfg.TakerRate),
	}
	if len(cfg.WithdrawalByAsset) > 0 {
		fs.WithdrawalByAsset = make(map[string]decimal.Decimal, len(cfg.WithdrawalByAsset))
		for asset, fee := range cfg.WithdrawalByAsset {
			fs.WithdrawalByAsset[asset] = decimal.NewFromFloat(fee)
		}
	}
	return fs
}
