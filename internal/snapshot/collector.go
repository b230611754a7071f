package snapshot

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	imetrics "github.com/WinneR641/crypto-arbitrage-bot/internal/metrics"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/types"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/venue"
)

// Failure records a venue that could not be sampled this cycle. Failures are
// diagnostics, never fatal: the snapshot map simply omits the venue.
type Failure struct {
	Venue types.VenueID
	Err   error
}

// Collector fans reads out across all configured venues for one symbol and
// merges the results by venue. One slow or broken venue must cost at most
// `timeout`, not the whole cycle.
type Collector struct {
	venues  []venue.Gateway
	timeout time.Duration
	depth   int
	log     *zap.Logger
}

func NewCollector(venues []venue.Gateway, timeout time.Duration, depth int, log *zap.Logger) *Collector {
	if depth <= 0 {
		depth = 5
	}
	return &Collector{venues: venues, timeout: timeout, depth: depth, log: log}
}

// Collect samples the ticker and the bid side of the order book on every
// venue concurrently. No retries: the caller schedules the next cycle.
func (c *Collector) Collect(ctx context.Context, symbol types.Symbol) (map[types.VenueID]types.PriceQuote, []Failure) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		quotes   = make(map[types.VenueID]types.PriceQuote, len(c.venues))
		failures []Failure
	)

	for _, gw := range c.venues {
		gw := gw
		wg.Add(1)
		go func() {
			defer wg.Done()

			vctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			quote, err := c.sample(vctx, gw, symbol)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, Failure{Venue: gw.ID(), Err: err})
				imetrics.VenueFailures.WithLabelValues(string(gw.ID())).Inc()
				c.log.Warn("snapshot: venue excluded from cycle",
					zap.String("venue", string(gw.ID())),
					zap.String("symbol", string(symbol)),
					zap.Error(err),
				)
				return
			}
			quotes[gw.ID()] = quote
		}()
	}
	wg.Wait()

	imetrics.SnapshotVenues.Set(float64(len(quotes)))
	return quotes, failures
}

// sample requests the ticker and the order book concurrently and merges them
// into one quote.
func (c *Collector) sample(ctx context.Context, gw venue.Gateway, symbol types.Symbol) (types.PriceQuote, error) {
	var (
		tick venue.Ticker
		book venue.OrderBook
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := gw.Ticker(gctx, symbol)
		if err != nil {
			return err
		}
		tick = t
		return nil
	})
	g.Go(func() error {
		b, err := gw.OrderBook(gctx, symbol, c.depth)
		if err != nil {
			return err
		}
		book = b
		return nil
	})
	if err := g.Wait(); err != nil {
		return types.PriceQuote{}, err
	}

	quote := types.PriceQuote{
		Venue:        gw.ID(),
		Symbol:       symbol,
		Bid:          tick.Bid,
		Ask:          tick.Ask,
		BidLiquidity: book.BidLiquidity(c.depth),
		SampledAt:    time.Now(),
	}
	if !quote.Valid() {
		return types.PriceQuote{}, venue.WrapErr(gw.ID(), "sample",
			errInvalidQuote{bid: tick.Bid.String(), ask: tick.Ask.String()})
	}
	return quote, nil
}

// CollectVenue samples several symbols on one venue concurrently, ticker
// only — the triangular model needs prices for each leg, not liquidity.
// Missing symbols are simply absent from the result.
func (c *Collector) CollectVenue(ctx context.Context, id types.VenueID, symbols []types.Symbol) (map[types.Symbol]types.PriceQuote, []Failure) {
	gw := c.gateway(id)
	if gw == nil {
		return nil, []Failure{{Venue: id, Err: errUnknownVenue(id)}}
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		quotes   = make(map[types.Symbol]types.PriceQuote, len(symbols))
		failures []Failure
	)

	for _, sym := range symbols {
		sym := sym
		wg.Add(1)
		go func() {
			defer wg.Done()

			vctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			tick, err := gw.Ticker(vctx, sym)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, Failure{Venue: id, Err: err})
				imetrics.VenueFailures.WithLabelValues(string(id)).Inc()
				return
			}
			quote := types.PriceQuote{
				Venue:     id,
				Symbol:    sym,
				Bid:       tick.Bid,
				Ask:       tick.Ask,
				SampledAt: time.Now(),
			}
			if !quote.Valid() {
				failures = append(failures, Failure{Venue: id, Err: venue.WrapErr(id, "ticker",
					errInvalidQuote{bid: tick.Bid.String(), ask: tick.Ask.String()})})
				return
			}
			quotes[sym] = quote
		}()
	}
	wg.Wait()

	return quotes, failures
}

// Venues exposes the gateway set, in the collector's fixed order.
func (c *Collector) Venues() []venue.Gateway { return c.venues }

func (c *Collector) gateway(id types.VenueID) venue.Gateway {
	for _, gw := range c.venues {
		if gw.ID() == id {
			return gw
		}
	}
	return nil
}

type errInvalidQuote struct{ bid, ask string }

func (e errInvalidQuote) Error() string {
	return "invalid quote: bid=" + e.bid + " ask=" + e.ask
}

type errUnknownVenue types.VenueID

func (e errUnknownVenue) Error() string {
	return "unknown venue " + string(e)
}
