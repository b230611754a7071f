// Package engine orchestrates one evaluation cycle per call: collect
// snapshots, run the profit models, rank, annotate with the spread
// predictor. Every call is stateless and idempotent given identical inputs,
// and degrades to an empty result instead of propagating venue failures.
package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	imetrics "github.com/WinneR641/crypto-arbitrage-bot/internal/metrics"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/profit"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/rank"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/snapshot"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/types"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/venue"
)

// SpreadAdvisor is the predictor contract the engine consumes. Its answer
// only flips the Recommended annotation, never inclusion.
type SpreadAdvisor interface {
	IsProfitable(ctx context.Context, current types.PriceQuote) bool
}

// HistorySink receives each cycle's fresh quotes for the predictor's store.
type HistorySink interface {
	Append(ctx context.Context, q types.PriceQuote) error
}

type Engine struct {
	collector *snapshot.Collector
	fees      map[types.VenueID]types.FeeSchedule
	p2p       map[types.VenueID]venue.P2PProvider
	advisor   SpreadAdvisor // optional
	hist      HistorySink   // optional
	log       *zap.Logger
}

func New(collector *snapshot.Collector, advisor SpreadAdvisor, hist HistorySink, log *zap.Logger) *Engine {
	fees := make(map[types.VenueID]types.FeeSchedule)
	p2p := make(map[types.VenueID]venue.P2PProvider)
	for _, gw := range collector.Venues() {
		fees[gw.ID()] = gw.Fees()
		if prov, ok := gw.(venue.P2PProvider); ok {
			p2p[gw.ID()] = prov
		}
	}
	return &Engine{
		collector: collector,
		fees:      fees,
		p2p:       p2p,
		advisor:   advisor,
		hist:      hist,
		log:       log,
	}
}

// EvaluateInterVenue runs one cross-venue cycle for symbol. Venues that fail
// to answer are simply absent; pervasive failure yields an empty list, which
// is indistinguishable from "nothing profitable" by design.
func (e *Engine) EvaluateInterVenue(ctx context.Context, symbol types.Symbol, amount decimal.Decimal) []types.Opportunity {
	defer observe(types.KindCrossVenue, time.Now())

	quotes, failures := e.collector.Collect(ctx, symbol)
	if len(failures) > 0 {
		e.log.Debug("inter-venue cycle with partial snapshot",
			zap.String("symbol", string(symbol)),
			zap.Int("venues_ok", len(quotes)),
			zap.Int("venues_failed", len(failures)),
		)
	}
	e.ingest(ctx, quotes)

	// A cycle past its deadline is abandoned wholesale rather than reported
	// from half a snapshot.
	if ctx.Err() != nil {
		return nil
	}

	ranked := rank.Rank(profit.CrossVenue(quotes, amount, e.fees))
	for i := range ranked {
		ranked[i].Recommended = e.recommend(ctx, quotes, ranked[i])
	}

	imetrics.OpportunitiesFound.WithLabelValues(string(types.KindCrossVenue)).Add(float64(len(ranked)))
	return ranked
}

// EvaluateTriangular runs the three-leg cycle for one venue. A missing leg
// quote yields an empty result, never an error.
func (e *Engine) EvaluateTriangular(ctx context.Context, venueID types.VenueID, assets []string) []types.Opportunity {
	defer observe(types.KindTriangular, time.Now())

	quotes, _ := e.collector.CollectVenue(ctx, venueID, legSymbols(assets))
	if ctx.Err() != nil {
		return nil
	}

	ops := profit.Triangular(venueID, quotes, assets, e.fees[venueID])
	imetrics.OpportunitiesFound.WithLabelValues(string(types.KindTriangular)).Add(float64(len(ops)))
	return rank.Rank(ops)
}

// EvaluateTriangularAll runs the cycle on every configured venue
// concurrently and merges the ranked result.
func (e *Engine) EvaluateTriangularAll(ctx context.Context, assets []string) []types.Opportunity {
	var (
		mu  sync.Mutex
		all []types.Opportunity
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, gw := range e.collector.Venues() {
		id := gw.ID()
		g.Go(func() error {
			ops := e.EvaluateTriangular(gctx, id, assets)
			mu.Lock()
			all = append(all, ops...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return rank.Rank(all)
}

// EvaluateP2P compares per-venue fiat buy/sell quotes. Only venues exposing
// a P2P feed participate; all reads are best-effort.
func (e *Engine) EvaluateP2P(ctx context.Context, crypto, fiat string, amount decimal.Decimal) []types.Opportunity {
	defer observe(types.KindPeerToPeer, time.Now())

	venues := make([]types.VenueID, 0, len(e.p2p))
	for id := range e.p2p {
		venues = append(venues, id)
	}
	sort.Slice(venues, func(i, j int) bool { return venues[i] < venues[j] })

	quotes := make(map[types.VenueID]types.P2PQuote, len(venues))
	for _, id := range venues {
		q, err := e.p2p[id].P2PQuote(ctx, crypto, fiat, amount)
		if err != nil {
			e.log.Warn("p2p quote unavailable", zap.String("venue", string(id)), zap.Error(err))
			continue
		}
		quotes[id] = q
	}
	if ctx.Err() != nil {
		return nil
	}

	ranked := rank.Rank(profit.PeerToPeer(quotes, amount))
	imetrics.OpportunitiesFound.WithLabelValues(string(types.KindPeerToPeer)).Add(float64(len(ranked)))
	return ranked
}

// recommend asks the advisor about both legs of a cross-venue opportunity.
func (e *Engine) recommend(ctx context.Context, quotes map[types.VenueID]types.PriceQuote, op types.Opportunity) bool {
	if e.advisor == nil {
		return false
	}
	if q, ok := quotes[op.BuyVenue]; ok && e.advisor.IsProfitable(ctx, q) {
		return true
	}
	if q, ok := quotes[op.SellVenue]; ok && e.advisor.IsProfitable(ctx, q) {
		return true
	}
	return false
}

// ingest feeds fresh quotes into the history sink, best-effort and in a
// fixed order. The engine never mutates the series itself.
func (e *Engine) ingest(ctx context.Context, quotes map[types.VenueID]types.PriceQuote) {
	if e.hist == nil {
		return
	}
	ids := make([]types.VenueID, 0, len(quotes))
	for id := range quotes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err := e.hist.Append(ctx, quotes[id]); err != nil {
			e.log.Debug("history append failed", zap.String("venue", string(id)), zap.Error(err))
		}
	}
}

// legSymbols lists both orientations of every hop in the cycle; the venue
// quotes whichever it lists, the profit model picks the right side.
func legSymbols(assets []string) []types.Symbol {
	if len(assets) != 3 {
		return nil
	}
	out := make([]types.Symbol, 0, 6)
	for i := range assets {
		from, to := assets[i], assets[(i+1)%3]
		out = append(out, types.Symbol(from+"/"+to), types.Symbol(to+"/"+from))
	}
	return out
}

func observe(kind types.Kind, start time.Time) {
	imetrics.CyclesTotal.WithLabelValues(string(kind)).Inc()
	imetrics.CycleLatency.Observe(time.Since(start).Seconds())
}
