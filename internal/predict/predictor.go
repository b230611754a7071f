// Package predict forecasts near-future spread movement from the stored
// quote series. Its output is an advisory gate: callers annotate
// opportunities with it but never drop them because of it.
package predict

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/WinneR641/crypto-arbitrage-bot/internal/types"
)

var (
	// ErrInsufficientData means the series has fewer samples than the
	// configured minimum. Non-fatal: the opportunity is just not recommended.
	ErrInsufficientData = errors.New("predict: insufficient history")

	// ErrPoorFit means the model's goodness of fit fell below the threshold.
	ErrPoorFit = errors.New("predict: fit quality below threshold")
)

type Config struct {
	MinSamples  int
	MinR2       float64
	WidenFactor float64
}

// Source is the series reader the predictor trains from; *history.Store
// satisfies it.
type Source interface {
	Series(ctx context.Context, venue types.VenueID, symbol types.Symbol) ([]types.PriceQuote, error)
}

type Predictor struct {
	src Source
	cfg Config
	log *zap.Logger
}

func New(src Source, cfg Config, log *zap.Logger) *Predictor {
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = 100
	}
	if cfg.MinR2 <= 0 {
		cfg.MinR2 = 0.5
	}
	if cfg.WidenFactor <= 0 {
		cfg.WidenFactor = 1.1
	}
	return &Predictor{src: src, cfg: cfg, log: log}
}

// Predict fits a least-squares regression of next spread on current spread
// over the stored series and applies it to the live quote. It returns
// ErrInsufficientData or ErrPoorFit when no usable prediction exists.
func (p *Predictor) Predict(ctx context.Context, current types.PriceQuote) (types.SpreadPrediction, error) {
	series, err := p.src.Series(ctx, current.Venue, current.Symbol)
	if err != nil {
		return types.SpreadPrediction{}, fmt.Errorf("predict: %w", err)
	}
	if len(series) < p.cfg.MinSamples {
		return types.SpreadPrediction{}, fmt.Errorf("%w: have %d, need %d",
			ErrInsufficientData, len(series), p.cfg.MinSamples)
	}

	spreads := make([]float64, len(series))
	for i, q := range series {
		spreads[i] = q.Spread().InexactFloat64()
	}
	xs := spreads[:len(spreads)-1]
	ys := spreads[1:]

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	r2 := stat.RSquared(xs, ys, nil, alpha, beta)
	if math.IsNaN(r2) || math.IsInf(r2, 0) || r2 < p.cfg.MinR2 {
		return types.SpreadPrediction{}, fmt.Errorf("%w: r2=%.3f", ErrPoorFit, r2)
	}

	basis := current.Spread()
	predicted := alpha + beta*basis.InexactFloat64()
	p.log.Debug("spread prediction",
		zap.String("venue", string(current.Venue)),
		zap.String("symbol", string(current.Symbol)),
		zap.Float64("r2", r2),
		zap.Float64("predicted", predicted),
	)

	return types.SpreadPrediction{
		Venue:     current.Venue,
		Symbol:    current.Symbol,
		Predicted: decimal.NewFromFloat(predicted),
		Basis:     basis,
	}, nil
}

// IsProfitable reports whether a usable prediction exists and forecasts the
// spread widening beyond the configured factor. Any prediction failure is
// simply "not recommended".
func (p *Predictor) IsProfitable(ctx context.Context, current types.PriceQuote) bool {
	sp, err := p.Predict(ctx, current)
	if err != nil {
		return false
	}
	widen := decimal.NewFromFloat(p.cfg.WidenFactor)
	return sp.Predicted.GreaterThan(sp.Basis.Mul(widen))
}
