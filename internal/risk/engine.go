package risk

import (
	"github.com/shopspring/decimal"

	"github.com/WinneR641/crypto-arbitrage-bot/internal/types"
)

// Engine gates which opportunities are worth pushing to subscribers. It only
// filters notifications, never the scan results themselves.
type Engine struct {
	minPercent decimal.Decimal
}

func NewEngine(minPercent float64) *Engine {
	return &Engine{minPercent: decimal.NewFromFloat(minPercent)}
}

// ShouldNotify reports whether the opportunity clears the notification
// threshold. The comparison is strict: exactly-at-threshold stays quiet.
func (e *Engine) ShouldNotify(op types.Opportunity) bool {
	return op.ProfitPercent.GreaterThan(e.minPercent)
}

// FilterNotify keeps only the opportunities worth a push, preserving order.
func (e *Engine) FilterNotify(ops []types.Opportunity) []types.Opportunity {
	out := make([]types.Opportunity, 0, len(ops))
	for _, op := range ops {
		if e.ShouldNotify(op) {
			out = append(out, op)
		}
	}
	return out
}
