package rank

import (
	"sort"

	"github.com/WinneR641/crypto-arbitrage-bot/internal/types"
)

// Rank returns the opportunities ordered strictly descending by profit
// percent. The sort is stable so equal entries keep their input order, which
// keeps results deterministic. The input slice is not modified.
func Rank(ops []types.Opportunity) []types.Opportunity {
	out := make([]types.Opportunity, len(ops))
	copy(out, ops)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ProfitPercent.GreaterThan(out[j].ProfitPercent)
	})
	return out
}

// Top truncates a ranked list to a reporting window. Truncation lives here
// at the consumption boundary, not inside Rank, so the ranker stays reusable
// across strategies.
func Top(ops []types.Opportunity, n int) []types.Opportunity {
	if n < 0 {
		n = 0
	}
	if len(ops) <= n {
		return ops
	}
	return ops[:n]
}
