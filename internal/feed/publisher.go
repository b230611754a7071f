// Package feed publishes scored opportunities to a Redis stream so external
// consumers (dashboards, alerting) can tail the scanner without touching it.
package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/WinneR641/crypto-arbitrage-bot/internal/types"
)

type Publisher struct {
	rdb    *redis.Client
	stream string
	maxLen int64
}

func NewPublisher(rdb *redis.Client, stream string, maxLen int64) *Publisher {
	if stream == "" {
		stream = "arb:opportunities"
	}
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &Publisher{rdb: rdb, stream: stream, maxLen: maxLen}
}

// Publish appends each opportunity as one stream entry with flat fields.
// The stream is trimmed approximately so a dead consumer cannot grow it
// without bound.
func (p *Publisher) Publish(ctx context.Context, ops []types.Opportunity) error {
	for _, op := range ops {
		fields := map[string]interface{}{
			"kind":           string(op.Kind),
			"profit":         op.Profit.String(),
			"profit_percent": op.ProfitPercent.String(),
			"recommended":    op.Recommended,
			"ts_ms":          op.Ts.UnixMilli(),
		}
		switch op.Kind {
		case types.KindTriangular:
			fields["venue"] = string(op.Venue)
			fields["path"] = joinPath(op.Path)
		default:
			fields["buy_venue"] = string(op.BuyVenue)
			fields["sell_venue"] = string(op.SellVenue)
			fields["buy_price"] = op.BuyPrice.String()
			fields["sell_price"] = op.SellPrice.String()
		}
		err := p.rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: p.stream,
			MaxLen: p.maxLen,
			Approx: true,
			Values: fields,
		}).Err()
		if err != nil {
			return fmt.Errorf("feed: publish to %s: %w", p.stream, err)
		}
	}
	return nil
}

func joinPath(path []types.Symbol) string {
	parts := make([]string, len(path))
	for i, s := range path {
		parts[i] = string(s)
	}
	return strings.Join(parts, ">")
}
