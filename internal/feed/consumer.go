package feed

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/WinneR641/crypto-arbitrage-bot/internal/types"
)

// Record is one published opportunity read back from the stream, with the
// stream entry ID attached for resuming.
type Record struct {
	StreamID    string
	Opportunity types.Opportunity
}

// Consumer tails the opportunities stream. It is the read side of Publisher,
// used by the feedtail tool and anything else that follows the scanner from
// outside the process.
type Consumer struct {
	rdb    *redis.Client
	stream string
}

func NewConsumer(rdb *redis.Client, stream string) *Consumer {
	if stream == "" {
		stream = "arb:opportunities"
	}
	return &Consumer{rdb: rdb, stream: stream}
}

// Read blocks for up to block waiting for entries after lastID. Use "0" to
// start from the beginning and "$" for new entries only. It returns the
// decoded records and the ID to resume from; a timeout returns both empty.
func (c *Consumer) Read(ctx context.Context, lastID string, count int64, block time.Duration) ([]Record, string, error) {
	if lastID == "" {
		lastID = "$"
	}
	res, err := c.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{c.stream, lastID},
		Count:   count,
		Block:   block,
	}).Result()
	if err == redis.Nil {
		return nil, lastID, nil
	}
	if err != nil {
		return nil, lastID, err
	}

	var out []Record
	for _, stream := range res {
		for _, msg := range stream.Messages {
			out = append(out, Record{
				StreamID:    msg.ID,
				Opportunity: decodeFields(msg.Values),
			})
			lastID = msg.ID
		}
	}
	return out, lastID, nil
}

func decodeFields(v map[string]interface{}) types.Opportunity {
	op := types.Opportunity{
		Kind:          types.Kind(str(v, "kind")),
		BuyVenue:      types.VenueID(str(v, "buy_venue")),
		SellVenue:     types.VenueID(str(v, "sell_venue")),
		Venue:         types.VenueID(str(v, "venue")),
		BuyPrice:      dec(v, "buy_price"),
		SellPrice:     dec(v, "sell_price"),
		Profit:        dec(v, "profit"),
		ProfitPercent: dec(v, "profit_percent"),
		Recommended:   str(v, "recommended") == "true" || str(v, "recommended") == "1",
	}
	if p := str(v, "path"); p != "" {
		for _, leg := range strings.Split(p, ">") {
			op.Path = append(op.Path, types.Symbol(leg))
		}
	}
	if ms, err := strconv.ParseInt(str(v, "ts_ms"), 10, 64); err == nil {
		op.Ts = time.UnixMilli(ms)
	}
	return op
}

func str(v map[string]interface{}, key string) string {
	s, _ := v[key].(string)
	return s
}

func dec(v map[string]interface{}, key string) decimal.Decimal {
	d, err := decimal.NewFromString(str(v, key))
	if err != nil {
		return decimal.Zero
	}
	return d
}
