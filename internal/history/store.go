// Package history keeps the per-(venue, symbol) quote series the spread
// predictor trains on. The series is append-only from the engine's point of
// view and capped, oldest first out.
package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/WinneR641/crypto-arbitrage-bot/internal/types"
)

const keyNS = "quotes:"

type Store struct {
	rdb *redis.Client
	cap int64
}

// New builds a store over an existing Redis client. cap bounds each series;
// values below 1 fall back to 5000.
func New(rdb *redis.Client, cap int) *Store {
	if cap < 1 {
		cap = 5000
	}
	return &Store{rdb: rdb, cap: int64(cap)}
}

func key(venue types.VenueID, symbol types.Symbol) string {
	return keyNS + string(venue) + ":" + symbol.Compact()
}

// Append records one quote at the tail of its series and trims the head to
// the configured cap.
func (s *Store) Append(ctx context.Context, q types.PriceQuote) error {
	b, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("history: marshal quote: %w", err)
	}
	k := key(q.Venue, q.Symbol)
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, k, b)
	pipe.LTrim(ctx, k, -s.cap, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("history: append %s: %w", k, err)
	}
	return nil
}

// Series returns the whole stored series, oldest first. Entries that fail to
// decode are skipped — one corrupt record must not poison the predictor.
func (s *Store) Series(ctx context.Context, venue types.VenueID, symbol types.Symbol) ([]types.PriceQuote, error) {
	raw, err := s.rdb.LRange(ctx, key(venue, symbol), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("history: read %s %s: %w", venue, symbol, err)
	}
	out := make([]types.PriceQuote, 0, len(raw))
	for _, item := range raw {
		var q types.PriceQuote
		if err := json.Unmarshal([]byte(item), &q); err != nil {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

// Len reports the stored sample count for one series.
func (s *Store) Len(ctx context.Context, venue types.VenueID, symbol types.Symbol) (int64, error) {
	n, err := s.rdb.LLen(ctx, key(venue, symbol)).Result()
	if err != nil {
		return 0, fmt.Errorf("history: len %s %s: %w", venue, symbol, err)
	}
	return n, nil
}
