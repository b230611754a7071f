package venue

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type bookEntry struct {
	bid, ask decimal.Decimal
	ts       time.Time
}

// BookCache holds the latest websocket top of book per symbol. Gateways use
// it as a fast path: a fresh entry saves a REST round-trip, a stale or
// missing one falls through to REST.
type BookCache struct {
	mu      sync.RWMutex
	entries map[string]bookEntry
}

func NewBookCache() *BookCache {
	return &BookCache{entries: make(map[string]bookEntry, 64)}
}

func (bc *BookCache) Set(symbol string, bid, ask decimal.Decimal) {
	bc.mu.Lock()
	bc.entries[symbol] = bookEntry{bid: bid, ask: ask, ts: time.Now()}
	bc.mu.Unlock()
}

// Get returns the cached top of book if it is younger than maxAge.
func (bc *BookCache) Get(symbol string, maxAge time.Duration) (bid, ask decimal.Decimal, ok bool) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	e, found := bc.entries[symbol]
	if !found || time.Since(e.ts) > maxAge {
		return decimal.Zero, decimal.Zero, false
	}
	if !e.bid.IsPositive() || !e.ask.IsPositive() {
		return decimal.Zero, decimal.Zero, false
	}
	return e.bid, e.ask, true
}

func (bc *BookCache) Has(symbol string) bool {
	bc.mu.RLock()
	_, ok := bc.entries[symbol]
	bc.mu.RUnlock()
	return ok
}
