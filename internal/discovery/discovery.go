// Package discovery probes configured markets at startup. It answers one
// question per (venue, symbol): does this venue actually quote this market?
// A symbol no venue supports is a configuration error worth dying for.
package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/WinneR641/crypto-arbitrage-bot/internal/types"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/venue"
)

// ConfigurationError marks symbols that cannot be scanned anywhere. The
// caller should treat it as fatal: the config names a market that does not
// exist.
type ConfigurationError struct {
	Symbols []types.Symbol
}

func (e *ConfigurationError) Error() string {
	names := make([]string, len(e.Symbols))
	for i, s := range e.Symbols {
		names[i] = string(s)
	}
	return fmt.Sprintf("discovery: no venue supports: %s", strings.Join(names, ", "))
}

// Support records which venues answered for each symbol during the probe.
type Support map[types.Symbol][]types.VenueID

// Supported reports whether the (venue, symbol) pair answered the probe.
func (s Support) Supported(id types.VenueID, sym types.Symbol) bool {
	for _, v := range s[sym] {
		if v == id {
			return true
		}
	}
	return false
}

type Service struct {
	venues []venue.Gateway
	log    *zap.Logger
}

func NewService(venues []venue.Gateway, log *zap.Logger) *Service {
	return &Service{venues: venues, log: log}
}

// Validate probes every configured symbol on every venue concurrently. A
// venue that cannot quote a symbol only narrows the scan; a symbol that no
// venue quotes aborts startup with a ConfigurationError.
func (s *Service) Validate(ctx context.Context, symbols []types.Symbol) (Support, error) {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		support = make(Support, len(symbols))
	)
	for _, sym := range symbols {
		support[sym] = nil
	}

	for _, gw := range s.venues {
		for _, sym := range symbols {
			gw, sym := gw, sym
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := gw.Ticker(ctx, sym); err != nil {
					s.log.Warn("market not quoted on venue",
						zap.String("venue", string(gw.ID())),
						zap.String("symbol", string(sym)),
						zap.Error(err),
					)
					return
				}
				mu.Lock()
				support[sym] = append(support[sym], gw.ID())
				mu.Unlock()
			}()
		}
	}
	wg.Wait()

	var dead []types.Symbol
	for _, sym := range symbols {
		if len(support[sym]) == 0 {
			dead = append(dead, sym)
			continue
		}
		s.log.Info("market validated",
			zap.String("symbol", string(sym)),
			zap.Int("venues", len(support[sym])),
		)
	}
	if len(dead) > 0 {
		return support, &ConfigurationError{Symbols: dead}
	}
	return support, nil
}
