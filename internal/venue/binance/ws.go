package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/WinneR641/crypto-arbitrage-bot/internal/types"
)

const defaultWsURL = "wss://stream.binance.com:9443"

// BookEvent is one top-of-book update from the combined stream.
type BookEvent struct {
	Symbol string
	Bid    decimal.Decimal
	Ask    decimal.Decimal
	TS     time.Time
}

type Stream struct {
	baseURL string
	dialer  *websocket.Dialer
	conn    *websocket.Conn
	mu      sync.Mutex
}

func NewStream(baseURL string) *Stream {
	if baseURL == "" {
		baseURL = defaultWsURL
	}
	return &Stream{
		baseURL: strings.TrimRight(baseURL, "/"),
		dialer: &websocket.Dialer{
			HandshakeTimeout:  15 * time.Second,
			EnableCompression: true,
		},
	}
}

func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// combined stream frame: {"stream":"btcusdt@bookTicker","data":{...}}
type wsFrame struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol string `json:"s"`
		Bid    string `json:"b"`
		Ask    string `json:"a"`
	} `json:"data"`
}

// SubscribeBookTicker connects the combined bookTicker stream for symbols
// and returns a channel of updates. The channel closes on read failure;
// reconnecting is the caller's concern (a cold cache just means REST reads).
func (s *Stream) SubscribeBookTicker(ctx context.Context, symbols []types.Symbol) (<-chan BookEvent, error) {
	streams := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		streams = append(streams, strings.ToLower(sym.Compact())+"@bookTicker")
	}
	endpoint := s.baseURL + "/stream?streams=" + url.QueryEscape(strings.Join(streams, "/"))

	s.mu.Lock()
	conn, _, err := s.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	s.conn = conn
	s.mu.Unlock()

	_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	out := make(chan BookEvent, 1024)

	go func() {
		defer close(out)
		defer s.Close()

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))

			var frame wsFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				continue
			}
			if frame.Data.Symbol == "" {
				continue
			}
			bid, berr := decimal.NewFromString(frame.Data.Bid)
			ask, aerr := decimal.NewFromString(frame.Data.Ask)
			if berr != nil || aerr != nil {
				continue
			}
			if !bid.IsPositive() && !ask.IsPositive() {
				continue
			}

			out <- BookEvent{
				Symbol: frame.Data.Symbol,
				Bid:    bid,
				Ask:    ask,
				TS:     time.Now(),
			}
		}
	}()

	return out, nil
}
