package binance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/WinneR641/crypto-arbitrage-bot/internal/config"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/types"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/venue"
)

const (
	defaultRestURL = "https://api.binance.com"
	defaultP2PURL  = "https://p2p.binance.com/bapi/c2c/v2/friendly/c2c/adv/search"

	// cached ws book entries older than this fall back to REST
	bookMaxAge = 3 * time.Second
)

type Client struct {
	cfg    config.VenueCfg
	fees   types.FeeSchedule
	log    *zap.Logger
	http   *http.Client
	book   *venue.BookCache
	stream *Stream
}

func NewClient(cfg config.VenueCfg, log *zap.Logger) *Client {
	if cfg.RestURL == "" {
		cfg.RestURL = defaultRestURL
	}
	if cfg.P2PURL == "" {
		cfg.P2PURL = defaultP2PURL
	}
	return &Client{
		cfg:  cfg,
		fees: venue.FeesFromConfig(cfg.Fees),
		log:  log,
		http: &http.Client{Timeout: 6 * time.Second},
		book: venue.NewBookCache(),
	}
}

func (c *Client) ID() types.VenueID { return types.VenueBinance }

func (c *Client) Fees() types.FeeSchedule { return c.fees }

// StartBookStream subscribes the websocket book-ticker feed for symbols and
// keeps the cache warm until ctx is done. Ticker reads prefer the cache.
func (c *Client) StartBookStream(ctx context.Context, symbols []types.Symbol) error {
	c.stream = NewStream(c.cfg.WsURL)
	events, err := c.stream.SubscribeBookTicker(ctx, symbols)
	if err != nil {
		return venue.WrapErr(c.ID(), "ws subscribe", err)
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					c.log.Warn("binance: book stream closed")
					return
				}
				c.book.Set(ev.Symbol, ev.Bid, ev.Ask)
			}
		}
	}()
	return nil
}

type bookTickerResp struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	AskPrice string `json:"askPrice"`
}

func (c *Client) Ticker(ctx context.Context, symbol types.Symbol) (venue.Ticker, error) {
	if bid, ask, ok := c.book.Get(symbol.Compact(), bookMaxAge); ok {
		return venue.Ticker{Bid: bid, Ask: ask}, nil
	}

	endpoint := c.cfg.RestURL + "/api/v3/ticker/bookTicker?symbol=" + url.QueryEscape(symbol.Compact())
	var br bookTickerResp
	if err := c.getJSON(ctx, endpoint, &br); err != nil {
		return venue.Ticker{}, venue.WrapErr(c.ID(), "bookTicker", err)
	}
	bid, err := decimal.NewFromString(br.BidPrice)
	if err != nil {
		return venue.Ticker{}, venue.WrapErr(c.ID(), "bookTicker", fmt.Errorf("bad bid %q: %w", br.BidPrice, err))
	}
	ask, err := decimal.NewFromString(br.AskPrice)
	if err != nil {
		return venue.Ticker{}, venue.WrapErr(c.ID(), "bookTicker", fmt.Errorf("bad ask %q: %w", br.AskPrice, err))
	}
	return venue.Ticker{Bid: bid, Ask: ask}, nil
}

type depthResp struct {
	Bids [][]string `json:"bids"`
	Asks [][]string `json:"asks"`
}

func (c *Client) OrderBook(ctx context.Context, symbol types.Symbol, depth int) (venue.OrderBook, error) {
	endpoint := fmt.Sprintf("%s/api/v3/depth?symbol=%s&limit=%d",
		c.cfg.RestURL, url.QueryEscape(symbol.Compact()), depth)
	var dr depthResp
	if err := c.getJSON(ctx, endpoint, &dr); err != nil {
		return venue.OrderBook{}, venue.WrapErr(c.ID(), "depth", err)
	}
	ob := venue.OrderBook{
		Bids: parseLevels(dr.Bids),
		Asks: parseLevels(dr.Asks),
	}
	return ob, nil
}

func parseLevels(raw [][]string) []venue.BookLevel {
	out := make([]venue.BookLevel, 0, len(raw))
	for _, lvl := range raw {
		if len(lvl) < 2 {
			continue
		}
		price, perr := decimal.NewFromString(lvl[0])
		size, serr := decimal.NewFromString(lvl[1])
		if perr != nil || serr != nil {
			continue
		}
		out = append(out, venue.BookLevel{Price: price, Size: size})
	}
	return out
}

type p2pSearchReq struct {
	Asset       string `json:"asset"`
	Fiat        string `json:"fiat"`
	TradeType   string `json:"tradeType"`
	TransAmount string `json:"transAmount"`
	Page        int    `json:"page"`
	Rows        int    `json:"rows"`
}

type p2pSearchResp struct {
	Data []struct {
		Adv struct {
			Price string `json:"price"`
		} `json:"adv"`
	} `json:"data"`
}

// P2PQuote reads the best advertised buy and sell prices from the public
// C2C search endpoint. "BUY" ads are what we would buy crypto at, "SELL"
// what we would sell at.
func (c *Client) P2PQuote(ctx context.Context, crypto, fiat string, amount decimal.Decimal) (types.P2PQuote, error) {
	buy, err := c.p2pBestPrice(ctx, crypto, fiat, amount, "BUY")
	if err != nil {
		return types.P2PQuote{}, venue.WrapErr(c.ID(), "p2p buy", err)
	}
	sell, err := c.p2pBestPrice(ctx, crypto, fiat, amount, "SELL")
	if err != nil {
		return types.P2PQuote{}, venue.WrapErr(c.ID(), "p2p sell", err)
	}
	return types.P2PQuote{Buy: buy, Sell: sell}, nil
}

func (c *Client) p2pBestPrice(ctx context.Context, crypto, fiat string, amount decimal.Decimal, tradeType string) (decimal.Decimal, error) {
	body, err := json.Marshal(p2pSearchReq{
		Asset:       crypto,
		Fiat:        fiat,
		TradeType:   tradeType,
		TransAmount: amount.String(),
		Page:        1,
		Rows:        1,
	})
	if err != nil {
		return decimal.Zero, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.P2PURL, bytes.NewReader(body))
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return decimal.Zero, fmt.Errorf("p2p search %d: %s", resp.StatusCode, string(b))
	}
	var sr p2pSearchResp
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return decimal.Zero, err
	}
	if len(sr.Data) == 0 {
		return decimal.Zero, fmt.Errorf("p2p search: no %s ads for %s/%s", tradeType, crypto, fiat)
	}
	return decimal.NewFromString(sr.Data[0].Adv.Price)
}

func (c *Client) Close() error {
	if c.stream != nil {
		return c.stream.Close()
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
