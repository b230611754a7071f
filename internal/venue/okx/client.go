package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/WinneR641/crypto-arbitrage-bot/internal/config"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/types"
	"github.com/WinneR641/crypto-arbitrage-bot/internal/venue"
)

const defaultRestURL = "https://www.okx.com"

// Client reads spot market data through the public v5 API.
type Client struct {
	cfg  config.VenueCfg
	fees types.FeeSchedule
	log  *zap.Logger
	http *http.Client
}

func NewClient(cfg config.VenueCfg, log *zap.Logger) *Client {
	if cfg.RestURL == "" {
		cfg.RestURL = defaultRestURL
	}
	return &Client{
		cfg:  cfg,
		fees: venue.FeesFromConfig(cfg.Fees),
		log:  log,
		http: &http.Client{Timeout: 6 * time.Second},
	}
}

func (c *Client) ID() types.VenueID { return types.VenueOKX }

func (c *Client) Fees() types.FeeSchedule { return c.fees }

// instID maps "BTC/USDT" to OKX's "BTC-USDT".
func instID(symbol types.Symbol) string {
	return strings.ReplaceAll(string(symbol), "/", "-")
}

type tickerResp struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		BidPx string `json:"bidPx"`
		AskPx string `json:"askPx"`
	} `json:"data"`
}

func (c *Client) Ticker(ctx context.Context, symbol types.Symbol) (venue.Ticker, error) {
	endpoint := c.cfg.RestURL + "/api/v5/market/ticker?instId=" + url.QueryEscape(instID(symbol))
	var tr tickerResp
	if err := c.getJSON(ctx, endpoint, &tr); err != nil {
		return venue.Ticker{}, venue.WrapErr(c.ID(), "ticker", err)
	}
	if tr.Code != "0" || len(tr.Data) == 0 {
		return venue.Ticker{}, venue.WrapErr(c.ID(), "ticker",
			fmt.Errorf("code=%s msg=%q", tr.Code, tr.Msg))
	}
	row := tr.Data[0]
	bid, berr := decimal.NewFromString(row.BidPx)
	ask, aerr := decimal.NewFromString(row.AskPx)
	if berr != nil || aerr != nil {
		return venue.Ticker{}, venue.WrapErr(c.ID(), "ticker",
			fmt.Errorf("bad prices bid=%q ask=%q", row.BidPx, row.AskPx))
	}
	return venue.Ticker{Bid: bid, Ask: ask}, nil
}

type booksResp struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		Bids [][]string `json:"bids"`
		Asks [][]string `json:"asks"`
	} `json:"data"`
}

func (c *Client) OrderBook(ctx context.Context, symbol types.Symbol, depth int) (venue.OrderBook, error) {
	endpoint := fmt.Sprintf("%s/api/v5/market/books?instId=%s&sz=%d",
		c.cfg.RestURL, url.QueryEscape(instID(symbol)), depth)
	var br booksResp
	if err := c.getJSON(ctx, endpoint, &br); err != nil {
		return venue.OrderBook{}, venue.WrapErr(c.ID(), "books", err)
	}
	if br.Code != "0" || len(br.Data) == 0 {
		return venue.OrderBook{}, venue.WrapErr(c.ID(), "books",
			fmt.Errorf("code=%s msg=%q", br.Code, br.Msg))
	}
	return venue.OrderBook{
		Bids: parseLevels(br.Data[0].Bids),
		Asks: parseLevels(br.Data[0].Asks),
	}, nil
}

// OKX book levels carry extra columns (liquidated orders, order count);
// only price and size matter here.
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

func (c *Client) Close() error { return nil }

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
