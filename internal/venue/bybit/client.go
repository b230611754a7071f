package bybit

import (
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

const defaultRestURL = "https://api.bybit.com"

// Client reads spot market data through the v5 public API.
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

func (c *Client) ID() types.VenueID { return types.VenueBybit }

func (c *Client) Fees() types.FeeSchedule { return c.fees }

type tickersResp struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []struct {
			Bid1Price string `json:"bid1Price"`
			Ask1Price string `json:"ask1Price"`
		} `json:"list"`
	} `json:"result"`
}

func (c *Client) Ticker(ctx context.Context, symbol types.Symbol) (venue.Ticker, error) {
	endpoint := c.cfg.RestURL + "/v5/market/tickers?category=spot&symbol=" + url.QueryEscape(symbol.Compact())
	var tr tickersResp
	if err := c.getJSON(ctx, endpoint, &tr); err != nil {
		return venue.Ticker{}, venue.WrapErr(c.ID(), "tickers", err)
	}
	if tr.RetCode != 0 || len(tr.Result.List) == 0 {
		return venue.Ticker{}, venue.WrapErr(c.ID(), "tickers",
			fmt.Errorf("retCode=%d msg=%q", tr.RetCode, tr.RetMsg))
	}
	row := tr.Result.List[0]
	bid, berr := decimal.NewFromString(row.Bid1Price)
	ask, aerr := decimal.NewFromString(row.Ask1Price)
	if berr != nil || aerr != nil {
		return venue.Ticker{}, venue.WrapErr(c.ID(), "tickers",
			fmt.Errorf("bad prices bid=%q ask=%q", row.Bid1Price, row.Ask1Price))
	}
	return venue.Ticker{Bid: bid, Ask: ask}, nil
}

type orderbookResp struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Bids [][]string `json:"b"`
		Asks [][]string `json:"a"`
	} `json:"result"`
}

func (c *Client) OrderBook(ctx context.Context, symbol types.Symbol, depth int) (venue.OrderBook, error) {
	endpoint := fmt.Sprintf("%s/v5/market/orderbook?category=spot&symbol=%s&limit=%d",
		c.cfg.RestURL, url.QueryEscape(symbol.Compact()), depth)
	var or orderbookResp
	if err := c.getJSON(ctx, endpoint, &or); err != nil {
		return venue.OrderBook{}, venue.WrapErr(c.ID(), "orderbook", err)
	}
	if or.RetCode != 0 {
		return venue.OrderBook{}, venue.WrapErr(c.ID(), "orderbook",
			fmt.Errorf("retCode=%d msg=%q", or.RetCode, or.RetMsg))
	}
	return venue.OrderBook{
		Bids: parseLevels(or.Result.Bids),
		Asks: parseLevels(or.Result.Asks),
	}, nil
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
