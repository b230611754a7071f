// Package fiat resolves fiat reference rates. The only source wired today is
// the National Bank of Ukraine daily exchange listing, used to sanity-check
// peer-to-peer UAH quotes against the official rate.
package fiat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const defaultNBUURL = "https://bank.gov.ua/NBUStatService/v1/statdirectory/exchange?json"

type NBUClient struct {
	http *http.Client
	url  string
}

func NewNBU(url string) *NBUClient {
	if url == "" {
		url = defaultNBUURL
	}
	return &NBUClient{
		http: &http.Client{Timeout: 6 * time.Second},
		url:  url,
	}
}

type nbuEntry struct {
	Code string          `json:"cc"`
	Rate decimal.Decimal `json:"rate"`
}

// Rate returns the official UAH rate for one currency code (e.g. "USD").
func (c *NBUClient) Rate(ctx context.Context, code string) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("nbu: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("nbu: fetch rates: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("nbu: unexpected status %d", resp.StatusCode)
	}

	var entries []nbuEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return decimal.Zero, fmt.Errorf("nbu: decode: %w", err)
	}
	code = strings.ToUpper(code)
	for _, e := range entries {
		if strings.ToUpper(e.Code) == code {
			return e.Rate, nil
		}
	}
	return decimal.Zero, fmt.Errorf("nbu: currency %s not listed", code)
}
