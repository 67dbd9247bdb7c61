package gasreport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

type PriceSource interface {
	Price(ctx context.Context, token, currency string) (decimal.Decimal, error)
}

// CoinMarketCap reads the latest quote from the CoinMarketCap pro API.
type CoinMarketCap struct {
	Url    string
	ApiKey string
	Client *http.Client
}

func (c *CoinMarketCap) Price(ctx context.Context, token, currency string) (decimal.Decimal, error) {
	u, err := url.Parse(c.Url)
	if err != nil {
		return decimal.Zero, err
	}
	q := u.Query()
	q.Set("symbol", token)
	q.Set("convert", currency)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-CMC_PRO_API_KEY", c.ApiKey)

	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	var body struct {
		Status struct {
			ErrorCode    int    `json:"error_code"`
			ErrorMessage string `json:"error_message"`
		} `json:"status"`
		Data map[string]struct {
			Quote map[string]struct {
				Price decimal.Decimal `json:"price"`
			} `json:"quote"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode quote: %w", err)
	}
	if resp.StatusCode != http.StatusOK || body.Status.ErrorCode != 0 {
		return decimal.Zero, fmt.Errorf("coinmarketcap: %d %s", resp.StatusCode, body.Status.ErrorMessage)
	}

	quote, ok := body.Data[token].Quote[currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("coinmarketcap: no %s quote for %s", currency, token)
	}
	return quote.Price, nil
}
