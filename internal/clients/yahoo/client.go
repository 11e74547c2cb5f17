// Package yahoo implements a daily close history client for the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/aristath/tradepath/internal/domain"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the public chart endpoint host
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Client is a Yahoo Finance API client
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(30 * time.Second)
	// Yahoo rejects requests without a browser-like agent
	client.SetHeader("User-Agent", "Mozilla/5.0")

	return &Client{
		http: client,
		log:  log.With().Str("client", "yahoo").Logger(),
	}
}

// Name identifies the source in cache keys and logs
func (c *Client) Name() string {
	return "yahoo"
}

// chartResponse represents the v8 chart response
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []decimal.NullDecimal `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchSeries returns the chronological daily closes of symbol in [start, end]
func (c *Client) FetchSeries(ctx context.Context, symbol string, start, end time.Time) (domain.Series, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"period1":  strconv.FormatInt(start.Unix(), 10),
			"period2":  strconv.FormatInt(end.Unix(), 10),
			"interval": "1d",
		}).
		Get("/v8/finance/chart/" + url.PathEscape(symbol))
	if err != nil {
		return domain.Series{}, fmt.Errorf("failed to fetch chart for %s: %w", symbol, err)
	}

	var body chartResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		if resp.IsError() {
			return domain.Series{}, fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
		}
		return domain.Series{}, fmt.Errorf("failed to parse chart response: %w", err)
	}
	if body.Chart.Error != nil {
		return domain.Series{}, fmt.Errorf("yahoo error %s: %s", body.Chart.Error.Code, body.Chart.Error.Description)
	}
	if resp.IsError() {
		return domain.Series{}, fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
	}
	if len(body.Chart.Result) == 0 || len(body.Chart.Result[0].Indicators.Quote) == 0 {
		return domain.Series{Symbol: symbol}, nil
	}

	result := body.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close

	series := domain.Series{Symbol: symbol}
	for i, ts := range result.Timestamp {
		if i >= len(closes) {
			break
		}
		// Skip holidays and halted sessions
		if !closes[i].Valid || !closes[i].Decimal.IsPositive() {
			continue
		}
		date := time.Unix(ts, 0).UTC()
		series.Dates = append(series.Dates, time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC))
		series.Prices = append(series.Prices, closes[i].Decimal.InexactFloat64())
	}

	c.log.Debug().
		Str("symbol", symbol).
		Int("prices", len(series.Prices)).
		Msg("Fetched historical prices")

	return series, nil
}
