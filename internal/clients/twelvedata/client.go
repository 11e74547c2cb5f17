// Package twelvedata implements a daily close history client for the Twelve Data REST API.
package twelvedata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/tradepath/internal/domain"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public Twelve Data endpoint
	DefaultBaseURL = "https://api.twelvedata.com"
	// DefaultRatePerMinute matches the free tier quota
	DefaultRatePerMinute = 8

	dateLayout = "2006-01-02"
)

// ErrMissingAPIKey is returned when the client is used without credentials
var ErrMissingAPIKey = errors.New("twelvedata: api key not configured")

// Config configures the client
type Config struct {
	BaseURL       string
	APIKey        string
	RatePerMinute int
	Timeout       time.Duration
}

// Client fetches daily time series from Twelve Data
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	apiKey  string
	log     zerolog.Logger
}

// NewClient creates a new Twelve Data client
func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = DefaultRatePerMinute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Accept", "application/json")

	return &Client{
		http:    client,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), 1),
		apiKey:  cfg.APIKey,
		log:     log.With().Str("client", "twelvedata").Logger(),
	}
}

// Name identifies the source in cache keys and logs
func (c *Client) Name() string {
	return "twelvedata"
}

// timeSeriesResponse is the /time_series body. Error bodies carry status "error".
type timeSeriesResponse struct {
	Meta struct {
		Symbol   string `json:"symbol"`
		Interval string `json:"interval"`
	} `json:"meta"`
	Values  []bar  `json:"values"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type bar struct {
	Datetime string          `json:"datetime"`
	Close    decimal.Decimal `json:"close"`
}

// FetchSeries returns the chronological daily closes of symbol in [start, end]
func (c *Client) FetchSeries(ctx context.Context, symbol string, start, end time.Time) (domain.Series, error) {
	if c.apiKey == "" {
		return domain.Series{}, ErrMissingAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Series{}, fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":     symbol,
			"interval":   "1day",
			"start_date": start.Format(dateLayout),
			"end_date":   end.Format(dateLayout),
			"apikey":     c.apiKey,
		}).
		Get("/time_series")
	if err != nil {
		return domain.Series{}, fmt.Errorf("failed to fetch time series for %s: %w", symbol, err)
	}
	if resp.IsError() {
		return domain.Series{}, fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
	}

	var body timeSeriesResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return domain.Series{}, fmt.Errorf("failed to parse time series response: %w", err)
	}
	if body.Status == "error" {
		return domain.Series{}, fmt.Errorf("twelvedata error %d: %s", body.Code, body.Message)
	}

	series := toSeries(symbol, body.Values)
	c.log.Debug().
		Str("symbol", symbol).
		Int("prices", len(series.Prices)).
		Msg("Fetched time series")

	return series, nil
}

// toSeries converts newest-first bars into a chronological series
func toSeries(symbol string, values []bar) domain.Series {
	s := domain.Series{
		Symbol: symbol,
		Prices: make([]float64, 0, len(values)),
		Dates:  make([]time.Time, 0, len(values)),
	}
	for i := len(values) - 1; i >= 0; i-- {
		v := values[i]
		if !v.Close.IsPositive() {
			continue
		}
		date, err := time.Parse(dateLayout, firstN(v.Datetime, len(dateLayout)))
		if err != nil {
			continue
		}
		s.Prices = append(s.Prices, v.Close.InexactFloat64())
		s.Dates = append(s.Dates, date)
	}
	return s
}

func firstN(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}
