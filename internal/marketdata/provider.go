// Package marketdata retrieves daily close histories and aligns them into frames.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/tradepath/internal/domain"
	"github.com/rs/zerolog"
)

// ErrNoPrices is returned by fetchers when a symbol has no bars in the window
var ErrNoPrices = errors.New("no prices returned")

// Fetcher retrieves the history of one symbol from a single upstream source
type Fetcher interface {
	Name() string
	FetchSeries(ctx context.Context, symbol string, start, end time.Time) (domain.Series, error)
}

// Provider retrieves histories for a whole universe.
// A failing symbol yields a series with Err set; the call itself never fails.
type Provider interface {
	History(ctx context.Context, symbols []string, start, end time.Time) domain.History
}

// SeriesProvider fans a universe out to a Fetcher one symbol at a time
type SeriesProvider struct {
	fetcher Fetcher
	log     zerolog.Logger
}

// NewProvider creates a provider over fetcher
func NewProvider(fetcher Fetcher, log zerolog.Logger) *SeriesProvider {
	return &SeriesProvider{
		fetcher: fetcher,
		log:     log.With().Str("service", "marketdata").Str("source", fetcher.Name()).Logger(),
	}
}

// History fetches every symbol in order. Symbols are fetched sequentially
// because upstream quotas are per minute.
func (p *SeriesProvider) History(ctx context.Context, symbols []string, start, end time.Time) domain.History {
	out := make(domain.History, 0, len(symbols))
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			out = append(out, domain.Series{Symbol: symbol, Err: err})
			continue
		}

		series, err := p.fetcher.FetchSeries(ctx, symbol, start, end)
		if err == nil && len(series.Prices) == 0 {
			err = ErrNoPrices
		}
		if err != nil {
			p.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to fetch price history")
			out = append(out, domain.Series{Symbol: symbol, Err: fmt.Errorf("%s: %w", symbol, err)})
			continue
		}

		series.Symbol = symbol
		out = append(out, series)
	}

	p.log.Info().
		Int("symbols", len(symbols)).
		Int("usable", usableCount(out)).
		Msg("Fetched price histories")

	return out
}

func usableCount(h domain.History) int {
	n := 0
	for _, s := range h {
		if s.Usable() {
			n++
		}
	}
	return n
}
