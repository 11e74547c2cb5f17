package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/tradepath/internal/clientdata"
	"github.com/aristath/tradepath/internal/domain"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// ===================================
// BREAKER SETTINGS
// ===================================

const (
	// BreakerFailures trips the breaker after this many consecutive failures
	BreakerFailures = 5
	// BreakerTimeout is how long the breaker stays open before probing
	BreakerTimeout = time.Minute
	// BreakerProbes is the number of requests allowed while half-open
	BreakerProbes = 1
)

// Cache is the subset of the client data repository used by CachedFetcher
type Cache interface {
	Store(table, key string, data interface{}, ttl time.Duration) error
	GetIfFresh(table, key string, out interface{}) (bool, error)
	Get(table, key string, out interface{}) (bool, error)
}

// cachedSeries is the msgpack payload of one cached history
type cachedSeries struct {
	Prices []float64 `msgpack:"p"`
	Dates  []int64   `msgpack:"d"`
}

func toCached(s domain.Series) cachedSeries {
	c := cachedSeries{Prices: s.Prices, Dates: make([]int64, len(s.Dates))}
	for i, d := range s.Dates {
		c.Dates[i] = d.Unix()
	}
	return c
}

func (c cachedSeries) series(symbol string) domain.Series {
	s := domain.Series{Symbol: symbol, Prices: c.Prices}
	if len(c.Dates) > 0 {
		s.Dates = make([]time.Time, len(c.Dates))
		for i, d := range c.Dates {
			s.Dates[i] = time.Unix(d, 0).UTC()
		}
	}
	return s
}

// CachedFetcher serves histories from the sqlite cache and guards the
// upstream fetcher with a circuit breaker. When the upstream fails, stale
// cache entries are returned instead.
type CachedFetcher struct {
	next    Fetcher
	cache   Cache
	breaker *gobreaker.CircuitBreaker
	ttl     time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

// NewCachedFetcher wraps next. A zero ttl picks the TTL from the window end.
func NewCachedFetcher(next Fetcher, cache Cache, ttl time.Duration, log zerolog.Logger) *CachedFetcher {
	l := log.With().Str("service", "price_cache").Str("source", next.Name()).Logger()

	settings := gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: BreakerProbes,
		Timeout:     BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			// A symbol with no bars is not an upstream outage
			return err == nil || errors.Is(err, ErrNoPrices) || errors.Is(err, context.Canceled)
		},
	}

	return &CachedFetcher{
		next:    next,
		cache:   cache,
		breaker: gobreaker.NewCircuitBreaker(settings),
		ttl:     ttl,
		now:     time.Now,
		log:     l,
	}
}

// Name returns the wrapped fetcher's name
func (c *CachedFetcher) Name() string {
	return c.next.Name()
}

// BreakerState reports the breaker state for health output
func (c *CachedFetcher) BreakerState() string {
	return c.breaker.State().String()
}

// FetchSeries implements Fetcher
func (c *CachedFetcher) FetchSeries(ctx context.Context, symbol string, start, end time.Time) (domain.Series, error) {
	key := clientdata.PriceKey(c.next.Name(), symbol, start, end)

	var cached cachedSeries
	found, err := c.cache.GetIfFresh(clientdata.TablePriceHistory, key, &cached)
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Price cache read failed")
	}
	if found && len(cached.Prices) > 0 {
		c.log.Debug().Str("symbol", symbol).Int("prices", len(cached.Prices)).Msg("Price cache hit")
		return cached.series(symbol), nil
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.next.FetchSeries(ctx, symbol, start, end)
	})
	if err != nil {
		if stale, ok := c.stale(key, symbol); ok {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Upstream failed, serving stale prices")
			return stale, nil
		}
		return domain.Series{Symbol: symbol}, fmt.Errorf("fetch %s from %s: %w", symbol, c.next.Name(), err)
	}

	series := result.(domain.Series)
	series.Symbol = symbol
	if len(series.Prices) > 0 {
		ttl := c.ttl
		if ttl <= 0 {
			ttl = clientdata.HistoryTTL(end, c.now())
		}
		if err := c.cache.Store(clientdata.TablePriceHistory, key, toCached(series), ttl); err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache prices")
		}
	}

	return series, nil
}

func (c *CachedFetcher) stale(key, symbol string) (domain.Series, bool) {
	var cached cachedSeries
	found, err := c.cache.Get(clientdata.TablePriceHistory, key, &cached)
	if err != nil || !found || len(cached.Prices) == 0 {
		return domain.Series{}, false
	}
	return cached.series(symbol), true
}
