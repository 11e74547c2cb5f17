package marketdata

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/aristath/tradepath/internal/clientdata"
	"github.com/aristath/tradepath/internal/domain"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	series map[string][]float64
	fail   map[string]error
	calls  map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		series: map[string][]float64{},
		fail:   map[string]error{},
		calls:  map[string]int{},
	}
}

func (f *fakeFetcher) Name() string { return "fake" }

func (f *fakeFetcher) FetchSeries(_ context.Context, symbol string, start, _ time.Time) (domain.Series, error) {
	f.calls[symbol]++
	if err := f.fail[symbol]; err != nil {
		return domain.Series{}, err
	}
	prices := f.series[symbol]
	dates := make([]time.Time, len(prices))
	for i := range prices {
		dates[i] = start.AddDate(0, 0, i)
	}
	return domain.Series{Symbol: symbol, Prices: prices, Dates: dates}, nil
}

func setupCache(t *testing.T) *clientdata.Repository {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE price_history (cache_key TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL)`)
	require.NoError(t, err)
	return clientdata.NewRepository(db)
}

var (
	start = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	end   = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

func TestHistory_PerSymbolFailureDoesNotAbort(t *testing.T) {
	f := newFakeFetcher()
	f.series["AAA"] = []float64{1, 2, 3}
	f.fail["BBB"] = errors.New("boom")
	f.series["CCC"] = nil

	h := NewProvider(f, zerolog.Nop()).History(context.Background(), []string{"AAA", "BBB", "CCC"}, start, end)

	require.Len(t, h, 3)
	assert.True(t, h[0].Usable())
	assert.Equal(t, "BBB", h[1].Symbol)
	assert.Error(t, h[1].Err)
	assert.ErrorIs(t, h[2].Err, ErrNoPrices)
}

func TestHistory_CancelledContext(t *testing.T) {
	f := newFakeFetcher()
	f.series["AAA"] = []float64{1}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := NewProvider(f, zerolog.Nop()).History(ctx, []string{"AAA"}, start, end)
	require.Len(t, h, 1)
	assert.ErrorIs(t, h[0].Err, context.Canceled)
	assert.Zero(t, f.calls["AAA"])
}

func TestAlign_TrimsToShortestAndExcludes(t *testing.T) {
	h := domain.History{
		{Symbol: "AAA", Prices: []float64{1, 2, 3, 4}},
		{Symbol: "BAD", Err: errors.New("x")},
		{Symbol: "BBB", Prices: []float64{10, 20, 30}},
		{Symbol: "EMP"},
	}

	a := Align(h)

	assert.Equal(t, []string{"BAD", "EMP"}, a.Excluded)
	require.Equal(t, 3, a.Len())
	require.Len(t, a.History, 2)
	assert.Equal(t, []float64{1, 2, 3}, a.History[0].Prices)
	assert.Equal(t, []string{"AAA", "BBB"}, a.Frames[2].Symbols())
	p, ok := a.Frames[1].Price("BBB")
	assert.True(t, ok)
	assert.Equal(t, 20.0, p)
	assert.Equal(t, 2, a.Frames[2].Index)
}

func TestAlign_Empty(t *testing.T) {
	a := Align(domain.History{{Symbol: "X"}})
	assert.Zero(t, a.Len())
	assert.Equal(t, []string{"X"}, a.Excluded)
}

func TestAlign_DoesNotMutateInput(t *testing.T) {
	h := domain.History{
		{Symbol: "AAA", Prices: []float64{1, 2, 3}},
		{Symbol: "BBB", Prices: []float64{1, 2}},
	}
	Align(h)
	assert.Len(t, h[0].Prices, 3)
}

func TestCachedFetcher_CachesAndServesHits(t *testing.T) {
	f := newFakeFetcher()
	f.series["AAA"] = []float64{1.5, 2.5}
	c := NewCachedFetcher(f, setupCache(t), time.Hour, zerolog.Nop())

	first, err := c.FetchSeries(context.Background(), "AAA", start, end)
	require.NoError(t, err)
	second, err := c.FetchSeries(context.Background(), "AAA", start, end)
	require.NoError(t, err)

	assert.Equal(t, 1, f.calls["AAA"])
	assert.Equal(t, first.Prices, second.Prices)
	require.Len(t, second.Dates, 2)
	assert.True(t, first.Dates[1].Equal(second.Dates[1]))
}

func TestCachedFetcher_StaleFallback(t *testing.T) {
	f := newFakeFetcher()
	f.series["AAA"] = []float64{3, 4}
	c := NewCachedFetcher(f, setupCache(t), -time.Hour, zerolog.Nop())

	_, err := c.FetchSeries(context.Background(), "AAA", start, end)
	require.NoError(t, err)

	f.fail["AAA"] = errors.New("upstream down")
	s, err := c.FetchSeries(context.Background(), "AAA", start, end)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, s.Prices)
	assert.Equal(t, 2, f.calls["AAA"])
}

func TestCachedFetcher_BreakerOpens(t *testing.T) {
	f := newFakeFetcher()
	f.fail["AAA"] = errors.New("upstream down")
	c := NewCachedFetcher(f, setupCache(t), time.Hour, zerolog.Nop())

	for i := 0; i < BreakerFailures; i++ {
		_, err := c.FetchSeries(context.Background(), "AAA", start, end)
		require.Error(t, err)
	}
	assert.Equal(t, "open", c.BreakerState())

	_, err := c.FetchSeries(context.Background(), "AAA", start, end)
	require.Error(t, err)
	assert.Equal(t, BreakerFailures, f.calls["AAA"])
}

func TestCachedFetcher_NoPricesDoesNotTrip(t *testing.T) {
	f := newFakeFetcher()
	f.fail["AAA"] = ErrNoPrices
	c := NewCachedFetcher(f, setupCache(t), time.Hour, zerolog.Nop())

	for i := 0; i < BreakerFailures+1; i++ {
		_, err := c.FetchSeries(context.Background(), "AAA", start, end)
		require.ErrorIs(t, err, ErrNoPrices)
	}
	assert.Equal(t, "closed", c.BreakerState())
}
