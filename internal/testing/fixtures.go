package testing

import (
	"math"
	"time"

	"github.com/aristath/tradepath/internal/domain"
)

// Trend returns n prices starting at start and moving by step each day
func Trend(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

// Wave returns n prices oscillating around base
func Wave(base, amplitude float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = base + amplitude*math.Sin(float64(i)/3)
	}
	return out
}

// NewSeriesFixtures returns three instruments with rising, oscillating and falling prices
func NewSeriesFixtures(n int) map[string][]float64 {
	return map[string][]float64{
		"AAPL": Trend(120, 0.4, n),
		"KO":   Wave(60, 3, n),
		"PTON": Trend(40, -0.2, n),
	}
}

// NewHistoryFixture builds a dated history for symbols from series
func NewHistoryFixture(series map[string][]float64, symbols []string, start time.Time) domain.History {
	out := make(domain.History, 0, len(symbols))
	for _, s := range symbols {
		prices := series[s]
		dates := make([]time.Time, len(prices))
		for i := range prices {
			dates[i] = start.AddDate(0, 0, i)
		}
		out = append(out, domain.Series{Symbol: s, Prices: prices, Dates: dates})
	}
	return out
}
