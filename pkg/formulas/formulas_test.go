package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flat(value float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func rising(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestCalculateReturns(t *testing.T) {
	returns := CalculateReturns([]float64{100, 110, 99})
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)

	assert.Empty(t, CalculateReturns([]float64{100}))
	assert.Equal(t, []float64{0}, CalculateReturns([]float64{0, 5}))
}

func TestPopMeanStdDev_UsesPopulationDenominator(t *testing.T) {
	mean, std := PopMeanStdDev([]float64{1, 3})
	assert.InDelta(t, 2.0, mean, 1e-12)
	assert.InDelta(t, 1.0, std, 1e-12)

	mean, std = PopMeanStdDev(nil)
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 0.0, std)
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-3))
	assert.Equal(t, 1.0, Clamp01(7))
	assert.Equal(t, 0.25, Clamp01(0.25))
	assert.Equal(t, 0.0, Clamp01(math.NaN()))
}

func TestSigmoidAndTanhScore(t *testing.T) {
	assert.InDelta(t, 0.5, Sigmoid(0), 1e-12)
	assert.Greater(t, Sigmoid(2), 0.5)
	assert.Less(t, Sigmoid(-2), 0.5)
	assert.InDelta(t, 0.5, TanhScore(0), 1e-12)
	assert.InDelta(t, 1.0, TanhScore(50), 1e-9)
}

func TestValueAtRisk_LowerTail(t *testing.T) {
	returns := []float64{0.01, -0.01, 0.01, -0.01}
	mean, std := PopMeanStdDev(returns)
	require.InDelta(t, 0.0, mean, 1e-12)

	v := ValueAtRisk(returns, DefaultConfidence)
	assert.InDelta(t, -1.6449*std, v, 1e-4)
	assert.Less(t, v, 0.0)
	assert.Equal(t, 0.0, ValueAtRisk(nil, DefaultConfidence))
}

func TestConditionalValueAtRisk(t *testing.T) {
	returns := []float64{-0.05, -0.03, 0.01, 0.02}
	assert.InDelta(t, -0.04, ConditionalValueAtRisk(returns, -0.03), 1e-12)
	// nothing in the tail
	assert.Equal(t, -0.10, ConditionalValueAtRisk(returns, -0.10))
}

func TestAnnualizedSharpe(t *testing.T) {
	returns := []float64{0.01, 0.02, -0.005, 0.015}
	mean, std := PopMeanStdDev(returns)
	expected := (mean*252 - 0.02) / (std * math.Sqrt(252))
	assert.InDelta(t, expected, AnnualizedSharpe(returns, 0.02), 1e-9)

	assert.True(t, math.IsInf(AnnualizedSharpe([]float64{0, 0, 0}, 0.02), -1))
	assert.True(t, math.IsInf(AnnualizedSharpe([]float64{0.01, 0.01}, 0.02), 1))
	assert.Equal(t, 0.0, AnnualizedSharpe(nil, 0.02))
}

func TestAnnualizedSortino_OnlyDownside(t *testing.T) {
	returns := []float64{0.02, -0.01, 0.03, -0.03}
	mean, _ := PopMeanStdDev(returns)
	downside := math.Sqrt((0.01*0.01+0.03*0.03)/2) * math.Sqrt(252)
	assert.InDelta(t, (mean*252-0.02)/downside, AnnualizedSortino(returns, 0.02), 1e-9)

	assert.True(t, math.IsInf(AnnualizedSortino([]float64{0.01, 0.02}, 0.02), 1))
}

func TestEMA_SeededWithFirstValue(t *testing.T) {
	out := EMA([]float64{10, 20}, 3)
	require.Len(t, out, 2)
	assert.Equal(t, 10.0, out[0])
	assert.InDelta(t, 15.0, out[1], 1e-12)
	assert.Empty(t, EMA(nil, 3))
}

func TestMACDHistogram(t *testing.T) {
	_, ok := MACDHistogram(rising(10, 1, MACDSlow-1))
	assert.False(t, ok)

	h, ok := MACDHistogram(flat(42, 30))
	require.True(t, ok)
	assert.InDelta(t, 0.0, h, 1e-12)

	h, ok = MACDHistogram(rising(10, 1, 40))
	require.True(t, ok)
	assert.Greater(t, h, 0.0)
}

func TestCalculateRSI(t *testing.T) {
	_, ok := CalculateRSI(rising(10, 1, RSIPeriod), RSIPeriod)
	assert.False(t, ok, "needs period+1 closes")

	rsi, ok := CalculateRSI(flat(10, 20), RSIPeriod)
	require.True(t, ok)
	assert.Equal(t, RSINeutral, rsi)

	rsi, ok = CalculateRSI(rising(10, 1, RSIPeriod+1), RSIPeriod)
	require.True(t, ok)
	assert.InDelta(t, 100.0, rsi, 1e-9)

	rsi, ok = CalculateRSI(rising(100, -1, 30), RSIPeriod)
	require.True(t, ok)
	assert.InDelta(t, 0.0, rsi, 1e-9)
}

func TestMomentum(t *testing.T) {
	prices := rising(100, 1, 12) // 100..111
	// short window: 12/6 = 2 -> base prices[9] = 109
	assert.InDelta(t, (111.0-109.0)/109.0, Momentum(prices, ShortMomentumDivisor), 1e-12)
	// long window: 12/4 = 3 -> base prices[8] = 108
	assert.InDelta(t, (111.0-108.0)/108.0, Momentum(prices, LongMomentumDivisor), 1e-12)

	assert.Equal(t, 0.0, Momentum([]float64{1, 2, 3}, ShortMomentumDivisor))
	assert.Equal(t, 0.0, Momentum(flat(5, 30), LongMomentumDivisor))
}
