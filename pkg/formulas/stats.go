// Package formulas holds the pure numeric building blocks of the heuristic scorer.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualisation factor for daily returns
const TradingDaysPerYear = 252

// CalculateReturns converts prices to simple daily returns
// Returns[i] = (Price[i+1] - Price[i]) / Price[i]
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}

	return returns
}

// PopMeanStdDev returns the mean and the population (biased) standard deviation
func PopMeanStdDev(data []float64) (mean, std float64) {
	if len(data) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(data, nil)
}

// Clamp01 bounds x to [0, 1]. NaN maps to 0.
func Clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Min(1.0, math.Max(0.0, x))
}

// Sigmoid is the logistic function 1 / (1 + e^-x)
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// TanhScore squashes an unbounded signal into [0, 1] centred on 0.5
func TanhScore(x float64) float64 {
	return (math.Tanh(x) + 1) / 2
}
