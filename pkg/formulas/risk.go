package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultConfidence is the one-tailed confidence level used for VaR
const DefaultConfidence = 0.95

// ValueAtRisk returns the parametric one-day VaR of a return series.
//
// The result is the lower-tail return threshold mean + z*std, where z is the
// standard normal quantile at (1 - confidence), about -1.6449 at 95%.
// A loss shows up as a negative number.
func ValueAtRisk(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean, std := PopMeanStdDev(returns)
	z := distuv.UnitNormal.Quantile(1 - confidence)
	return mean + z*std
}

// ConditionalValueAtRisk returns the mean of the returns at or below VaR.
// When no return reaches the threshold, VaR itself is returned.
func ConditionalValueAtRisk(returns []float64, valueAtRisk float64) float64 {
	sum := 0.0
	count := 0
	for _, r := range returns {
		if r <= valueAtRisk {
			sum += r
			count++
		}
	}
	if count == 0 {
		return valueAtRisk
	}
	return sum / float64(count)
}

// AnnualizedSharpe returns (mean*252 - riskFree) / (std*sqrt(252)) over daily returns.
//
// With zero volatility the ratio is unbounded: +Inf for a positive excess
// return, -Inf for a negative one, 0 when the excess is exactly zero.
func AnnualizedSharpe(returns []float64, riskFreeRate float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean, std := PopMeanStdDev(returns)
	excess := mean*TradingDaysPerYear - riskFreeRate
	return safeRatio(excess, std*math.Sqrt(TradingDaysPerYear))
}

// AnnualizedSortino is the Sharpe variant that only penalises downside volatility.
// Downside deviation is sqrt(mean(r^2)) over the negative returns.
func AnnualizedSortino(returns []float64, riskFreeRate float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean, _ := PopMeanStdDev(returns)

	sumSq := 0.0
	count := 0
	for _, r := range returns {
		if r < 0 {
			sumSq += r * r
			count++
		}
	}
	downside := 0.0
	if count > 0 {
		downside = math.Sqrt(sumSq/float64(count)) * math.Sqrt(TradingDaysPerYear)
	}

	excess := mean*TradingDaysPerYear - riskFreeRate
	return safeRatio(excess, downside)
}

func safeRatio(num, den float64) float64 {
	if den != 0 {
		return num / den
	}
	switch {
	case num > 0:
		return math.Inf(1)
	case num < 0:
		return math.Inf(-1)
	default:
		return 0
	}
}
