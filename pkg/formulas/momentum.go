package formulas

// Momentum lookback divisors: the window is len(prices)/divisor
const (
	ShortMomentumDivisor = 6
	LongMomentumDivisor  = 4
)

// Momentum returns the relative price change over a window of len/divisor
// steps ending at the last price. Too-short series and zero base prices
// return 0.
func Momentum(prices []float64, divisor int) float64 {
	if divisor <= 0 {
		return 0
	}
	t := len(prices)
	n := t / divisor
	if n == 0 || t-n-1 < 0 {
		return 0
	}

	base := prices[t-n-1]
	if base == 0 {
		return 0
	}
	return (prices[t-1] - base) / base
}
