package formulas

// MACD periods
const (
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
)

// EMA returns the exponential moving average series of values.
// The first output equals the first input; each later point applies
// alpha = 2/(period+1). The output has the same length as the input.
func EMA(values []float64, period int) []float64 {
	if len(values) == 0 || period <= 0 {
		return []float64{}
	}

	alpha := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// MACDHistogram returns the last MACD line value minus the last signal value.
// ok is false when fewer than MACDSlow prices are available.
func MACDHistogram(prices []float64) (histogram float64, ok bool) {
	if len(prices) < MACDSlow {
		return 0, false
	}

	fast := EMA(prices, MACDFast)
	slow := EMA(prices, MACDSlow)
	line := make([]float64, len(prices))
	for i := range prices {
		line[i] = fast[i] - slow[i]
	}
	signal := EMA(line, MACDSignal)

	last := len(prices) - 1
	return line[last] - signal[last], true
}
