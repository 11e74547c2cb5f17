package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// RSIPeriod is the Wilder smoothing window
const RSIPeriod = 14

// RSINeutral is reported for a series that never moves
const RSINeutral = 50.0

// CalculateRSI calculates the Wilder-smoothed Relative Strength Index.
//
// RSI = 100 - (100 / (1 + RS)), RS = average gain / average loss.
//
// Returns the latest RSI (0-100) and false when fewer than length+1 closes
// are available.
func CalculateRSI(closes []float64, length int) (float64, bool) {
	if length < 2 || len(closes) < length+1 {
		return 0, false
	}

	if isFlat(closes) {
		return RSINeutral, true
	}

	rsi := talib.Rsi(closes, length)
	last := rsi[len(rsi)-1]
	if math.IsNaN(last) {
		return 0, false
	}
	return last, true
}

func isFlat(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
