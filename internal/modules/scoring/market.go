package scoring

import (
	"math"

	"github.com/aristath/tradepath/internal/domain"
	"github.com/aristath/tradepath/pkg/formulas"
)

// MarketContext carries the cross-sectional Sharpe and Sortino ratios of the
// universe so a single instrument can be ranked by percentile against it
type MarketContext struct {
	Sharpes  []float64 `json:"sharpes"`
	Sortinos []float64 `json:"sortinos"`
}

// NewMarketContext computes floored risk ratios for every series with data
func NewMarketContext(history domain.History) *MarketContext {
	mc := &MarketContext{}
	for _, s := range history {
		if len(s.Prices) < 2 {
			continue
		}
		sharpe, sortino := RiskRatios(formulas.CalculateReturns(s.Prices))
		mc.Sharpes = append(mc.Sharpes, sharpe)
		mc.Sortinos = append(mc.Sortinos, sortino)
	}
	return mc
}

func (mc *MarketContext) rankSharpe(x float64) float64 {
	if mc == nil {
		return exponentialRank(x)
	}
	return percentileRank(mc.Sharpes, x)
}

func (mc *MarketContext) rankSortino(x float64) float64 {
	if mc == nil {
		return exponentialRank(x)
	}
	return percentileRank(mc.Sortinos, x)
}

// percentileRank is the share of population values strictly below x, so an
// instrument tied with the whole universe ranks 0 rather than 1.
// An empty population falls back to exponential ranking.
func percentileRank(population []float64, x float64) float64 {
	if len(population) == 0 {
		return exponentialRank(x)
	}
	count := 0
	for _, v := range population {
		if v < x {
			count++
		}
	}
	return float64(count) / float64(len(population))
}

// exponentialRank maps [0, +Inf] onto [0, 1] with diminishing returns
func exponentialRank(x float64) float64 {
	if math.IsInf(x, 1) {
		return 1
	}
	return formulas.Clamp01(1 - math.Exp(-RankDecay*x))
}
