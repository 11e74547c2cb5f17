// Package scoring turns an instrument's price history into bounded buy/sell/hold scores.
package scoring

import (
	"math"

	"github.com/aristath/tradepath/internal/domain"
	"github.com/aristath/tradepath/pkg/formulas"
)

// ============================================================================
// RISK PARAMETERS
// ============================================================================

const (
	// RiskFreeRate is the annual risk-free rate used by Sharpe and Sortino
	RiskFreeRate = 0.02
	// RankDecay drives 1 - e^(-k*ratio) when no market context is available
	RankDecay = 0.3
	// MaxVaRLoss is the VaR at which varSafety reaches 0 (-30%)
	MaxVaRLoss = 0.3
	// MaxCVaRLoss is the CVaR at which cvarSafety reaches 0 (-50%)
	MaxCVaRLoss = 0.5
	// NeutralScore is used for signals that cannot be computed
	NeutralScore = 0.5
	// RSIFloor and RSISpan map RSI 30..70 onto 0..1
	RSIFloor = 30.0
	RSISpan  = 40.0
)

// ============================================================================
// SHORT-HORIZON WEIGHTS
// ============================================================================

const (
	BuyShortMomentumWeight  = 0.30
	BuyShortMACDWeight      = 0.20
	BuyShortRSIWeight       = 0.20
	BuyShortSharpeWeight    = 0.20
	BuyShortVaRWeight       = 0.05
	BuyShortStabilityWeight = 0.05
)

// ============================================================================
// LONG-HORIZON WEIGHTS
// ============================================================================

const (
	BuyLongMomentumWeight  = 0.30
	BuyLongMACDWeight      = 0.20
	BuyLongRSIWeight       = 0.20
	BuyLongSharpeWeight    = 0.15
	BuyLongVaRWeight       = 0.10
	BuyLongStabilityWeight = 0.05
)

// ============================================================================
// SELL AND HOLD WEIGHTS (shared by both horizons)
// ============================================================================

const (
	SellMomentumWeight  = 0.30
	SellMACDWeight      = 0.20
	SellRSIWeight       = 0.20
	SellVaRWeight       = 0.15
	SellCVaRWeight      = 0.10
	SellStabilityWeight = 0.05

	HoldSharpeWeight    = 0.30
	HoldSortinoWeight   = 0.30
	HoldStabilityWeight = 0.20
	HoldRSIWeight       = 0.10
	HoldVaRWeight       = 0.10
)

// ScoreSet holds the six heuristic scores of one instrument, each in [0, 1]
type ScoreSet struct {
	Components map[string]float64 `json:"components"`
	Symbol     string             `json:"symbol"`
	BuyShort   float64            `json:"buy_short"`
	SellShort  float64            `json:"sell_short"`
	HoldShort  float64            `json:"hold_short"`
	BuyLong    float64            `json:"buy_long"`
	SellLong   float64            `json:"sell_long"`
	HoldLong   float64            `json:"hold_long"`
}

// For returns the score of action under horizon. Unknown actions score 0.
func (s ScoreSet) For(action domain.Action, horizon domain.Horizon) float64 {
	long := horizon == domain.HorizonLong
	switch action {
	case domain.ActionBuy:
		if long {
			return s.BuyLong
		}
		return s.BuyShort
	case domain.ActionSell:
		if long {
			return s.SellLong
		}
		return s.SellShort
	case domain.ActionHold:
		if long {
			return s.HoldLong
		}
		return s.HoldShort
	}
	return 0
}

// HeuristicScorer computes ScoreSets. It is stateless.
type HeuristicScorer struct{}

// NewHeuristicScorer creates a new heuristic scorer
func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{}
}

// Calculate scores one price series.
//
// Args:
//
//	series: chronological closes of one instrument
//	market: optional cross-sectional context; nil falls back to exponential ranking
//
// Returns:
//
//	The six scores, or *domain.InsufficientDataError when the series is
//	shorter than the RSI window requires.
func (hs *HeuristicScorer) Calculate(series domain.Series, market *MarketContext) (ScoreSet, error) {
	prices := series.Prices

	rsi, ok := formulas.CalculateRSI(prices, formulas.RSIPeriod)
	if !ok {
		return ScoreSet{}, &domain.InsufficientDataError{
			Symbol:    series.Symbol,
			Indicator: "rsi",
			Need:      formulas.RSIPeriod + 1,
			Have:      len(prices),
		}
	}
	rsiNorm := formulas.Clamp01((rsi - RSIFloor) / RSISpan)

	momShort := formulas.TanhScore(formulas.Momentum(prices, formulas.ShortMomentumDivisor))
	momLong := formulas.TanhScore(formulas.Momentum(prices, formulas.LongMomentumDivisor))
	stabShort := stability(momShort)
	stabLong := stability(momLong)

	macdScore, negMacdScore := NeutralScore, NeutralScore
	if h, ok := formulas.MACDHistogram(prices); ok {
		macdScore = formulas.Sigmoid(h)
		negMacdScore = formulas.Sigmoid(-h)
	}

	returns := formulas.CalculateReturns(prices)
	sharpe, sortino := RiskRatios(returns)
	sharpeRank := market.rankSharpe(sharpe)
	sortinoRank := market.rankSortino(sortino)

	valueAtRisk := formulas.ValueAtRisk(returns, formulas.DefaultConfidence)
	cvar := formulas.ConditionalValueAtRisk(returns, valueAtRisk)
	varSafety := formulas.Clamp01(1 + valueAtRisk/MaxVaRLoss)
	cvarSafety := formulas.Clamp01(1 + cvar/MaxCVaRLoss)

	set := ScoreSet{
		Symbol: series.Symbol,
		Components: map[string]float64{
			"momentum_short": momShort,
			"momentum_long":  momLong,
			"macd":           macdScore,
			"rsi":            rsiNorm,
			"sharpe_rank":    sharpeRank,
			"sortino_rank":   sortinoRank,
			"var_safety":     varSafety,
			"cvar_safety":    cvarSafety,
		},
	}

	set.BuyShort = formulas.Clamp01(
		BuyShortMomentumWeight*momShort +
			BuyShortMACDWeight*macdScore +
			BuyShortRSIWeight*rsiNorm +
			BuyShortSharpeWeight*sharpeRank +
			BuyShortVaRWeight*varSafety +
			BuyShortStabilityWeight*stabShort)
	set.BuyLong = formulas.Clamp01(
		BuyLongMomentumWeight*momLong +
			BuyLongMACDWeight*macdScore +
			BuyLongRSIWeight*rsiNorm +
			BuyLongSharpeWeight*sharpeRank +
			BuyLongVaRWeight*varSafety +
			BuyLongStabilityWeight*stabLong)

	set.SellShort = sellScore(momShort, negMacdScore, rsiNorm, varSafety, cvarSafety, stabShort)
	set.SellLong = sellScore(momLong, negMacdScore, rsiNorm, varSafety, cvarSafety, stabLong)

	set.HoldShort = holdScore(sharpeRank, sortinoRank, stabShort, rsiNorm, varSafety)
	set.HoldLong = holdScore(sharpeRank, sortinoRank, stabLong, rsiNorm, varSafety)

	return set, nil
}

// RiskRatios returns the annualized Sharpe and Sortino ratios floored at 0
func RiskRatios(returns []float64) (sharpe, sortino float64) {
	sharpe = math.Max(0, formulas.AnnualizedSharpe(returns, RiskFreeRate))
	sortino = math.Max(0, formulas.AnnualizedSortino(returns, RiskFreeRate))
	return sharpe, sortino
}

func sellScore(momentum, negMacd, rsiNorm, varSafety, cvarSafety, stab float64) float64 {
	return formulas.Clamp01(
		SellMomentumWeight*(1-momentum) +
			SellMACDWeight*negMacd +
			SellRSIWeight*(1-rsiNorm) +
			SellVaRWeight*(1-varSafety) +
			SellCVaRWeight*(1-cvarSafety) +
			SellStabilityWeight*(1-stab))
}

func holdScore(sharpeRank, sortinoRank, stab, rsiNorm, varSafety float64) float64 {
	return formulas.Clamp01(
		HoldSharpeWeight*sharpeRank +
			HoldSortinoWeight*sortinoRank +
			HoldStabilityWeight*stab +
			HoldRSIWeight*rsiNorm +
			HoldVaRWeight*varSafety)
}

// stability is 1 when momentum is neutral and falls to 0 at either extreme
func stability(momentumScore float64) float64 {
	return 1 - math.Min(math.Abs(momentumScore-0.5)*2, 1)
}
