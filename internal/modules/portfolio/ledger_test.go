package portfolio

import (
	"errors"
	"testing"

	"github.com/aristath/tradepath/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(funds float64) *Ledger {
	return NewLedger(funds, zerolog.Nop())
}

func TestLedger_BuyUntilFundsRunOut(t *testing.T) {
	l := newLedger(100)

	require.NoError(t, l.Buy("X", 50, 1))
	assert.Equal(t, 50.0, l.Funds())
	assert.Equal(t, 1, l.Amount("X"))

	require.NoError(t, l.Buy("X", 50, 2))
	assert.Equal(t, 0.0, l.Funds())
	assert.Equal(t, 2, l.Amount("X"))

	err := l.Buy("X", 50, 3)
	require.Error(t, err)
	var cv *domain.ConstraintViolation
	require.True(t, errors.As(err, &cv))
	assert.Equal(t, "insufficient funds", cv.Reason)
	assert.Equal(t, 0.0, l.Funds())
	assert.Equal(t, 2, l.Amount("X"))
	assert.Len(t, l.Actions(), 2)
}

func TestLedger_RejectsInvalidPrice(t *testing.T) {
	l := newLedger(100)
	assert.Error(t, l.Buy("X", 0, 0))
	assert.Error(t, l.Buy("X", -5, 0))
	assert.Empty(t, l.Actions())
}

func TestLedger_SellRemovesEntryAtZero(t *testing.T) {
	l := newLedger(100)
	require.NoError(t, l.Buy("X", 40, 0))

	require.NoError(t, l.Sell("X", 45, 1))
	assert.False(t, l.Has("X"))
	assert.Empty(t, l.Holdings())
	assert.Equal(t, 105.0, l.Funds())

	err := l.Sell("X", 45, 2)
	var cv *domain.ConstraintViolation
	require.True(t, errors.As(err, &cv))
	assert.Equal(t, domain.ActionSell, cv.Action)
	assert.Equal(t, 105.0, l.Funds())
}

func TestLedger_ActionLog(t *testing.T) {
	l := newLedger(100)
	require.NoError(t, l.Buy("A", 10, 26))
	require.NoError(t, l.Sell("A", 12, 27))

	assert.Equal(t, []domain.LogEntry{
		{Symbol: "A", Action: domain.ActionBuy, Value: 10, Frame: 26},
		{Symbol: "A", Action: domain.ActionSell, Value: 12, Frame: 27},
	}, l.Actions())
}

func TestLedger_PercentageIsShareCountBased(t *testing.T) {
	l := newLedger(1000)
	assert.Equal(t, 0.0, l.Percentage("A"))

	require.NoError(t, l.Buy("A", 100, 0))
	require.NoError(t, l.Buy("B", 1, 0))
	require.NoError(t, l.Buy("B", 1, 0))
	require.NoError(t, l.Buy("B", 1, 0))

	assert.Equal(t, 0.25, l.Percentage("A"))
	assert.Equal(t, 0.75, l.Percentage("B"))
	assert.Equal(t, 0.0, l.Percentage("C"))
	assert.Equal(t, 4, l.TotalShares())
}

func TestLedger_HoldingsKeepAcquisitionOrder(t *testing.T) {
	l := newLedger(1000)
	require.NoError(t, l.Buy("B", 1, 0))
	require.NoError(t, l.Buy("A", 1, 0))
	require.NoError(t, l.Buy("B", 1, 0))

	assert.Equal(t, []domain.Holding{{Symbol: "B", Amount: 2}, {Symbol: "A", Amount: 1}}, l.Holdings())
}

func TestLedger_Value(t *testing.T) {
	l := newLedger(100)
	require.NoError(t, l.Buy("A", 10, 0))
	require.NoError(t, l.Buy("A", 10, 0))
	require.NoError(t, l.Buy("B", 30, 0))

	prices := map[string]float64{"A": 12, "B": 25}
	assert.Equal(t, 49.0, l.HeldValue(prices))
	assert.Equal(t, 99.0, l.Value(prices))
	assert.Equal(t, 24.0, l.HeldValue(map[string]float64{"A": 12}))
}

func TestLedger_TransitionKeepsAllocation(t *testing.T) {
	l := newLedger(1000)
	require.NoError(t, l.Buy("A", 10, 0))
	require.NoError(t, l.Buy("B", 10, 0))
	require.NoError(t, l.Buy("B", 10, 0))
	require.NoError(t, l.Buy("B", 10, 0))

	frame := domain.Frame{Index: 5, Prices: []domain.PricePoint{{Symbol: "A", Price: 20}, {Symbol: "B", Price: 15}}}
	l.Transition(400, frame)

	// A: floor(400*0.25/20) = 5, B: floor(400*0.75/15) = 20
	assert.Equal(t, 5, l.Amount("A"))
	assert.Equal(t, 20, l.Amount("B"))
	assert.Equal(t, 0.0, l.Funds())
}

func TestLedger_TransitionDropsUnpricedSymbols(t *testing.T) {
	l := newLedger(100)
	require.NoError(t, l.Buy("A", 10, 0))
	require.NoError(t, l.Buy("Z", 10, 0))

	l.Transition(100, domain.Frame{Prices: []domain.PricePoint{{Symbol: "A", Price: 10}}})

	assert.Equal(t, 5, l.Amount("A"))
	assert.False(t, l.Has("Z"))
	assert.Equal(t, 50.0, l.Funds())
}

func TestLedger_ApplySkipsHoldsAndCollectsRejections(t *testing.T) {
	l := newLedger(60)
	path := []domain.ActionCandidate{
		{Symbol: "A", Action: domain.ActionBuy, Value: -50},
		{Symbol: "B", Action: domain.ActionHold, Value: 0},
		{Symbol: "C", Action: domain.ActionBuy, Value: -20},
		{Symbol: "D", Action: domain.ActionSell, Value: 5},
		{Symbol: "A", Action: domain.ActionSell, Value: 55},
	}

	result := l.Apply(path, 30)

	assert.Equal(t, 2, result.Applied)
	require.Len(t, result.Rejected, 2)
	assert.Equal(t, "C", result.Rejected[0].Symbol)
	assert.Equal(t, "D", result.Rejected[1].Symbol)
	assert.Equal(t, 65.0, l.Funds())
	for _, entry := range l.Actions() {
		assert.Equal(t, 30, entry.Frame)
	}
}
