package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_Lookups(t *testing.T) {
	frame := Frame{Index: 3, Prices: []PricePoint{{"AAA", 10}, {"BBB", 20}}}

	price, ok := frame.Price("BBB")
	require.True(t, ok)
	assert.Equal(t, 20.0, price)

	_, ok = frame.Price("CCC")
	assert.False(t, ok)

	assert.Equal(t, []string{"AAA", "BBB"}, frame.Symbols())
	assert.Equal(t, map[string]float64{"AAA": 10, "BBB": 20}, frame.PriceMap())
}

func TestHistory_BeforeExcludesCutoff(t *testing.T) {
	h := History{
		{Symbol: "AAA", Prices: []float64{1, 2, 3, 4}},
		{Symbol: "BBB", Prices: []float64{5, 6}},
	}

	past := h.Before(3)
	assert.Equal(t, []float64{1, 2, 3}, past[0].Prices)
	assert.Equal(t, []float64{5, 6}, past[1].Prices)
	// original untouched
	assert.Len(t, h[0].Prices, 4)

	s, ok := past.Lookup("BBB")
	require.True(t, ok)
	assert.Equal(t, "BBB", s.Symbol)
	assert.Equal(t, []string{"AAA", "BBB"}, past.Symbols())
}

func TestSeries_Usable(t *testing.T) {
	assert.True(t, Series{Symbol: "A", Prices: []float64{1}}.Usable())
	assert.False(t, Series{Symbol: "A"}.Usable())
	assert.False(t, Series{Symbol: "A", Prices: []float64{1}, Err: errors.New("boom")}.Usable())
}

func TestErrors_As(t *testing.T) {
	err := fmt.Errorf("scoring: %w", &InsufficientDataError{Symbol: "AAA", Indicator: "rsi", Need: 15, Have: 3})

	var dataErr *InsufficientDataError
	require.True(t, errors.As(err, &dataErr))
	assert.Equal(t, 15, dataErr.Need)
	assert.Contains(t, err.Error(), "need 15 prices, have 3")

	cv := &ConstraintViolation{Symbol: "AAA", Action: ActionBuy, Price: 50, Reason: "insufficient funds"}
	assert.Equal(t, "buy AAA at 50.00 rejected: insufficient funds", cv.Error())
}
