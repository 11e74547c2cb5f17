package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSearchExhausted is returned when the queue drains without reaching the goal symbol
	ErrSearchExhausted = errors.New("search exhausted without reaching goal")
	// ErrNotFound is returned by repositories for unknown ids
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest wraps validation failures of simulation requests
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNoPriceData is returned when no instrument of a run has usable prices
	ErrNoPriceData = errors.New("no usable price data")
)

// InsufficientDataError reports a price history too short for an indicator
type InsufficientDataError struct {
	Symbol    string
	Indicator string
	Need      int
	Have      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s on %s: need %d prices, have %d",
		e.Indicator, e.Symbol, e.Need, e.Have)
}

// ConstraintViolation reports a ledger action rejected for lack of funds or holdings
type ConstraintViolation struct {
	Symbol string
	Action Action
	Reason string
	Price  float64
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("%s %s at %.2f rejected: %s", e.Action, e.Symbol, e.Price, e.Reason)
}
