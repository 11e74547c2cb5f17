// Package domain provides core domain models and types.
package domain

import "time"

// Action is a trading decision for one instrument
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
	// ActionNone marks the neutral root of a decision tree
	ActionNone Action = "none"
)

// Horizon selects which family of heuristic scores drives a run
type Horizon string

const (
	HorizonShort Horizon = "short"
	HorizonLong  Horizon = "long"
)

// PricePoint is one instrument's price inside a frame
type PricePoint struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// Frame is a snapshot of prices across the universe at one time step.
// Prices keep the universe order.
type Frame struct {
	Date   time.Time    `json:"date,omitempty"`
	Prices []PricePoint `json:"prices"`
	Index  int          `json:"index"`
}

// Price returns the frame price for symbol
func (f Frame) Price(symbol string) (float64, bool) {
	for _, p := range f.Prices {
		if p.Symbol == symbol {
			return p.Price, true
		}
	}
	return 0, false
}

// PriceMap indexes the frame prices by symbol
func (f Frame) PriceMap() map[string]float64 {
	m := make(map[string]float64, len(f.Prices))
	for _, p := range f.Prices {
		m[p.Symbol] = p.Price
	}
	return m
}

// Symbols returns the frame symbols in universe order
func (f Frame) Symbols() []string {
	out := make([]string, len(f.Prices))
	for i, p := range f.Prices {
		out[i] = p.Symbol
	}
	return out
}

// Series is the chronological daily close history of one instrument.
// A provider that fails for a symbol returns an empty series with Err set.
type Series struct {
	Err    error       `json:"-"`
	Symbol string      `json:"symbol"`
	Prices []float64   `json:"prices"`
	Dates  []time.Time `json:"dates,omitempty"`
}

// Usable reports whether the series can take part in a simulation
func (s Series) Usable() bool {
	return s.Err == nil && len(s.Prices) > 0
}

// History is the set of series a simulation runs over
type History []Series

// Before returns every series truncated to its first cutoff prices,
// so that scoring frame i only sees prices strictly before it
func (h History) Before(cutoff int) History {
	out := make(History, len(h))
	for i, s := range h {
		n := cutoff
		if n > len(s.Prices) {
			n = len(s.Prices)
		}
		if n < 0 {
			n = 0
		}
		out[i] = Series{Symbol: s.Symbol, Prices: s.Prices[:n], Err: s.Err}
		if len(s.Dates) >= n {
			out[i].Dates = s.Dates[:n]
		}
	}
	return out
}

// Symbols returns the series symbols in order
func (h History) Symbols() []string {
	out := make([]string, len(h))
	for i, s := range h {
		out[i] = s.Symbol
	}
	return out
}

// Lookup finds the series for symbol
func (h History) Lookup(symbol string) (Series, bool) {
	for _, s := range h {
		if s.Symbol == symbol {
			return s, true
		}
	}
	return Series{}, false
}

// ActionCandidate is one action offered for an instrument in a frame.
// Value is the signed cash flow: -price for buy, +price for sell, 0 for hold.
type ActionCandidate struct {
	Symbol string  `json:"symbol"`
	Action Action  `json:"action"`
	Value  float64 `json:"value"`
}

// Holding is a share count for one symbol
type Holding struct {
	Symbol string `json:"symbol"`
	Amount int    `json:"amount"`
}

// LogEntry records one executed ledger action
type LogEntry struct {
	Symbol string  `json:"symbol"`
	Action Action  `json:"action"`
	Value  float64 `json:"value"`
	Frame  int     `json:"frame"`
}
