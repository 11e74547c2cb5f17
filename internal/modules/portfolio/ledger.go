// Package portfolio holds the simulated portfolio ledger: cash, share counts and the action log.
package portfolio

import (
	"errors"
	"math"

	"github.com/aristath/tradepath/internal/domain"
	"github.com/rs/zerolog"
)

// Ledger is the only state that persists across frames of a simulation.
// It is owned by a single orchestration loop and is not safe for concurrent use.
type Ledger struct {
	log      zerolog.Logger
	holdings map[string]int
	order    []string
	actions  []domain.LogEntry
	funds    float64
}

// NewLedger creates a ledger holding only cash
func NewLedger(funds float64, log zerolog.Logger) *Ledger {
	return &Ledger{
		log:      log.With().Str("component", "ledger").Logger(),
		holdings: make(map[string]int),
		funds:    funds,
	}
}

// Funds returns the available cash
func (l *Ledger) Funds() float64 {
	return l.funds
}

// Amount returns the share count held for symbol
func (l *Ledger) Amount(symbol string) int {
	return l.holdings[symbol]
}

// Has reports whether at least one share of symbol is held
func (l *Ledger) Has(symbol string) bool {
	return l.holdings[symbol] > 0
}

// Holdings returns the current positions in acquisition order
func (l *Ledger) Holdings() []domain.Holding {
	out := make([]domain.Holding, 0, len(l.order))
	for _, symbol := range l.order {
		out = append(out, domain.Holding{Symbol: symbol, Amount: l.holdings[symbol]})
	}
	return out
}

// TotalShares returns the share count across all holdings
func (l *Ledger) TotalShares() int {
	total := 0
	for _, amount := range l.holdings {
		total += amount
	}
	return total
}

// Percentage returns symbol's share-count fraction of all held shares.
// Allocation is counted in shares, not value.
func (l *Ledger) Percentage(symbol string) float64 {
	total := l.TotalShares()
	if total == 0 {
		return 0
	}
	return float64(l.holdings[symbol]) / float64(total)
}

// Buy purchases one share of symbol at price.
// A purchase the cash cannot cover is rejected with a *domain.ConstraintViolation
// and leaves the ledger untouched.
func (l *Ledger) Buy(symbol string, price float64, frame int) error {
	if price <= 0 || math.IsNaN(price) {
		return l.reject(symbol, domain.ActionBuy, price, "invalid price")
	}
	if l.funds < price {
		return l.reject(symbol, domain.ActionBuy, price, "insufficient funds")
	}

	l.funds -= price
	if l.holdings[symbol] == 0 {
		l.order = append(l.order, symbol)
	}
	l.holdings[symbol]++
	l.record(symbol, domain.ActionBuy, price, frame)
	return nil
}

// Sell disposes of one share of symbol at price.
// Selling a symbol that is not held is rejected with a *domain.ConstraintViolation.
func (l *Ledger) Sell(symbol string, price float64, frame int) error {
	if !l.Has(symbol) {
		return l.reject(symbol, domain.ActionSell, price, "not held")
	}

	l.holdings[symbol]--
	if l.holdings[symbol] == 0 {
		l.remove(symbol)
	}
	l.funds += price
	l.record(symbol, domain.ActionSell, price, frame)
	return nil
}

// HeldValue marks every holding to prices. Symbols without a price count as 0.
func (l *Ledger) HeldValue(prices map[string]float64) float64 {
	total := 0.0
	for symbol, amount := range l.holdings {
		total += float64(amount) * prices[symbol]
	}
	return total
}

// Value returns held value plus cash
func (l *Ledger) Value(prices map[string]float64) float64 {
	return l.HeldValue(prices) + l.funds
}

// Actions returns a copy of the action log
func (l *Ledger) Actions() []domain.LogEntry {
	out := make([]domain.LogEntry, len(l.actions))
	copy(out, l.actions)
	return out
}

type allocation struct {
	symbol     string
	price      float64
	amount     int
	percentage float64
}

// Transition rebalances the ledger onto newFunds, keeping the previous
// share-count allocation. Holdings are cleared, then each symbol is bought back
// up to floor(newFunds * percentage / price) shares while cash lasts.
// Symbols missing from the frame are dropped.
func (l *Ledger) Transition(newFunds float64, frame domain.Frame) {
	prices := frame.PriceMap()

	snapshot := make([]allocation, 0, len(l.order))
	for _, symbol := range l.order {
		snapshot = append(snapshot, allocation{
			symbol:     symbol,
			price:      prices[symbol],
			amount:     l.holdings[symbol],
			percentage: l.Percentage(symbol),
		})
	}

	l.funds = newFunds
	l.holdings = make(map[string]int)
	l.order = nil

	for _, a := range snapshot {
		if a.percentage <= 0 || a.price <= 0 {
			l.log.Warn().Str("symbol", a.symbol).Msg("Dropping holding without a usable price during transition")
			continue
		}
		target := int(math.Floor(newFunds * a.percentage / a.price))
		for i := 0; i < target && l.funds >= a.price; i++ {
			if err := l.Buy(a.symbol, a.price, frame.Index); err != nil {
				break
			}
		}
	}

	l.log.Info().
		Float64("funds", newFunds).
		Int("positions", len(l.order)).
		Msg("Portfolio transitioned")
}

// ApplyResult summarises what Apply did
type ApplyResult struct {
	Rejected []*domain.ConstraintViolation
	Applied  int
}

// Apply executes a root-excluded decision path against the ledger in order.
// Holds are skipped. Rejected steps are collected and do not stop later steps.
func (l *Ledger) Apply(path []domain.ActionCandidate, frame int) ApplyResult {
	var result ApplyResult
	for _, step := range path {
		var err error
		switch step.Action {
		case domain.ActionBuy:
			err = l.Buy(step.Symbol, math.Abs(step.Value), frame)
		case domain.ActionSell:
			err = l.Sell(step.Symbol, math.Abs(step.Value), frame)
		default:
			continue
		}
		if err != nil {
			var cv *domain.ConstraintViolation
			if errors.As(err, &cv) {
				result.Rejected = append(result.Rejected, cv)
			}
			continue
		}
		result.Applied++
	}
	return result
}

// Display logs the current positions and cash
func (l *Ledger) Display() {
	for _, h := range l.Holdings() {
		l.log.Info().Str("symbol", h.Symbol).Int("amount", h.Amount).Msg("Position")
	}
	l.log.Info().Float64("funds", l.funds).Int("actions", len(l.actions)).Msg("Portfolio summary")
}

func (l *Ledger) record(symbol string, action domain.Action, price float64, frame int) {
	l.actions = append(l.actions, domain.LogEntry{
		Symbol: symbol,
		Action: action,
		Value:  price,
		Frame:  frame,
	})
}

func (l *Ledger) reject(symbol string, action domain.Action, price float64, reason string) error {
	cv := &domain.ConstraintViolation{Symbol: symbol, Action: action, Price: price, Reason: reason}
	l.log.Warn().
		Str("symbol", symbol).
		Str("action", string(action)).
		Float64("price", price).
		Float64("funds", l.funds).
		Str("reason", reason).
		Msg("Ledger action rejected")
	return cv
}

func (l *Ledger) remove(symbol string) {
	delete(l.holdings, symbol)
	for i, s := range l.order {
		if s == symbol {
			l.order = append(l.order[:i], l.order[i+1:]...)
			return
		}
	}
}
