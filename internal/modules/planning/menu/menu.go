// Package menu builds the per-instrument action candidates offered to the search in one frame.
package menu

import (
	"github.com/aristath/tradepath/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultAllocationLimit caps the share-count fraction one instrument may reach through buys
const DefaultAllocationLimit = 0.2

// LedgerView is the read-only ledger state the menu depends on
type LedgerView interface {
	Funds() float64
	Has(symbol string) bool
	Percentage(symbol string) float64
}

// Config holds menu constraints
type Config struct {
	AllocationLimit float64 `json:"allocation_limit"`
}

// DefaultConfig returns the default menu constraints
func DefaultConfig() Config {
	return Config{AllocationLimit: DefaultAllocationLimit}
}

// Entry lists the candidate actions for one instrument
type Entry struct {
	Symbol     string                   `json:"symbol"`
	Candidates []domain.ActionCandidate `json:"candidates"`
	Price      float64                  `json:"price"`
}

// Candidate returns the entry's candidate for action, if offered
func (e Entry) Candidate(action domain.Action) (domain.ActionCandidate, bool) {
	for _, c := range e.Candidates {
		if c.Action == action {
			return c, true
		}
	}
	return domain.ActionCandidate{}, false
}

// Generator produces action menus
type Generator struct {
	log    zerolog.Logger
	config Config
}

// NewGenerator creates a menu generator
func NewGenerator(config Config, log zerolog.Logger) *Generator {
	if config.AllocationLimit <= 0 {
		config.AllocationLimit = DefaultAllocationLimit
	}
	return &Generator{
		config: config,
		log:    log.With().Str("component", "action_menu").Logger(),
	}
}

// Generate builds the menu for a frame, preserving the frame's instrument order.
//
// Hold is always offered. Sell is offered when the symbol is held. Buy is offered
// when the symbol's allocation is below the limit and the cash covers one share.
func (g *Generator) Generate(frame domain.Frame, ledger LedgerView) []Entry {
	entries := make([]Entry, 0, len(frame.Prices))
	funds := ledger.Funds()

	for _, p := range frame.Prices {
		entry := Entry{
			Symbol: p.Symbol,
			Price:  p.Price,
			Candidates: []domain.ActionCandidate{
				{Symbol: p.Symbol, Action: domain.ActionHold, Value: 0},
			},
		}

		if ledger.Has(p.Symbol) {
			entry.Candidates = append(entry.Candidates, domain.ActionCandidate{
				Symbol: p.Symbol, Action: domain.ActionSell, Value: p.Price,
			})
		}

		allocation := ledger.Percentage(p.Symbol)
		switch {
		case allocation >= g.config.AllocationLimit:
			g.log.Debug().
				Str("symbol", p.Symbol).
				Float64("allocation", allocation).
				Float64("limit", g.config.AllocationLimit).
				Msg("Buy filtered: allocation limit reached")
		case funds < p.Price:
			g.log.Debug().
				Str("symbol", p.Symbol).
				Float64("price", p.Price).
				Float64("funds", funds).
				Msg("Buy filtered: insufficient funds")
		default:
			entry.Candidates = append(entry.Candidates, domain.ActionCandidate{
				Symbol: p.Symbol, Action: domain.ActionBuy, Value: -p.Price,
			})
		}

		entries = append(entries, entry)
	}

	return entries
}
