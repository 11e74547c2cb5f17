// Package evaluation replays decision paths against a read-only view of the ledger.
package evaluation

import (
	"github.com/aristath/tradepath/internal/domain"
	"github.com/aristath/tradepath/internal/modules/planning/graph"
)

// LedgerView is the ledger state a projection starts from
type LedgerView interface {
	Funds() float64
	HeldValue(prices map[string]float64) float64
}

// Projection is the hypothetical portfolio after replaying a path
type Projection struct {
	Value float64 `json:"value"`
	Funds float64 `json:"funds"`
}

// Evaluator projects nodes of one graph for one frame.
// The starting point is captured at construction; the ledger is never mutated.
type Evaluator struct {
	graph *graph.Graph
	base  Projection
}

// NewEvaluator captures the ledger's held value at the frame's prices and its cash
func NewEvaluator(g *graph.Graph, ledger LedgerView, frame domain.Frame) *Evaluator {
	return &Evaluator{
		graph: g,
		base: Projection{
			Value: ledger.HeldValue(frame.PriceMap()),
			Funds: ledger.Funds(),
		},
	}
}

// Base returns the projection of the root
func (e *Evaluator) Base() Projection {
	return e.base
}

// GetPath returns the handles from the root to id
func (e *Evaluator) GetPath(id graph.NodeID) []graph.NodeID {
	return e.graph.Path(id)
}

// Evaluate replays the path to id.
// A sell moves its price from holdings value into cash and a buy moves it back.
// Holds change nothing.
func (e *Evaluator) Evaluate(id graph.NodeID) Projection {
	p := e.base
	for _, step := range e.GetPath(id) {
		n := e.graph.Node(step)
		switch n.Action {
		case domain.ActionBuy, domain.ActionSell:
			// Value is the signed cash flow of the step
			p.Funds += n.Value
			p.Value -= n.Value
		}
	}
	return p
}
