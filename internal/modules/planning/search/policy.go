package search

import (
	"math"
	"strconv"

	"github.com/aristath/tradepath/internal/modules/planning/graph"
)

// VisitedPolicy decides which nodes count as the same state for the visited set
type VisitedPolicy interface {
	Name() string
	Key(n *graph.Node) string
}

// SymbolActionPolicy keys nodes by (symbol, action).
//
// Once any node with a given key is expanded, every other node with the same
// key is skipped wherever it sits in the tree. Outcomes therefore depend on
// expansion order, and a better branch can be cut off by an earlier one.
type SymbolActionPolicy struct{}

// Name implements VisitedPolicy
func (SymbolActionPolicy) Name() string { return "symbol_action" }

// Key implements VisitedPolicy
func (SymbolActionPolicy) Key(n *graph.Node) string {
	return n.Symbol + "_" + string(n.Action)
}

// NodePolicy keys nodes by their handle, so every node is expanded at most once
// and no branch shadows another
type NodePolicy struct{}

// Name implements VisitedPolicy
func (NodePolicy) Name() string { return "node" }

// Key implements VisitedPolicy
func (NodePolicy) Key(n *graph.Node) string {
	return strconv.Itoa(int(n.ID))
}

// Normalizer maps an unbounded projection blend onto a bounded range.
// It must be monotonic non-decreasing.
type Normalizer func(x float64) float64

// Logistic returns 1 / (1 + e^(-x/scale)). A non-positive scale means 1.
func Logistic(scale float64) Normalizer {
	if scale <= 0 {
		scale = 1
	}
	return func(x float64) float64 {
		return 1 / (1 + math.Exp(-x/scale))
	}
}
