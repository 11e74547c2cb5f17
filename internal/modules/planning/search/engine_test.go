package search

import (
	"context"
	"errors"
	"testing"

	"github.com/aristath/tradepath/internal/domain"
	"github.com/aristath/tradepath/internal/modules/planning/evaluation"
	"github.com/aristath/tradepath/internal/modules/planning/graph"
	"github.com/aristath/tradepath/internal/modules/portfolio"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(symbol string, action domain.Action, price float64) domain.ActionCandidate {
	c := domain.ActionCandidate{Symbol: symbol, Action: action}
	switch action {
	case domain.ActionBuy:
		c.Value = -price
	case domain.ActionSell:
		c.Value = price
	}
	return c
}

func frameOf(prices map[string]float64, order ...string) domain.Frame {
	f := domain.Frame{Index: 40}
	for _, s := range order {
		f.Prices = append(f.Prices, domain.PricePoint{Symbol: s, Price: prices[s]})
	}
	return f
}

// shadowGraph builds root -> A{buy, hold} -> B{hold} -> C{buy 60}.
// Under A:buy the C purchase is unaffordable; under A:hold it is affordable,
// but B:hold there shares its key with the B:hold expanded first.
func shadowGraph() *graph.Graph {
	g := graph.New()
	aBuy := g.Attach(graph.RootID, candidate("A", domain.ActionBuy, 50), 0.9)
	aHold := g.Attach(graph.RootID, candidate("A", domain.ActionHold, 0), 0.1)
	for _, a := range []graph.NodeID{aBuy, aHold} {
		b := g.Attach(a, candidate("B", domain.ActionHold, 0), 0.5)
		g.Attach(b, candidate("C", domain.ActionBuy, 60), 0.5)
	}
	return g
}

func shadowFrame() domain.Frame {
	return frameOf(map[string]float64{"A": 50, "B": 10, "C": 60}, "A", "B", "C")
}

func TestSearch_ReachesGoalAlongBestBranch(t *testing.T) {
	g := graph.New()
	low := g.Attach(graph.RootID, candidate("A", domain.ActionHold, 0), 0.2)
	high := g.Attach(graph.RootID, candidate("A", domain.ActionBuy, 10), 0.9)
	g.Attach(low, candidate("B", domain.ActionHold, 0), 0.5)
	goalUnderHigh := g.Attach(high, candidate("B", domain.ActionHold, 0), 0.5)

	ledger := portfolio.NewLedger(100, zerolog.Nop())
	engine := NewEngine(DefaultConfig(), zerolog.Nop())

	result, err := engine.Search(context.Background(), g, "B", ledger, frameOf(map[string]float64{"A": 10, "B": 5}, "A", "B"))
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, goalUnderHigh, result.Goal)
	assert.Equal(t, []graph.NodeID{graph.RootID, high, goalUnderHigh}, result.Path)
}

func TestSearch_SymbolActionPolicyShadowsLaterBranches(t *testing.T) {
	ledger := portfolio.NewLedger(100, zerolog.Nop())
	engine := NewEngine(DefaultConfig(), zerolog.Nop())

	result, err := engine.Search(context.Background(), shadowGraph(), "C", ledger, shadowFrame())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSearchExhausted))
	assert.False(t, result.Found)
	assert.Equal(t, 1, result.Stats.Pruned)
	assert.GreaterOrEqual(t, result.Stats.Skipped, 1)
}

func TestSearch_NodePolicyFindsShadowedBranch(t *testing.T) {
	ledger := portfolio.NewLedger(100, zerolog.Nop())
	engine := NewEngine(DefaultConfig(), zerolog.Nop(), WithVisitedPolicy(NodePolicy{}))

	g := shadowGraph()
	result, err := engine.Search(context.Background(), g, "C", ledger, shadowFrame())

	require.NoError(t, err)
	require.True(t, result.Found)
	path := g.Candidates(result.Path)
	require.Len(t, path, 3)
	assert.Equal(t, domain.ActionHold, path[0].Action)
	assert.Equal(t, "NodePolicy", policyName(engine))
}

func policyName(e *Engine) string {
	switch e.Policy().(type) {
	case NodePolicy:
		return "NodePolicy"
	case SymbolActionPolicy:
		return "SymbolActionPolicy"
	}
	return ""
}

func TestSearch_EmptyGraphExhausts(t *testing.T) {
	ledger := portfolio.NewLedger(100, zerolog.Nop())
	result, err := NewEngine(DefaultConfig(), zerolog.Nop()).
		Search(context.Background(), graph.New(), "A", ledger, domain.Frame{})

	assert.True(t, errors.Is(err, domain.ErrSearchExhausted))
	assert.Equal(t, 1, result.Stats.Popped)
}

func TestSearch_PopCeiling(t *testing.T) {
	config := DefaultConfig()
	config.MaxPops = 1
	ledger := portfolio.NewLedger(100, zerolog.Nop())

	result, err := NewEngine(config, zerolog.Nop(), WithVisitedPolicy(NodePolicy{})).
		Search(context.Background(), shadowGraph(), "C", ledger, shadowFrame())

	assert.True(t, errors.Is(err, domain.ErrSearchExhausted))
	assert.True(t, result.Stats.Truncated)
	assert.Equal(t, 1, result.Stats.Popped)
}

func TestSearch_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ledger := portfolio.NewLedger(100, zerolog.Nop())

	_, err := NewEngine(DefaultConfig(), zerolog.Nop()).Search(ctx, shadowGraph(), "C", ledger, shadowFrame())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearch_EqualPrioritiesExpandInInsertionOrder(t *testing.T) {
	g := graph.New()
	first := g.Attach(graph.RootID, candidate("G", domain.ActionHold, 0), 0.5)
	g.Attach(graph.RootID, candidate("G", domain.ActionSell, 0), 0.5)

	ledger := portfolio.NewLedger(10, zerolog.Nop())
	result, err := NewEngine(DefaultConfig(), zerolog.Nop()).
		Search(context.Background(), g, "G", ledger, domain.Frame{})

	require.NoError(t, err)
	assert.Equal(t, first, result.Goal)
}

func TestPriority_BlendAndNormalizer(t *testing.T) {
	identity := func(x float64) float64 { return x }
	engine := NewEngine(DefaultConfig(), zerolog.Nop(), WithNormalizer(identity))

	p := engine.Priority(0.5, evaluation.Projection{Value: 1, Funds: 2})
	assert.InDelta(t, 0.65*0.5+0.35*(0.6*1+0.4*2), p, 1e-12)

	def := NewEngine(DefaultConfig(), zerolog.Nop())
	assert.InDelta(t, 0.35*0.5, def.Priority(0, evaluation.Projection{}), 1e-12)
	assert.Equal(t, def.Priority(0, evaluation.Projection{}), def.Priority(nan(), evaluation.Projection{}))
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}

func TestLogistic(t *testing.T) {
	n := Logistic(100)
	assert.InDelta(t, 0.5, n(0), 1e-12)
	assert.Less(t, n(50), n(100))
	assert.InDelta(t, Logistic(1)(2), Logistic(0)(2), 1e-12)
}

func TestPolicies_Keys(t *testing.T) {
	n := &graph.Node{ActionCandidate: candidate("AAPL", domain.ActionBuy, 1), ID: 7}
	assert.Equal(t, "AAPL_buy", SymbolActionPolicy{}.Key(n))
	assert.Equal(t, "7", NodePolicy{}.Key(n))
	assert.Equal(t, "symbol_action", SymbolActionPolicy{}.Name())
	assert.Equal(t, "node", NodePolicy{}.Name())
}
