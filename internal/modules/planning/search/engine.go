// Package search runs the best-first traversal that picks one action path per frame.
package search

import (
	"context"
	"fmt"
	"math"

	"github.com/aristath/tradepath/internal/domain"
	"github.com/aristath/tradepath/internal/modules/planning/evaluation"
	"github.com/aristath/tradepath/internal/modules/planning/graph"
	"github.com/aristath/tradepath/pkg/pqueue"
	"github.com/rs/zerolog"
)

// Priority blend: heuristic*0.65 + normalize(value*0.6 + funds*0.4)*0.35
const (
	DefaultHeuristicWeight  = 0.65
	DefaultProjectionWeight = 0.35
	DefaultValueWeight      = 0.6
	DefaultFundsWeight      = 0.4
)

// Config holds the search parameters
type Config struct {
	HeuristicWeight  float64 `json:"heuristic_weight"`
	ProjectionWeight float64 `json:"projection_weight"`
	ValueWeight      float64 `json:"value_weight"`
	FundsWeight      float64 `json:"funds_weight"`
	// MaxPops stops the search after this many dequeues; 0 means unbounded
	MaxPops int `json:"max_pops"`
	// NormalizeScale is the logistic scale of the default normalizer
	NormalizeScale float64 `json:"normalize_scale"`
}

// DefaultConfig returns the standard search blend
func DefaultConfig() Config {
	return Config{
		HeuristicWeight:  DefaultHeuristicWeight,
		ProjectionWeight: DefaultProjectionWeight,
		ValueWeight:      DefaultValueWeight,
		FundsWeight:      DefaultFundsWeight,
		NormalizeScale:   1,
	}
}

// Stats counts what one search did
type Stats struct {
	Popped    int  `json:"popped"`
	Pushed    int  `json:"pushed"`
	Skipped   int  `json:"skipped"`
	Pruned    int  `json:"pruned"`
	Truncated bool `json:"truncated"`
}

// Result is the outcome of one search
type Result struct {
	Path  []graph.NodeID `json:"path,omitempty"`
	Goal  graph.NodeID   `json:"goal"`
	Stats Stats          `json:"stats"`
	Found bool           `json:"found"`
}

// Engine is a best-first search over a decision graph
type Engine struct {
	log       zerolog.Logger
	policy    VisitedPolicy
	normalize Normalizer
	config    Config
}

// Option customises an Engine
type Option func(*Engine)

// WithVisitedPolicy swaps the visited-set keying
func WithVisitedPolicy(p VisitedPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithNormalizer swaps the projection normalizer
func WithNormalizer(n Normalizer) Option {
	return func(e *Engine) { e.normalize = n }
}

// NewEngine creates a search engine. The defaults are SymbolActionPolicy and
// a logistic normalizer with the configured scale.
func NewEngine(config Config, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		config:    config,
		policy:    SymbolActionPolicy{},
		normalize: Logistic(config.NormalizeScale),
		log:       log.With().Str("component", "search_engine").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the visited policy in use
func (e *Engine) Policy() VisitedPolicy {
	return e.policy
}

// Priority blends a node's heuristic with its normalized projection.
// A NaN heuristic counts as 0.
func (e *Engine) Priority(heuristic float64, p evaluation.Projection) float64 {
	if math.IsNaN(heuristic) {
		heuristic = 0
	}
	blend := e.config.ValueWeight*p.Value + e.config.FundsWeight*p.Funds
	return e.config.HeuristicWeight*heuristic + e.config.ProjectionWeight*e.normalize(blend)
}

// Search walks g from the root until a node whose symbol is goal is dequeued.
//
// Buy children that cost more than their parent's projected funds are pruned.
// When the queue drains, or MaxPops is reached, domain.ErrSearchExhausted is
// returned together with the statistics gathered so far.
func (e *Engine) Search(ctx context.Context, g *graph.Graph, goal string, ledger evaluation.LedgerView, frame domain.Frame) (Result, error) {
	evaluator := evaluation.NewEvaluator(g, ledger, frame)
	queue := pqueue.New[graph.NodeID]()
	visited := make(map[string]struct{})
	result := Result{Goal: graph.NoParent}

	queue.Push(graph.RootID, 0)
	result.Stats.Pushed++

	for !queue.IsEmpty() {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if e.config.MaxPops > 0 && result.Stats.Popped >= e.config.MaxPops {
			result.Stats.Truncated = true
			break
		}

		item, _ := queue.Pop()
		result.Stats.Popped++
		node := g.Node(item.Value)

		key := e.policy.Key(node)
		if _, seen := visited[key]; seen {
			result.Stats.Skipped++
			continue
		}
		visited[key] = struct{}{}

		if node.Symbol == goal {
			result.Goal = node.ID
			result.Found = true
			result.Path = g.Path(node.ID)
			e.log.Debug().
				Str("goal", goal).
				Int("popped", result.Stats.Popped).
				Int("pushed", result.Stats.Pushed).
				Int("skipped", result.Stats.Skipped).
				Int("pruned", result.Stats.Pruned).
				Msg("Search reached goal")
			return result, nil
		}

		projected := evaluator.Evaluate(node.ID)
		for _, childID := range node.Children {
			child := g.Node(childID)
			if _, seen := visited[e.policy.Key(child)]; seen {
				result.Stats.Skipped++
				continue
			}
			if child.Cost() > projected.Funds {
				result.Stats.Pruned++
				continue
			}
			queue.Push(childID, e.Priority(child.Heuristic, evaluator.Evaluate(childID)))
			result.Stats.Pushed++
		}
	}

	e.log.Debug().
		Str("goal", goal).
		Int("popped", result.Stats.Popped).
		Bool("truncated", result.Stats.Truncated).
		Msg("Search exhausted")

	if result.Stats.Truncated {
		return result, fmt.Errorf("%w: pop limit %d reached", domain.ErrSearchExhausted, e.config.MaxPops)
	}
	return result, domain.ErrSearchExhausted
}
