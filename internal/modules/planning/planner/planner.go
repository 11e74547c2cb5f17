// Package planner runs one rebalancing frame: menu, scores, decision graph and search.
package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/aristath/tradepath/internal/domain"
	"github.com/aristath/tradepath/internal/modules/planning/evaluation"
	"github.com/aristath/tradepath/internal/modules/planning/graph"
	"github.com/aristath/tradepath/internal/modules/planning/menu"
	"github.com/aristath/tradepath/internal/modules/planning/search"
	"github.com/aristath/tradepath/internal/modules/scoring"
	"github.com/rs/zerolog"
)

// Config collects the per-run planning parameters
type Config struct {
	// TerminationSymbol ends the search when dequeued. Empty means the last
	// instrument that made it into the frame's graph.
	TerminationSymbol string            `json:"termination_symbol,omitempty"`
	Search            search.Config     `json:"search"`
	Graph             graph.BuildConfig `json:"graph"`
	Menu              menu.Config       `json:"menu"`
	// UseMarketContext ranks Sharpe and Sortino against the frame's universe
	// instead of the absolute exponential rank
	UseMarketContext bool `json:"use_market_context"`
}

// DefaultConfig returns planning defaults for the short horizon
func DefaultConfig() Config {
	return Config{
		Menu:   menu.DefaultConfig(),
		Graph:  graph.BuildConfig{Horizon: domain.HorizonShort, MaxNodes: graph.DefaultMaxNodes},
		Search: search.DefaultConfig(),
	}
}

// Ledger is everything a frame needs to read from the portfolio
type Ledger interface {
	menu.LedgerView
	evaluation.LedgerView
	graph.HoldingsView
}

// Plan is the outcome of one frame
type Plan struct {
	Scores map[string]scoring.ScoreSet `json:"scores,omitempty"`
	Goal   string                      `json:"goal"`
	Path   []domain.ActionCandidate    `json:"path"`
	Build  graph.BuildStats            `json:"build"`
	Search search.Stats                `json:"search"`
	Found  bool                        `json:"found"`
}

// Planner wires the per-frame pipeline
type Planner struct {
	log     zerolog.Logger
	menu    *menu.Generator
	builder *graph.Builder
	engine  *search.Engine
	scorer  *scoring.HeuristicScorer
	config  Config
}

// NewPlanner creates a planner. Search options swap the visited policy or normalizer.
func NewPlanner(config Config, log zerolog.Logger, opts ...search.Option) *Planner {
	return &Planner{
		config:  config,
		menu:    menu.NewGenerator(config.Menu, log),
		builder: graph.NewBuilder(config.Graph, log),
		engine:  search.NewEngine(config.Search, log, opts...),
		scorer:  scoring.NewHeuristicScorer(),
		log:     log.With().Str("component", "planner").Logger(),
	}
}

// PlanFrame plans frame using only history strictly before it.
//
// A search that does not reach the goal yields Found=false and no error;
// the frame is then a no-trade frame. Errors are returned for cancellation
// and for graphs that exceed the node limit.
func (p *Planner) PlanFrame(ctx context.Context, past domain.History, frame domain.Frame, ledger Ledger) (Plan, error) {
	var market *scoring.MarketContext
	if p.config.UseMarketContext {
		market = scoring.NewMarketContext(past)
	}

	scores := make(map[string]scoring.ScoreSet, len(past))
	scoreFn := func(symbol string) (scoring.ScoreSet, error) {
		if s, ok := scores[symbol]; ok {
			return s, nil
		}
		series, ok := past.Lookup(symbol)
		if !ok {
			return scoring.ScoreSet{}, &domain.InsufficientDataError{Symbol: symbol, Indicator: "history", Need: 1}
		}
		s, err := p.scorer.Calculate(series, market)
		if err != nil {
			return scoring.ScoreSet{}, err
		}
		scores[symbol] = s
		return s, nil
	}

	entries := p.menu.Generate(frame, ledger)
	g, buildStats, err := p.builder.Build(entries, scoreFn, ledger)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to build decision graph for frame %d: %w", frame.Index, err)
	}

	plan := Plan{Scores: scores, Build: buildStats, Goal: p.goal(buildStats)}
	if plan.Goal == "" {
		p.log.Debug().Int("frame", frame.Index).Msg("No instrument could be scored")
		return plan, nil
	}

	result, err := p.engine.Search(ctx, g, plan.Goal, ledger, frame)
	plan.Search = result.Stats
	if err != nil {
		if errors.Is(err, domain.ErrSearchExhausted) {
			p.log.Debug().Int("frame", frame.Index).Str("goal", plan.Goal).Msg("No path to goal")
			return plan, nil
		}
		return plan, fmt.Errorf("search failed for frame %d: %w", frame.Index, err)
	}

	plan.Found = true
	plan.Path = g.Candidates(result.Path)
	return plan, nil
}

func (p *Planner) goal(stats graph.BuildStats) string {
	if p.config.TerminationSymbol != "" {
		return p.config.TerminationSymbol
	}
	if len(stats.Included) == 0 {
		return ""
	}
	return stats.Included[len(stats.Included)-1]
}
