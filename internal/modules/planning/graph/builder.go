package graph

import (
	"errors"
	"fmt"

	"github.com/aristath/tradepath/internal/domain"
	"github.com/aristath/tradepath/internal/modules/planning/menu"
	"github.com/aristath/tradepath/internal/modules/scoring"
	"github.com/rs/zerolog"
)

// ErrTooLarge is returned when the tree would exceed BuildConfig.MaxNodes
var ErrTooLarge = errors.New("decision graph exceeds node limit")

// DefaultMaxNodes fits a full ten-instrument tree (88,573 nodes) with room
// for a few sell-at-once unwind rounds
const DefaultMaxNodes = 250_000

// templateOrder is the order in which each instrument's actions are attached
var templateOrder = []domain.Action{domain.ActionBuy, domain.ActionSell, domain.ActionHold}

// extensionOrder is the action set of the additional unwind rounds
var extensionOrder = []domain.Action{domain.ActionSell, domain.ActionHold}

// ScoreFunc returns the heuristic scores of a symbol for the current frame
type ScoreFunc func(symbol string) (scoring.ScoreSet, error)

// HoldingsView exposes share counts for multi-share unwind rounds
type HoldingsView interface {
	Amount(symbol string) int
}

// BuildConfig controls tree construction
type BuildConfig struct {
	Horizon    domain.Horizon `json:"horizon"`
	SellAtOnce bool           `json:"sell_at_once"`
	// MaxNodes bounds the arena size; 0 means unbounded
	MaxNodes int `json:"max_nodes"`
}

// BuildStats describes one built tree
type BuildStats struct {
	Excluded []string `json:"excluded,omitempty"`
	Included []string `json:"included"`
	Nodes    int      `json:"nodes"`
	Leaves   int      `json:"leaves"`
	Rounds   int      `json:"rounds"`
}

// Builder cross-products per-instrument action choices into a tree
type Builder struct {
	log    zerolog.Logger
	config BuildConfig
}

// NewBuilder creates a graph builder
func NewBuilder(config BuildConfig, log zerolog.Logger) *Builder {
	if config.Horizon == "" {
		config.Horizon = domain.HorizonShort
	}
	return &Builder{
		config: config,
		log:    log.With().Str("component", "graph_builder").Logger(),
	}
}

type template struct {
	candidate domain.ActionCandidate
	heuristic float64
}

// Build creates the decision tree for a frame's menu.
//
// Instruments are processed in menu order. Each instrument's templates are
// cloned onto every node of the current frontier and the clones become the
// next frontier. An instrument whose scores cannot be computed is left out
// of the tree. With SellAtOnce, a holding of N>1 shares adds N-1 sell/hold
// rounds for that instrument.
func (b *Builder) Build(entries []menu.Entry, scores ScoreFunc, holdings HoldingsView) (*Graph, BuildStats, error) {
	g := New()
	frontier := []NodeID{RootID}
	stats := BuildStats{}

	for _, entry := range entries {
		set, err := scores(entry.Symbol)
		if err != nil {
			b.log.Warn().Err(err).Str("symbol", entry.Symbol).Msg("Excluding instrument from frame")
			stats.Excluded = append(stats.Excluded, entry.Symbol)
			continue
		}
		stats.Included = append(stats.Included, entry.Symbol)

		templates := b.templates(entry, set, templateOrder)
		if frontier, err = b.attachRound(g, frontier, templates); err != nil {
			return nil, stats, err
		}
		stats.Rounds++

		if !b.config.SellAtOnce || holdings == nil {
			continue
		}
		extension := b.templates(entry, set, extensionOrder)
		for r := 1; r < holdings.Amount(entry.Symbol); r++ {
			if frontier, err = b.attachRound(g, frontier, extension); err != nil {
				return nil, stats, err
			}
			stats.Rounds++
		}
	}

	stats.Nodes = g.Len()
	stats.Leaves = len(frontier)

	b.log.Debug().
		Int("nodes", stats.Nodes).
		Int("leaves", stats.Leaves).
		Int("rounds", stats.Rounds).
		Int("excluded", len(stats.Excluded)).
		Msg("Built decision graph")

	return g, stats, nil
}

func (b *Builder) templates(entry menu.Entry, set scoring.ScoreSet, order []domain.Action) []template {
	out := make([]template, 0, len(order))
	for _, action := range order {
		candidate, ok := entry.Candidate(action)
		if !ok {
			continue
		}
		out = append(out, template{
			candidate: candidate,
			heuristic: set.For(action, b.config.Horizon),
		})
	}
	return out
}

func (b *Builder) attachRound(g *Graph, frontier []NodeID, templates []template) ([]NodeID, error) {
	if len(templates) == 0 {
		return frontier, nil
	}
	if b.config.MaxNodes > 0 && g.Len()+len(frontier)*len(templates) > b.config.MaxNodes {
		return nil, fmt.Errorf("%w: %d nodes would exceed %d", ErrTooLarge,
			g.Len()+len(frontier)*len(templates), b.config.MaxNodes)
	}

	next := make([]NodeID, 0, len(frontier)*len(templates))
	for _, parent := range frontier {
		for _, t := range templates {
			next = append(next, g.Attach(parent, t.candidate, t.heuristic))
		}
	}
	return next, nil
}
