// Package simulation replays a universe's price history frame by frame,
// planning and applying trades against a single portfolio ledger.
package simulation

import (
	"fmt"
	"time"

	"github.com/aristath/tradepath/internal/domain"
	"github.com/aristath/tradepath/internal/modules/universe"
)

// ===================================
// LIMITS
// ===================================

const (
	// MinWarmupFrames is the shortest history MACD can be computed on
	MinWarmupFrames = 26
	// DefaultMaxSymbols bounds the 3^k decision tree of one frame
	DefaultMaxSymbols = 10
)

// Request describes one simulation run
type Request struct {
	// Class picks the scoring horizon. Empty or mixed resolves from Years.
	Class             universe.Classification `json:"class,omitempty"`
	TerminationSymbol string                  `json:"termination_symbol,omitempty"`
	Symbols           []string                `json:"symbols"`
	Capital           float64                 `json:"capital"`
	Years             int                     `json:"years"`
	Months            int                     `json:"months"`
	// SellAtOnce overrides the runner's sell-at-once default when set
	SellAtOnce *bool `json:"sell_at_once,omitempty"`
	// Contribution is added every ContributionEvery simulated frames. The
	// portfolio is then rebalanced onto its value plus the contribution,
	// keeping the share-count allocation.
	Contribution      float64 `json:"contribution,omitempty"`
	ContributionEvery int     `json:"contribution_every,omitempty"`
}

// Validate checks the request against the runner limits
func (r Request) Validate(maxSymbols int) error {
	if r.Capital <= 0 {
		return fmt.Errorf("%w: capital must be positive", domain.ErrInvalidRequest)
	}
	if r.Years < 0 || r.Months < 0 {
		return fmt.Errorf("%w: duration cannot be negative", domain.ErrInvalidRequest)
	}
	if r.Contribution < 0 || r.ContributionEvery < 0 {
		return fmt.Errorf("%w: contributions cannot be negative", domain.ErrInvalidRequest)
	}
	if r.Contribution > 0 && r.ContributionEvery == 0 {
		return fmt.Errorf("%w: contribution needs contribution_every", domain.ErrInvalidRequest)
	}
	if len(r.Symbols) == 0 {
		return fmt.Errorf("%w: at least one symbol is required", domain.ErrInvalidRequest)
	}
	if maxSymbols > 0 && len(r.Symbols) > maxSymbols {
		return fmt.Errorf("%w: at most %d symbols per run, got %d", domain.ErrInvalidRequest, maxSymbols, len(r.Symbols))
	}
	seen := make(map[string]bool, len(r.Symbols))
	for _, s := range r.Symbols {
		if s == "" {
			return fmt.Errorf("%w: empty symbol", domain.ErrInvalidRequest)
		}
		if seen[s] {
			return fmt.Errorf("%w: duplicate symbol %s", domain.ErrInvalidRequest, s)
		}
		seen[s] = true
	}
	return nil
}

// contributesAt reports whether a contribution is due before simulated frame n (0-based)
func (r Request) contributesAt(n int) bool {
	return r.Contribution > 0 && r.ContributionEvery > 0 && n > 0 && n%r.ContributionEvery == 0
}

// Horizon resolves the scoring horizon of the request
func (r Request) Horizon() domain.Horizon {
	return universe.ResolveHorizon(r.Class, r.Years)
}

// FrameReport describes one processed or skipped frame
type FrameReport struct {
	Date        time.Time `json:"date,omitempty"`
	Index       int       `json:"index"`
	Applied     int       `json:"applied"`
	Rejected    int       `json:"rejected"`
	Pops        int       `json:"pops"`
	Nodes       int       `json:"nodes"`
	Value       float64   `json:"value"`
	Funds       float64   `json:"funds"`
	Contributed float64   `json:"contributed,omitempty"`
	Found       bool      `json:"found"`
}

// Result is the externally observable outcome of a run
type Result struct {
	Start       time.Time         `json:"start"`
	End         time.Time         `json:"end"`
	Horizon     domain.Horizon    `json:"horizon"`
	Symbols     []string          `json:"symbols"`
	Excluded    []string          `json:"excluded,omitempty"`
	Holdings    []domain.Holding  `json:"holdings"`
	Actions     []domain.LogEntry `json:"actions"`
	Capital     float64           `json:"capital"`
	Contributed float64           `json:"contributed,omitempty"`
	FinalValue  float64           `json:"final_value"`
	Funds       float64           `json:"funds"`
	Frames      int               `json:"frames"`
	Processed   int               `json:"processed"`
	Skipped     int               `json:"skipped"`
	Rejected    int               `json:"rejected"`
}

// Return is the fractional gain over the capital paid in
func (r *Result) Return() float64 {
	invested := r.Capital + r.Contributed
	if invested == 0 {
		return 0
	}
	return r.FinalValue/invested - 1
}
