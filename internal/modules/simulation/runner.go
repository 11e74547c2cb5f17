package simulation

import (
	"context"
	"errors"
	"fmt"

	"github.com/aristath/tradepath/internal/domain"
	"github.com/aristath/tradepath/internal/marketdata"
	"github.com/aristath/tradepath/internal/modules/planning/planner"
	"github.com/aristath/tradepath/internal/modules/planning/progress"
	"github.com/aristath/tradepath/internal/modules/planning/search"
	"github.com/aristath/tradepath/internal/modules/portfolio"
	"github.com/aristath/tradepath/internal/modules/universe"
	"github.com/rs/zerolog"
)

// Recorder receives per-frame measurements
type Recorder interface {
	ObserveFrame(report FrameReport)
	ObserveRun(result *Result, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFrame(FrameReport)  {}
func (nopRecorder) ObserveRun(*Result, error) {}

// Config holds runner parameters
type Config struct {
	Planner      planner.Config `json:"planner"`
	WarmupFrames int            `json:"warmup_frames"`
	MaxSymbols   int            `json:"max_symbols"`
}

// DefaultConfig returns the runner defaults
func DefaultConfig() Config {
	return Config{
		Planner:      planner.DefaultConfig(),
		WarmupFrames: MinWarmupFrames,
		MaxSymbols:   DefaultMaxSymbols,
	}
}

// Runner executes simulations
type Runner struct {
	provider marketdata.Provider
	recorder Recorder
	log      zerolog.Logger
	opts     []search.Option
	config   Config
}

// Option configures a Runner
type Option func(*Runner)

// WithRecorder attaches a metrics recorder
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// WithSearchOptions forwards options to every frame's search engine
func WithSearchOptions(opts ...search.Option) Option {
	return func(r *Runner) {
		r.opts = append(r.opts, opts...)
	}
}

// NewRunner creates a runner over provider
func NewRunner(provider marketdata.Provider, config Config, log zerolog.Logger, opts ...Option) *Runner {
	if config.WarmupFrames < MinWarmupFrames {
		config.WarmupFrames = MinWarmupFrames
	}
	r := &Runner{
		provider: provider,
		recorder: nopRecorder{},
		config:   config,
		log:      log.With().Str("service", "simulation").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the runner configuration
func (r *Runner) Config() Config {
	return r.config
}

// Run fetches history for the request window and replays it.
//
// Instruments without usable prices are excluded. Frames whose search does
// not reach the goal are skipped. Only validation, missing data and
// cancellation end a run with an error.
func (r *Runner) Run(ctx context.Context, req Request, cb progress.Callback) (*Result, error) {
	result, err := r.run(ctx, req, cb)
	r.recorder.ObserveRun(result, err)
	return result, err
}

func (r *Runner) run(ctx context.Context, req Request, cb progress.Callback) (*Result, error) {
	if err := req.Validate(r.config.MaxSymbols); err != nil {
		return nil, err
	}

	start, end := universe.TimeFrame(req.Years, req.Months)
	horizon := req.Horizon()
	log := r.log.With().
		Strs("symbols", req.Symbols).
		Str("horizon", string(horizon)).
		Logger()

	progress.Call(cb, progress.Update{Phase: "fetch", Message: "Fetching price history", Total: len(req.Symbols)})

	history := r.provider.History(ctx, req.Symbols, start, end)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	aligned := marketdata.Align(history)
	for _, s := range history {
		if !s.Usable() {
			log.Warn().Err(s.Err).Str("symbol", s.Symbol).Msg("Instrument excluded from run")
		}
	}
	if aligned.Len() == 0 {
		return nil, fmt.Errorf("%w for %v", domain.ErrNoPriceData, req.Symbols)
	}

	cfg := r.config.Planner
	cfg.Graph.Horizon = horizon
	if req.SellAtOnce != nil {
		cfg.Graph.SellAtOnce = *req.SellAtOnce
	}
	cfg.TerminationSymbol = req.TerminationSymbol
	plan := planner.NewPlanner(cfg, r.log, r.opts...)

	ledger := portfolio.NewLedger(req.Capital, r.log)
	result := &Result{
		Start:    start,
		End:      end,
		Horizon:  horizon,
		Symbols:  aligned.History.Symbols(),
		Excluded: aligned.Excluded,
		Capital:  req.Capital,
		Frames:   aligned.Len(),
	}

	if aligned.Len() <= r.config.WarmupFrames {
		log.Warn().
			Int("frames", aligned.Len()).
			Int("warmup", r.config.WarmupFrames).
			Msg("History shorter than warm-up, no frame simulated")
	}

	total := max(0, aligned.Len()-r.config.WarmupFrames)
	for i := r.config.WarmupFrames; i < aligned.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame := aligned.Frames[i]
		report := FrameReport{Index: i, Date: frame.Date}

		if req.contributesAt(i - r.config.WarmupFrames) {
			ledger.Transition(ledger.Value(frame.PriceMap())+req.Contribution, frame)
			result.Contributed += req.Contribution
			report.Contributed = req.Contribution
		}

		p, err := plan.PlanFrame(ctx, aligned.History.Before(i), frame, ledger)
		report.Pops = p.Search.Popped
		report.Nodes = p.Build.Nodes
		switch {
		case err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
			return nil, err
		case err != nil:
			log.Warn().Err(err).Int("frame", i).Msg("Frame planning failed, skipping")
			result.Skipped++
		case !p.Found:
			result.Skipped++
		default:
			applied := ledger.Apply(p.Path, i)
			report.Found = true
			report.Applied = applied.Applied
			report.Rejected = len(applied.Rejected)
			result.Rejected += report.Rejected
			result.Processed++
		}

		report.Value = ledger.Value(frame.PriceMap())
		report.Funds = ledger.Funds()
		r.recorder.ObserveFrame(report)

		log.Debug().
			Int("frame", i).
			Bool("found", report.Found).
			Int("applied", report.Applied).
			Float64("value", report.Value).
			Msg("Frame simulated")

		progress.Call(cb, progress.Update{
			Phase:   "simulate",
			Message: fmt.Sprintf("Frame %d of %d", i-r.config.WarmupFrames+1, total),
			Current: i - r.config.WarmupFrames + 1,
			Total:   total,
			Details: map[string]any{"frame": report},
		})
	}

	last := aligned.Frames[aligned.Len()-1]
	result.FinalValue = ledger.Value(last.PriceMap())
	result.Funds = ledger.Funds()
	result.Holdings = ledger.Holdings()
	result.Actions = ledger.Actions()

	log.Info().
		Float64("final_value", result.FinalValue).
		Float64("funds", result.Funds).
		Int("actions", len(result.Actions)).
		Int("processed", result.Processed).
		Int("skipped", result.Skipped).
		Msg("Simulation completed")

	progress.Call(cb, progress.Update{Phase: "done", Message: "Simulation completed", Current: total, Total: total})

	return result, nil
}
