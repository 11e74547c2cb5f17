package runs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aristath/tradepath/internal/events"
	"github.com/aristath/tradepath/internal/modules/planning/progress"
	"github.com/aristath/tradepath/internal/modules/simulation"
	"github.com/rs/zerolog"
)

// ErrShuttingDown is returned by Submit after Shutdown has started
var ErrShuttingDown = errors.New("run service is shutting down")

// DefaultMaxConcurrent bounds simultaneously executing runs
const DefaultMaxConcurrent = 2

// Exporter publishes completed results outside the database
type Exporter interface {
	Export(ctx context.Context, runID string, result *simulation.Result) error
}

// Store is the persistence the service needs
type Store interface {
	Create(req simulation.Request) (*Run, error)
	MarkRunning(id string) error
	Complete(id string, result *simulation.Result) error
	Fail(id string, cause error) error
}

// Simulator executes one simulation
type Simulator interface {
	Run(ctx context.Context, req simulation.Request, cb progress.Callback) (*simulation.Result, error)
}

// Service executes runs in the background and records their outcome
type Service struct {
	store    Store
	sim      Simulator
	events   *events.Manager
	exporter Exporter
	ctx      context.Context
	cancel   context.CancelFunc
	sem      chan struct{}
	log      zerolog.Logger
	wg       sync.WaitGroup
	mu       sync.Mutex
	closed   bool
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithExporter publishes every completed result through exp
func WithExporter(exp Exporter) ServiceOption {
	return func(s *Service) {
		s.exporter = exp
	}
}

// WithMaxConcurrent bounds simultaneously executing runs
func WithMaxConcurrent(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.sem = make(chan struct{}, n)
		}
	}
}

// NewService creates a new run service
func NewService(store Store, sim Simulator, em *events.Manager, log zerolog.Logger, opts ...ServiceOption) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		store:  store,
		sim:    sim,
		events: em,
		ctx:    ctx,
		cancel: cancel,
		sem:    make(chan struct{}, DefaultMaxConcurrent),
		log:    log.With().Str("service", "runs").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit stores a pending run and executes it in the background.
// Validation errors are returned before anything is stored.
func (s *Service) Submit(req simulation.Request, maxSymbols int) (*Run, error) {
	if err := req.Validate(maxSymbols); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrShuttingDown
	}

	run, err := s.store.Create(req)
	if err != nil {
		return nil, err
	}
	s.emit(events.RunQueued, run.ID, map[string]interface{}{"symbols": req.Symbols})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case s.sem <- struct{}{}:
			defer func() { <-s.sem }()
		case <-s.ctx.Done():
			s.fail(run.ID, s.ctx.Err())
			return
		}

		_, _ = s.Execute(s.ctx, run.ID, req)
	}()

	return run, nil
}

// Execute runs a stored simulation synchronously and records the outcome
func (s *Service) Execute(ctx context.Context, id string, req simulation.Request) (*simulation.Result, error) {
	log := s.log.With().Str("run_id", id).Logger()

	if err := s.store.MarkRunning(id); err != nil {
		log.Error().Err(err).Msg("Failed to mark run as running")
		return nil, err
	}
	s.emit(events.RunStarted, id, map[string]interface{}{"symbols": req.Symbols, "capital": req.Capital})

	result, err := s.sim.Run(ctx, req, func(u progress.Update) {
		if u.Phase != "simulate" {
			return
		}
		s.emit(events.FrameSimulated, id, map[string]interface{}{
			"current": u.Current,
			"total":   u.Total,
			"frame":   u.Details["frame"],
		})
	})
	if err != nil {
		s.fail(id, err)
		return nil, err
	}

	if err := s.store.Complete(id, result); err != nil {
		log.Error().Err(err).Msg("Failed to store run result")
		s.fail(id, err)
		return nil, err
	}

	if s.exporter != nil {
		if err := s.exporter.Export(ctx, id, result); err != nil {
			// the run itself succeeded
			log.Warn().Err(err).Msg("Failed to export run result")
			if s.events != nil {
				s.events.EmitError("runs", id, err, map[string]interface{}{"stage": "export"})
			}
		}
	}

	s.emit(events.RunCompleted, id, map[string]interface{}{
		"final_value": result.FinalValue,
		"actions":     len(result.Actions),
		"processed":   result.Processed,
		"skipped":     result.Skipped,
	})
	log.Info().Float64("final_value", result.FinalValue).Msg("Run completed")

	return result, nil
}

func (s *Service) fail(id string, cause error) {
	if err := s.store.Fail(id, cause); err != nil {
		s.log.Error().Err(err).Str("run_id", id).Msg("Failed to mark run as failed")
	}
	s.emit(events.RunFailed, id, map[string]interface{}{"error": cause.Error()})
	s.log.Warn().Err(cause).Str("run_id", id).Msg("Run failed")
}

func (s *Service) emit(t events.EventType, id string, data map[string]interface{}) {
	if s.events != nil {
		s.events.Emit(t, "runs", id, data)
	}
}

// Shutdown cancels in-flight runs and waits for them to record their outcome
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for runs: %w", ctx.Err())
	}
}
