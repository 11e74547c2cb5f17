package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/tradepath/internal/clientdata"
	"github.com/aristath/tradepath/internal/database"
	"github.com/aristath/tradepath/internal/events"
	"github.com/aristath/tradepath/internal/modules/runs"
	runshandlers "github.com/aristath/tradepath/internal/modules/runs/handlers"
	universehandlers "github.com/aristath/tradepath/internal/modules/universe/handlers"
	"github.com/aristath/tradepath/internal/reliability"
	"github.com/aristath/tradepath/internal/scheduler"
	"github.com/aristath/tradepath/internal/server"
	"github.com/spf13/cobra"
)

// serveCmd runs the HTTP API with background jobs
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the simulation API",
	Long: `Serve the HTTP API. Simulations submitted to POST /api/simulations run in
the background; progress streams over /api/simulations/{id}/stream.`,
	RunE: runServe,
}

var servePort int

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (default: PORT from the environment)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.log

	port := a.cfg.Port
	if servePort > 0 {
		port = servePort
	}

	// Runs left running by a previous process cannot resume
	if n, err := a.runsStore.RecoverInterrupted(); err != nil {
		log.Warn().Err(err).Msg("Failed to recover interrupted runs")
	} else if n > 0 {
		log.Warn().Int64("runs", n).Msg("Marked interrupted runs as failed")
	}

	em := events.NewManager(log)
	service := runs.NewService(a.runsStore, a.runner, em, log, a.serviceOptions(context.Background())...)

	jobs := []scheduler.Job{
		clientdata.NewCleanupJob(a.cache, log),
		scheduler.NewCheckWALCheckpointsJob(log, a.runsDB, a.cacheDB),
		scheduler.NewCheckDatabasesJob(log, a.runsDB, a.cacheDB),
		reliability.NewMaintenanceJob(a.cfg.DataDir, log, a.cacheDB),
	}
	schedules := []string{
		a.cfg.CacheCleanupSchedule,
		"0 */15 * * * *",
		"0 30 2 * * *",
		a.cfg.MaintenanceSchedule,
	}

	sched := scheduler.New(log)
	for i, job := range jobs {
		if err := sched.AddJob(schedules[i], job); err != nil {
			return err
		}
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:       log,
		Port:      port,
		Databases: []*database.DB{a.runsDB, a.cacheDB},
		Breakers:  []server.Breaker{a.fetcher},
		Modules: []server.RouteRegistrar{
			universehandlers.NewHandler(a.selector, log),
			runshandlers.NewHandler(service, a.runsStore, a.selector, em, a.cfg.MaxSymbols, log),
		},
		Metrics:   a.metrics.Handler(),
		Events:    em,
		Scheduler: sched,
		Jobs:      jobs,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := service.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Runs did not finish in time")
	}

	log.Info().Msg("Server stopped")
	return nil
}
