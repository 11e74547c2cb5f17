package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aristath/tradepath/internal/clientdata"
	"github.com/aristath/tradepath/internal/clients/twelvedata"
	"github.com/aristath/tradepath/internal/clients/yahoo"
	"github.com/aristath/tradepath/internal/config"
	"github.com/aristath/tradepath/internal/database"
	"github.com/aristath/tradepath/internal/marketdata"
	"github.com/aristath/tradepath/internal/metrics"
	"github.com/aristath/tradepath/internal/modules/runs"
	"github.com/aristath/tradepath/internal/modules/simulation"
	"github.com/aristath/tradepath/internal/modules/universe"
	"github.com/aristath/tradepath/internal/reliability"
	"github.com/aristath/tradepath/pkg/logger"
	"github.com/rs/zerolog"
)

// app holds the wired dependencies shared by the simulate and serve commands
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	runsDB    *database.DB
	cacheDB   *database.DB
	cache     *clientdata.Repository
	fetcher   *marketdata.CachedFetcher
	selector  *universe.Selector
	metrics   *metrics.Registry
	runner    *simulation.Runner
	runsStore *runs.Repository
}

// newApp loads configuration and opens databases, the price pipeline and the runner
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	a := &app{cfg: cfg, log: log}

	if a.runsDB, err = openDB(cfg, database.NameRuns, database.ProfileStandard); err != nil {
		return nil, err
	}
	if a.cacheDB, err = openDB(cfg, database.NameCache, database.ProfileCache); err != nil {
		_ = a.runsDB.Close()
		return nil, err
	}

	catalog, err := universe.LoadCatalog(cfg.UniverseFile)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load universe catalog: %w", err)
	}
	a.selector = universe.NewSelector(catalog, log)

	var source marketdata.Fetcher
	switch cfg.PriceProvider {
	case config.ProviderYahoo:
		source = yahoo.NewClient(cfg.YahooBaseURL, log)
	default:
		source = twelvedata.NewClient(twelvedata.Config{
			BaseURL:       cfg.TwelveDataBaseURL,
			APIKey:        cfg.TwelveDataAPIKey,
			RatePerMinute: cfg.ProviderRatePerMinute,
		}, log)
	}

	a.cache = clientdata.NewRepository(a.cacheDB.Conn())
	a.fetcher = marketdata.NewCachedFetcher(source, a.cache, cfg.PriceCacheTTL, log)
	a.metrics = metrics.NewRegistry()
	a.runner = simulation.NewRunner(
		marketdata.NewProvider(a.fetcher, log),
		cfg.Simulation(),
		log,
		simulation.WithRecorder(a.metrics),
	)
	a.runsStore = runs.NewRepository(a.runsDB.Conn(), log)

	log.Info().
		Str("provider", cfg.PriceProvider).
		Str("data_dir", cfg.DataDir).
		Int("catalog", len(catalog.Instruments)).
		Msg("Application wired")

	return a, nil
}

func openDB(cfg *config.Config, name string, profile database.DatabaseProfile) (*database.DB, error) {
	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(name),
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", name, err)
	}
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate %s database: %w", name, err)
	}
	return db, nil
}

// Close checkpoints and closes the databases
func (a *app) Close() {
	for _, db := range []*database.DB{a.runsDB, a.cacheDB} {
		if db == nil {
			continue
		}
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			a.log.Warn().Err(err).Str("database", db.Name()).Msg("Final checkpoint failed")
		}
		if err := db.Close(); err != nil {
			a.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to close database")
		}
	}
}

// serviceOptions attaches the artifact exporter when a bucket is configured
func (a *app) serviceOptions(ctx context.Context) []runs.ServiceOption {
	opts := []runs.ServiceOption{runs.WithMaxConcurrent(a.cfg.MaxConcurrentRuns)}

	exporter, err := reliability.NewS3Exporter(ctx, a.cfg.Artifacts, a.log)
	switch {
	case errors.Is(err, reliability.ErrExportDisabled):
		a.log.Debug().Msg("Artifact export disabled")
	case err != nil:
		a.log.Warn().Err(err).Msg("Artifact export unavailable")
	default:
		opts = append(opts, runs.WithExporter(exporter))
		a.log.Info().Str("bucket", a.cfg.Artifacts.Bucket).Msg("Artifact export enabled")
	}
	return opts
}
