package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/classifier"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/config"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/dexscreener"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/discovery"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/enrichment"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/governor"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/observability"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/orchestrator"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/solana"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/storage"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/storage/clickhouse"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/storage/memory"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/storage/migrations"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/storage/postgres"
)

// application holds the wired components shared by every subcommand.
type application struct {
	cfg       *config.Config
	log       *logrus.Logger
	store     storage.TokenStore
	snapshots storage.StatsSnapshotStore
	svc       *orchestrator.Service
	closers   []func()
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApplication connects storage and builds the pipeline service.
func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	log, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	app := &application{cfg: cfg, log: log}

	if err := app.openStores(ctx); err != nil {
		app.Close()
		return nil, err
	}

	limiter := governor.NewLimiter(cfg.DexScreener.RatePerSecond, cfg.DexScreener.Burst, "dexscreener")
	dex := dexscreener.NewClient(cfg.DexScreener.BaseURL, dexscreener.WithLimiter(limiter))

	source := discovery.NewAdapter(discovery.Options{
		Source:  dex,
		ChainID: cfg.DexScreener.ChainID,
		Logger:  log.WithField("component", "discovery"),
	})

	// Interfaces stay nil when the feature is disabled.
	var metadata solana.AssetSource
	if cfg.MetadataFallbackEnabled() {
		metadata = solana.NewHeliusClient(cfg.Helius.BaseURL, cfg.Helius.APIKey)
	} else {
		log.Warn("HELIUS_API_KEY not set, metadata fallback disabled")
	}

	enricher := enrichment.New(enrichment.Options{
		Stats:     dex,
		Metadata:  metadata,
		Snapshots: app.snapshots,
		ChainID:   cfg.DexScreener.ChainID,
		Logger:    log.WithField("component", "enrichment"),
	})

	var (
		oracle   classifier.Oracle
		detailed classifier.DetailedOracle
	)
	if cfg.ClassificationEnabled() {
		c := classifier.New(classifier.Options{
			APIKey:             cfg.Anthropic.APIKey,
			BaseURL:            cfg.Anthropic.BaseURL,
			Model:              cfg.Anthropic.Model,
			DetailedModel:      cfg.Anthropic.DetailedModel,
			MaxConcurrentCalls: cfg.Anthropic.MaxConcurrentCalls,
			Logger:             log.WithField("component", "classifier"),
		})
		oracle, detailed = c, c
	} else {
		log.Warn("ANTHROPIC_API_KEY not set, new tokens will stay unclassified")
	}

	app.svc = orchestrator.New(orchestrator.Options{
		Source:            source,
		Enricher:          enricher,
		Oracle:            oracle,
		Detailed:          detailed,
		Store:             app.store,
		Cooldown:          governor.NewCooldown(cfg.Pipeline.Cooldown),
		StatsCooldown:     governor.NewCooldown(cfg.Pipeline.StatsRefreshWindow),
		ClassifyGroupSize: cfg.Pipeline.ClassifyGroupSize,
		SweepPace:         cfg.Pipeline.SweepPace,
		StatsPace:         cfg.Pipeline.StatsPace,
		Logger:            log.WithField("component", "orchestrator"),
	})
	return app, nil
}

func (a *application) openStores(ctx context.Context) error {
	if a.cfg.Storage.UseMemory {
		a.log.Info("using in-memory storage")
		a.store = memory.NewTokenStore()
		a.snapshots = memory.NewStatsSnapshotStore()
		return nil
	}

	pool, err := postgres.NewPool(ctx, a.cfg.Storage.PostgresDSN, 0)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, pool.Close)
	if err := migrations.RunPostgresMigrations(ctx, pool, a.log); err != nil {
		return fmt.Errorf("postgres migrations: %w", err)
	}
	a.store = postgres.NewTokenStore(pool)

	if a.cfg.Storage.ClickHouseDSN == "" {
		return nil
	}
	conn, err := migrations.RunClickhouseMigrations(ctx, a.cfg.Storage.ClickHouseDSN, a.log)
	if err != nil {
		return fmt.Errorf("clickhouse migrations: %w", err)
	}
	a.closers = append(a.closers, func() { _ = conn.Close() })
	a.snapshots = clickhouse.NewStatsSnapshotStore(conn)
	return nil
}
