package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/paiml/rosetta-ruchy-sub000/internal/adapter"
	"github.com/paiml/rosetta-ruchy-sub000/internal/config"
	"github.com/paiml/rosetta-ruchy-sub000/internal/constants"
	"github.com/paiml/rosetta-ruchy-sub000/internal/server"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/analyzer"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/cache"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/classifier"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/database"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/pipeline"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/profile"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/session"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/stats"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/translator"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/verifier"
)

// Container bundles the assembled services of one process.
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Registry  *profile.Registry
	Pipeline  *pipeline.Orchestrator
	Stats     stats.Store
	Sessions  *session.Manager
	Formatter *adapter.ResultFormatter

	dispatcher *stats.Dispatcher
	reporter   *stats.Reporter
	sweeper    *session.Sweeper
	closers    []func()
}

// NewServer builds the HTTP server over the container's pipeline.
func (c *Container) NewServer() *server.Server {
	return server.New(c.Config.Server, c.Pipeline, c.Registry, c.Stats, c.Logger).WithSessions(c.Sessions)
}

// StartJobs begins the periodic statistics log and the session sweep.
func (c *Container) StartJobs() {
	if c.reporter != nil {
		c.reporter.Start()
	}
	if c.sweeper != nil {
		c.sweeper.Start()
	}
}

// Close drains pending outcomes, then releases stores in reverse order.
func (c *Container) Close() {
	if c.sweeper != nil {
		c.sweeper.Stop()
	}
	if c.reporter != nil {
		c.reporter.Stop()
	}
	if c.dispatcher != nil {
		c.dispatcher.Close()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Build assembles the registry, the pipeline stages and the statistics
// sinks. Redis and Postgres are only contacted when enabled.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	// Profiles
	registry, err := loadRegistry(cfg.Profiles)
	if err != nil {
		return nil, fmt.Errorf("failed to load translation profiles: %w", err)
	}
	logger.Info("Translation profiles loaded",
		zap.String("target", registry.Target().Language),
		zap.Strings("sources", registry.SupportedLanguages()),
	)

	// Statistics sinks
	memory := stats.NewMemoryStore()
	var primary stats.Store = memory
	sinks := []stats.Sink{memory}

	if cfg.Redis.Enabled {
		cacheSvc, cerr := cache.NewCacheService(cache.CacheConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if cerr != nil {
			return nil, fmt.Errorf("failed to create cache service: %w", cerr)
		}
		closers = append(closers, func() {
			_ = cacheSvc.Close()
		})
		if err := cacheSvc.WaitUntilReady(ctx, constants.Timeouts.RedisReady); err != nil {
			return nil, fmt.Errorf("redis not ready: %w", err)
		}

		redisStore := stats.NewRedisStore(cacheSvc)
		primary = redisStore
		sinks = append(sinks, redisStore)
	}

	if cfg.Postgres.Enabled {
		readyCtx, cancel := context.WithTimeout(ctx, constants.Timeouts.PostgresReady)
		defer cancel()

		postgresSvc, perr := database.NewPostgresService(readyCtx, cfg.Postgres.DSN(), database.PoolOptions{}, logger)
		if perr != nil {
			return nil, fmt.Errorf("failed to create postgres service: %w", perr)
		}
		closers = append(closers, func() {
			_ = postgresSvc.Close()
		})

		reports := database.NewReportRepository(postgresSvc.GetDB(), logger)
		if err := reports.EnsureSchema(readyCtx); err != nil {
			return nil, err
		}
		sinks = append(sinks, reports)
	}

	reporter, err := stats.NewReporter(cfg.Stats.ReportSchedule, primary, logger)
	if err != nil {
		return nil, err
	}
	dispatcher := stats.NewDispatcher(cfg.Stats.QueueSize, logger, sinks...)

	// Pipeline
	classify := classifier.New(registry, logger)
	translate := translator.New(registry.Target().Language, logger)
	verify := verifier.New(registry.Target(), logger)
	orchestrator := pipeline.New(pipeline.Deps{
		Classifier: classify,
		Translator: translate,
		Registry:   registry,
		Bank:       analyzer.NewBank(cfg.Pipeline.AnalyzerTimeout, logger),
		Verifier:   verify,
		Recorder:   dispatcher,
	}, cfg.Pipeline.RequestTimeout, logger)

	// Interactive sessions
	sessions := session.NewManager(session.Deps{
		Classifier: classify,
		Translator: translate,
		Registry:   registry,
		Verifier:   verify,
	}, session.Options{TTL: cfg.Sessions.TTL, MaxActive: cfg.Sessions.MaxActive}, logger)
	sweeper, err := session.NewSweeper(cfg.Sessions.SweepSchedule, sessions, logger)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:     cfg,
		Logger:     logger,
		Registry:   registry,
		Pipeline:   orchestrator,
		Stats:      primary,
		Sessions:   sessions,
		Formatter:  adapter.NewResultFormatter(),
		dispatcher: dispatcher,
		reporter:   reporter,
		sweeper:    sweeper,
		closers:    closers,
	}, nil
}

func loadRegistry(cfg config.ProfilesConfig) (*profile.Registry, error) {
	if cfg.File != "" {
		return profile.LoadFile(cfg.File)
	}
	return profile.Default()
}
