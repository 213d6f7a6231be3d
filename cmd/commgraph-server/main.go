package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dd0wney/cluso-commgraph/pkg/api"
	"github.com/dd0wney/cluso-commgraph/pkg/app"
	"github.com/dd0wney/cluso-commgraph/pkg/archive"
	"github.com/dd0wney/cluso-commgraph/pkg/auth"
	"github.com/dd0wney/cluso-commgraph/pkg/config"
	"github.com/dd0wney/cluso-commgraph/pkg/graphql"
	"github.com/dd0wney/cluso-commgraph/pkg/graphstore"
	"github.com/dd0wney/cluso-commgraph/pkg/health"
	"github.com/dd0wney/cluso-commgraph/pkg/ingest"
	"github.com/dd0wney/cluso-commgraph/pkg/jobs"
	"github.com/dd0wney/cluso-commgraph/pkg/listings"
	"github.com/dd0wney/cluso-commgraph/pkg/logging"
	"github.com/dd0wney/cluso-commgraph/pkg/metrics"
	"github.com/dd0wney/cluso-commgraph/pkg/query"
	"github.com/dd0wney/cluso-commgraph/pkg/server"
)

const storeCountsInterval = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (environment variables override it)")
	port := flag.Int("port", 0, "Override the listen port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Port = *port
	}

	logger, err := app.NewLogger(cfg, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefaultLogger(logger)

	if err := run(context.Background(), cfg, *configPath, logger); err != nil {
		logger.Error("server exited", logging.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, configPath string, logger *logging.JSONLogger) error {
	logger.Info("starting commgraph server",
		logging.String("addr", cfg.Addr()),
		logging.String("store", cfg.Store),
		logging.String("blocklist", cfg.Auth.BlocklistBackend))

	store, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	blocklist, err := app.OpenBlocklist(ctx, cfg)
	if err != nil {
		store.Close(ctx)
		return err
	}

	gs, err := assemble(ctx, cfg, store, blocklist, logger)
	if err != nil {
		blocklist.Close()
		store.Close(ctx)
		return err
	}

	gs.SetConfigReloadFunc(func() error {
		reloaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		level, err := logging.ParseLevel(reloaded.LogLevel)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
		logger.Info("log level changed", logging.String("level", level.String()))
		return nil
	})

	return gs.Start(ctx)
}

// assemble builds the services on top of store and returns a server whose
// shutdown hooks release them.
func assemble(ctx context.Context, cfg config.Config, store graphstore.Store, blocklist auth.Blocklist, logger logging.Logger) (*server.GracefulServer, error) {
	reg := metrics.NewRegistry()

	tokens, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL(), blocklist)
	if err != nil {
		return nil, err
	}

	directory, err := auth.NewDirectory(store, logger, auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	generated, created, err := directory.EnsureAdmin(ctx, cfg.Auth.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}
	if created && generated != "" {
		logger.Warn("generated admin password, change it after first login",
			logging.Username(auth.AdminUsername),
			logging.String("password", generated))
	}

	engine := query.NewEngine(store, logger, reg)
	registry := listings.NewRegistry(store, logger)
	pipeline := ingest.NewPipeline(store, logger, reg)
	tracker := jobs.NewTracker(jobs.Config{Workers: cfg.IngestWorkers}, logger, reg)

	var archiver api.Archiver
	if settings := cfg.ArchiveSettings(); settings.Enabled() {
		a, err := archive.Open(ctx, settings)
		if err != nil {
			tracker.Close(ctx)
			return nil, fmt.Errorf("open upload archive: %w", err)
		}
		archiver = a
		logger.Info("upload archive enabled", logging.String("bucket", settings.Bucket))
	}

	gqlSchema, err := graphql.NewSchema(engine, registry)
	if err != nil {
		tracker.Close(ctx)
		return nil, fmt.Errorf("build graphql schema: %w", err)
	}

	counts := func(ctx context.Context) (int64, int64, error) {
		c, err := store.Counts(ctx)
		if err != nil {
			return 0, 0, err
		}
		reg.SetStoreCounts(c.Nodes, c.Edges)
		return c.Nodes, c.Edges, nil
	}

	checker := health.NewHealthChecker()
	checker.RegisterReadinessCheck("graph_store", health.GraphStoreCheck(store, counts))
	if p, ok := blocklist.(health.Pinger); ok {
		checker.RegisterReadinessCheck("token_blocklist", health.PingCheck(p))
	}
	checker.RegisterLivenessCheck("ingest_queue", health.QueueCheck(tracker.Pending, tracker.QueueCapacity()))
	checker.RegisterLivenessCheck("memory", health.MemoryCheck())

	srv, err := api.NewServer(api.Deps{
		Queries:     engine,
		Pipeline:    pipeline,
		Listings:    registry,
		Jobs:        tracker,
		Directory:   directory,
		Tokens:      tokens,
		Archive:     archiver,
		GraphQL:     graphql.NewGraphQLHandler(gqlSchema, graphql.DefaultMaxDepth, logger),
		Health:      checker,
		Metrics:     reg,
		Logger:      logger,
		CORSOrigins: cfg.CORSAllowedOrigins,
	})
	if err != nil {
		tracker.Close(ctx)
		return nil, err
	}

	gs := server.NewGracefulServer(cfg.Addr(), srv.Handler(), logger)
	gs.SetShutdownTimeout(cfg.ShutdownTimeout)

	// Hooks run last-registered first: jobs drain before the blocklist and
	// the store they write to are closed.
	gs.OnShutdown("graph store", store.Close)
	gs.OnShutdown("token blocklist", func(context.Context) error { return blocklist.Close() })
	gs.OnShutdown("ingest jobs", tracker.Close)

	go refreshStoreCounts(gs.ShutdownChannel(), counts, logger)

	return gs, nil
}

func refreshStoreCounts(stop <-chan struct{}, counts func(context.Context) (int64, int64, error), logger logging.Logger) {
	ticker := time.NewTicker(storeCountsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if _, _, err := counts(ctx); err != nil {
				logger.Debug("store counts unavailable", logging.Error(err))
			}
			cancel()
		}
	}
}
