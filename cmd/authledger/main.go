package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/authledger/internal/accounting"
	"github.com/dropDatabas3/authledger/internal/cache"
	"github.com/dropDatabas3/authledger/internal/config"
	"github.com/dropDatabas3/authledger/internal/domain/repository"
	httpserver "github.com/dropDatabas3/authledger/internal/http"
	"github.com/dropDatabas3/authledger/internal/jobs"
	"github.com/dropDatabas3/authledger/internal/metrics"
	"github.com/dropDatabas3/authledger/internal/observability/logger"
	"github.com/dropDatabas3/authledger/internal/store/adapters/mem"
	"github.com/dropDatabas3/authledger/internal/store/adapters/pg"
)

var version = "dev"

// store agrupa los tres contratos que ambos adapters implementan.
type store interface {
	repository.EntityRepository
	repository.FactRepository
	repository.JobRepository
}

type deps struct {
	cfg     *config.Config
	store   store
	pinger  httpserver.Pinger
	cache   cache.Client
	service *accounting.Service
	queue   *jobs.Queue
	cleanup func()
}

func build(ctx context.Context, configPath string) (*deps, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("config load: %w", err)
		}
	} else {
		cfg = config.FromEnv()
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "authledger",
		Version:     version,
	})

	if err := metrics.Register(nil); err != nil {
		return nil, fmt.Errorf("metrics register: %w", err)
	}

	cleanup := func() {}
	var st store
	var pinger httpserver.Pinger
	switch cfg.Storage.Driver {
	case "postgres":
		adapter, err := pg.Connect(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		st, pinger = adapter, adapter
		cleanup = adapter.Close
	case "memory", "":
		st = mem.New()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	cacheClient, err := cache.New(cache.Config{
		Driver: cfg.Cache.Kind,
		Addr:   cfg.Cache.Redis.Addr,
		DB:     cfg.Cache.Redis.DB,
		Prefix: cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("cache: %w", err)
	}

	queue := jobs.NewQueue(st)
	resolver := accounting.NewResolver(st, st)
	service := accounting.NewService(resolver, queue, accounting.Mode(cfg.Accounting.Mode))

	return &deps{
		cfg:     cfg,
		store:   st,
		pinger:  pinger,
		cache:   cacheClient,
		service: service,
		queue:   queue,
		cleanup: func() {
			_ = cacheClient.Close()
			cleanup()
		},
	}, nil
}

func main() {
	// .env opcional; en producción mandan las variables del sistema.
	_ = godotenv.Load()

	var configPath string

	root := &cobra.Command{
		Use:     "authledger",
		Short:   "Authentication-event accounting service",
		Version: version,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config (optional, env-only if omitted)")

	root.AddCommand(serveCmd(&configPath))
	root.AddCommand(runJobsCmd(&configPath))
	root.AddCommand(migrateCmd(&configPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP ingest server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d, err := build(ctx, *configPath)
			if err != nil {
				return err
			}
			defer d.cleanup()
			defer func() { _ = logger.Sync() }()

			events := httpserver.NewEventsHandler(d.service, d.cfg.Server.IngestKey)
			srv := httpserver.NewServer(d.cfg.Server.Addr, httpserver.NewRouter(events, d.pinger))

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			logger.L().Info("ingest server listening", logger.Path(d.cfg.Server.Addr))

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logger.L().Info("shutting down")
				return srv.Shutdown(context.Background())
			}
		},
	}
}

func runJobsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run-jobs",
		Short: "Run one job-runner invocation (cron entrypoint)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d, err := build(ctx, *configPath)
			if err != nil {
				return err
			}
			defer d.cleanup()
			defer func() { _ = logger.Sync() }()

			// El runner solo corre cuando el accounting es asíncrono.
			runner := jobs.NewRunner(d.queue, d.cache, jobs.RunnerConfig{
				Enabled:        accounting.Mode(d.cfg.Accounting.Mode) == accounting.ModeAsync,
				JobType:        d.cfg.Runner.JobType,
				MaxRunDuration: config.Dur(d.cfg.Runner.MaxRunDuration, 0),
				StaleAfter:     config.Dur(d.cfg.Runner.StaleAfter, 0),
				BackoffStart:   config.Dur(d.cfg.Runner.BackoffStart, 0),
				BackoffCeiling: config.Dur(d.cfg.Runner.BackoffCeiling, 0),
			})
			runner.Register(d.service.Consumer())
			return runner.Run(ctx)
		},
	}
}
