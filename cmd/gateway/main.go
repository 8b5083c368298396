package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JMAlloway/Check-sub001/internal/api"
	"github.com/JMAlloway/Check-sub001/internal/audit"
	"github.com/JMAlloway/Check-sub001/internal/cache"
	"github.com/JMAlloway/Check-sub001/internal/config"
	"github.com/JMAlloway/Check-sub001/internal/db"
	"github.com/JMAlloway/Check-sub001/internal/gateway"
	"github.com/JMAlloway/Check-sub001/internal/health"
	"github.com/JMAlloway/Check-sub001/internal/imaging"
	"github.com/JMAlloway/Check-sub001/internal/logging"
	"github.com/JMAlloway/Check-sub001/internal/registry"
	"github.com/JMAlloway/Check-sub001/internal/resolver"
	"github.com/JMAlloway/Check-sub001/internal/storage"
	"github.com/JMAlloway/Check-sub001/internal/token"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "mint-token":
			mintToken(os.Args[2:])
			return
		case "create-connector":
			createConnector(os.Args[2:])
			return
		case "index-item":
			indexItem(os.Args[2:])
			return
		}
	}

	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	store := registry.NewPostgresStore(pool)
	keyRegistry := registry.New(store, logger)
	validator := token.NewValidator(keyRegistry)

	allowlist := resolver.NewAllowlist(cfg.AllowedRoots)
	itemIndex := resolver.NewPostgresIndex(pool)
	pathResolver := resolver.New(itemIndex, allowlist)

	var provider storage.Provider
	if cfg.StorageBackend == config.StorageObject {
		provider = storage.NewObjectStoreProvider(logger, cfg.S3Endpoint, cfg.S3Bucket, cfg.S3AccessKey, cfg.S3SecretKey, cfg.MaxImageBytes)
	} else {
		provider = storage.NewFilesystemProvider(cfg.AllowedRoots[0])
	}

	decoder := imaging.NewDecoder(cfg.MaxImageBytes)
	imageCache := cache.New(cfg.CacheTTL)
	defer imageCache.Stop()

	auditor := audit.NewLogger(logger, audit.NewPostgresSink(pool), cfg.AuditBuffer)
	defer auditor.Close()

	svc := gateway.NewService(logger, pathResolver, provider, decoder, imageCache, cfg.RequestTimeout)

	monitor := health.NewMonitor(logger, cfg.ConnectorID, store, []health.Probe{
		{Name: "resolver", Check: func(ctx context.Context) error {
			return pool.Ping(ctx)
		}},
		{Name: "storage", Check: provider.Probe},
		{Name: "decoder", Check: decoder.Probe},
	}, cfg.HealthInterval, cfg.DegradedThreshold, cfg.UnhealthyThreshold)
	go monitor.Run(ctx)

	srv := api.NewServer(logger, cfg, api.Deps{
		Gateway:   svc,
		Validator: validator,
		Registry:  keyRegistry,
		Monitor:   monitor,
		Cache:     imageCache,
		Auditor:   auditor,
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting image connector gateway")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down gateway")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}
