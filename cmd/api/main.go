package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/printforge/quickorder-backend/api/controllers"
	"github.com/printforge/quickorder-backend/api/routes"
	"github.com/printforge/quickorder-backend/internal/drafts"
	"github.com/printforge/quickorder-backend/internal/materials"
	"github.com/printforge/quickorder-backend/internal/ordering"
	"github.com/printforge/quickorder-backend/internal/orientation"
	"github.com/printforge/quickorder-backend/internal/pipeline"
	"github.com/printforge/quickorder-backend/internal/quoting"
	"github.com/printforge/quickorder-backend/internal/slicing"
	"github.com/printforge/quickorder-backend/internal/uploads"
	"github.com/printforge/quickorder-backend/internal/wallet"
	"github.com/printforge/quickorder-backend/pkg/config"
	"github.com/printforge/quickorder-backend/pkg/db"
	"github.com/printforge/quickorder-backend/pkg/logger"
	"github.com/printforge/quickorder-backend/pkg/metrics"
	"github.com/printforge/quickorder-backend/pkg/migrate"
	pkgredis "github.com/printforge/quickorder-backend/pkg/redis"
	"github.com/printforge/quickorder-backend/pkg/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logg := logger.New(logger.Options{
		ServiceName: "quickorder-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer dbClient.Close()

	if cfg.FeatureFlags.UseSQLite && cfg.FeatureFlags.AutoMigrate {
		if err := dbClient.DB().AutoMigrate(&materials.Material{}); err != nil {
			return fmt.Errorf("sqlite auto-migrate: %w", err)
		}
	}
	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := pkgredis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting redis: %w", err)
	}
	defer redisClient.Close()

	sessions, err := session.NewManager(cfg.Session)
	if err != nil {
		return err
	}

	materialRepo, err := materials.NewRepository(dbClient.DB())
	if err != nil {
		return err
	}
	catalog, err := materials.NewService(materialRepo)
	if err != nil {
		return err
	}

	slicer, err := slicing.NewClient(cfg.Slicer)
	if err != nil {
		return fmt.Errorf("slicer client: %w", err)
	}
	pricer, err := quoting.NewClient(cfg.Pricing)
	if err != nil {
		return fmt.Errorf("pricing client: %w", err)
	}
	gateway, err := ordering.NewClient(cfg.Checkout)
	if err != nil {
		return fmt.Errorf("checkout client: %w", err)
	}
	persister, err := orientation.NewClient(cfg.Orientation)
	if err != nil {
		return fmt.Errorf("orientation client: %w", err)
	}
	uploader, err := uploads.NewClient(cfg.Uploads)
	if err != nil {
		return fmt.Errorf("uploads client: %w", err)
	}

	var walletReader pipeline.WalletReader
	if cfg.Wallet.BaseURL != "" {
		wc, err := wallet.NewClient(cfg.Wallet)
		if err != nil {
			return fmt.Errorf("wallet client: %w", err)
		}
		walletReader = wc
	}

	draftStore, err := drafts.NewStore(redisClient, cfg.Draft.TTL)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	pipelines, err := pipeline.NewRegistry(pipeline.Deps{
		Slicer:          slicer,
		Pricer:          pricer,
		Checkout:        gateway,
		Orientation:     persister,
		Wallet:          walletReader,
		Materials:       catalog,
		Drafts:          draftStore,
		Logger:          logg,
		Metrics:         pipelineMetrics,
		SaveDebounce:    cfg.Draft.SaveDebounce,
		RepriceDebounce: cfg.Pipeline.RepriceDebounce,
	}, cfg.Pipeline.SessionIdleTTL, logg)
	if err != nil {
		return err
	}

	router := routes.New(routes.Deps{
		Logger:    logg,
		Sessions:  sessions,
		Registry:  pipelines,
		Uploader:  uploader,
		Materials: catalog,
		Health: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		MetricsGatherer: registry,
		AllowedOrigins:  cfg.App.CORSOrigins,
	})

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "port", cfg.App.Port), "server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logg.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pipelines.Close(shutdownCtx)
	return server.Shutdown(shutdownCtx)
}
