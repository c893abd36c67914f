// Command worker consumes completed interview sessions from the report
// queue and synthesizes their final reports.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Raghav-madderla/AIMI/internal/adapter/ai/openrouter"
	"github.com/Raghav-madderla/AIMI/internal/adapter/ai/stub"
	"github.com/Raghav-madderla/AIMI/internal/adapter/observability"
	"github.com/Raghav-madderla/AIMI/internal/adapter/queue/redpanda"
	"github.com/Raghav-madderla/AIMI/internal/adapter/repo/postgres"
	"github.com/Raghav-madderla/AIMI/internal/config"
	"github.com/Raghav-madderla/AIMI/internal/domain"
	"github.com/Raghav-madderla/AIMI/internal/usecase"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// The worker exposes its own /metrics endpoint so report pipeline
	// metrics are scraped even with the API server down.
	observability.InitMetrics()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{
			Addr:              cfg.WorkerMetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		if err := srv.ListenAndServe(); err != nil {
			slog.Error("worker metrics server error", slog.Any("error", err))
		}
	}()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	if err := cfg.RequireAICredentials(); err != nil {
		slog.Error("ai credentials missing", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting report worker", slog.String("env", cfg.AppEnv))

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	sessionRepo := postgres.NewSessionRepo(pool)
	reportRepo := postgres.NewReportRepo(pool)

	var gateway domain.LanguageModelGateway
	if cfg.OpenRouterAPIKey == "" {
		gateway = stub.New()
		slog.Warn("OPENROUTER_API_KEY not set, using deterministic stub gateway")
	} else {
		gateway = openrouter.New(cfg)
	}

	handler := redpanda.NewReportHandler(sessionRepo, reportRepo, usecase.NewReportService(gateway))

	// Transactional ID distinct from the server's producer so the two
	// processes never fence each other.
	consumer, err := redpanda.NewConsumerWithTransactionalID(
		cfg.KafkaBrokers, cfg.ReportConsumerGroup, "aimi-report-worker", cfg.ReportTopic, handler)
	if err != nil {
		slog.Error("report consumer init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			slog.Error("failed to close report consumer", slog.Any("error", err))
		}
	}()

	consumeCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		if err := consumer.Start(consumeCtx); err != nil && consumeCtx.Err() == nil {
			slog.Error("report consumer error", slog.Any("error", err))
		}
	}()

	slog.Info("report worker started, waiting for shutdown signal")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigCh
	slog.Info("signal received, shutting down", slog.String("signal", sig.String()))
	stop()
	slog.Info("report worker stopped")
}
