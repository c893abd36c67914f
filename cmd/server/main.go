// Command server starts the AIMI interview API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	ai "github.com/Raghav-madderla/AIMI/internal/adapter/ai"
	"github.com/Raghav-madderla/AIMI/internal/adapter/ai/openrouter"
	"github.com/Raghav-madderla/AIMI/internal/adapter/ai/stub"
	httpserver "github.com/Raghav-madderla/AIMI/internal/adapter/httpserver"
	"github.com/Raghav-madderla/AIMI/internal/adapter/lock/redislock"
	"github.com/Raghav-madderla/AIMI/internal/adapter/observability"
	"github.com/Raghav-madderla/AIMI/internal/adapter/queue/redpanda"
	"github.com/Raghav-madderla/AIMI/internal/adapter/repo/postgres"
	"github.com/Raghav-madderla/AIMI/internal/adapter/resumectx"
	qdrantcli "github.com/Raghav-madderla/AIMI/internal/adapter/vector/qdrant"
	"github.com/Raghav-madderla/AIMI/internal/app"
	"github.com/Raghav-madderla/AIMI/internal/config"
	"github.com/Raghav-madderla/AIMI/internal/domain"
	"github.com/Raghav-madderla/AIMI/internal/usecase"
)

// poolAdapter adapts *pgxpool.Pool to postgres.Beginner for the retention
// service. pgx.Tx already satisfies postgres.Tx, so only Begin needs a shim.
type poolAdapter struct{ *pgxpool.Pool }

func (p poolAdapter) Begin(ctx context.Context) (postgres.Tx, error) {
	tx, err := p.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// redisAdapter narrows *redis.Client to the readiness check interface.
type redisAdapter struct{ *redis.Client }

func (r redisAdapter) Ping(ctx context.Context) app.RedisPingResult { return r.Client.Ping(ctx) }

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Register all Prometheus metrics once per process so that /metrics
	// exposes HTTP, AI and interview instrumentation.
	observability.InitMetrics()

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

	// Infra: DB pool and schema
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		slog.Error("schema bootstrap failed", slog.Any("error", err))
		os.Exit(1)
	}

	// Repositories
	resumeRepo := postgres.NewResumeRepo(pool)
	sessionRepo := postgres.NewSessionRepo(pool)
	reportRepo := postgres.NewReportRepo(pool)

	// Data retention sweeper
	if cfg.DataRetentionDays > 0 {
		retention := postgres.NewRetentionService(poolAdapter{pool}, cfg.DataRetentionDays)
		go retention.RunPeriodic(ctx, cfg.CleanupInterval)
		slog.Info("retention service started",
			slog.Int("retention_days", cfg.DataRetentionDays),
			slog.Duration("interval", cfg.CleanupInterval))
	}

	// Redis: per-session lease lock
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("redis url invalid", slog.Any("error", err))
		os.Exit(1)
	}
	rdb := redis.NewClient(redisOpts)
	defer func() { _ = rdb.Close() }()
	locker := redislock.New(rdb)

	// Report queue producer (Redpanda/Kafka)
	producer, err := redpanda.NewProducer(cfg.KafkaBrokers, cfg.ReportTopic)
	if err != nil {
		slog.Error("report queue producer init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			slog.Error("failed to close report queue producer", slog.Any("error", err))
		}
	}()

	// Domain vocabulary (embedded defaults unless a YAML file is configured)
	vocab, err := config.LoadVocabulary(cfg.VocabularyPath)
	if err != nil {
		slog.Error("vocabulary load failed", slog.Any("error", err))
		os.Exit(1)
	}

	// AI gateway. RequireAICredentials already rejected a missing key outside
	// dev, so only local runs reach the stub.
	var gateway domain.LanguageModelGateway
	if cfg.OpenRouterAPIKey == "" {
		gateway = stub.New()
		slog.Warn("OPENROUTER_API_KEY not set, using deterministic stub gateway")
	} else {
		gateway = openrouter.New(cfg)
	}
	// Retrieval queries repeat phrasing across sessions; cache their vectors.
	gateway = ai.NewEmbedCache(gateway, cfg.EmbedCacheSize)

	// Vector store and resume context retrieval
	qcli := qdrantcli.New(cfg.QdrantURL, cfg.QdrantAPIKey)
	resumeCtx := resumectx.New(qcli, gateway, vocab, cfg.QdrantCollection)
	app.EnsureResumeCollection(ctx, qcli, cfg)

	// Interview engine and services
	planner := usecase.NewPlannerService(gateway, vocab)
	generator := usecase.NewGeneratorService(gateway)
	personalizer := usecase.NewPersonalizerService(gateway, resumeCtx)
	evaluator := usecase.NewEvaluatorService(gateway)
	summarizer := usecase.NewSummarizerService(gateway, vocab)
	engine := usecase.NewOrchestrator(planner, generator, personalizer, evaluator)

	resumeSvc := usecase.NewResumeService(resumeRepo, resumeCtx, summarizer)
	sessionSvc := usecase.NewSessionService(sessionRepo, resumeRepo, reportRepo, producer, locker, engine,
		cfg.SessionLockTTL, cfg.TotalQuestions)

	// Abandoned interviews flip to error so they stop holding their slot.
	if sweeper := app.NewStaleSessionSweeper(sessionRepo, 0, 0); sweeper != nil {
		go sweeper.Run(ctx)
	}

	// Readiness checks
	dbCheck, redisCheck, qdrantCheck, kafkaCheck := app.BuildReadinessChecks(cfg, pool, redisAdapter{rdb}, producer)

	// HTTP server
	srv := httpserver.NewServer(cfg, resumeSvc, sessionSvc, dbCheck, redisCheck, qdrantCheck, kafkaCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
