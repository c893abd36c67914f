// Command resumeseed ingests plain-text resume files so a local
// deployment has stored resumes and retrievable vector context.
//
// Usage: resumeseed <file-or-dir> [...]
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	ai "github.com/Raghav-madderla/AIMI/internal/adapter/ai"
	"github.com/Raghav-madderla/AIMI/internal/adapter/ai/openrouter"
	"github.com/Raghav-madderla/AIMI/internal/adapter/ai/stub"
	"github.com/Raghav-madderla/AIMI/internal/adapter/observability"
	"github.com/Raghav-madderla/AIMI/internal/adapter/repo/postgres"
	"github.com/Raghav-madderla/AIMI/internal/adapter/resumectx"
	qdrantcli "github.com/Raghav-madderla/AIMI/internal/adapter/vector/qdrant"
	"github.com/Raghav-madderla/AIMI/internal/app"
	"github.com/Raghav-madderla/AIMI/internal/config"
	"github.com/Raghav-madderla/AIMI/internal/domain"
	"github.com/Raghav-madderla/AIMI/internal/resumeseed"
	"github.com/Raghav-madderla/AIMI/internal/usecase"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		slog.Error("usage: resumeseed <file-or-dir> [...]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.SetDefault(observability.SetupLogger(cfg))

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

	vocab, err := config.LoadVocabulary(cfg.VocabularyPath)
	if err != nil {
		slog.Error("vocabulary load failed", slog.Any("error", err))
		os.Exit(1)
	}

	var gateway domain.LanguageModelGateway
	if cfg.OpenRouterAPIKey == "" {
		gateway = stub.New()
		slog.Warn("OPENROUTER_API_KEY not set, using deterministic stub gateway")
	} else {
		gateway = openrouter.New(cfg)
	}
	// Chunks inside one resume repeat boilerplate; cache their vectors.
	gateway = ai.NewEmbedCache(gateway, cfg.EmbedCacheSize)

	qcli := qdrantcli.New(cfg.QdrantURL, cfg.QdrantAPIKey)
	app.EnsureResumeCollection(ctx, qcli, cfg)
	resumeCtx := resumectx.New(qcli, gateway, vocab, cfg.QdrantCollection)

	svc := usecase.NewResumeService(postgres.NewResumeRepo(pool), resumeCtx,
		usecase.NewSummarizerService(gateway, vocab))

	total := 0
	for _, path := range os.Args[1:] {
		info, err := os.Stat(path)
		if err != nil {
			slog.Error("cannot stat seed path", slog.String("path", path), slog.Any("error", err))
			os.Exit(1)
		}
		if info.IsDir() {
			n, err := resumeseed.SeedDir(ctx, svc, path)
			if err != nil {
				slog.Error("seed dir failed", slog.String("dir", path), slog.Any("error", err))
				os.Exit(1)
			}
			total += n
			continue
		}
		r, err := resumeseed.SeedFile(ctx, svc, path)
		if err != nil {
			slog.Error("seed file failed", slog.String("file", path), slog.Any("error", err))
			os.Exit(1)
		}
		slog.Info("resume seeded", slog.String("resume_id", r.ID), slog.String("file", path))
		total++
	}
	slog.Info("resume seeding done", slog.Int("resumes", total))
}
