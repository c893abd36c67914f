package app

import (
	"context"
	"log/slog"

	qdrantcli "github.com/Raghav-madderla/AIMI/internal/adapter/vector/qdrant"
	"github.com/Raghav-madderla/AIMI/internal/config"
)

// embeddingDim matches the default embeddings model
// (text-embedding-3-small). Changing EMBEDDINGS_MODEL to a different
// width requires recreating the collection.
const embeddingDim = 1536

// EnsureResumeCollection creates the resume-chunk collection at startup.
// Failure is logged, not fatal: the interview degrades to unpersonalized
// questions when retrieval is down.
func EnsureResumeCollection(ctx context.Context, qcli *qdrantcli.Client, cfg config.Config) {
	if qcli == nil {
		return
	}
	if err := qcli.EnsureCollection(ctx, cfg.QdrantCollection, embeddingDim, "Cosine"); err != nil {
		slog.Warn("qdrant ensure collection failed",
			slog.String("collection", cfg.QdrantCollection),
			slog.Any("error", err))
	}
}
