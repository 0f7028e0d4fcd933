package knowledge

import (
	"context"

	"github.com/prepdeck/recall/internal/domain"
	"github.com/prepdeck/recall/internal/usecase/structurer"
)

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Structurer decomposes raw document text into knowledge items.
type Structurer interface {
	Structure(ctx context.Context, text string, kind structurer.Kind) (structurer.Result, error)
}

// SnapshotRepo persists the embedded state across sessions. Load returns
// nil on any miss (absent, stale hash, storage failure); Save and Clear
// degrade silently on storage failure.
type SnapshotRepo interface {
	Load(ctx context.Context, expectedHash string) *domain.Snapshot
	Save(ctx context.Context, snap *domain.Snapshot)
	Clear(ctx context.Context)
}
