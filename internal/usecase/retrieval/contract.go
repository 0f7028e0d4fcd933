package retrieval

import (
	"context"

	"github.com/prepdeck/recall/internal/domain"
)

// Embedder vectorizes the incoming query.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// KnowledgeBase exposes the embedded material retrieval ranks against.
type KnowledgeBase interface {
	QAEntries() []domain.QAEntry
	QAEmbedding(id string) []float32
	ContextChunks() []domain.EmbeddedChunk
}
