package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/prepdeck/recall/internal/db"
	"github.com/prepdeck/recall/internal/domain"
)

// store is the consumer interface for snapshot persistence.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Repository persists the knowledge store's embedded state under a fixed
// key family. Save and Load never return storage errors: persistence
// problems degrade to "no cache" with a warning, since the primary
// embedding path must not be blocked by a broken cache.
type Repository struct {
	store  store
	prefix string
	logger *zap.Logger
}

// New creates a snapshot repository. keyPrefix namespaces all keys
// (e.g. "recall:").
func New(s store, keyPrefix string, logger *zap.Logger) *Repository {
	return &Repository{store: s, prefix: keyPrefix, logger: logger}
}

// Key family for the persisted snapshot parts.
func (r *Repository) keyHash() string       { return r.prefix + "kb:content_hash" }
func (r *Repository) keyQA() string         { return r.prefix + "kb:qa_embeddings" }
func (r *Repository) keyChunks() string     { return r.prefix + "kb:chunks" }
func (r *Repository) keyCVSections() string { return r.prefix + "kb:cv_sections" }
func (r *Repository) keyActivities() string { return r.prefix + "kb:activities" }
func (r *Repository) keyItems() string      { return r.prefix + "kb:items" }

// Save writes the snapshot. The content hash is written last so a
// partially written snapshot from a crashed run never validates.
func (r *Repository) Save(ctx context.Context, snap *domain.Snapshot) {
	parts := []struct {
		key   string
		value any
	}{
		{r.keyQA(), snap.QAEmbeddings},
		{r.keyChunks(), snap.Chunks},
		{r.keyCVSections(), snap.CVSections},
		{r.keyActivities(), snap.Activities},
		{r.keyItems(), snap.Items},
	}

	for _, p := range parts {
		if err := r.setJSON(ctx, p.key, p.value); err != nil {
			r.logger.Warn("Failed to persist snapshot part, skipping cache write",
				zap.String("key", p.key), zap.Error(err))
			return
		}
	}

	if err := r.store.Set(ctx, r.keyHash(), []byte(snap.ContentHash)); err != nil {
		r.logger.Warn("Failed to persist content hash, snapshot will not validate",
			zap.Error(err))
	}
}

// Load returns the stored snapshot when its content hash matches
// expectedHash byte-for-byte, nil otherwise. Any storage or decode error
// is a cache miss, never a failure.
func (r *Repository) Load(ctx context.Context, expectedHash string) *domain.Snapshot {
	stored, err := r.store.Get(ctx, r.keyHash())
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			r.logger.Warn("Failed to read cached content hash", zap.Error(err))
		}
		return nil
	}
	if string(stored) != expectedHash {
		r.logger.Info("Snapshot content hash mismatch, rebuilding embeddings",
			zap.String("stored", string(stored)),
			zap.String("expected", expectedHash),
		)
		return nil
	}

	snap := &domain.Snapshot{ContentHash: expectedHash}
	if !r.getJSON(ctx, r.keyQA(), &snap.QAEmbeddings) ||
		!r.getJSON(ctx, r.keyChunks(), &snap.Chunks) ||
		!r.getJSON(ctx, r.keyCVSections(), &snap.CVSections) ||
		!r.getJSON(ctx, r.keyActivities(), &snap.Activities) ||
		!r.getJSON(ctx, r.keyItems(), &snap.Items) {
		return nil
	}
	return snap
}

// Clear removes all persisted snapshot parts (explicit user clear).
func (r *Repository) Clear(ctx context.Context) {
	keys := []string{
		r.keyHash(), r.keyQA(), r.keyChunks(),
		r.keyCVSections(), r.keyActivities(), r.keyItems(),
	}
	for _, key := range keys {
		if err := r.store.Delete(ctx, key); err != nil {
			r.logger.Warn("Failed to delete snapshot key", zap.String("key", key), zap.Error(err))
		}
	}
}

func (r *Repository) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return r.store.Set(ctx, key, data)
}

func (r *Repository) getJSON(ctx context.Context, key string, out any) bool {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			r.logger.Warn("Failed to read snapshot part", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		r.logger.Warn("Corrupted snapshot part, treating as cache miss",
			zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}
