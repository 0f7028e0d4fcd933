package snapshot

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/prepdeck/recall/internal/db"
	"github.com/prepdeck/recall/internal/domain"
)

type memStore struct {
	data    map[string][]byte
	failGet bool
	failSet bool
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.failGet {
		return nil, errors.New("storage unavailable")
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	if m.failSet {
		return errors.New("storage unavailable")
	}
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func sampleSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		QAEmbeddings: map[string][]float32{"q1": {1, 0}, "q2": {0, 1}},
		Chunks: []domain.EmbeddedChunk{
			{ID: "c1", Content: "Research assistant", Source: "cv", Category: domain.CategoryResearch, Embedding: []float32{0.5, 0.5}},
		},
		CVSections: []domain.KnowledgeItem{
			{ID: "s1", Title: "Research Assistant", Content: "EEG studies", Category: domain.CategoryResearch},
		},
		Activities: []domain.KnowledgeItem{
			{ID: "a1", Title: "Volunteer EMT", Content: "200 hours", Category: domain.CategoryActivity},
		},
		Items:       []domain.KnowledgeItem{},
		ContentHash: "abc123",
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	repo := New(newMemStore(), "recall:", zap.NewNop())
	ctx := context.Background()

	want := sampleSnapshot()
	repo.Save(ctx, want)

	got := repo.Load(ctx, "abc123")
	if got == nil {
		t.Fatal("expected snapshot, got nil")
	}
	if !reflect.DeepEqual(got.QAEmbeddings, want.QAEmbeddings) {
		t.Errorf("QA embeddings differ: %v vs %v", got.QAEmbeddings, want.QAEmbeddings)
	}
	if !reflect.DeepEqual(got.Chunks, want.Chunks) {
		t.Errorf("chunks differ: %v vs %v", got.Chunks, want.Chunks)
	}
	if got.ContentHash != want.ContentHash {
		t.Errorf("hash = %q, want %q", got.ContentHash, want.ContentHash)
	}
}

func TestLoad_HashMismatchIsMiss(t *testing.T) {
	repo := New(newMemStore(), "recall:", zap.NewNop())
	ctx := context.Background()

	repo.Save(ctx, sampleSnapshot())

	if got := repo.Load(ctx, "abc124"); got != nil {
		t.Error("expected nil on hash mismatch, no partial reuse")
	}
}

func TestLoad_EmptyStoreIsMiss(t *testing.T) {
	repo := New(newMemStore(), "recall:", zap.NewNop())
	if got := repo.Load(context.Background(), "abc123"); got != nil {
		t.Error("expected nil on empty store")
	}
}

func TestLoad_StorageFailureIsMiss(t *testing.T) {
	store := newMemStore()
	repo := New(store, "recall:", zap.NewNop())
	ctx := context.Background()

	repo.Save(ctx, sampleSnapshot())
	store.failGet = true

	if got := repo.Load(ctx, "abc123"); got != nil {
		t.Error("storage failure must degrade to cache miss")
	}
}

func TestSave_StorageFailureDoesNotValidate(t *testing.T) {
	store := newMemStore()
	repo := New(store, "recall:", zap.NewNop())
	ctx := context.Background()

	store.failSet = true
	repo.Save(ctx, sampleSnapshot()) // must not panic or error

	store.failSet = false
	if got := repo.Load(ctx, "abc123"); got != nil {
		t.Error("failed save must not leave a validating snapshot")
	}
}

func TestLoad_CorruptedPartIsMiss(t *testing.T) {
	store := newMemStore()
	repo := New(store, "recall:", zap.NewNop())
	ctx := context.Background()

	repo.Save(ctx, sampleSnapshot())
	store.data["recall:kb:chunks"] = []byte("{not json")

	if got := repo.Load(ctx, "abc123"); got != nil {
		t.Error("corrupted part must degrade to cache miss")
	}
}

func TestClear(t *testing.T) {
	store := newMemStore()
	repo := New(store, "recall:", zap.NewNop())
	ctx := context.Background()

	repo.Save(ctx, sampleSnapshot())
	repo.Clear(ctx)

	if len(store.data) != 0 {
		t.Errorf("expected empty store after clear, got %d keys", len(store.data))
	}
	if got := repo.Load(ctx, "abc123"); got != nil {
		t.Error("expected nil after clear")
	}
}
