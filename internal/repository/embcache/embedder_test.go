package embcache

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/prepdeck/recall/internal/db"
	"github.com/prepdeck/recall/internal/domain"
)

type fakeStore struct {
	data   map[string][]byte
	getErr error
	setErr error
}

func newFakeStore() *fakeStore { return &fakeStore{data: map[string][]byte{}} }

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value []byte) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	return nil
}

type countingEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (e *countingEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	e.calls++
	if e.err != nil {
		return domain.EmbeddingResult{}, e.err
	}
	return domain.EmbeddingResult{Embedding: e.vec, TotalTokens: 7}, nil
}

func TestCachedEmbedder_MissThenHit(t *testing.T) {
	inner := &countingEmbedder{vec: []float32{0.5, -1.25}}
	cache := New(inner, newFakeStore(), "recall:", nil, zap.NewNop())

	first, err := cache.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.TotalTokens != 7 {
		t.Errorf("miss should report inner token usage, got %d", first.TotalTokens)
	}

	second, err := cache.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner embedder called %d times, want 1", inner.calls)
	}
	if second.TotalTokens != 0 {
		t.Errorf("hit should consume no tokens, got %d", second.TotalTokens)
	}
	if len(second.Embedding) != 2 || second.Embedding[0] != 0.5 || second.Embedding[1] != -1.25 {
		t.Errorf("round-tripped vector = %v", second.Embedding)
	}
}

func TestCachedEmbedder_StoreErrorsDegradeToMiss(t *testing.T) {
	inner := &countingEmbedder{vec: []float32{1}}
	store := newFakeStore()
	store.getErr = errors.New("store down")
	store.setErr = errors.New("store down")
	cache := New(inner, store, "recall:", nil, zap.NewNop())

	res, err := cache.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("store failure must not fail the embed: %v", err)
	}
	if len(res.Embedding) != 1 {
		t.Errorf("expected inner result, got %v", res.Embedding)
	}
}

func TestCachedEmbedder_InnerErrorPropagates(t *testing.T) {
	inner := &countingEmbedder{err: domain.ErrEmbeddingProviderError}
	cache := New(inner, newFakeStore(), "recall:", nil, zap.NewNop())

	_, err := cache.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("expected provider error, got %v", err)
	}
}

func TestVectorBytesRoundTrip(t *testing.T) {
	vec := []float32{0, 1.5, -2.25, 3e-7}
	got, err := bytesToVector(vectorToBytes(vec))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("index %d: got %v, want %v", i, got[i], vec[i])
		}
	}

	if _, err := bytesToVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated data")
	}
}
