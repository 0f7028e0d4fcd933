// Package recall embeds the retrieval engine in a host application: an
// interview-assistance client builds an Engine once per session, feeds it
// the candidate's documents, and queries it per incoming question.
package recall

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/prepdeck/recall/internal/db"
	dbBolt "github.com/prepdeck/recall/internal/db/bolt"
	dbRedis "github.com/prepdeck/recall/internal/db/redis"
	"github.com/prepdeck/recall/internal/domain"
	"github.com/prepdeck/recall/internal/repository/embcache"
	snapshotrepo "github.com/prepdeck/recall/internal/repository/snapshot"
	openaiTransport "github.com/prepdeck/recall/internal/transport/openai"
	"github.com/prepdeck/recall/internal/usecase/knowledge"
	"github.com/prepdeck/recall/internal/usecase/retrieval"
	"github.com/prepdeck/recall/internal/usecase/structurer"
)

// Embedder vectorizes text. Implement it to plug in a custom provider;
// by default the engine uses the OpenAI-compatible API configured via
// WithOpenAI.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Extractor runs one structured-generation call per document. The
// default implementation is configured via WithOpenAI.
type Extractor interface {
	Extract(ctx context.Context, system, document string) (string, error)
}

type engineConfig struct {
	apiKey         string
	baseURL        string
	embeddingModel string
	dimensions     int
	extractModel   string
	temperature    float32

	boltPath  string
	addrs     []string
	password  string
	keyPrefix string

	qaThreshold    float64
	chunkThreshold float64
	maxQAMatches   int
	maxChunks      int

	embedder  Embedder
	extractor Extractor
	logger    *zap.Logger
}

// Option configures an Engine.
type Option func(*engineConfig)

// WithOpenAI sets the API credentials used for both embedding and
// extraction. baseURL may be empty for the default endpoint.
func WithOpenAI(apiKey, baseURL string) Option {
	return func(c *engineConfig) {
		c.apiKey = apiKey
		c.baseURL = baseURL
	}
}

// WithEmbeddingModel sets the embedding model and output dimensions.
func WithEmbeddingModel(model string, dimensions int) Option {
	return func(c *engineConfig) {
		c.embeddingModel = model
		c.dimensions = dimensions
	}
}

// WithExtractionModel sets the structured-generation model.
func WithExtractionModel(model string, temperature float32) Option {
	return func(c *engineConfig) {
		c.extractModel = model
		c.temperature = temperature
	}
}

// WithBolt persists snapshots and the embedding cache in a local file.
func WithBolt(path string) Option {
	return func(c *engineConfig) { c.boltPath = path }
}

// WithRedis persists snapshots and the embedding cache in Redis.
func WithRedis(addrs []string, password string) Option {
	return func(c *engineConfig) {
		c.addrs = addrs
		c.password = password
	}
}

// WithKeyPrefix namespaces all persisted keys. Default "recall:".
func WithKeyPrefix(prefix string) Option {
	return func(c *engineConfig) { c.keyPrefix = prefix }
}

// WithThresholds overrides the matching thresholds.
func WithThresholds(qa, chunk float64) Option {
	return func(c *engineConfig) {
		c.qaThreshold = qa
		c.chunkThreshold = chunk
	}
}

// WithLimits overrides the result caps.
func WithLimits(maxQAMatches, maxChunks int) Option {
	return func(c *engineConfig) {
		c.maxQAMatches = maxQAMatches
		c.maxChunks = maxChunks
	}
}

// WithEmbedder plugs in a custom embedding provider.
func WithEmbedder(e Embedder) Option {
	return func(c *engineConfig) { c.embedder = e }
}

// WithExtractor plugs in a custom structured-generation provider.
func WithExtractor(x Extractor) Option {
	return func(c *engineConfig) { c.extractor = x }
}

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *engineConfig) { c.logger = logger }
}

// Engine is the embeddable retrieval engine.
type Engine struct {
	store  db.Store
	kb     *knowledge.Service
	ret    *retrieval.Service
	logger *zap.Logger
}

// New creates an Engine. Without WithBolt or WithRedis the engine runs
// in-memory only: no snapshot restore, no embedding cache.
func New(opts ...Option) (*Engine, error) {
	cfg := &engineConfig{
		embeddingModel: "text-embedding-3-small",
		extractModel:   "gpt-4o-mini",
		temperature:    0.2,
		keyPrefix:      "recall:",
		qaThreshold:    retrieval.DefaultOptions().QAThreshold,
		chunkThreshold: retrieval.DefaultOptions().ChunkThreshold,
		maxQAMatches:   retrieval.DefaultOptions().MaxQAMatches,
		maxChunks:      retrieval.DefaultOptions().MaxChunks,
		logger:         zap.NewNop(),
	}
	for _, o := range opts {
		o(cfg)
	}

	if cfg.embedder == nil && cfg.apiKey == "" {
		return nil, errors.New("recall: API key required (use WithOpenAI or WithEmbedder)")
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	embedder := buildEmbedder(cfg, store)
	struc := structurer.New(buildExtractor(cfg), cfg.logger)

	var snapshots knowledge.SnapshotRepo
	if store != nil {
		snapshots = snapshotrepo.New(store, cfg.keyPrefix, cfg.logger)
	}

	kb := knowledge.New(embedder, struc, snapshots, cfg.logger)
	ret := retrieval.New(embedder, kb, retrieval.Options{
		QAThreshold:    cfg.qaThreshold,
		ChunkThreshold: cfg.chunkThreshold,
		MaxQAMatches:   cfg.maxQAMatches,
		MaxChunks:      cfg.maxChunks,
	}, cfg.logger)

	return &Engine{store: store, kb: kb, ret: ret, logger: cfg.logger}, nil
}

func createStore(cfg *engineConfig) (db.Store, error) {
	switch {
	case cfg.boltPath != "":
		s, err := dbBolt.NewStore(cfg.boltPath)
		if err != nil {
			return nil, fmt.Errorf("recall: open bolt store: %w", err)
		}
		return s, nil
	case len(cfg.addrs) > 0:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("recall: create redis store: %w", err)
		}
		return s, nil
	default:
		return nil, nil
	}
}

func buildEmbedder(cfg *engineConfig, store db.Store) domain.Embedder {
	var inner domain.Embedder
	if cfg.embedder != nil {
		inner = &embedderAdapter{inner: cfg.embedder}
	} else {
		inner = openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
			APIKey:     cfg.apiKey,
			BaseURL:    cfg.baseURL,
			Model:      cfg.embeddingModel,
			Dimensions: cfg.dimensions,
			Provider:   "openai",
			Logger:     cfg.logger,
		})
	}
	if store != nil {
		return embcache.New(inner, store, cfg.keyPrefix, nil, cfg.logger)
	}
	return inner
}

func buildExtractor(cfg *engineConfig) structurer.Extractor {
	if cfg.extractor != nil {
		return cfg.extractor
	}
	return openaiTransport.NewExtractor(&openaiTransport.ExtractorConfig{
		APIKey:      cfg.apiKey,
		BaseURL:     cfg.baseURL,
		Model:       cfg.extractModel,
		Temperature: cfg.temperature,
		Logger:      cfg.logger,
	})
}

// Close releases the storage backend.
func (e *Engine) Close() {
	if e.store != nil {
		e.store.Close()
	}
}

// embedderAdapter wraps the public Embedder to satisfy domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	vec, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{Embedding: vec}, nil
}
