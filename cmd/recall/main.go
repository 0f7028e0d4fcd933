package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/prepdeck/recall/internal/config"
	"github.com/prepdeck/recall/internal/db"
	dbBolt "github.com/prepdeck/recall/internal/db/bolt"
	dbRedis "github.com/prepdeck/recall/internal/db/redis"
	"github.com/prepdeck/recall/internal/domain"
	logpkg "github.com/prepdeck/recall/internal/logger"
	"github.com/prepdeck/recall/internal/metrics"
	"github.com/prepdeck/recall/internal/repository/embcache"
	snapshotrepo "github.com/prepdeck/recall/internal/repository/snapshot"
	"github.com/prepdeck/recall/internal/repository/sources"
	openaiTransport "github.com/prepdeck/recall/internal/transport/openai"
	"github.com/prepdeck/recall/internal/usecase/knowledge"
	"github.com/prepdeck/recall/internal/usecase/retrieval"
	"github.com/prepdeck/recall/internal/usecase/structurer"
	"github.com/prepdeck/recall/internal/version"
)

func main() {
	refresh := flag.Bool("refresh", false, "re-embed all sources, ignoring the persisted snapshot")
	query := flag.String("query", "", "run one retrieval and exit (default: interactive loop)")
	clearSnap := flag.Bool("clear", false, "drop the persisted snapshot and exit")
	flag.Parse()

	env := config.GetEnv()
	cfg := config.MustLoad(env)

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting recall engine",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("embedding_model", cfg.Embedding.Model),
	)

	store, err := newStore(cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if rs, ok := store.(*dbRedis.Store); ok {
		if err := rs.WaitForReady(ctx, 10*time.Second); err != nil {
			logger.Fatal("Redis not ready", zap.Error(err))
		}
	}

	metrics.Register()
	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	// Embedder chain: OpenAI -> per-text cache.
	var embedder domain.Embedder = openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})

	// Provider readiness check. A failure is not fatal: the session can
	// still start on a restored snapshot and degrade per question.
	if hc, ok := embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			logger.Warn("Embedding provider not reachable, retrieval will degrade", zap.Error(err))
		} else {
			logger.Info("Embedding provider reachable")
		}
	}

	embedder = embcache.New(embedder, store, cfg.Storage.KeyPrefix, metrics.EmbeddingCacheTotal, logger)

	extractor := openaiTransport.NewExtractor(&openaiTransport.ExtractorConfig{
		APIKey:      cfg.Embedding.APIKey,
		BaseURL:     cfg.Embedding.BaseURL,
		Model:       cfg.Extraction.Model,
		Temperature: cfg.Extraction.Temperature,
		Logger:      logger,
	})

	snapshots := snapshotrepo.New(store, cfg.Storage.KeyPrefix, logger)
	struc := structurer.New(extractor, logger).
		WithChunking(cfg.Chunking.WindowSize, cfg.Chunking.Overlap)
	kb := knowledge.New(embedder, struc, snapshots, logger)

	if *clearSnap {
		kb.Clear(ctx)
		logger.Info("Persisted snapshot cleared")
		return
	}

	docs, err := sources.New(logger).Load(cfg.Sources)
	if err != nil {
		logger.Fatal("Failed to load source documents", zap.Error(err))
	}
	if docs.Empty() {
		logger.Fatal("No source documents configured")
	}

	if err := kb.InitializeAll(ctx, docs, *refresh); err != nil {
		logger.Fatal("Failed to initialize knowledge base", zap.Error(err))
	}
	counts := kb.Counts()
	logger.Info("Knowledge base ready",
		zap.Int("qa", counts.QA),
		zap.Int("chunks", counts.Chunks),
		zap.Int("activities", counts.Activities),
	)

	ret := retrieval.New(embedder, kb, retrieval.Options{
		QAThreshold:    cfg.Retrieval.QAThreshold,
		ChunkThreshold: cfg.Retrieval.ChunkThreshold,
		MaxQAMatches:   cfg.Retrieval.MaxQAMatches,
		MaxChunks:      cfg.Retrieval.MaxChunks,
	}, logger)

	if *query != "" {
		runQuery(ctx, ret, *query, logger)
		return
	}

	runInteractive(ctx, ret, logger)
}

// newStore builds the storage backend named by the config.
func newStore(cfg config.StorageConfig) (db.Store, error) {
	switch cfg.Driver {
	case "bolt":
		return dbBolt.NewStore(cfg.Path)
	case "redis":
		return dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("Serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics listener failed", zap.Error(err))
	}
}

// matchOutput is the JSON shape printed per retrieval.
type matchOutput struct {
	DirectAnswer *qaOutput     `json:"direct_answer,omitempty"`
	QA           []qaOutput    `json:"qa_matches,omitempty"`
	Chunks       []chunkOutput `json:"context_chunks,omitempty"`
}

type qaOutput struct {
	Topic    string  `json:"topic,omitempty"`
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Score    float64 `json:"score"`
}

type chunkOutput struct {
	Source   string  `json:"source"`
	Category string  `json:"category"`
	Content  string  `json:"content"`
	Score    float64 `json:"score"`
}

func runQuery(ctx context.Context, ret *retrieval.Service, query string, logger *zap.Logger) {
	matches, err := ret.FindComprehensiveMatches(ctx, query)
	if err != nil {
		logger.Fatal("Retrieval failed", zap.Error(err))
	}
	printMatches(matches)
}

func runInteractive(ctx context.Context, ret *retrieval.Service, logger *zap.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Println("recall: type a question, empty line or Ctrl-D to exit")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "" {
			break
		}

		matches, err := ret.FindComprehensiveMatches(ctx, line)
		if err != nil {
			// Provider failures degrade to "no grounding", not a crash.
			logger.Warn("Retrieval failed, no grounding available", zap.Error(err))
			continue
		}
		printMatches(matches)
	}
}

func printMatches(m retrieval.Matches) {
	out := matchOutput{}
	for _, qa := range m.QA {
		out.QA = append(out.QA, qaOutput{
			Topic:    qa.Entry.Topic,
			Question: qa.Entry.Question,
			Answer:   qa.Entry.Answer,
			Score:    qa.Score,
		})
	}
	if best, ok := m.BestQA(); ok {
		out.DirectAnswer = &qaOutput{
			Topic:    best.Entry.Topic,
			Question: best.Entry.Question,
			Answer:   best.Entry.Answer,
			Score:    best.Score,
		}
	}
	for _, c := range m.Chunks {
		out.Chunks = append(out.Chunks, chunkOutput{
			Source:   c.Chunk.Source,
			Category: string(c.Chunk.Category),
			Content:  c.Chunk.Content,
			Score:    c.Score,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}
