package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/prepdeck/recall/internal/domain"
	"github.com/prepdeck/recall/internal/metrics"
)

// Options tune the dual-threshold matching.
type Options struct {
	// QAThreshold gates prepared-answer substitution. A match above it
	// means the incoming question is a near-duplicate of a prepared one,
	// so its verbatim answer is safe to surface.
	QAThreshold float64
	// ChunkThreshold gates grounding context. It is deliberately lower:
	// chunks only inform generation, so topical relatedness is enough.
	ChunkThreshold float64
	MaxQAMatches   int
	MaxChunks      int
}

// DefaultOptions returns the standard thresholds and caps.
func DefaultOptions() Options {
	return Options{
		QAThreshold:    0.85,
		ChunkThreshold: 0.70,
		MaxQAMatches:   3,
		MaxChunks:      5,
	}
}

// QAMatch is a prepared Q&A entry scored against the query.
type QAMatch struct {
	Entry domain.QAEntry
	Score float64
}

// ChunkMatch is a context chunk scored against the query.
type ChunkMatch struct {
	Chunk domain.EmbeddedChunk
	Score float64
}

// Matches is the combined retrieval result for one query.
type Matches struct {
	QA     []QAMatch
	Chunks []ChunkMatch
}

// HasDirectAnswer reports whether a prepared answer cleared the QA
// threshold and can be surfaced verbatim.
func (m Matches) HasDirectAnswer() bool { return len(m.QA) > 0 }

// BestQA returns the top prepared match, or false when none cleared the
// threshold.
func (m Matches) BestQA() (QAMatch, bool) {
	if len(m.QA) == 0 {
		return QAMatch{}, false
	}
	return m.QA[0], true
}

// Service ranks the knowledge base against incoming questions. It holds
// no state of its own; the knowledge base is read-locked per call.
type Service struct {
	embed  Embedder
	kb     KnowledgeBase
	opts   Options
	logger *zap.Logger
}

// New creates a retrieval service.
func New(embed Embedder, kb KnowledgeBase, opts Options, logger *zap.Logger) *Service {
	if opts.MaxQAMatches <= 0 {
		opts.MaxQAMatches = DefaultOptions().MaxQAMatches
	}
	if opts.MaxChunks <= 0 {
		opts.MaxChunks = DefaultOptions().MaxChunks
	}
	return &Service{embed: embed, kb: kb, opts: opts, logger: logger}
}

// FindComprehensiveMatches embeds the query once and ranks it against
// both pools. An empty query or an embedding failure returns an error;
// the caller decides whether to degrade to ungrounded generation. Empty
// result sets are a valid outcome, not an error.
func (s *Service) FindComprehensiveMatches(ctx context.Context, query string) (Matches, error) {
	if strings.TrimSpace(query) == "" {
		return Matches{}, fmt.Errorf("empty query")
	}

	start := time.Now()
	result, err := s.embed.Embed(ctx, query)
	if err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues("error").Inc()
		return Matches{}, fmt.Errorf("embed query: %w", err)
	}

	matches := Matches{
		QA:     s.rankQA(result.Embedding),
		Chunks: s.rankChunks(result.Embedding),
	}

	metrics.RetrievalRequestsTotal.WithLabelValues("ok").Inc()
	metrics.RetrievalMatchesTotal.WithLabelValues("qa").Add(float64(len(matches.QA)))
	metrics.RetrievalMatchesTotal.WithLabelValues("chunk").Add(float64(len(matches.Chunks)))
	metrics.RetrievalDuration.Observe(time.Since(start).Seconds())

	s.logger.Debug("Retrieval completed",
		zap.Int("qa_matches", len(matches.QA)),
		zap.Int("chunk_matches", len(matches.Chunks)),
		zap.Duration("took", time.Since(start)),
	)
	return matches, nil
}

// ItemMatch is a knowledge item scored against a query.
type ItemMatch struct {
	Item  domain.KnowledgeItem
	Score float64
}

// FindSimilar ranks the given items against the query and returns the
// top K by score. No threshold applies; unsearchable items are excluded.
func (s *Service) FindSimilar(ctx context.Context, query string, items []domain.KnowledgeItem, topK int) ([]ItemMatch, error) {
	if topK <= 0 {
		return nil, nil
	}

	result, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches := make([]ItemMatch, 0, len(items))
	for _, item := range items {
		if !item.Searchable() || len(item.Embedding) != len(result.Embedding) {
			continue
		}
		matches = append(matches, ItemMatch{
			Item:  item,
			Score: domain.CosineSimilarity(result.Embedding, item.Embedding),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *Service) rankQA(query []float32) []QAMatch {
	var matches []QAMatch
	for _, entry := range s.kb.QAEntries() {
		emb := s.kb.QAEmbedding(entry.ID)
		if emb == nil {
			continue
		}
		if len(emb) != len(query) {
			s.logger.Warn("Skipping Q&A entry with mismatched embedding dimensions",
				zap.String("id", entry.ID),
				zap.Int("have", len(emb)),
				zap.Int("want", len(query)),
			)
			continue
		}
		score := domain.CosineSimilarity(query, emb)
		if score >= s.opts.QAThreshold {
			matches = append(matches, QAMatch{Entry: entry, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > s.opts.MaxQAMatches {
		matches = matches[:s.opts.MaxQAMatches]
	}
	return matches
}

func (s *Service) rankChunks(query []float32) []ChunkMatch {
	var matches []ChunkMatch
	for _, chunk := range s.kb.ContextChunks() {
		if !chunk.Searchable() {
			continue
		}
		if len(chunk.Embedding) != len(query) {
			s.logger.Warn("Skipping chunk with mismatched embedding dimensions",
				zap.String("id", chunk.ID),
				zap.String("source", chunk.Source),
				zap.Int("have", len(chunk.Embedding)),
				zap.Int("want", len(query)),
			)
			continue
		}
		score := domain.CosineSimilarity(query, chunk.Embedding)
		if score >= s.opts.ChunkThreshold {
			matches = append(matches, ChunkMatch{Chunk: chunk, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > s.opts.MaxChunks {
		matches = matches[:s.opts.MaxChunks]
	}
	return matches
}
