package knowledge

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prepdeck/recall/internal/domain"
	"github.com/prepdeck/recall/internal/usecase/structurer"
)

// Chunk source labels.
const (
	SourceCV         = "cv"
	SourceActivities = "activities"
	SourceKnowledge  = "knowledge"
)

// Service owns all embedded material for the current session: the fixed
// Q&A base, structured context chunks from the CV/activities/artifacts,
// and ad-hoc uploaded knowledge items. All mutation goes through its
// methods; the mutex preserves the single-writer invariant even if
// embedding is parallelized later.
type Service struct {
	embed     Embedder
	struc     Structurer
	snapshots SnapshotRepo
	logger    *zap.Logger

	mu          sync.RWMutex
	qaEntries   []domain.QAEntry
	qaEmb       map[string][]float32
	chunks      []domain.EmbeddedChunk
	cvSections  []domain.KnowledgeItem
	activities  []domain.KnowledgeItem
	items       []domain.KnowledgeItem
	contentHash string
}

// New creates a knowledge service. snapshots may be nil (no persistence).
func New(embed Embedder, struc Structurer, snapshots SnapshotRepo, logger *zap.Logger) *Service {
	return &Service{
		embed:     embed,
		struc:     struc,
		snapshots: snapshots,
		logger:    logger,
		qaEmb:     map[string][]float32{},
	}
}

// InitializeQA embeds the prepared Q&A set only (the light session-start
// path). Entries whose question fails to embed stay visible but are
// excluded from matching.
func (s *Service) InitializeQA(ctx context.Context, entries []domain.QAEntry) error {
	qaEmb := s.embedQA(ctx, entries)

	s.mu.Lock()
	s.qaEntries = entries
	s.qaEmb = qaEmb
	s.mu.Unlock()

	s.logger.Info("Q&A embeddings initialized",
		zap.Int("entries", len(entries)),
		zap.Int("embedded", len(qaEmb)),
	)
	return nil
}

// InitializeAll builds the full embedded state from the source documents,
// restoring a persisted snapshot when the content hash matches. force
// skips the snapshot and re-embeds everything (the explicit "refresh
// embeddings" recovery path).
func (s *Service) InitializeAll(ctx context.Context, docs domain.SourceDocs, force bool) error {
	hash := docs.Hash()

	if !force && s.snapshots != nil {
		if snap := s.snapshots.Load(ctx, hash); snap != nil {
			s.adopt(docs.QA, snap)
			s.logger.Info("Restored knowledge snapshot",
				zap.String("content_hash", hash),
				zap.Int("qa", len(snap.QAEmbeddings)),
				zap.Int("chunks", len(snap.Chunks)),
			)
			return nil
		}
	}

	qaEmb := s.embedQA(ctx, docs.QA)

	var (
		chunks     []domain.EmbeddedChunk
		cvSections []domain.KnowledgeItem
		activities []domain.KnowledgeItem
	)

	if docs.CVText != "" {
		res, err := s.struc.Structure(ctx, docs.CVText, structurer.KindCV)
		if err != nil {
			return fmt.Errorf("structure cv: %w", err)
		}
		embedded, failed := s.EmbedItems(ctx, res.Items)
		cvSections = append(embedded, failed...)
		chunks = append(chunks, itemsToChunks(embedded, SourceCV)...)
	}

	if docs.ActivitiesText != "" {
		res, err := s.struc.Structure(ctx, docs.ActivitiesText, structurer.KindActivities)
		if err != nil {
			return fmt.Errorf("structure activities: %w", err)
		}
		embedded, failed := s.EmbedItems(ctx, res.Items)
		activities = append(embedded, failed...)
		chunks = append(chunks, itemsToChunks(embedded, SourceActivities)...)
	}

	chunks = append(chunks, s.embedArtifacts(ctx, docs.Artifacts)...)

	s.mu.Lock()
	s.qaEntries = docs.QA
	s.qaEmb = qaEmb
	s.chunks = chunks
	s.cvSections = cvSections
	s.activities = activities
	s.contentHash = hash
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if s.snapshots != nil {
		s.snapshots.Save(ctx, snap)
	}

	counts := s.Counts()
	s.logger.Info("Knowledge base embedded",
		zap.String("content_hash", hash),
		zap.Int("qa", counts.QA),
		zap.Int("chunks", counts.Chunks),
		zap.Int("activities", counts.Activities),
	)
	return nil
}

// EmbedItems embeds each item independently and sequentially. A failed
// item moves to the failed partition with a nil embedding instead of
// aborting the batch: partial knowledge-base degradation must not hide
// what was extracted.
func (s *Service) EmbedItems(ctx context.Context, items []domain.KnowledgeItem) (embedded, failed []domain.KnowledgeItem) {
	for _, item := range items {
		result, err := s.embed.Embed(ctx, item.EmbeddingText())
		if err != nil {
			s.logger.Warn("Failed to embed knowledge item, keeping it visible but unsearchable",
				zap.String("id", item.ID),
				zap.String("title", item.Title),
				zap.Error(err),
			)
			item.Embedding = nil
			failed = append(failed, item)
			continue
		}
		item.Embedding = result.Embedding
		embedded = append(embedded, item)
	}
	return embedded, failed
}

// AddItems embeds ad-hoc uploaded knowledge items and adds them to the
// store. Both partitions are returned so the management view can show
// "N embedded, M failed". The persisted snapshot is re-saved so uploads
// survive the next hash-matching restore.
func (s *Service) AddItems(ctx context.Context, items []domain.KnowledgeItem) (embedded, failed []domain.KnowledgeItem) {
	embedded, failed = s.EmbedItems(ctx, items)

	s.mu.Lock()
	s.items = append(s.items, embedded...)
	s.items = append(s.items, failed...)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	// Nothing to refresh without an initialized snapshot: an empty hash
	// never validates on load.
	if s.snapshots != nil && snap.ContentHash != "" {
		s.snapshots.Save(ctx, snap)
	}

	return embedded, failed
}

// Clear drops all in-memory state and the persisted snapshot.
func (s *Service) Clear(ctx context.Context) {
	s.mu.Lock()
	s.qaEntries = nil
	s.qaEmb = map[string][]float32{}
	s.chunks = nil
	s.cvSections = nil
	s.activities = nil
	s.items = nil
	s.contentHash = ""
	s.mu.Unlock()

	if s.snapshots != nil {
		s.snapshots.Clear(ctx)
	}
}

// QAEntries returns the prepared Q&A set.
func (s *Service) QAEntries() []domain.QAEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QAEntry, len(s.qaEntries))
	copy(out, s.qaEntries)
	return out
}

// QAEmbedding returns the stored question embedding for a Q&A entry, or
// nil when the entry failed to embed.
func (s *Service) QAEmbedding(id string) []float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.qaEmb[id]
}

// ContextChunks returns all context material eligible for ranking: CV and
// activity chunks, artifact chunks, and ad-hoc knowledge items. Items
// without embeddings are included (they carry nil embeddings and are
// excluded from the candidate pool by the orchestrator).
func (s *Service) ContextChunks() []domain.EmbeddedChunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.EmbeddedChunk, 0, len(s.chunks)+len(s.items))
	out = append(out, s.chunks...)
	for _, item := range s.items {
		out = append(out, domain.EmbeddedChunk{
			ID:        item.ID,
			Content:   item.Content,
			Source:    SourceKnowledge,
			Category:  item.Category,
			Embedding: item.Embedding,
		})
	}
	return out
}

// CVSections returns the parsed CV sections for display.
func (s *Service) CVSections() []domain.KnowledgeItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.KnowledgeItem, len(s.cvSections))
	copy(out, s.cvSections)
	return out
}

// Activities returns the parsed activity items for display.
func (s *Service) Activities() []domain.KnowledgeItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.KnowledgeItem, len(s.activities))
	copy(out, s.activities)
	return out
}

// Items returns the ad-hoc knowledge items, embedded and failed alike.
func (s *Service) Items() []domain.KnowledgeItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.KnowledgeItem, len(s.items))
	copy(out, s.items)
	return out
}

// Partition splits the ad-hoc items into searchable and failed sets for
// the knowledge-base management view.
func (s *Service) Partition() (embedded, failed []domain.KnowledgeItem) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.Searchable() {
			embedded = append(embedded, item)
		} else {
			failed = append(failed, item)
		}
	}
	return embedded, failed
}

// Counts summarizes searchable material for the UI.
func (s *Service) Counts() domain.EmbeddingCounts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := domain.EmbeddingCounts{QA: len(s.qaEmb)}
	for _, c := range s.chunks {
		if !c.Searchable() {
			continue
		}
		if c.Source == SourceActivities {
			counts.Activities++
		} else {
			counts.Chunks++
		}
	}
	for _, item := range s.items {
		if item.Searchable() {
			counts.Chunks++
		}
	}
	return counts
}

// ContentHash returns the hash the current state was built from.
func (s *Service) ContentHash() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contentHash
}

// snapshotLocked builds a snapshot of the current state. Caller must
// hold the lock.
func (s *Service) snapshotLocked() *domain.Snapshot {
	return &domain.Snapshot{
		QAEmbeddings: s.qaEmb,
		Chunks:       s.chunks,
		CVSections:   s.cvSections,
		Activities:   s.activities,
		Items:        s.items,
		ContentHash:  s.contentHash,
	}
}

// adopt installs a restored snapshot as the current state.
func (s *Service) adopt(qa []domain.QAEntry, snap *domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.qaEntries = qa
	s.qaEmb = snap.QAEmbeddings
	if s.qaEmb == nil {
		s.qaEmb = map[string][]float32{}
	}
	s.chunks = snap.Chunks
	s.cvSections = snap.CVSections
	s.activities = snap.Activities
	s.items = snap.Items
	s.contentHash = snap.ContentHash
}

// embedQA embeds each Q&A question with per-item failure isolation.
func (s *Service) embedQA(ctx context.Context, entries []domain.QAEntry) map[string][]float32 {
	qaEmb := make(map[string][]float32, len(entries))
	for _, entry := range entries {
		result, err := s.embed.Embed(ctx, entry.EmbeddingText())
		if err != nil {
			s.logger.Warn("Failed to embed Q&A question, entry will not match",
				zap.String("id", entry.ID),
				zap.Error(err),
			)
			continue
		}
		qaEmb[entry.ID] = result.Embedding
	}
	return qaEmb
}

// embedArtifacts embeds pre-chunked artifact material, scoped by org.
func (s *Service) embedArtifacts(ctx context.Context, artifacts []domain.ArtifactChunk) []domain.EmbeddedChunk {
	chunks := make([]domain.EmbeddedChunk, 0, len(artifacts))
	for _, a := range artifacts {
		chunk := domain.EmbeddedChunk{
			ID:       uuid.NewString(),
			Content:  a.Content,
			Source:   "artifact:" + a.Org,
			Category: domain.CategoryOther,
		}
		result, err := s.embed.Embed(ctx, a.Content)
		if err != nil {
			s.logger.Warn("Failed to embed artifact chunk",
				zap.String("org", a.Org),
				zap.Error(err),
			)
		} else {
			chunk.Embedding = result.Embedding
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// itemsToChunks projects embedded items into the context chunk pool.
func itemsToChunks(items []domain.KnowledgeItem, source string) []domain.EmbeddedChunk {
	chunks := make([]domain.EmbeddedChunk, 0, len(items))
	for _, item := range items {
		content := item.Content
		if item.Title != "" {
			content = item.Title + ": " + item.Content
		}
		chunks = append(chunks, domain.EmbeddedChunk{
			ID:        item.ID,
			Content:   content,
			Source:    source,
			Category:  item.Category,
			Embedding: item.Embedding,
		})
	}
	return chunks
}
