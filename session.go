package recall

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/prepdeck/recall/internal/domain"
	"github.com/prepdeck/recall/internal/usecase/retrieval"
)

// QAPair is one prepared question with its rehearsed answer.
type QAPair struct {
	ID       string
	Topic    string
	Question string
	Answer   string
}

// Artifact is one pre-split piece of organization-specific material.
type Artifact struct {
	Org     string
	Content string
}

// Documents bundles the candidate's source material for one session.
type Documents struct {
	QA         []QAPair
	CVText     string
	Activities string
	Artifacts  []Artifact
}

// Item is an atomic knowledge fact, extracted or uploaded directly.
type Item struct {
	ID       string
	Title    string
	Content  string
	Category string
	Date     string
	Tags     []string
	// Searchable is false when the item failed to embed. It stays
	// visible but never matches.
	Searchable bool
}

// QAMatch is a prepared answer scored against an incoming question.
type QAMatch struct {
	Entry QAPair
	Score float64
}

// ChunkMatch is a scored piece of grounding context.
type ChunkMatch struct {
	Content  string
	Source   string
	Category string
	Score    float64
}

// Matches is the retrieval result for one incoming question.
type Matches struct {
	QA     []QAMatch
	Chunks []ChunkMatch
}

// HasDirectAnswer reports whether a prepared answer can be surfaced
// verbatim.
func (m Matches) HasDirectAnswer() bool { return len(m.QA) > 0 }

// Counts summarizes the searchable knowledge base.
type Counts struct {
	QA         int
	Chunks     int
	Activities int
}

// Initialize builds the embedded knowledge base from the session
// documents. With persistence configured, a snapshot whose content hash
// matches is restored instead of re-embedding; force skips that check.
func (e *Engine) Initialize(ctx context.Context, docs Documents, force bool) error {
	if err := e.kb.InitializeAll(ctx, toSourceDocs(docs), force); err != nil {
		return fmt.Errorf("recall: initialize: %w", err)
	}
	return nil
}

// InitializeQA embeds only the prepared Q&A set.
func (e *Engine) InitializeQA(ctx context.Context, qa []QAPair) error {
	if err := e.kb.InitializeQA(ctx, toQAEntries(qa)); err != nil {
		return fmt.Errorf("recall: initialize qa: %w", err)
	}
	return nil
}

// Ask embeds the incoming question once and ranks it against the
// prepared answers and the context pool. An embedding failure returns an
// error; the caller decides whether to continue ungrounded.
func (e *Engine) Ask(ctx context.Context, question string) (Matches, error) {
	m, err := e.ret.FindComprehensiveMatches(ctx, question)
	if err != nil {
		return Matches{}, fmt.Errorf("recall: ask: %w", err)
	}
	return fromMatches(m), nil
}

// AddKnowledge embeds ad-hoc items and adds them to the context pool.
// Items that fail to embed are returned with Searchable false.
func (e *Engine) AddKnowledge(ctx context.Context, items []Item) []Item {
	embedded, failed := e.kb.AddItems(ctx, toKnowledgeItems(items))
	out := make([]Item, 0, len(embedded)+len(failed))
	for _, it := range embedded {
		out = append(out, fromKnowledgeItem(it))
	}
	for _, it := range failed {
		out = append(out, fromKnowledgeItem(it))
	}
	return out
}

// ItemMatch is a stored knowledge item scored against a question.
type ItemMatch struct {
	Item  Item
	Score float64
}

// FindSimilar ranks the stored ad-hoc knowledge items against the
// question and returns the top K by score. No threshold applies, so it
// always surfaces the closest material even when nothing is a strong
// match.
func (e *Engine) FindSimilar(ctx context.Context, question string, topK int) ([]ItemMatch, error) {
	matches, err := e.ret.FindSimilar(ctx, question, e.kb.Items(), topK)
	if err != nil {
		return nil, fmt.Errorf("recall: find similar: %w", err)
	}
	out := make([]ItemMatch, 0, len(matches))
	for _, m := range matches {
		out = append(out, ItemMatch{Item: fromKnowledgeItem(m.Item), Score: m.Score})
	}
	return out, nil
}

// Knowledge returns all ad-hoc items, searchable and failed alike.
func (e *Engine) Knowledge() []Item {
	return fromKnowledgeItems(e.kb.Items())
}

// CVSections returns the parsed CV sections for display, including
// sections that failed to embed.
func (e *Engine) CVSections() []Item {
	return fromKnowledgeItems(e.kb.CVSections())
}

// Activities returns the parsed activity items for display, including
// items that failed to embed.
func (e *Engine) Activities() []Item {
	return fromKnowledgeItems(e.kb.Activities())
}

// Counts summarizes the searchable knowledge base.
func (e *Engine) Counts() Counts {
	c := e.kb.Counts()
	return Counts{QA: c.QA, Chunks: c.Chunks, Activities: c.Activities}
}

// Clear drops the in-memory state and the persisted snapshot.
func (e *Engine) Clear(ctx context.Context) {
	e.kb.Clear(ctx)
}

func toSourceDocs(docs Documents) domain.SourceDocs {
	out := domain.SourceDocs{
		QA:             toQAEntries(docs.QA),
		CVText:         docs.CVText,
		ActivitiesText: docs.Activities,
	}
	for _, a := range docs.Artifacts {
		out.Artifacts = append(out.Artifacts, domain.ArtifactChunk{
			Org:     a.Org,
			Content: a.Content,
		})
	}
	return out
}

func toQAEntries(qa []QAPair) []domain.QAEntry {
	entries := make([]domain.QAEntry, 0, len(qa))
	for _, p := range qa {
		entries = append(entries, domain.QAEntry{
			ID:       p.ID,
			Topic:    p.Topic,
			Question: p.Question,
			Answer:   p.Answer,
		})
	}
	return entries
}

func toKnowledgeItems(items []Item) []domain.KnowledgeItem {
	out := make([]domain.KnowledgeItem, 0, len(items))
	for _, it := range items {
		id := it.ID
		if id == "" {
			id = uuid.NewString()
		}
		out = append(out, domain.KnowledgeItem{
			ID:       id,
			Title:    it.Title,
			Content:  it.Content,
			Category: domain.NormalizeCategory(it.Category),
			Date:     it.Date,
			Tags:     it.Tags,
		})
	}
	return out
}

func fromKnowledgeItems(items []domain.KnowledgeItem) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		out = append(out, fromKnowledgeItem(it))
	}
	return out
}

func fromKnowledgeItem(it domain.KnowledgeItem) Item {
	return Item{
		ID:         it.ID,
		Title:      it.Title,
		Content:    it.Content,
		Category:   string(it.Category),
		Date:       it.Date,
		Tags:       it.Tags,
		Searchable: it.Searchable(),
	}
}

func fromMatches(m retrieval.Matches) Matches {
	out := Matches{}
	for _, qa := range m.QA {
		out.QA = append(out.QA, QAMatch{
			Entry: QAPair{
				ID:       qa.Entry.ID,
				Topic:    qa.Entry.Topic,
				Question: qa.Entry.Question,
				Answer:   qa.Entry.Answer,
			},
			Score: qa.Score,
		})
	}
	for _, c := range m.Chunks {
		out.Chunks = append(out.Chunks, ChunkMatch{
			Content:  c.Chunk.Content,
			Source:   c.Chunk.Source,
			Category: string(c.Chunk.Category),
			Score:    c.Score,
		})
	}
	return out
}
