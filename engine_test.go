package recall

import (
	"context"
	"testing"
)

// deterministic per-text vectors so thresholds behave predictably.
type fakeEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return f.fallback, nil
}

type fakeExtractor struct {
	output string
}

func (f *fakeExtractor) Extract(_ context.Context, _, _ string) (string, error) {
	return f.output, nil
}

func TestEngine_SessionFlow(t *testing.T) {
	qaQuestion := "Tell me about yourself."
	emb := &fakeEmbedder{
		vectors: map[string][]float32{
			qaQuestion:               {1, 0},
			"tell me about yourself": {0.99, 0.01},
		},
		fallback: []float32{0, 1},
	}
	ext := &fakeExtractor{output: `{"items":[
		{"title":"Research Assistant","content":"Two years of EEG studies.","category":"research"}
	]}`}

	engine, err := New(
		WithEmbedder(emb),
		WithExtractor(ext),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer engine.Close()

	docs := Documents{
		QA: []QAPair{
			{ID: "qa-1", Topic: "personal", Question: qaQuestion, Answer: "I grew up on a farm."},
		},
		CVText: "Research assistant for two years.",
	}
	if err := engine.Initialize(context.Background(), docs, false); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	counts := engine.Counts()
	if counts.QA != 1 || counts.Chunks != 1 {
		t.Fatalf("counts = %+v, want 1 QA and 1 chunk", counts)
	}

	m, err := engine.Ask(context.Background(), "tell me about yourself")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !m.HasDirectAnswer() {
		t.Fatal("near-duplicate question must surface the prepared answer")
	}
	if m.QA[0].Entry.Answer != "I grew up on a farm." {
		t.Errorf("answer = %q", m.QA[0].Entry.Answer)
	}

	// Off-topic question: no prepared answer, no grounding above threshold.
	m, err = engine.Ask(context.Background(), "unrelated question")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if m.HasDirectAnswer() {
		t.Error("off-topic question must not surface a prepared answer")
	}
}

func TestEngine_AddKnowledge(t *testing.T) {
	emb := &fakeEmbedder{fallback: []float32{1, 0}}
	engine, err := New(WithEmbedder(emb), WithExtractor(&fakeExtractor{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer engine.Close()

	added := engine.AddKnowledge(context.Background(), []Item{
		{Title: "Gap year", Content: "Worked as an EMT.", Category: "work"},
	})
	if len(added) != 1 || !added[0].Searchable {
		t.Fatalf("added = %+v", added)
	}
	if added[0].ID == "" {
		t.Error("uploaded items must get IDs assigned")
	}

	m, err := engine.Ask(context.Background(), "any question")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if len(m.Chunks) != 1 || m.Chunks[0].Source != "knowledge" {
		t.Errorf("chunks = %+v, want the uploaded item", m.Chunks)
	}
}

func TestEngine_DisplayAccessors(t *testing.T) {
	emb := &fakeEmbedder{fallback: []float32{1, 0}}
	ext := &fakeExtractor{output: `{"items":[
		{"title":"Research Assistant","content":"Two years of EEG studies.","category":"research"}
	]}`}
	engine, err := New(WithEmbedder(emb), WithExtractor(ext))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer engine.Close()

	docs := Documents{
		CVText:     "cv text",
		Activities: "activities text",
	}
	if err := engine.Initialize(context.Background(), docs, false); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	sections := engine.CVSections()
	if len(sections) != 1 || sections[0].Title != "Research Assistant" {
		t.Errorf("cv sections = %+v", sections)
	}
	if !sections[0].Searchable {
		t.Error("embedded section must be searchable")
	}
	if got := engine.Activities(); len(got) != 1 {
		t.Errorf("activities = %+v", got)
	}
}

func TestEngine_FindSimilarTopKNoThreshold(t *testing.T) {
	emb := &fakeEmbedder{
		vectors:  map[string][]float32{"weak question": {0.6, 0.8}},
		fallback: []float32{1, 0},
	}
	engine, err := New(WithEmbedder(emb), WithExtractor(&fakeExtractor{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer engine.Close()

	engine.AddKnowledge(context.Background(), []Item{
		{Title: "Gap year", Content: "Worked as an EMT.", Category: "work"},
		{Title: "Award", Content: "Dean's list.", Category: "awards"},
	})

	// Score 0.6 is below the chunk threshold, but FindSimilar has none.
	matches, err := engine.FindSimilar(context.Background(), "weak question", 1)
	if err != nil {
		t.Fatalf("find similar: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("topK not applied: got %d matches", len(matches))
	}
	if matches[0].Score < 0.59 || matches[0].Score > 0.61 {
		t.Errorf("score = %v, want ~0.6", matches[0].Score)
	}
}

func TestEngine_RequiresProvider(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatal("expected error when neither API key nor embedder is set")
	}
}

func TestEngine_Clear(t *testing.T) {
	emb := &fakeEmbedder{fallback: []float32{1, 0}}
	engine, err := New(WithEmbedder(emb), WithExtractor(&fakeExtractor{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer engine.Close()

	if err := engine.InitializeQA(context.Background(), []QAPair{
		{ID: "qa-1", Question: "q", Answer: "a"},
	}); err != nil {
		t.Fatalf("initialize qa: %v", err)
	}
	if engine.Counts().QA != 1 {
		t.Fatal("qa not embedded")
	}

	engine.Clear(context.Background())
	if engine.Counts().QA != 0 {
		t.Error("counts must reset after clear")
	}
}
