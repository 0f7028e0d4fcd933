package sources

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/prepdeck/recall/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_FullSet(t *testing.T) {
	dir := t.TempDir()
	qaPath := writeFile(t, dir, "qa.json", `[
		{"id":"qa-1","topic":"personal","question":"Tell me about yourself.","answer":"Farm kid."},
		{"category":"ethics","question":"A peer cheats. What do you do?","answer":"Report it."},
		{"id":"blank","topic":"x","question":"   ","answer":"dropped"}
	]`)
	cvPath := writeFile(t, dir, "cv.txt", "Research assistant, two years.")
	artPath := writeFile(t, dir, "org.txt", "Mission statement.\n\nProgram description.\n\n")

	loader := New(zap.NewNop())
	docs, err := loader.Load(config.SourcesConfig{
		QAPath: qaPath,
		CVPath: cvPath,
		Artifacts: []config.ArtifactSource{
			{Org: "clinic", Path: artPath},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(docs.QA) != 2 {
		t.Fatalf("qa entries = %d, want 2 (blank question dropped)", len(docs.QA))
	}
	if docs.QA[0].ID != "qa-1" || docs.QA[0].Topic != "personal" {
		t.Errorf("entry 0 = %+v", docs.QA[0])
	}
	if docs.QA[1].Topic != "ethics" {
		t.Errorf("category field should populate topic, got %q", docs.QA[1].Topic)
	}
	if docs.QA[1].ID == "" {
		t.Error("missing ID must be assigned")
	}
	if docs.CVText != "Research assistant, two years." {
		t.Errorf("cv text = %q", docs.CVText)
	}
	if len(docs.Artifacts) != 2 {
		t.Fatalf("artifact chunks = %d, want 2", len(docs.Artifacts))
	}
	if docs.Artifacts[0].Org != "clinic" || docs.Artifacts[0].Content != "Mission statement." {
		t.Errorf("artifact 0 = %+v", docs.Artifacts[0])
	}
}

func TestLoad_MissingQAFileIsError(t *testing.T) {
	loader := New(zap.NewNop())
	if _, err := loader.Load(config.SourcesConfig{QAPath: "/nonexistent/qa.json"}); err == nil {
		t.Fatal("expected error for missing qa file")
	}
}

func TestLoad_MalformedQAFileIsError(t *testing.T) {
	dir := t.TempDir()
	qaPath := writeFile(t, dir, "qa.json", `{"not":"an array"}`)

	loader := New(zap.NewNop())
	if _, err := loader.Load(config.SourcesConfig{QAPath: qaPath}); err == nil {
		t.Fatal("expected error for malformed qa file")
	}
}

func TestLoad_OptionalSourcesDegrade(t *testing.T) {
	dir := t.TempDir()
	qaPath := writeFile(t, dir, "qa.json", `[{"id":"1","question":"q","answer":"a"}]`)

	loader := New(zap.NewNop())
	docs, err := loader.Load(config.SourcesConfig{
		QAPath:         qaPath,
		CVPath:         filepath.Join(dir, "missing-cv.txt"),
		ActivitiesPath: "",
	})
	if err != nil {
		t.Fatalf("optional sources must not fail the load: %v", err)
	}
	if docs.CVText != "" || docs.ActivitiesText != "" {
		t.Errorf("missing optional sources should yield empty text, got %+v", docs)
	}
	if docs.Empty() {
		t.Error("docs with QA entries are not empty")
	}
}
