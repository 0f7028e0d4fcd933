package sources

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prepdeck/recall/internal/config"
	"github.com/prepdeck/recall/internal/domain"
)

// qaFileEntry is the on-disk Q&A record. The file is a JSON array; both
// "topic" and "category" are accepted for the topic field since the
// prepared-answer exports use either.
type qaFileEntry struct {
	ID       string `json:"id"`
	Topic    string `json:"topic"`
	Category string `json:"category"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Loader reads the candidate's source documents from disk.
type Loader struct {
	logger *zap.Logger
}

// New creates a source loader.
func New(logger *zap.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load assembles SourceDocs from the configured paths. Missing optional
// sources (CV, activities, artifacts) are skipped with a warning; a
// missing or malformed Q&A file is an error because the prepared-answer
// set is the core of the knowledge base.
func (l *Loader) Load(cfg config.SourcesConfig) (domain.SourceDocs, error) {
	var docs domain.SourceDocs

	if cfg.QAPath != "" {
		qa, err := l.loadQA(cfg.QAPath)
		if err != nil {
			return domain.SourceDocs{}, err
		}
		docs.QA = qa
	}

	docs.CVText = l.loadOptionalText(cfg.CVPath, "cv")
	docs.ActivitiesText = l.loadOptionalText(cfg.ActivitiesPath, "activities")

	for _, a := range cfg.Artifacts {
		text := l.loadOptionalText(a.Path, "artifact:"+a.Org)
		for _, para := range splitParagraphs(text) {
			docs.Artifacts = append(docs.Artifacts, domain.ArtifactChunk{
				Org:     a.Org,
				Content: para,
			})
		}
	}

	return docs, nil
}

// loadQA reads and validates the prepared Q&A JSON file. Entries without
// a question are dropped; entries without an ID get one assigned.
func (l *Loader) loadQA(path string) ([]domain.QAEntry, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read qa file %s: %w", path, err)
	}

	var raw []qaFileEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse qa file %s: %w", path, err)
	}

	entries := make([]domain.QAEntry, 0, len(raw))
	for _, e := range raw {
		question := strings.TrimSpace(e.Question)
		if question == "" {
			l.logger.Warn("Dropping Q&A entry without a question", zap.String("id", e.ID))
			continue
		}
		topic := e.Topic
		if topic == "" {
			topic = e.Category
		}
		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}
		entries = append(entries, domain.QAEntry{
			ID:       id,
			Topic:    topic,
			Question: question,
			Answer:   strings.TrimSpace(e.Answer),
		})
	}

	l.logger.Info("Loaded prepared Q&A set",
		zap.String("path", path),
		zap.Int("entries", len(entries)),
	)
	return entries, nil
}

// loadOptionalText reads a plain-text source, returning "" when the path
// is unset or the file is missing.
func (l *Loader) loadOptionalText(path, name string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		l.logger.Warn("Skipping unreadable source document",
			zap.String("source", name),
			zap.String("path", path),
			zap.Error(err),
		)
		return ""
	}
	return string(data)
}

// splitParagraphs splits artifact text on blank lines. Artifact files are
// short (mission statements, program descriptions), so paragraph
// granularity beats window chunking here.
func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
