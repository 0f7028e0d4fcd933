package structurer

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prepdeck/recall/internal/domain"
	"github.com/prepdeck/recall/internal/metrics"
)

// Kind selects the extraction prompt variant.
type Kind string

// Document kinds.
const (
	KindCV         Kind = "cv"
	KindActivities Kind = "activities"
	KindGeneric    Kind = "generic"
)

// Source tags how a Result was produced, making the fallback path visible
// in the type rather than hidden in control flow.
type Source string

// Result sources.
const (
	SourceStructured Source = "structured"
	SourceFallback   Source = "fallback"
)

// Result is the outcome of structuring one document.
type Result struct {
	Items  []domain.KnowledgeItem
	Source Source
}

// Service decomposes raw long-form text into labeled knowledge items via
// one structured-generation call per document, falling back to windowed
// chunking when the call fails or its output cannot be parsed. The
// pipeline always yields something searchable for non-trivial input.
type Service struct {
	extractor  Extractor
	windowSize int
	overlap    int
	logger     *zap.Logger
}

// New creates a structurer service.
func New(extractor Extractor, logger *zap.Logger) *Service {
	return &Service{
		extractor:  extractor,
		windowSize: DefaultWindowSize,
		overlap:    DefaultOverlap,
		logger:     logger,
	}
}

// WithChunking overrides the fallback window parameters.
func (s *Service) WithChunking(windowSize, overlap int) *Service {
	if windowSize > 0 {
		s.windowSize = windowSize
	}
	if overlap >= 0 && overlap < s.windowSize {
		s.overlap = overlap
	}
	return s
}

// Structure decomposes text into knowledge items. Empty input yields an
// empty structured result, not an error. Extraction or parse failures
// never propagate: the windowed-chunking fallback runs instead.
func (s *Service) Structure(ctx context.Context, text string, kind Kind) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{Source: SourceStructured}, nil
	}

	raw, err := s.extractor.Extract(ctx, systemPrompt(kind), text)
	if err != nil {
		s.logger.Warn("Structured extraction failed, falling back to windowed chunking",
			zap.String("kind", string(kind)), zap.Error(err))
		metrics.ExtractionOutcomeTotal.WithLabelValues("fallback").Inc()
		return s.fallback(text), nil
	}

	items, salvaged, err := parseItems(raw)
	if err != nil {
		s.logger.Warn("Unparseable extraction output, falling back to windowed chunking",
			zap.String("kind", string(kind)), zap.Error(err))
		metrics.ExtractionOutcomeTotal.WithLabelValues("fallback").Inc()
		return s.fallback(text), nil
	}

	if salvaged {
		metrics.ExtractionOutcomeTotal.WithLabelValues("salvaged").Inc()
	} else {
		metrics.ExtractionOutcomeTotal.WithLabelValues("structured").Inc()
	}

	return Result{Items: items, Source: SourceStructured}, nil
}

// fallback splits the document into overlapping windows of unlabeled
// other-category items. Inputs below the chunk viability length yield
// nothing rather than a junk excerpt.
func (s *Service) fallback(text string) Result {
	if len([]rune(strings.TrimSpace(text))) < minChunkLength {
		return Result{Source: SourceFallback}
	}
	windows := splitWindows(text, s.windowSize, s.overlap)
	items := make([]domain.KnowledgeItem, 0, len(windows))
	for i, w := range windows {
		items = append(items, domain.KnowledgeItem{
			ID:       uuid.NewString(),
			Title:    fmt.Sprintf("Excerpt %d", i+1),
			Content:  w,
			Category: domain.CategoryOther,
		})
	}
	return Result{Items: items, Source: SourceFallback}
}

// extractedItem is the strict extraction schema. Model output is
// validated and coerced at this boundary rather than trusted.
type extractedItem struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Date     string   `json:"date,omitempty"`
	Skills   []string `json:"skills,omitempty"`
}

var jsonArrayRegex = regexp.MustCompile(`\[[\s\S]*\]`)

// parseItems decodes model output into knowledge items. It accepts the
// requested {"items": [...]} object or a bare array, then attempts a
// best-effort regex salvage of an embedded JSON array before giving up.
func parseItems(raw string) (items []domain.KnowledgeItem, salvaged bool, err error) {
	var wrapped struct {
		Items []extractedItem `json:"items"`
	}
	if jsonErr := json.Unmarshal([]byte(raw), &wrapped); jsonErr == nil && len(wrapped.Items) > 0 {
		return coerceItems(wrapped.Items), false, nil
	}

	var bare []extractedItem
	if jsonErr := json.Unmarshal([]byte(raw), &bare); jsonErr == nil && len(bare) > 0 {
		return coerceItems(bare), false, nil
	}

	if match := jsonArrayRegex.FindString(raw); match != "" {
		if jsonErr := json.Unmarshal([]byte(match), &bare); jsonErr == nil && len(bare) > 0 {
			return coerceItems(bare), true, nil
		}
	}

	return nil, false, fmt.Errorf("no item array found in output: %w", domain.ErrUnparseableOutput)
}

// coerceItems validates extracted items: blank items are dropped, unknown
// categories map to other, IDs are assigned here.
func coerceItems(raw []extractedItem) []domain.KnowledgeItem {
	items := make([]domain.KnowledgeItem, 0, len(raw))
	for _, e := range raw {
		title := strings.TrimSpace(e.Title)
		content := strings.TrimSpace(e.Content)
		if title == "" && content == "" {
			continue
		}
		if content == "" {
			content = title
		}
		items = append(items, domain.KnowledgeItem{
			ID:       uuid.NewString(),
			Title:    title,
			Content:  content,
			Category: domain.NormalizeCategory(e.Category),
			Date:     strings.TrimSpace(e.Date),
			Tags:     e.Skills,
		})
	}
	return items
}
