package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/prepdeck/recall/internal/domain"
	"github.com/prepdeck/recall/internal/metrics"
)

// Extractor issues structured-generation calls for document decomposition.
// One call per document; the response is forced into JSON-object mode and
// parsed by the structurer usecase.
type Extractor struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// ExtractorConfig holds the structured-generation settings.
type ExtractorConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Logger      *zap.Logger
}

// NewExtractor creates an OpenAI-compatible structured-generation client.
func NewExtractor(cfg *ExtractorConfig) *Extractor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Extractor{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      cfg.Logger,
	}
}

// Extract runs one chat completion with a system instruction and the
// document text, returning the raw model output. Failures wrap
// domain.ErrExtractionFailed; the caller falls back to windowed chunking.
func (x *Extractor) Extract(ctx context.Context, system, document string) (string, error) {
	start := time.Now()

	resp, err := x.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       x.model,
		Temperature: x.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: document},
		},
	})
	if err != nil {
		metrics.ExtractionRequestsTotal.WithLabelValues(x.model, "error").Inc()
		return "", fmt.Errorf("chat completion: %v: %w", err, domain.ErrExtractionFailed)
	}

	if len(resp.Choices) == 0 {
		metrics.ExtractionRequestsTotal.WithLabelValues(x.model, "error").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrExtractionFailed)
	}

	metrics.ExtractionRequestsTotal.WithLabelValues(x.model, "success").Inc()
	x.logger.Debug("Extraction call completed",
		zap.String("model", x.model),
		zap.Duration("latency", time.Since(start)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return resp.Choices[0].Message.Content, nil
}
