package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-resty/resty/v2"

	"coupang-review-harvester/internal/config"
	"coupang-review-harvester/internal/models"
)

const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"
)

// Analyzer calls the external sentiment inference service. The service's
// raw label strings are model-specific, so the vocabulary that maps them
// onto positive/negative comes from configuration rather than being
// hardcoded.
type Analyzer struct {
	client         *resty.Client
	endpoint       string
	positiveLabels []string
	negativeLabels []string
	logger         *slog.Logger
}

func NewAnalyzer(cfg config.SentimentConfig, logger *slog.Logger) *Analyzer {
	client := resty.New().SetTimeout(cfg.Timeout)

	return &Analyzer{
		client:         client,
		endpoint:       cfg.Endpoint,
		positiveLabels: lowerAll(cfg.PositiveLabels),
		negativeLabels: lowerAll(cfg.NegativeLabels),
		logger:         logger.With("component", "sentiment"),
	}
}

// Available reports whether an inference endpoint is configured.
func (a *Analyzer) Available() bool {
	return a.endpoint != ""
}

type analyzeRequest struct {
	Texts []string `json:"texts"`
}

type analyzeResult struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Analyze sends the texts to the inference service and returns one
// result per input, in order. Null entries from the service stay nil and
// mean "analysis unavailable for this item".
func (a *Analyzer) Analyze(ctx context.Context, texts []string) ([]*models.Sentiment, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if !a.Available() {
		a.logger.Warn("sentiment endpoint not configured, skipping analysis")
		return make([]*models.Sentiment, len(texts)), nil
	}

	var results []*analyzeResult
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(analyzeRequest{Texts: texts}).
		SetResult(&results).
		Post(a.endpoint)
	if err != nil {
		return nil, fmt.Errorf("sentiment request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("sentiment service returned %s", resp.Status())
	}
	if len(results) != len(texts) {
		return nil, fmt.Errorf("sentiment service returned %d results for %d texts", len(results), len(texts))
	}

	sentiments := make([]*models.Sentiment, len(results))
	for i, res := range results {
		if res == nil {
			continue
		}
		sentiments[i] = &models.Sentiment{
			Label: a.MapLabel(res.Label),
			Score: res.Score,
		}
	}

	a.logger.Info("sentiment analysis completed", "texts", len(texts))
	return sentiments, nil
}

// MapLabel folds a model-specific label string onto the canonical
// positive/negative/neutral vocabulary via the configured match lists.
func (a *Analyzer) MapLabel(label string) string {
	lower := strings.ToLower(label)

	for _, match := range a.positiveLabels {
		if match != "" && strings.Contains(lower, match) {
			return LabelPositive
		}
	}
	for _, match := range a.negativeLabels {
		if match != "" && strings.Contains(lower, match) {
			return LabelNegative
		}
	}
	return LabelNeutral
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(strings.TrimSpace(v)))
	}
	return out
}
