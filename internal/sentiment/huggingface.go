package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pulseboard/sentiment-monitor/internal/models"
	"github.com/sirupsen/logrus"
)

// HuggingFace calls a hosted text-classification model. Failures degrade to Fallback.
type HuggingFace struct {
	client   *resty.Client
	modelURL string
	token    string
	onError  func(err error)
}

var _ Classifier = (*HuggingFace)(nil)

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// NewHuggingFace creates a remote classifier bounded by timeout
func NewHuggingFace(modelURL, token string, timeout time.Duration) *HuggingFace {
	return &HuggingFace{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", "Sentiment-Monitor/1.0"),
		modelURL: modelURL,
		token:    token,
	}
}

// OnError registers a hook invoked whenever the remote call falls back
func (h *HuggingFace) OnError(fn func(err error)) {
	h.onError = fn
}

func (h *HuggingFace) Classify(ctx context.Context, text string) models.SentimentResult {
	result, err := h.infer(ctx, text)
	if err != nil {
		logrus.Warnf("Sentiment inference failed, using fallback: %v", err)
		if h.onError != nil {
			h.onError(err)
		}
		return Fallback(text)
	}
	return result
}

func (h *HuggingFace) infer(ctx context.Context, text string) (models.SentimentResult, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetAuthToken(h.token).
		SetHeader("Content-Type", "application/json").
		SetBody(inferenceRequest{Inputs: text}).
		Post(h.modelURL)

	if err != nil {
		return models.SentimentResult{}, fmt.Errorf("inference request failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return models.SentimentResult{}, fmt.Errorf("inference API returned status %d", resp.StatusCode())
	}

	var batches [][]labelScore
	if err := json.Unmarshal(resp.Body(), &batches); err != nil {
		return models.SentimentResult{}, fmt.Errorf("failed to decode inference response: %w", err)
	}

	return pickLabel(batches)
}

func pickLabel(batches [][]labelScore) (models.SentimentResult, error) {
	if len(batches) == 0 {
		return models.SentimentResult{}, fmt.Errorf("inference response is empty")
	}

	var positive, negative *labelScore
	for i := range batches[0] {
		switch models.SentimentLabel(batches[0][i].Label) {
		case models.Positive:
			positive = &batches[0][i]
		case models.Negative:
			negative = &batches[0][i]
		}
	}

	if positive == nil || negative == nil {
		return models.SentimentResult{}, fmt.Errorf("inference response missing POSITIVE/NEGATIVE scores")
	}

	if positive.Score > negative.Score {
		return models.SentimentResult{Label: models.Positive, Score: positive.Score}, nil
	}
	return models.SentimentResult{Label: models.Negative, Score: negative.Score}, nil
}
