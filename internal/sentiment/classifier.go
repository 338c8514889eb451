package sentiment

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/pulseboard/sentiment-monitor/internal/models"
)

// Score ranges produced by the keyword heuristic
const (
	PositiveScoreMin  = 0.7
	PositiveScoreSpan = 0.3
	NegativeScoreMin  = 0.0
	NegativeScoreSpan = 0.4
	NeutralScoreMin   = 0.4
	NeutralScoreSpan  = 0.2
	FallbackPositive  = 0.8
	FallbackNegative  = 0.2
	FallbackNeutral   = 0.5
)

var (
	positiveWords = []string{"amazing", "excellent", "great", "love", "wonderful", "fantastic", "perfect", "best", "awesome", "delicious"}
	negativeWords = []string{"terrible", "awful", "worst", "hate", "horrible", "disgusting", "bad", "disappointing", "slow", "rude"}

	fallbackPositiveWords = []string{"good", "great"}
	fallbackNegativeWords = []string{"bad", "terrible"}
)

// Classifier maps text to a sentiment label and score. Implementations never fail;
// they degrade to a local heuristic instead.
type Classifier interface {
	Classify(ctx context.Context, text string) models.SentimentResult
}

// RandomSource yields values in [0,1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomSource returns a goroutine-safe time-seeded source
func NewRandomSource() RandomSource {
	return &lockedRand{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Float64()
}

// Heuristic is the keyword-count classifier used in demo mode
type Heuristic struct {
	rand RandomSource
}

var _ Classifier = (*Heuristic)(nil)

func NewHeuristic(rnd RandomSource) *Heuristic {
	if rnd == nil {
		rnd = NewRandomSource()
	}
	return &Heuristic{rand: rnd}
}

func (h *Heuristic) Classify(_ context.Context, text string) models.SentimentResult {
	content := strings.ToLower(text)
	positiveCount := countMatches(content, positiveWords)
	negativeCount := countMatches(content, negativeWords)

	r := h.rand.Float64()
	switch {
	case positiveCount > negativeCount:
		return models.SentimentResult{Label: models.Positive, Score: PositiveScoreMin + r*PositiveScoreSpan}
	case negativeCount > positiveCount:
		return models.SentimentResult{Label: models.Negative, Score: NegativeScoreMin + r*NegativeScoreSpan}
	default:
		return models.SentimentResult{Label: models.Neutral, Score: NeutralScoreMin + r*NeutralScoreSpan}
	}
}

// Fallback is the reduced rule set used when the remote model is unavailable
func Fallback(text string) models.SentimentResult {
	content := strings.ToLower(text)
	if countMatches(content, fallbackPositiveWords) > 0 {
		return models.SentimentResult{Label: models.Positive, Score: FallbackPositive}
	}
	if countMatches(content, fallbackNegativeWords) > 0 {
		return models.SentimentResult{Label: models.Negative, Score: FallbackNegative}
	}
	return models.SentimentResult{Label: models.Neutral, Score: FallbackNeutral}
}

func countMatches(content string, words []string) int {
	count := 0
	for _, word := range words {
		if strings.Contains(content, word) {
			count++
		}
	}
	return count
}
