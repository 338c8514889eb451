package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pulseboard/sentiment-monitor/internal/models"
	"github.com/pulseboard/sentiment-monitor/internal/storage"
)

const topSourceLimit = 5

// Summary computes KPIs over the user's comments inside the range window
func (a *Aggregator) Summary(ctx context.Context, userID, rangeKey string) (models.Summary, []models.Comment, error) {
	from := a.WindowStart(rangeKey)
	// same window as Snapshots: through the last instant of today
	to := midnight(a.clock.Now().In(a.loc)).AddDate(0, 0, 1).Add(-time.Nanosecond)
	comments, err := a.comments.ListComments(ctx, storage.CommentFilter{UserID: userID, DateFrom: &from, DateTo: &to})
	if err != nil {
		return models.Summary{}, nil, fmt.Errorf("failed to load comments for summary: %w", err)
	}

	summary := Summarize(comments)
	summary.GeneratedAt = a.clock.Now()
	summary.Range = rangeKey
	return summary, comments, nil
}

// Summarize counts comments by label and source
func Summarize(comments []models.Comment) models.Summary {
	summary := models.Summary{
		Sources: make(map[string]int),
	}

	scoreSum := 0.0
	for _, c := range comments {
		summary.Sources[string(c.Source)]++
		summary.Reach += c.Influence * 100
		scoreSum += c.SentimentScore

		switch c.SentimentLabel {
		case models.Positive:
			summary.Sentiment.Positive++
		case models.Negative:
			summary.Sentiment.Negative++
		default:
			summary.Sentiment.Neutral++
		}
	}

	summary.Sentiment.Total = len(comments)
	if len(comments) > 0 {
		summary.AvgScore = scoreSum / float64(len(comments))
	}
	summary.TopSources = topSources(summary.Sources)

	return summary
}

// NegativeShare is the fraction of NEGATIVE comments, 0 for an empty set
func NegativeShare(s models.SentimentCount) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Negative) / float64(s.Total)
}

func topSources(sourceCount map[string]int) []string {
	type sourceScore struct {
		source string
		count  int
	}

	scores := make([]sourceScore, 0, len(sourceCount))
	for source, count := range sourceCount {
		scores = append(scores, sourceScore{source, count})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].count != scores[j].count {
			return scores[i].count > scores[j].count
		}
		return scores[i].source < scores[j].source
	})

	top := make([]string, 0, topSourceLimit)
	for i, score := range scores {
		if i >= topSourceLimit {
			break
		}
		top = append(top, fmt.Sprintf("%s (%d)", score.source, score.count))
	}

	return top
}
