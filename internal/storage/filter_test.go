package storage

import (
	"testing"
	"time"

	"github.com/pulseboard/sentiment-monitor/internal/models"
	"github.com/stretchr/testify/assert"
)

func at(day int) *time.Time {
	ts := time.Date(2024, time.March, day, 12, 0, 0, 0, time.UTC)
	return &ts
}

func intPtr(n int) *int { return &n }

func sampleComments() []models.Comment {
	return []models.Comment{
		{ID: "c1", UserID: "u1", Source: models.SourceGoogle, Text: "Amazing pasta", Lang: "en", Country: "US", CreatedAt: at(1), SentimentLabel: models.Positive, SentimentScore: 0.9, Influence: 3},
		{ID: "c2", UserID: "u1", Source: models.SourceFacebook, AuthorID: "a1", Text: "Slow service", Lang: "en", Country: "UK", CreatedAt: at(3), SentimentLabel: models.Negative, SentimentScore: 0.1, Influence: 8},
		{ID: "c3", UserID: "u1", Source: models.SourceGoogle, Text: "Servicio normal", Lang: "es", Country: "MX", CreatedAt: at(2), SentimentLabel: models.Neutral, SentimentScore: 0.5, Influence: 5},
		{ID: "c4", UserID: "u2", Source: models.SourceX, Text: "Love the vibe", Lang: "en", Country: "US", CreatedAt: at(4), SentimentLabel: models.Positive, SentimentScore: 0.8},
		{ID: "c5", UserID: "u1", Source: models.SourceBlog, Text: "Old review", Lang: "en", Country: "US", SentimentLabel: models.Neutral, SentimentScore: 0.5, Influence: 5},
	}
}

func ids(comments []models.Comment) []string {
	out := make([]string, 0, len(comments))
	for _, c := range comments {
		out = append(out, c.ID)
	}
	return out
}

func TestApplyFilter(t *testing.T) {
	authors := map[string]string{"a1": "Jordan Baker"}

	tests := []struct {
		name     string
		filter   CommentFilter
		expected []string
	}{
		{
			name:     "No filter sorts by recency with missing dates last",
			filter:   CommentFilter{},
			expected: []string{"c4", "c2", "c3", "c1", "c5"},
		},
		{
			name:     "User",
			filter:   CommentFilter{UserID: "u2"},
			expected: []string{"c4"},
		},
		{
			name:     "Source set",
			filter:   CommentFilter{Sources: []models.Source{models.SourceGoogle}},
			expected: []string{"c3", "c1"},
		},
		{
			name:     "Sentiment set",
			filter:   CommentFilter{Sentiments: []models.SentimentLabel{models.Negative, models.Neutral}},
			expected: []string{"c2", "c3", "c5"},
		},
		{
			name:     "Min influence treats missing as zero",
			filter:   CommentFilter{MinInfluence: intPtr(5)},
			expected: []string{"c2", "c3", "c5"},
		},
		{
			name:     "Min influence zero keeps everything",
			filter:   CommentFilter{MinInfluence: intPtr(0)},
			expected: []string{"c4", "c2", "c3", "c1", "c5"},
		},
		{
			name:     "Exclude countries",
			filter:   CommentFilter{CountriesExclude: []string{"US", "MX"}},
			expected: []string{"c2"},
		},
		{
			name:     "Exclude languages",
			filter:   CommentFilter{LanguagesExclude: []string{"en"}},
			expected: []string{"c3"},
		},
		{
			name:     "Query matches text case-insensitively",
			filter:   CommentFilter{Query: "SERVIC"},
			expected: []string{"c2", "c3"},
		},
		{
			name:     "Query matches author name",
			filter:   CommentFilter{Query: "jordan"},
			expected: []string{"c2"},
		},
		{
			name:     "Inclusive date bounds skip undated comments",
			filter:   CommentFilter{DateFrom: at(2), DateTo: at(3)},
			expected: []string{"c2", "c3"},
		},
		{
			name:     "Top order by influence",
			filter:   CommentFilter{UserID: "u1", Order: OrderTop},
			expected: []string{"c2", "c3", "c5", "c1"},
		},
		{
			name:     "Combined filters",
			filter:   CommentFilter{UserID: "u1", Sources: []models.Source{models.SourceGoogle, models.SourceFacebook}, MinInfluence: intPtr(4)},
			expected: []string{"c2", "c3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ApplyFilter(sampleComments(), authors, tt.filter)
			assert.Equal(t, tt.expected, ids(result))
		})
	}
}

func TestApplyFilter_DoesNotMutateInput(t *testing.T) {
	comments := sampleComments()
	_ = ApplyFilter(comments, nil, CommentFilter{Order: OrderTop})
	assert.Equal(t, []string{"c1", "c2", "c3", "c4", "c5"}, ids(comments))
}

func TestApplyFilter_OrderProperties(t *testing.T) {
	top := ApplyFilter(sampleComments(), nil, CommentFilter{Order: OrderTop})
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].Influence, top[i].Influence)
	}

	recent := ApplyFilter(sampleComments(), nil, CommentFilter{})
	for i := 1; i < len(recent); i++ {
		assert.GreaterOrEqual(t, createdAtNanos(recent[i-1]), createdAtNanos(recent[i]))
	}
}
