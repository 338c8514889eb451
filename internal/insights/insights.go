// Package insights serves the canned recommendations and breakdowns shown on
// the analysis pages.
package insights

import "github.com/pulseboard/sentiment-monitor/internal/models"

var suggestions = []models.Suggestion{
	{ID: "1", Category: models.Positive, Title: "Amplify Success", Body: "Share customer success stories on social media to build momentum."},
	{ID: "2", Category: models.Positive, Title: "Reward Loyalty", Body: "Create a loyalty program for customers who leave positive reviews."},
	{ID: "3", Category: models.Neutral, Title: "Follow Up", Body: "Reach out to neutral customers with a personalized thank you and feedback request."},
	{ID: "4", Category: models.Neutral, Title: "Improve Experience", Body: "Analyze neutral feedback for specific areas of improvement."},
	{ID: "5", Category: models.Negative, Title: "Immediate Response", Body: "Respond to negative feedback within 2 hours with a genuine apology and solution."},
	{ID: "6", Category: models.Negative, Title: "Process Improvement", Body: "Review internal processes that may be causing customer dissatisfaction."},
}

var topics = []struct {
	label string
	count int
	score float64
}{
	{"Service Quality", 45, 0.82},
	{"Product Quality", 38, 0.76},
	{"Staff Friendliness", 32, 0.89},
	{"Wait Times", 28, 0.34},
	{"Cleanliness", 22, 0.91},
	{"Value for Money", 19, 0.67},
}

var geo = []models.GeoPoint{
	{Country: "US", Mentions: 342, Reach: 15600, Interactions: 1240},
	{Country: "UK", Mentions: 89, Reach: 4200, Interactions: 380},
	{Country: "CA", Mentions: 67, Reach: 3100, Interactions: 290},
	{Country: "AU", Mentions: 45, Reach: 2200, Interactions: 180},
	{Country: "IN", Mentions: 156, Reach: 7800, Interactions: 620},
}

// Suggestions returns the suggestions for category, or all of them when
// category is empty
func Suggestions(category models.SentimentLabel) []models.Suggestion {
	result := make([]models.Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		if category == "" || s.Category == category {
			result = append(result, s)
		}
	}
	return result
}

func TopicBreakdown() []models.TopicBreakdown {
	result := make([]models.TopicBreakdown, 0, len(topics))
	for _, t := range topics {
		score := t.score
		result = append(result, models.TopicBreakdown{Label: t.label, Count: t.count, Score: &score})
	}
	return result
}

func GeoData() []models.GeoPoint {
	result := make([]models.GeoPoint, len(geo))
	copy(result, geo)
	return result
}
