package sources

import (
	"context"
	"time"

	"github.com/pulseboard/sentiment-monitor/internal/models"
)

const userAgent = "Pulseboard-Sentiment-Monitor/1.0"

// Mention is a public post matching one of the monitored keywords
type Mention struct {
	ID        string // "<source>_<external id>", stable across collections
	Origin    string
	Channel   models.Source
	Author    string
	Text      string
	URL       string
	CreatedAt time.Time
	Score     int
}

// Source interface defines the contract for all mention sources
type Source interface {
	GetName() string
	FetchMentions(ctx context.Context, keywords []string, since time.Duration) ([]Mention, error)
	IsEnabled() bool
}

func deduplicateMentions(mentions []Mention) []Mention {
	seen := make(map[string]bool)
	var unique []Mention

	for _, mention := range mentions {
		if !seen[mention.ID] {
			seen[mention.ID] = true
			unique = append(unique, mention)
		}
	}

	return unique
}

func joinText(title, body string) string {
	switch {
	case title == "":
		return body
	case body == "":
		return title
	default:
		return title + "\n\n" + body
	}
}
