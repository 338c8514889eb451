package monitoring

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/pulseboard/sentiment-monitor/internal/config"
	"github.com/pulseboard/sentiment-monitor/internal/models"
	"github.com/pulseboard/sentiment-monitor/internal/sources"
	"github.com/pulseboard/sentiment-monitor/internal/storage"
	"github.com/sirupsen/logrus"
)

const collectionTimeout = 10 * time.Minute

// CollectionResult summarizes one keyword collection run
type CollectionResult struct {
	UserID         string `json:"userId"`
	Fetched        int    `json:"fetched"`
	Stored         int    `json:"stored"`
	Duplicates     int    `json:"duplicates"`
	FailedSources  int    `json:"failedSources"`
	AuthorsCreated int    `json:"authorsCreated"`
}

// DefaultSources returns every mention source the configuration enables
func DefaultSources(cfg *config.Config) []sources.Source {
	all := []sources.Source{
		sources.NewHackerNewsSource(),
		sources.NewRedditSource(cfg.RedditClientID, cfg.RedditSecret),
		sources.NewTwitterSource(cfg.TwitterBearerToken),
		sources.NewYouTubeSource(cfg.YouTubeAPIKey),
	}

	var enabled []sources.Source
	for _, src := range all {
		if src.IsEnabled() {
			enabled = append(enabled, src)
		}
	}
	return enabled
}

// RunCollection searches every source for the configured keywords, classifies
// new mentions and stores them as comments owned by userID
func (s *Service) RunCollection(ctx context.Context, userID string) (*CollectionResult, error) {
	result := &CollectionResult{UserID: userID}
	if len(s.config.Keywords) == 0 || len(s.sources) == 0 {
		logrus.Debug("Mention collection skipped - no keywords or sources configured")
		return result, nil
	}

	ctx, cancel := context.WithTimeout(ctx, collectionTimeout)
	defer cancel()

	mentions, failed := s.fetchMentions(ctx)
	result.Fetched = len(mentions)
	result.FailedSources = failed

	if failed == len(s.sources) {
		s.metrics.recordError()
		return result, fmt.Errorf("all %d mention sources failed", failed)
	}

	existing, err := s.repo.ListComments(ctx, storage.CommentFilter{UserID: userID})
	if err != nil {
		s.metrics.recordError()
		return result, fmt.Errorf("failed to load existing comments: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, c := range existing {
		known[c.ID] = true
	}

	authors, err := s.repo.ListAuthors(ctx)
	if err != nil {
		s.metrics.recordError()
		return result, fmt.Errorf("failed to load authors: %w", err)
	}
	knownAuthors := make(map[string]bool, len(authors))
	for _, a := range authors {
		knownAuthors[a.ID] = true
	}

	classifier, mode := s.classifiers.Select(ctx, userID)

	var state storage.State
	for _, m := range mentions {
		id := collectedID(userID, m.ID)
		if known[id] {
			result.Duplicates++
			continue
		}
		known[id] = true

		sentimentResult := classifier.Classify(ctx, m.Text)
		s.metrics.recordClassification(mode, sentimentResult.Label)

		createdAt := m.CreatedAt
		comment := models.Comment{
			ID:             id,
			UserID:         userID,
			Source:         m.Channel,
			Text:           m.Text,
			Lang:           "en",
			Country:        "US",
			CreatedAt:      &createdAt,
			SentimentLabel: sentimentResult.Label,
			SentimentScore: sentimentResult.Score,
			Influence:      influenceFromScore(m.Score),
		}

		if m.Author != "" {
			authorID := fmt.Sprintf("%s_%s", m.Origin, m.Author)
			comment.AuthorID = authorID
			if !knownAuthors[authorID] {
				knownAuthors[authorID] = true
				state.Authors = append(state.Authors, models.Author{
					ID:       authorID,
					Name:     m.Author,
					Handle:   m.Author,
					Platform: m.Origin,
				})
			}
		}

		state.Comments = append(state.Comments, comment)
	}

	if len(state.Comments) > 0 {
		if err := s.repo.Import(ctx, state); err != nil {
			s.metrics.recordError()
			return result, fmt.Errorf("failed to store collected mentions: %w", err)
		}
	}

	result.Stored = len(state.Comments)
	result.AuthorsCreated = len(state.Authors)
	s.metrics.recordCollection(result.Stored, s.clock.Now())

	logrus.Infof("Collection for user %s stored %d new mentions (%d fetched, %d duplicates, %d failed sources)",
		userID, result.Stored, result.Fetched, result.Duplicates, result.FailedSources)
	return result, nil
}

// fetchMentions queries all sources concurrently and returns the combined
// mentions plus the number of sources that failed
func (s *Service) fetchMentions(ctx context.Context) ([]sources.Mention, int) {
	var wg sync.WaitGroup
	mentionsChan := make(chan []sources.Mention, len(s.sources))
	errorsChan := make(chan error, len(s.sources))

	lookback := s.config.CollectionLookback
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}

	for _, source := range s.sources {
		wg.Add(1)
		go func(src sources.Source) {
			defer wg.Done()

			mentions, err := src.FetchMentions(ctx, s.config.Keywords, lookback)
			if err != nil {
				logrus.Errorf("Error fetching from %s: %v", src.GetName(), err)
				errorsChan <- err
				return
			}

			logrus.Debugf("Found %d mentions from %s", len(mentions), src.GetName())
			mentionsChan <- mentions
		}(source)
	}

	go func() {
		wg.Wait()
		close(mentionsChan)
		close(errorsChan)
	}()

	var allMentions []sources.Mention
	for mentions := range mentionsChan {
		allMentions = append(allMentions, mentions...)
	}

	errorCount := 0
	for range errorsChan {
		errorCount++
	}

	return allMentions, errorCount
}

// collectedID scopes a source mention ID to its owner so users tracking the
// same keyword each keep their own copy
func collectedID(userID, mentionID string) string {
	return userID + ":" + mentionID
}

// influenceFromScore maps engagement to the 0-10 influence scale on a log curve:
// 0 -> 2, 10 -> 5, 100 -> 8, 1000 and above -> 10
func influenceFromScore(score int) int {
	if score < 0 {
		score = 0
	}
	influence := 2 + int(math.Log10(float64(score)+1)*3)
	if influence > 10 {
		return 10
	}
	return influence
}
