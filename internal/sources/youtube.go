package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pulseboard/sentiment-monitor/internal/models"
	"github.com/sirupsen/logrus"
)

// YouTubeSource implements YouTube Data API source
type YouTubeSource struct {
	apiKey  string
	client  *resty.Client
	baseURL string
}

type youTubeSearchResponse struct {
	Items []youTubeVideo `json:"items"`
}

type youTubeVideo struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		Description  string `json:"description"`
		ChannelTitle string `json:"channelTitle"`
		PublishedAt  string `json:"publishedAt"`
	} `json:"snippet"`
}

// NewYouTubeSource creates a new YouTube source
func NewYouTubeSource(apiKey string) *YouTubeSource {
	return &YouTubeSource{
		apiKey: apiKey,
		client: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", userAgent),
		baseURL: "https://www.googleapis.com/youtube/v3",
	}
}

func (y *YouTubeSource) GetName() string {
	return "youtube"
}

func (y *YouTubeSource) IsEnabled() bool {
	return y.apiKey != ""
}

func (y *YouTubeSource) FetchMentions(ctx context.Context, keywords []string, since time.Duration) ([]Mention, error) {
	if !y.IsEnabled() {
		logrus.Debug("YouTube source disabled - missing API key")
		return nil, nil
	}

	var allMentions []Mention
	for _, keyword := range keywords {
		mentions, err := y.searchVideos(ctx, keyword, since)
		if err != nil {
			logrus.Errorf("Failed to search YouTube videos for keyword '%s': %v", keyword, err)
			continue
		}
		allMentions = append(allMentions, mentions...)
	}

	return deduplicateMentions(allMentions), nil
}

func (y *YouTubeSource) searchVideos(ctx context.Context, keyword string, since time.Duration) ([]Mention, error) {
	resp, err := y.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"part":           "snippet",
			"q":              keyword,
			"type":           "video",
			"order":          "date",
			"publishedAfter": time.Now().Add(-since).UTC().Format(time.RFC3339),
			"maxResults":     "50",
			"key":            y.apiKey,
		}).
		Get(y.baseURL + "/search")

	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("youtube API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var searchResp youTubeSearchResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse YouTube response: %w", err)
	}

	var mentions []Mention
	for _, video := range searchResp.Items {
		text := joinText(video.Snippet.Title, video.Snippet.Description)
		if !strings.Contains(strings.ToLower(text), strings.ToLower(keyword)) {
			continue
		}

		publishedAt, err := time.Parse(time.RFC3339, video.Snippet.PublishedAt)
		if err != nil {
			logrus.Errorf("Failed to parse YouTube timestamp: %v", err)
			continue
		}

		mentions = append(mentions, Mention{
			ID:        fmt.Sprintf("youtube_%s", video.ID.VideoID),
			Origin:    y.GetName(),
			Channel:   models.SourceVideo,
			Author:    video.Snippet.ChannelTitle,
			Text:      text,
			URL:       fmt.Sprintf("https://www.youtube.com/watch?v=%s", video.ID.VideoID),
			CreatedAt: publishedAt.UTC(),
		})
	}

	return mentions, nil
}
