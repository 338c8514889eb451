package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pulseboard/sentiment-monitor/internal/models"
	"github.com/sirupsen/logrus"
)

// TwitterSource implements the X recent search API source
type TwitterSource struct {
	bearerToken string
	client      *resty.Client
	baseURL     string
	pause       time.Duration
}

type twitterSearchResponse struct {
	Data     []twitterTweet `json:"data"`
	Includes struct {
		Users []twitterUser `json:"users"`
	} `json:"includes"`
}

type twitterUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type twitterTweet struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	AuthorID      string `json:"author_id"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		RetweetCount int `json:"retweet_count"`
		LikeCount    int `json:"like_count"`
		ReplyCount   int `json:"reply_count"`
	} `json:"public_metrics"`
	ReferencedTweets []struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"referenced_tweets"`
}

// NewTwitterSource creates a new X source
func NewTwitterSource(bearerToken string) *TwitterSource {
	return &TwitterSource{
		bearerToken: bearerToken,
		client: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", userAgent),
		baseURL: "https://api.twitter.com/2",
		pause:   3 * time.Second,
	}
}

func (t *TwitterSource) GetName() string {
	return "twitter"
}

func (t *TwitterSource) IsEnabled() bool {
	return t.bearerToken != ""
}

func (t *TwitterSource) FetchMentions(ctx context.Context, keywords []string, since time.Duration) ([]Mention, error) {
	if !t.IsEnabled() {
		logrus.Debug("Twitter source disabled - missing bearer token")
		return nil, nil
	}

	var allMentions []Mention
	for i, keyword := range keywords {
		// Space out searches to stay under the recent search rate limit
		if i > 0 && t.pause > 0 {
			select {
			case <-ctx.Done():
				return allMentions, ctx.Err()
			case <-time.After(t.pause):
			}
		}

		mentions, err := t.searchKeyword(ctx, keyword, since)
		if err != nil {
			logrus.Errorf("Failed to search Twitter for keyword '%s': %v", keyword, err)
			continue
		}

		logrus.Debugf("Found %d mentions on Twitter for keyword '%s'", len(mentions), keyword)
		allMentions = append(allMentions, mentions...)
	}

	return deduplicateMentions(allMentions), nil
}

func (t *TwitterSource) searchKeyword(ctx context.Context, keyword string, since time.Duration) ([]Mention, error) {
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+t.bearerToken).
		SetQueryParams(map[string]string{
			"query":        fmt.Sprintf(`"%s" -is:retweet`, keyword),
			"start_time":   time.Now().Add(-since).UTC().Format(time.RFC3339),
			"max_results":  "100",
			"tweet.fields": "created_at,author_id,public_metrics,referenced_tweets",
			"expansions":   "author_id",
			"user.fields":  "username",
		}).
		Get(t.baseURL + "/tweets/search/recent")

	if err != nil {
		return nil, err
	}

	// Rate limited: skip the keyword so other sources still complete
	if resp.StatusCode() == 429 {
		logrus.Warnf("Twitter API rate limit hit for keyword '%s', reset at %s", keyword, resp.Header().Get("x-rate-limit-reset"))
		return []Mention{}, nil
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("twitter API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var searchResp twitterSearchResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse Twitter response: %w", err)
	}

	usernames := make(map[string]string, len(searchResp.Includes.Users))
	for _, user := range searchResp.Includes.Users {
		usernames[user.ID] = user.Username
	}

	var mentions []Mention
	for _, tweet := range searchResp.Data {
		if isRetweet(tweet) {
			continue
		}

		createdAt, err := time.Parse(time.RFC3339, tweet.CreatedAt)
		if err != nil {
			logrus.Errorf("Failed to parse Twitter timestamp: %v", err)
			continue
		}

		author := tweet.AuthorID
		if name, ok := usernames[tweet.AuthorID]; ok {
			author = name
		}

		mentions = append(mentions, Mention{
			ID:        fmt.Sprintf("twitter_%s", tweet.ID),
			Origin:    t.GetName(),
			Channel:   models.SourceX,
			Author:    author,
			Text:      tweet.Text,
			URL:       fmt.Sprintf("https://x.com/i/status/%s", tweet.ID),
			CreatedAt: createdAt.UTC(),
			Score:     tweet.PublicMetrics.LikeCount + tweet.PublicMetrics.RetweetCount,
		})
	}

	return mentions, nil
}

func isRetweet(tweet twitterTweet) bool {
	for _, ref := range tweet.ReferencedTweets {
		if ref.Type == "retweeted" {
			return true
		}
	}
	return false
}
