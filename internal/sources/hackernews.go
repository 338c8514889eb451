package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pulseboard/sentiment-monitor/internal/models"
	"github.com/sirupsen/logrus"
)

// HackerNewsSource searches stories and comments through the Algolia HN API
type HackerNewsSource struct {
	client  *resty.Client
	baseURL string
}

type hackerNewsSearchResponse struct {
	Hits []hackerNewsHit `json:"hits"`
}

type hackerNewsHit struct {
	ObjectID    string `json:"objectID"`
	Author      string `json:"author"`
	CreatedAtI  int64  `json:"created_at_i"`
	Title       string `json:"title"`
	StoryText   string `json:"story_text"`
	CommentText string `json:"comment_text"`
	StoryTitle  string `json:"story_title"`
	URL         string `json:"url"`
	Points      int    `json:"points"`
}

// NewHackerNewsSource creates a new Hacker News source
func NewHackerNewsSource() *HackerNewsSource {
	return &HackerNewsSource{
		client: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", userAgent),
		baseURL: "https://hn.algolia.com/api/v1",
	}
}

func (h *HackerNewsSource) GetName() string {
	return "hackernews"
}

func (h *HackerNewsSource) IsEnabled() bool {
	return true // the search API doesn't require authentication
}

func (h *HackerNewsSource) FetchMentions(ctx context.Context, keywords []string, since time.Duration) ([]Mention, error) {
	var allMentions []Mention
	cutoff := time.Now().Add(-since)

	for _, keyword := range keywords {
		select {
		case <-ctx.Done():
			return allMentions, ctx.Err()
		default:
		}

		mentions, err := h.searchKeyword(ctx, keyword, cutoff)
		if err != nil {
			logrus.Errorf("Failed to search Hacker News for keyword '%s': %v", keyword, err)
			continue
		}
		allMentions = append(allMentions, mentions...)
	}

	return deduplicateMentions(allMentions), nil
}

func (h *HackerNewsSource) searchKeyword(ctx context.Context, keyword string, cutoff time.Time) ([]Mention, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":          keyword,
			"tags":           "(story,comment)",
			"numericFilters": "created_at_i>" + strconv.FormatInt(cutoff.Unix(), 10),
			"hitsPerPage":    "100",
		}).
		Get(h.baseURL + "/search_by_date")

	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("hacker news API returned status %d", resp.StatusCode())
	}

	var searchResp hackerNewsSearchResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse Hacker News response: %w", err)
	}

	var mentions []Mention
	for _, hit := range searchResp.Hits {
		createdAt := time.Unix(hit.CreatedAtI, 0).UTC()
		if createdAt.Before(cutoff) {
			continue
		}

		body := hit.StoryText
		if hit.CommentText != "" {
			body = hit.CommentText
		}
		text := strings.TrimSpace(stripHTMLTags(joinText(hit.Title, body)))
		if !strings.Contains(strings.ToLower(text), strings.ToLower(keyword)) {
			continue
		}

		mentions = append(mentions, Mention{
			ID:        fmt.Sprintf("hackernews_%s", hit.ObjectID),
			Origin:    h.GetName(),
			Channel:   models.SourceNews,
			Author:    hit.Author,
			Text:      text,
			URL:       fmt.Sprintf("https://news.ycombinator.com/item?id=%s", hit.ObjectID),
			CreatedAt: createdAt,
			Score:     hit.Points,
		})
	}

	return mentions, nil
}

// stripHTMLTags removes markup from comment bodies and decodes the common entities
func stripHTMLTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>' && inTag:
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}

	replacer := strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#x27;", "'", "&#39;", "'", "&#x2F;", "/")
	return strings.Join(strings.Fields(replacer.Replace(b.String())), " ")
}
