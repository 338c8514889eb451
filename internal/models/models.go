package models

import "time"

// Source identifies where a comment was collected from
type Source string

const (
	SourceGoogle    Source = "google"
	SourceFacebook  Source = "facebook"
	SourceInstagram Source = "instagram"
	SourceX         Source = "x"
	SourceTikTok    Source = "tiktok"
	SourceNews      Source = "news"
	SourceBlog      Source = "blog"
	SourceVideo     Source = "video"
	SourcePodcast   Source = "podcast"
	SourceManual    Source = "manual"
	SourceOther     Source = "other"
)

// AllSources lists every accepted comment source
var AllSources = []Source{
	SourceGoogle, SourceFacebook, SourceInstagram, SourceX, SourceTikTok,
	SourceNews, SourceBlog, SourceVideo, SourcePodcast, SourceManual, SourceOther,
}

func (s Source) IsValid() bool {
	for _, known := range AllSources {
		if s == known {
			return true
		}
	}
	return false
}

// SentimentLabel is the polarity assigned to a piece of text
type SentimentLabel string

const (
	Positive SentimentLabel = "POSITIVE"
	Neutral  SentimentLabel = "NEUTRAL"
	Negative SentimentLabel = "NEGATIVE"
)

func (l SentimentLabel) IsValid() bool {
	return l == Positive || l == Neutral || l == Negative
}

// Comment represents a single piece of customer feedback
type Comment struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId,omitempty"`
	Source         Source         `json:"source"`
	AuthorID       string         `json:"authorId,omitempty"`
	Text           string         `json:"text"`
	Lang           string         `json:"lang"`
	Country        string         `json:"country"`
	CreatedAt      *time.Time     `json:"createdAt,omitempty"`
	SentimentLabel SentimentLabel `json:"sentimentLabel"`
	SentimentScore float64        `json:"sentimentScore"`
	Influence      int            `json:"influence"` // 0-10
}

// NewComment is the client supplied part of a comment
type NewComment struct {
	Source   Source `json:"source"`
	AuthorID string `json:"authorId,omitempty"`
	Text     string `json:"text"`
	Lang     string `json:"lang,omitempty"`
	Country  string `json:"country,omitempty"`
}

// Author is a profile comments can be attributed to
type Author struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Handle    string `json:"handle,omitempty"`
	Followers *int   `json:"followers,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Platform  string `json:"platform,omitempty"`
}

// Snapshot is a per-period aggregate derived from comments
type Snapshot struct {
	ID       string    `json:"id"`
	UserID   string    `json:"userId"`
	TS       time.Time `json:"ts"`
	Mentions int       `json:"mentions"`
	Reach    int       `json:"reach"`
	AvgScore float64   `json:"avgScore"`
	Pos      int       `json:"pos"`
	Neu      int       `json:"neu"`
	Neg      int       `json:"neg"`
}

// Config holds per-user dashboard settings
type Config struct {
	ID                 string  `json:"id,omitempty"`
	UserID             string  `json:"userId,omitempty"`
	HuggingfaceToken   *string `json:"huggingfaceToken"`
	DemoMode           string  `json:"demoMode"` // "true" or "false"
	SentimentThreshold float64 `json:"sentimentThreshold"`
}

const (
	DefaultDemoMode           = "true"
	DefaultSentimentThreshold = 0.4
)

// DefaultConfig is returned for users that never saved settings
func DefaultConfig() Config {
	return Config{
		DemoMode:           DefaultDemoMode,
		SentimentThreshold: DefaultSentimentThreshold,
	}
}

// ConfigUpdate is a partial config; nil fields keep their stored value
type ConfigUpdate struct {
	HuggingfaceToken   *string  `json:"huggingfaceToken,omitempty"`
	DemoMode           *string  `json:"demoMode,omitempty"`
	SentimentThreshold *float64 `json:"sentimentThreshold,omitempty"`
}

// SentimentResult is the output of a classification
type SentimentResult struct {
	Label SentimentLabel `json:"sentimentLabel"`
	Score float64        `json:"sentimentScore"`
}

// SentimentCount breaks a set of comments down by label
type SentimentCount struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
	Total    int `json:"total"`
}

// Summary holds dashboard KPIs for a set of comments
type Summary struct {
	GeneratedAt time.Time      `json:"generatedAt"`
	Range       string         `json:"range"`
	Sentiment   SentimentCount `json:"sentiment"`
	Sources     map[string]int `json:"sources"`
	TopSources  []string       `json:"topSources"`
	AvgScore    float64        `json:"avgScore"`
	Reach       int            `json:"reach"`
}

// Report is a periodic digest of comments
type Report struct {
	UserID        string    `json:"userId"`
	GeneratedAt   time.Time `json:"generatedAt"`
	Period        string    `json:"period"` // "daily" or "weekly"
	TotalMentions int       `json:"totalMentions"`
	Comments      []Comment `json:"comments"`
	Summary       Summary   `json:"summary"`
}

// Alert represents an urgent notification
type Alert struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"` // "critical", "warning", "info"
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Comments  []Comment `json:"comments,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Suggestion struct {
	ID       string         `json:"id"`
	Category SentimentLabel `json:"category"`
	Title    string         `json:"title"`
	Body     string         `json:"body"`
}

type TopicBreakdown struct {
	Label string   `json:"label"`
	Count int      `json:"count"`
	Score *float64 `json:"score,omitempty"`
}

type GeoPoint struct {
	Country      string `json:"country"`
	Mentions     int    `json:"mentions"`
	Reach        int    `json:"reach"`
	Interactions int    `json:"interactions"`
}

// ReportAck acknowledges a report generation request
type ReportAck struct {
	Message     string `json:"message"`
	DownloadURL string `json:"downloadUrl"`
}
