package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pulseboard/sentiment-monitor/internal/analytics"
	"github.com/pulseboard/sentiment-monitor/internal/config"
	"github.com/pulseboard/sentiment-monitor/internal/models"
	"github.com/pulseboard/sentiment-monitor/internal/notifications"
	"github.com/pulseboard/sentiment-monitor/internal/sentiment"
	"github.com/pulseboard/sentiment-monitor/internal/sources"
	"github.com/pulseboard/sentiment-monitor/internal/storage"
	"github.com/sirupsen/logrus"
)

// ErrValidation marks errors caused by bad caller input
var ErrValidation = errors.New("validation failed")

const (
	alertWindow  = 4 * time.Hour
	backupPrefix = "backups/"
)

// ClassifierSelector resolves the classifier to use for a user
type ClassifierSelector interface {
	Select(ctx context.Context, userID string) (sentiment.Classifier, sentiment.Mode)
}

// Dependencies are the collaborators a Service is built from
type Dependencies struct {
	Repository    storage.Repository
	Classifiers   ClassifierSelector
	Notifications notifications.NotificationInterface
	Blobs         storage.BlobStore // optional, enables BackupState
	Sources       []sources.Source  // optional, enables RunCollection
	Clock         clockwork.Clock
	Random        sentiment.RandomSource
	Metrics       *Metrics
}

// Service ties classification, storage, analytics and notifications together
type Service struct {
	config        *config.Config
	repo          storage.Repository
	classifiers   ClassifierSelector
	aggregator    *analytics.Aggregator
	notifications notifications.NotificationInterface
	blobs         storage.BlobStore
	sources       []sources.Source
	clock         clockwork.Clock
	random        sentiment.RandomSource
	metrics       *Metrics
}

// NewService creates a new monitoring service
func NewService(cfg *config.Config, deps Dependencies) *Service {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Random == nil {
		deps.Random = sentiment.NewRandomSource()
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}

	return &Service{
		config:        cfg,
		repo:          deps.Repository,
		classifiers:   deps.Classifiers,
		aggregator:    analytics.NewAggregator(deps.Repository, deps.Clock, cfg.Location()),
		notifications: deps.Notifications,
		blobs:         deps.Blobs,
		sources:       deps.Sources,
		clock:         deps.Clock,
		random:        deps.Random,
		metrics:       deps.Metrics,
	}
}

// Analyze classifies text with the classifier selected for userID
func (s *Service) Analyze(ctx context.Context, userID, text string) (models.SentimentResult, error) {
	if strings.TrimSpace(text) == "" {
		return models.SentimentResult{}, fmt.Errorf("%w: text is required", ErrValidation)
	}
	return s.classify(ctx, userID, text), nil
}

func (s *Service) classify(ctx context.Context, userID, text string) models.SentimentResult {
	classifier, mode := s.classifiers.Select(ctx, userID)
	result := classifier.Classify(ctx, text)
	s.metrics.recordClassification(mode, result.Label)
	return result
}

// CreateComment validates input, classifies it and stores the comment
func (s *Service) CreateComment(ctx context.Context, userID string, input models.NewComment) (models.Comment, error) {
	if err := validateComment(input); err != nil {
		return models.Comment{}, err
	}

	result := s.classify(ctx, userID, input.Text)

	comment := models.Comment{
		UserID:         userID,
		Source:         input.Source,
		AuthorID:       input.AuthorID,
		Text:           input.Text,
		Lang:           defaultString(input.Lang, "en"),
		Country:        defaultString(input.Country, "US"),
		SentimentLabel: result.Label,
		SentimentScore: result.Score,
		Influence:      s.influence(),
	}

	created, err := s.repo.CreateComment(ctx, comment)
	if err != nil {
		return models.Comment{}, fmt.Errorf("failed to store comment: %w", err)
	}

	s.metrics.recordComment()
	logrus.Debugf("Stored %s comment %s for user %s", created.SentimentLabel, created.ID, userID)
	return created, nil
}

func validateComment(input models.NewComment) error {
	var problems []string
	if strings.TrimSpace(input.Text) == "" {
		problems = append(problems, "text is required")
	}
	if !input.Source.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown source %q", input.Source))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// influence is a placeholder reach estimate in [2, 9]
func (s *Service) influence() int {
	return int(math.Min(10, math.Floor(s.random.Float64()*8)+2))
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// Comments returns the user's comments matching filter
func (s *Service) Comments(ctx context.Context, userID string, filter storage.CommentFilter) ([]models.Comment, error) {
	filter.UserID = userID
	return s.repo.ListComments(ctx, filter)
}

func (s *Service) Snapshots(ctx context.Context, userID, rangeKey, group string) ([]models.Snapshot, error) {
	return s.aggregator.Snapshots(ctx, userID, rangeKey, group)
}

func (s *Service) Summary(ctx context.Context, userID, rangeKey string) (models.Summary, error) {
	summary, _, err := s.aggregator.Summary(ctx, userID, rangeKey)
	return summary, err
}

func (s *Service) Authors(ctx context.Context) ([]models.Author, error) {
	return s.repo.ListAuthors(ctx)
}

// Config returns the user's stored settings, or defaults when none exist
func (s *Service) Config(ctx context.Context, userID string) (models.Config, error) {
	stored, err := s.repo.GetConfig(ctx, userID)
	if err != nil {
		return models.Config{}, err
	}
	if stored == nil {
		return models.DefaultConfig(), nil
	}
	return *stored, nil
}

func (s *Service) UpdateConfig(ctx context.Context, userID string, update models.ConfigUpdate) (models.Config, error) {
	if update.DemoMode != nil && *update.DemoMode != "true" && *update.DemoMode != "false" {
		return models.Config{}, fmt.Errorf("%w: demoMode must be \"true\" or \"false\"", ErrValidation)
	}
	if update.SentimentThreshold != nil && (*update.SentimentThreshold < 0 || *update.SentimentThreshold > 1) {
		return models.Config{}, fmt.Errorf("%w: sentimentThreshold must be between 0 and 1", ErrValidation)
	}
	return s.repo.UpdateConfig(ctx, userID, update)
}

// GenerateReport builds the digest for the configured schedule without sending it
func (s *Service) GenerateReport(ctx context.Context, userID string) (*models.Report, error) {
	rangeKey := "7d"
	if s.config.ReportSchedule == "daily" {
		rangeKey = "1d"
	}

	summary, comments, err := s.aggregator.Summary(ctx, userID, rangeKey)
	if err != nil {
		return nil, err
	}

	return &models.Report{
		UserID:        userID,
		GeneratedAt:   summary.GeneratedAt,
		Period:        s.config.ReportSchedule,
		TotalMentions: len(comments),
		Comments:      comments,
		Summary:       summary,
	}, nil
}

// RunDigest generates and sends the periodic digest for userID
func (s *Service) RunDigest(ctx context.Context, userID string) (*models.Report, error) {
	start := s.clock.Now()
	logrus.Infof("Starting %s digest for user %s", s.config.ReportSchedule, userID)

	report, err := s.GenerateReport(ctx, userID)
	if err != nil {
		s.metrics.recordError()
		return nil, fmt.Errorf("failed to generate digest: %w", err)
	}

	if err := s.notifications.SendReport(ctx, report); err != nil {
		s.metrics.recordError()
		return report, fmt.Errorf("failed to send digest: %w", err)
	}

	s.metrics.recordDigest(report.GeneratedAt, s.clock.Since(start))
	logrus.Infof("Digest for user %s sent with %d mentions", userID, report.TotalMentions)
	return report, nil
}

// RunAlertCheck looks at the last four hours and raises an alert when the
// negative share crosses the configured ratio. It returns nil when no alert fired.
func (s *Service) RunAlertCheck(ctx context.Context, userID string) (*models.Alert, error) {
	now := s.clock.Now()
	from := now.Add(-alertWindow)

	comments, err := s.repo.ListComments(ctx, storage.CommentFilter{UserID: userID, DateFrom: &from, DateTo: &now})
	if err != nil {
		s.metrics.recordError()
		return nil, fmt.Errorf("failed to load recent comments: %w", err)
	}

	summary := analytics.Summarize(comments)
	share := analytics.NegativeShare(summary.Sentiment)
	if summary.Sentiment.Total < s.config.AlertMinMentions || share < s.config.AlertNegativeRatio {
		logrus.Debugf("No alert for user %s: %d mentions, %.0f%% negative", userID, summary.Sentiment.Total, share*100)
		return nil, nil
	}

	alert := &models.Alert{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      alertType(share),
		Title:     "Negative sentiment spike",
		Message:   fmt.Sprintf("%d of %d mentions in the last 4 hours were negative (%.0f%%)", summary.Sentiment.Negative, summary.Sentiment.Total, share*100),
		Comments:  negativeComments(comments),
		CreatedAt: now,
	}

	logrus.Warnf("Raising %s alert for user %s: %s", alert.Type, userID, alert.Message)
	if err := s.notifications.SendAlert(ctx, alert); err != nil {
		s.metrics.recordError()
		return alert, fmt.Errorf("failed to send alert: %w", err)
	}

	s.metrics.recordAlert()
	return alert, nil
}

func alertType(negativeShare float64) string {
	if negativeShare >= 0.5 {
		return "critical"
	}
	return "warning"
}

func negativeComments(comments []models.Comment) []models.Comment {
	var negative []models.Comment
	for _, c := range comments {
		if c.SentimentLabel == models.Negative {
			negative = append(negative, c)
		}
	}
	return negative
}

// BackupState writes a timestamped export of the repository to the blob store
func (s *Service) BackupState(ctx context.Context) (string, error) {
	if s.blobs == nil {
		return "", errors.New("no blob store configured")
	}

	state, err := s.repo.Export(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to export state: %w", err)
	}

	data, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("failed to marshal state: %w", err)
	}

	name := fmt.Sprintf("%sstate-%s.json", backupPrefix, s.clock.Now().UTC().Format("2006-01-02-15-04-05"))
	if err := s.blobs.Store(ctx, name, data); err != nil {
		s.metrics.recordError()
		return "", fmt.Errorf("failed to store backup: %w", err)
	}

	logrus.Infof("Backed up %d comments to %s", len(state.Comments), name)
	return name, nil
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	return s.metrics.JSON()
}

// Metrics holds service counters
type Metrics struct {
	mu sync.RWMutex

	CommentsCreated    int            `json:"comments_created"`
	Classifications    map[string]int `json:"classifications"`
	SentimentBreakdown map[string]int `json:"sentiment_breakdown"`
	RemoteFailures     int            `json:"remote_failures"`
	DigestsSent        int            `json:"digests_sent"`
	LastDigest         time.Time      `json:"last_digest"`
	LastDigestDuration string         `json:"last_digest_duration"`
	AlertsSent         int            `json:"alerts_sent"`
	MentionsCollected  int            `json:"mentions_collected"`
	LastCollection     time.Time      `json:"last_collection"`
	ErrorCount         int            `json:"error_count"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		Classifications:    make(map[string]int),
		SentimentBreakdown: make(map[string]int),
	}
}

// RecordRemoteFailure counts a remote classifier call that fell back
func (m *Metrics) RecordRemoteFailure(error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RemoteFailures++
}

func (m *Metrics) recordClassification(mode sentiment.Mode, label models.SentimentLabel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Classifications[string(mode)]++
	m.SentimentBreakdown[string(label)]++
}

func (m *Metrics) recordComment() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CommentsCreated++
}

func (m *Metrics) recordDigest(at time.Time, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DigestsSent++
	m.LastDigest = at
	m.LastDigestDuration = duration.String()
}

func (m *Metrics) recordAlert() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AlertsSent++
}

func (m *Metrics) recordCollection(stored int, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MentionsCollected += stored
	m.LastCollection = at
}

func (m *Metrics) recordError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrorCount++
}

func (m *Metrics) JSON() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, _ := json.MarshalIndent(m, "", "  ")
	return string(data)
}
