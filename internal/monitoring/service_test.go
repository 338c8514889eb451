package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pulseboard/sentiment-monitor/internal/config"
	"github.com/pulseboard/sentiment-monitor/internal/models"
	"github.com/pulseboard/sentiment-monitor/internal/sentiment"
	"github.com/pulseboard/sentiment-monitor/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBlobStore is a mock implementation of the blob store interface
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Store(ctx context.Context, name string, data []byte) error {
	args := m.Called(ctx, name, data)
	return args.Error(0)
}

func (m *MockBlobStore) Retrieve(ctx context.Context, name string) ([]byte, error) {
	args := m.Called(ctx, name)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockBlobStore) List(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockBlobStore) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// MockNotificationService is a mock implementation of the notification service
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) SendReport(ctx context.Context, report *models.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockNotificationService) SendAlert(ctx context.Context, alert *models.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

// fixedSelector always hands out the same classifier
type fixedSelector struct {
	classifier sentiment.Classifier
	mode       sentiment.Mode
	users      []string
}

func (f *fixedSelector) Select(_ context.Context, userID string) (sentiment.Classifier, sentiment.Mode) {
	f.users = append(f.users, userID)
	return f.classifier, f.mode
}

var testNow = time.Date(2024, time.March, 13, 12, 0, 0, 0, time.UTC)

type fixture struct {
	service       *Service
	repo          *storage.MemoryStore
	notifications *MockNotificationService
	blobs         *MockBlobStore
	selector      *fixedSelector
	clock         *clockwork.FakeClock
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{ReportSchedule: "daily", TimeZone: "UTC", AlertMinMentions: 3, AlertNegativeRatio: 0.3}
	}

	clock := clockwork.NewFakeClockAt(testNow)
	repo := storage.NewMemoryStore(clock, nil)
	t.Cleanup(func() { repo.Close() })

	f := &fixture{
		repo:          repo,
		notifications: &MockNotificationService{},
		blobs:         &MockBlobStore{},
		selector:      &fixedSelector{classifier: sentiment.NewHeuristic(fixedRand(0.5)), mode: sentiment.ModeHeuristic},
		clock:         clock,
	}
	f.service = NewService(cfg, Dependencies{
		Repository:    repo,
		Classifiers:   f.selector,
		Notifications: f.notifications,
		Blobs:         f.blobs,
		Clock:         clock,
		Random:        fixedRand(0.5),
	})
	return f
}

func (f *fixture) seed(t *testing.T, comments ...models.Comment) {
	t.Helper()
	require.NoError(t, f.repo.Import(context.Background(), storage.State{Comments: comments}))
}

func hoursAgo(h float64) *time.Time {
	ts := testNow.Add(-time.Duration(h * float64(time.Hour)))
	return &ts
}

func TestService_CreateComment(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	created, err := f.service.CreateComment(ctx, "u1", models.NewComment{
		Source: models.SourceGoogle,
		Text:   "Amazing service! Loved it!",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	require.NotNil(t, created.CreatedAt)
	assert.True(t, created.CreatedAt.Equal(testNow))
	assert.Equal(t, "u1", created.UserID)
	assert.Equal(t, "en", created.Lang)
	assert.Equal(t, "US", created.Country)
	assert.Equal(t, models.Positive, created.SentimentLabel)
	assert.InDelta(t, 0.85, created.SentimentScore, 1e-9)
	// floor(0.5*8)+2
	assert.Equal(t, 6, created.Influence)
	assert.Equal(t, []string{"u1"}, f.selector.users)

	comments, err := f.service.Comments(ctx, "u1", storage.CommentFilter{})
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, created.ID, comments[0].ID)

	others, err := f.service.Comments(ctx, "u2", storage.CommentFilter{})
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestService_CreateComment_Validation(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name  string
		input models.NewComment
	}{
		{"empty text", models.NewComment{Source: models.SourceGoogle, Text: ""}},
		{"blank text", models.NewComment{Source: models.SourceGoogle, Text: "   "}},
		{"unknown source", models.NewComment{Source: "myspace", Text: "hello"}},
		{"missing source", models.NewComment{Text: "hello"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateComment(context.Background(), "u1", tt.input)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}

	comments, err := f.repo.ListComments(context.Background(), storage.CommentFilter{})
	require.NoError(t, err)
	assert.Empty(t, comments, "rejected input must not change state")
}

func TestService_InfluenceRange(t *testing.T) {
	for _, r := range []float64{0, 0.124, 0.5, 0.999999} {
		f := newFixture(t, nil)
		f.service.random = fixedRand(r)
		influence := f.service.influence()
		assert.GreaterOrEqual(t, influence, 2)
		assert.LessOrEqual(t, influence, 9)
	}
}

func TestService_Analyze(t *testing.T) {
	f := newFixture(t, nil)

	result, err := f.service.Analyze(context.Background(), "u1", "terrible and slow")
	require.NoError(t, err)
	assert.Equal(t, models.Negative, result.Label)
	assert.InDelta(t, 0.2, result.Score, 1e-9)

	_, err = f.service.Analyze(context.Background(), "u1", "")
	assert.True(t, errors.Is(err, ErrValidation))

	var metrics Metrics
	require.NoError(t, json.Unmarshal([]byte(f.service.GetMetrics()), &metrics))
	assert.Equal(t, 1, metrics.Classifications["heuristic"])
	assert.Equal(t, 1, metrics.SentimentBreakdown["NEGATIVE"])
}

func TestService_Config(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	cfg, err := f.service.Config(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "true", cfg.DemoMode)
	assert.Equal(t, 0.4, cfg.SentimentThreshold)
	assert.Nil(t, cfg.HuggingfaceToken)

	demo := "false"
	updated, err := f.service.UpdateConfig(ctx, "u1", models.ConfigUpdate{DemoMode: &demo})
	require.NoError(t, err)
	assert.Equal(t, "false", updated.DemoMode)
	assert.Equal(t, 0.4, updated.SentimentThreshold)

	invalid := "maybe"
	_, err = f.service.UpdateConfig(ctx, "u1", models.ConfigUpdate{DemoMode: &invalid})
	assert.True(t, errors.Is(err, ErrValidation))

	threshold := 1.5
	_, err = f.service.UpdateConfig(ctx, "u1", models.ConfigUpdate{SentimentThreshold: &threshold})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestService_RunDigest(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t,
		models.Comment{ID: "c1", UserID: "u1", Source: models.SourceGoogle, CreatedAt: hoursAgo(1), SentimentLabel: models.Positive, SentimentScore: 0.9, Influence: 4},
		models.Comment{ID: "c2", UserID: "u1", Source: models.SourceX, CreatedAt: hoursAgo(2), SentimentLabel: models.Negative, SentimentScore: 0.1, Influence: 3},
		models.Comment{ID: "c3", UserID: "u1", Source: models.SourceX, CreatedAt: hoursAgo(72), SentimentLabel: models.Negative, SentimentScore: 0.1},
		models.Comment{ID: "c4", UserID: "u2", Source: models.SourceX, CreatedAt: hoursAgo(1), SentimentLabel: models.Neutral, SentimentScore: 0.5},
	)

	f.notifications.On("SendReport", mock.Anything, mock.MatchedBy(func(r *models.Report) bool {
		return r.UserID == "u1" && r.TotalMentions == 2 && r.Period == "daily"
	})).Return(nil).Once()

	report, err := f.service.RunDigest(context.Background(), "u1")
	require.NoError(t, err)
	f.notifications.AssertExpectations(t)

	assert.Equal(t, 1, report.Summary.Sentiment.Positive)
	assert.Equal(t, 1, report.Summary.Sentiment.Negative)
	assert.Equal(t, []string{"google (1)", "x (1)"}, report.Summary.TopSources)
	assert.Equal(t, "c1", report.Comments[0].ID, "most recent first")

	var metrics Metrics
	require.NoError(t, json.Unmarshal([]byte(f.service.GetMetrics()), &metrics))
	assert.Equal(t, 1, metrics.DigestsSent)
	assert.True(t, metrics.LastDigest.Equal(testNow))
}

func TestService_RunDigest_SendFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.notifications.On("SendReport", mock.Anything, mock.Anything).Return(errors.New("webhook down"))

	report, err := f.service.RunDigest(context.Background(), "u1")
	require.Error(t, err)
	assert.NotNil(t, report)

	var metrics Metrics
	require.NoError(t, json.Unmarshal([]byte(f.service.GetMetrics()), &metrics))
	assert.Equal(t, 0, metrics.DigestsSent)
	assert.Equal(t, 1, metrics.ErrorCount)
}

func TestService_RunAlertCheck(t *testing.T) {
	negative := func(id string, h float64) models.Comment {
		return models.Comment{ID: id, UserID: "u1", Source: models.SourceGoogle, CreatedAt: hoursAgo(h), SentimentLabel: models.Negative, SentimentScore: 0.1}
	}
	positive := func(id string, h float64) models.Comment {
		return models.Comment{ID: id, UserID: "u1", Source: models.SourceGoogle, CreatedAt: hoursAgo(h), SentimentLabel: models.Positive, SentimentScore: 0.9}
	}

	tests := []struct {
		name        string
		comments    []models.Comment
		expectAlert bool
		alertType   string
	}{
		{
			name:     "too few mentions",
			comments: []models.Comment{negative("n1", 1), negative("n2", 1)},
		},
		{
			name:     "mostly positive",
			comments: []models.Comment{positive("p1", 1), positive("p2", 1), positive("p3", 1), negative("n1", 1)},
		},
		{
			name:     "old negatives are ignored",
			comments: []models.Comment{positive("p1", 1), positive("p2", 1), positive("p3", 1), negative("n1", 5), negative("n2", 6)},
		},
		{
			name:        "negative share at threshold",
			comments:    []models.Comment{positive("p1", 1), positive("p2", 1), positive("p3", 1), positive("p4", 1), positive("p5", 1), positive("p6", 1), positive("p7", 1), negative("n1", 1), negative("n2", 2), negative("n3", 3)},
			expectAlert: true,
			alertType:   "warning",
		},
		{
			name:        "majority negative",
			comments:    []models.Comment{positive("p1", 1), negative("n1", 1), negative("n2", 3.5)},
			expectAlert: true,
			alertType:   "critical",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.seed(t, tt.comments...)
			if tt.expectAlert {
				f.notifications.On("SendAlert", mock.Anything, mock.Anything).Return(nil).Once()
			}

			alert, err := f.service.RunAlertCheck(context.Background(), "u1")
			require.NoError(t, err)
			f.notifications.AssertExpectations(t)

			if !tt.expectAlert {
				assert.Nil(t, alert)
				f.notifications.AssertNotCalled(t, "SendAlert", mock.Anything, mock.Anything)
				return
			}

			require.NotNil(t, alert)
			assert.Equal(t, tt.alertType, alert.Type)
			assert.Equal(t, "u1", alert.UserID)
			for _, c := range alert.Comments {
				assert.Equal(t, models.Negative, c.SentimentLabel)
			}
		})
	}
}

func TestService_BackupState(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, models.Comment{ID: "c1", UserID: "u1", Source: models.SourceGoogle, Text: "Great", SentimentLabel: models.Positive, SentimentScore: 0.8})

	f.blobs.On("Store", mock.Anything, "backups/state-2024-03-13-12-00-00.json", mock.MatchedBy(func(data []byte) bool {
		var state storage.State
		return json.Unmarshal(data, &state) == nil && len(state.Comments) == 1
	})).Return(nil).Once()

	name, err := f.service.BackupState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "backups/state-2024-03-13-12-00-00.json", name)
	f.blobs.AssertExpectations(t)
}

func TestService_BackupStateWithoutBlobStore(t *testing.T) {
	cfg := &config.Config{ReportSchedule: "weekly", TimeZone: "UTC"}
	repo := storage.NewMemoryStore(clockwork.NewFakeClockAt(testNow), nil)
	defer repo.Close()

	service := NewService(cfg, Dependencies{Repository: repo, Classifiers: &fixedSelector{}})
	_, err := service.BackupState(context.Background())
	assert.Error(t, err)
}

func TestMetrics_RecordRemoteFailure(t *testing.T) {
	metrics := NewMetrics()
	metrics.RecordRemoteFailure(errors.New("timeout"))
	metrics.RecordRemoteFailure(errors.New("status 503"))

	var decoded Metrics
	require.NoError(t, json.Unmarshal([]byte(metrics.JSON()), &decoded))
	assert.Equal(t, 2, decoded.RemoteFailures)
}
