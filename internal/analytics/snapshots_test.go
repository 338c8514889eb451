package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pulseboard/sentiment-monitor/internal/models"
	"github.com/pulseboard/sentiment-monitor/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday
var now = time.Date(2024, time.March, 13, 16, 45, 0, 0, time.UTC)

func daysAgo(n int, hour int) *time.Time {
	ts := time.Date(2024, time.March, 13-n, hour, 0, 0, 0, time.UTC)
	return &ts
}

func seededStore(t *testing.T, comments []models.Comment) *storage.MemoryStore {
	t.Helper()
	store := storage.NewMemoryStore(clockwork.NewFakeClockAt(now), nil)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Import(context.Background(), storage.State{Comments: comments}))
	return store
}

func fixture() []models.Comment {
	return []models.Comment{
		{ID: "1", UserID: "u1", Source: models.SourceGoogle, CreatedAt: daysAgo(0, 9), SentimentLabel: models.Positive, SentimentScore: 0.9, Influence: 5},
		{ID: "2", UserID: "u1", Source: models.SourceGoogle, CreatedAt: daysAgo(0, 23), SentimentLabel: models.Negative, SentimentScore: 0.1, Influence: 2},
		{ID: "3", UserID: "u1", Source: models.SourceX, CreatedAt: daysAgo(2, 1), SentimentLabel: models.Neutral, SentimentScore: 0.5, Influence: 3},
		{ID: "4", UserID: "u1", Source: models.SourceX, CreatedAt: daysAgo(6, 12), SentimentLabel: models.Positive, SentimentScore: 0.8, Influence: 10},
		{ID: "5", UserID: "u1", Source: models.SourceBlog, CreatedAt: daysAgo(7, 12), SentimentLabel: models.Negative, SentimentScore: 0.3, Influence: 4},
		{ID: "6", UserID: "u1", Source: models.SourceBlog, SentimentLabel: models.Neutral, SentimentScore: 0.5},
		{ID: "7", UserID: "u2", Source: models.SourceGoogle, CreatedAt: daysAgo(0, 10), SentimentLabel: models.Positive, SentimentScore: 0.95, Influence: 9},
	}
}

func TestRangeDays(t *testing.T) {
	assert.Equal(t, 1, RangeDays("1d"))
	assert.Equal(t, 7, RangeDays("7d"))
	assert.Equal(t, 30, RangeDays("30d"))
	assert.Equal(t, 30, RangeDays(""))
	assert.Equal(t, 30, RangeDays("90d"))
}

func TestAggregator_DailySnapshots(t *testing.T) {
	agg := NewAggregator(seededStore(t, fixture()), clockwork.NewFakeClockAt(now), time.UTC)

	snapshots, err := agg.Snapshots(context.Background(), "u1", "7d", "")
	require.NoError(t, err)
	require.Len(t, snapshots, 7)

	// oldest first, each at midnight
	assert.Equal(t, time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC), snapshots[0].TS)
	assert.Equal(t, time.Date(2024, time.March, 13, 0, 0, 0, 0, time.UTC), snapshots[6].TS)

	today := snapshots[6]
	assert.Equal(t, "u1", today.UserID)
	assert.Equal(t, 2, today.Mentions)
	assert.Equal(t, 700, today.Reach)
	assert.InDelta(t, 0.5, today.AvgScore, 1e-9)
	assert.Equal(t, 1, today.Pos)
	assert.Equal(t, 1, today.Neg)
	assert.Equal(t, 0, today.Neu)

	twoDaysAgo := snapshots[4]
	assert.Equal(t, 1, twoDaysAgo.Neu)
	assert.Equal(t, 300, twoDaysAgo.Reach)

	assert.Equal(t, 1, snapshots[0].Mentions, "six days ago is inside a 7 day window")

	empty := snapshots[5]
	assert.Equal(t, 0, empty.Mentions)
	assert.Equal(t, 0.0, empty.AvgScore)
	assert.Equal(t, 0, empty.Pos+empty.Neu+empty.Neg)

	for _, s := range snapshots {
		assert.Equal(t, s.Mentions, s.Pos+s.Neu+s.Neg)
		assert.NotEmpty(t, s.ID)
	}
}

func TestAggregator_CountsMatchCommentsInRange(t *testing.T) {
	agg := NewAggregator(seededStore(t, fixture()), clockwork.NewFakeClockAt(now), time.UTC)

	for rangeKey, expected := range map[string]int{"1d": 2, "7d": 4, "30d": 5} {
		for _, group := range []string{GroupDay, GroupWeek, GroupMonth} {
			snapshots, err := agg.Snapshots(context.Background(), "u1", rangeKey, group)
			require.NoError(t, err)

			total := 0
			for _, s := range snapshots {
				total += s.Pos + s.Neu + s.Neg
			}
			assert.Equal(t, expected, total, "range %s group %s", rangeKey, group)
		}
	}
}

func TestAggregator_WeeklyAndMonthlyGroups(t *testing.T) {
	agg := NewAggregator(seededStore(t, fixture()), clockwork.NewFakeClockAt(now), time.UTC)

	weeks, err := agg.Snapshots(context.Background(), "u1", "7d", GroupWeek)
	require.NoError(t, err)
	// Mar 7-10 fall in the week of Monday Mar 4, Mar 11-13 in the week of Mar 11
	require.Len(t, weeks, 2)
	assert.Equal(t, time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC), weeks[0].TS)
	assert.Equal(t, time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC), weeks[1].TS)
	assert.Equal(t, 1, weeks[0].Mentions)
	assert.Equal(t, 3, weeks[1].Mentions)
	assert.InDelta(t, (0.9+0.1+0.5)/3, weeks[1].AvgScore, 1e-9)

	months, err := agg.Snapshots(context.Background(), "u1", "30d", GroupMonth)
	require.NoError(t, err)
	require.Len(t, months, 2)
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), months[0].TS)
	assert.Equal(t, 0, months[0].Mentions)
	assert.Equal(t, 5, months[1].Mentions)
}

func TestAggregator_TimeZoneBoundaries(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	agg := NewAggregator(seededStore(t, fixture()), clockwork.NewFakeClockAt(now), loc)

	snapshots, err := agg.Snapshots(context.Background(), "u1", "1d", GroupDay)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	// 23:00 UTC is 18:00 local and stays on the 13th; 09:00 UTC is 04:00 local
	assert.Equal(t, 2, snapshots[0].Mentions)
	assert.Equal(t, time.Date(2024, time.March, 13, 0, 0, 0, 0, loc), snapshots[0].TS)
}

type failingLister struct{}

func (failingLister) ListComments(context.Context, storage.CommentFilter) ([]models.Comment, error) {
	return nil, errors.New("database is locked")
}

func TestAggregator_PropagatesStoreErrors(t *testing.T) {
	agg := NewAggregator(failingLister{}, clockwork.NewFakeClockAt(now), time.UTC)
	_, err := agg.Snapshots(context.Background(), "u1", "7d", "")
	assert.Error(t, err)
}
