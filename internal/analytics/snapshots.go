package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pulseboard/sentiment-monitor/internal/models"
	"github.com/pulseboard/sentiment-monitor/internal/storage"
)

const (
	GroupDay   = "day"
	GroupWeek  = "week"
	GroupMonth = "month"
)

// CommentLister is the read side of storage.Repository
type CommentLister interface {
	ListComments(ctx context.Context, filter storage.CommentFilter) ([]models.Comment, error)
}

// Aggregator derives per-period snapshots from stored comments
type Aggregator struct {
	comments CommentLister
	clock    clockwork.Clock
	loc      *time.Location
}

// NewAggregator creates an aggregator using loc for day boundaries
func NewAggregator(comments CommentLister, clock clockwork.Clock, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{comments: comments, clock: clock, loc: loc}
}

// RangeDays maps a range key to its window length: "1d", "7d", otherwise 30
func RangeDays(rangeKey string) int {
	switch rangeKey {
	case "1d":
		return 1
	case "7d":
		return 7
	default:
		return 30
	}
}

// WindowStart returns midnight of the first day of the range ending today
func (a *Aggregator) WindowStart(rangeKey string) time.Time {
	today := midnight(a.clock.Now().In(a.loc))
	return today.AddDate(0, 0, -(RangeDays(rangeKey) - 1))
}

type bucket struct {
	ts       time.Time
	mentions int
	reach    int
	scoreSum float64
	pos      int
	neu      int
	neg      int
}

func (b *bucket) add(c models.Comment) {
	b.mentions++
	b.reach += c.Influence * 100
	b.scoreSum += c.SentimentScore
	switch c.SentimentLabel {
	case models.Positive:
		b.pos++
	case models.Negative:
		b.neg++
	default:
		b.neu++
	}
}

func (b *bucket) merge(other bucket) {
	b.mentions += other.mentions
	b.reach += other.reach
	b.scoreSum += other.scoreSum
	b.pos += other.pos
	b.neu += other.neu
	b.neg += other.neg
}

// Snapshots returns one snapshot per period, oldest first, covering the range
// ending today. group selects day (default), week or month periods.
func (a *Aggregator) Snapshots(ctx context.Context, userID, rangeKey, group string) ([]models.Snapshot, error) {
	comments, err := a.comments.ListComments(ctx, storage.CommentFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to load comments for snapshots: %w", err)
	}

	days := a.dailyBuckets(comments, RangeDays(rangeKey))

	var periods []bucket
	switch group {
	case GroupWeek:
		periods = regroup(days, weekStart)
	case GroupMonth:
		periods = regroup(days, monthStart)
	default:
		periods = days
	}

	snapshots := make([]models.Snapshot, 0, len(periods))
	for _, p := range periods {
		snapshots = append(snapshots, toSnapshot(userID, p))
	}
	return snapshots, nil
}

// dailyBuckets fills one bucket per calendar day in a single pass over comments
func (a *Aggregator) dailyBuckets(comments []models.Comment, days int) []bucket {
	today := midnight(a.clock.Now().In(a.loc))

	buckets := make([]bucket, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		ts := today.AddDate(0, 0, -(days - 1 - i))
		buckets[i].ts = ts
		index[dayKey(ts)] = i
	}

	for _, c := range comments {
		if c.CreatedAt == nil {
			continue
		}
		if i, ok := index[dayKey(c.CreatedAt.In(a.loc))]; ok {
			buckets[i].add(c)
		}
	}

	return buckets
}

// regroup merges consecutive daily buckets that share a period start
func regroup(days []bucket, periodStart func(time.Time) time.Time) []bucket {
	var periods []bucket
	for _, day := range days {
		start := periodStart(day.ts)
		if len(periods) == 0 || !periods[len(periods)-1].ts.Equal(start) {
			periods = append(periods, bucket{ts: start})
		}
		periods[len(periods)-1].merge(day)
	}
	return periods
}

func toSnapshot(userID string, b bucket) models.Snapshot {
	avg := 0.0
	if b.mentions > 0 {
		avg = b.scoreSum / float64(b.mentions)
	}
	return models.Snapshot{
		ID:       uuid.NewString(),
		UserID:   userID,
		TS:       b.ts,
		Mentions: b.mentions,
		Reach:    b.reach,
		AvgScore: avg,
		Pos:      b.pos,
		Neu:      b.neu,
		Neg:      b.neg,
	}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// weekStart returns the Monday starting t's week
func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return midnight(t).AddDate(0, 0, -offset)
}

func monthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}
