package api

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/pulseboard/sentiment-monitor/internal/models"
	"github.com/pulseboard/sentiment-monitor/internal/storage"
)

const dateOnly = "2006-01-02"

// parseCommentFilter reads the comment list query. List parameters repeat
// (source=google&source=x); dates are RFC 3339 or YYYY-MM-DD in loc.
func parseCommentFilter(query url.Values, loc *time.Location) (storage.CommentFilter, error) {
	filter := storage.CommentFilter{
		CountriesExclude: query["countriesExclude"],
		LanguagesExclude: query["languagesExclude"],
		Query:            query.Get("q"),
		Order:            query.Get("order"),
	}

	for _, source := range query["source"] {
		filter.Sources = append(filter.Sources, models.Source(source))
	}
	for _, label := range query["sentiment"] {
		filter.Sentiments = append(filter.Sentiments, models.SentimentLabel(label))
	}

	if raw := query.Get("minInfluence"); raw != "" {
		minInfluence, err := strconv.Atoi(raw)
		if err != nil {
			return storage.CommentFilter{}, fmt.Errorf("minInfluence must be an integer: %q", raw)
		}
		filter.MinInfluence = &minInfluence
	}

	if raw := query.Get("dateFrom"); raw != "" {
		from, err := parseDate(raw, loc, false)
		if err != nil {
			return storage.CommentFilter{}, fmt.Errorf("invalid dateFrom: %w", err)
		}
		filter.DateFrom = &from
	}

	if raw := query.Get("dateTo"); raw != "" {
		to, err := parseDate(raw, loc, true)
		if err != nil {
			return storage.CommentFilter{}, fmt.Errorf("invalid dateTo: %w", err)
		}
		filter.DateTo = &to
	}

	return filter, nil
}

// parseDate accepts a timestamp or a bare day. A bare day used as an upper
// bound covers the whole day.
func parseDate(raw string, loc *time.Location, endOfDay bool) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}

	day, err := time.ParseInLocation(dateOnly, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither RFC 3339 nor YYYY-MM-DD", raw)
	}
	if endOfDay {
		return day.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	}
	return day, nil
}
