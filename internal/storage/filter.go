package storage

import (
	"sort"
	"strings"
	"time"

	"github.com/pulseboard/sentiment-monitor/internal/models"
)

const (
	OrderRecent = "recent"
	OrderTop    = "top"
)

// CommentFilter selects comments. Every set field must match.
type CommentFilter struct {
	UserID           string
	Sources          []models.Source
	Sentiments       []models.SentimentLabel
	MinInfluence     *int
	CountriesExclude []string
	LanguagesExclude []string
	Query            string // matched against text and author name
	DateFrom         *time.Time
	DateTo           *time.Time
	Order            string // "recent" (default) or "top"
}

// ApplyFilter returns the matching comments as a new, ordered slice.
// authorNames maps author IDs to names for the Query match.
func ApplyFilter(comments []models.Comment, authorNames map[string]string, filter CommentFilter) []models.Comment {
	query := strings.ToLower(filter.Query)

	matched := make([]models.Comment, 0, len(comments))
	for _, comment := range comments {
		if matches(comment, authorNames, filter, query) {
			matched = append(matched, comment)
		}
	}

	if filter.Order == OrderTop {
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].Influence > matched[j].Influence
		})
	} else {
		sort.SliceStable(matched, func(i, j int) bool {
			return createdAtNanos(matched[i]) > createdAtNanos(matched[j])
		})
	}

	return matched
}

func matches(c models.Comment, authorNames map[string]string, f CommentFilter, query string) bool {
	if f.UserID != "" && c.UserID != f.UserID {
		return false
	}
	if len(f.Sources) > 0 && !contains(f.Sources, c.Source) {
		return false
	}
	if len(f.Sentiments) > 0 && !contains(f.Sentiments, c.SentimentLabel) {
		return false
	}
	if f.MinInfluence != nil && c.Influence < *f.MinInfluence {
		return false
	}
	if len(f.CountriesExclude) > 0 && contains(f.CountriesExclude, c.Country) {
		return false
	}
	if len(f.LanguagesExclude) > 0 && contains(f.LanguagesExclude, c.Lang) {
		return false
	}
	if query != "" && !matchesQuery(c, authorNames, query) {
		return false
	}
	if f.DateFrom != nil && (c.CreatedAt == nil || c.CreatedAt.Before(*f.DateFrom)) {
		return false
	}
	if f.DateTo != nil && (c.CreatedAt == nil || c.CreatedAt.After(*f.DateTo)) {
		return false
	}
	return true
}

func matchesQuery(c models.Comment, authorNames map[string]string, query string) bool {
	if strings.Contains(strings.ToLower(c.Text), query) {
		return true
	}
	if c.AuthorID == "" {
		return false
	}
	name, ok := authorNames[c.AuthorID]
	return ok && strings.Contains(strings.ToLower(name), query)
}

// createdAtNanos treats a missing timestamp as the earliest possible
func createdAtNanos(c models.Comment) int64 {
	if c.CreatedAt == nil {
		return 0
	}
	return c.CreatedAt.UnixNano()
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
