package storage

import (
	"context"
	"errors"

	"github.com/pulseboard/sentiment-monitor/internal/models"
)

// ErrNotFound is returned by BlobStore.Retrieve for missing blobs
var ErrNotFound = errors.New("not found")

// BlobStore defines the contract for named-blob persistence
type BlobStore interface {
	Store(ctx context.Context, name string, data []byte) error
	Retrieve(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// Repository owns comments, authors and per-user configs
type Repository interface {
	ListComments(ctx context.Context, filter CommentFilter) ([]models.Comment, error)
	// CreateComment assigns ID and CreatedAt and returns the stored record
	CreateComment(ctx context.Context, comment models.Comment) (models.Comment, error)

	ListAuthors(ctx context.Context) ([]models.Author, error)
	CreateAuthor(ctx context.Context, author models.Author) (models.Author, error)

	// GetConfig returns nil when the user has no stored config
	GetConfig(ctx context.Context, userID string) (*models.Config, error)
	UpdateConfig(ctx context.Context, userID string, update models.ConfigUpdate) (models.Config, error)

	// Import loads records verbatim, keeping their IDs and timestamps
	Import(ctx context.Context, state State) error
	Export(ctx context.Context) (State, error)

	Close() error
}

// State is the serialized form of a repository
type State struct {
	Authors  []models.Author  `json:"authors"`
	Comments []models.Comment `json:"comments"`
	Configs  []models.Config  `json:"configs,omitempty"`
}

// mergeConfig applies update over existing, or over defaults when existing is nil
func mergeConfig(existing *models.Config, userID string, update models.ConfigUpdate, newID func() string) models.Config {
	merged := models.DefaultConfig()
	if existing != nil {
		merged = *existing
	} else {
		merged.ID = newID()
	}
	merged.UserID = userID

	if update.HuggingfaceToken != nil {
		if *update.HuggingfaceToken == "" {
			merged.HuggingfaceToken = nil
		} else {
			token := *update.HuggingfaceToken
			merged.HuggingfaceToken = &token
		}
	}
	if update.DemoMode != nil {
		merged.DemoMode = *update.DemoMode
	}
	if update.SentimentThreshold != nil {
		merged.SentimentThreshold = *update.SentimentThreshold
	}

	return merged
}
