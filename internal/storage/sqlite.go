package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pulseboard/sentiment-monitor/internal/models"
	"github.com/sirupsen/logrus"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a Repository backed by an embedded SQLite database.
// The user ID is filtered in SQL; every other predicate goes through ApplyFilter
// so results match MemoryStore exactly.
type SQLiteStore struct {
	db    *sql.DB
	clock clockwork.Clock
}

var _ Repository = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at dbPath
func NewSQLiteStore(dbPath string, clock clockwork.Clock) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, clock: clock}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logrus.Infof("Opened SQLite database at %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS authors (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		handle TEXT,
		followers INTEGER,
		avatar_url TEXT,
		platform TEXT
	);

	CREATE TABLE IF NOT EXISTS comments (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		source TEXT NOT NULL,
		author_id TEXT,
		text TEXT NOT NULL,
		lang TEXT NOT NULL DEFAULT 'en',
		country TEXT NOT NULL DEFAULT 'US',
		created_at INTEGER,
		sentiment_label TEXT NOT NULL,
		sentiment_score REAL NOT NULL,
		influence INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS configs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		huggingface_token TEXT,
		demo_mode TEXT NOT NULL DEFAULT 'true',
		sentiment_threshold REAL NOT NULL DEFAULT 0.4
	);

	CREATE INDEX IF NOT EXISTS idx_comments_user ON comments(user_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) ListComments(ctx context.Context, filter CommentFilter) ([]models.Comment, error) {
	query := `SELECT id, user_id, source, author_id, text, lang, country, created_at,
		sentiment_label, sentiment_score, influence FROM comments`
	var args []any
	if filter.UserID != "" {
		query += " WHERE user_id = ?"
		args = append(args, filter.UserID)
	}
	query += " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read comments: %w", err)
	}

	names, err := s.authorNames(ctx)
	if err != nil {
		return nil, err
	}

	return ApplyFilter(comments, names, filter), nil
}

func (s *SQLiteStore) CreateComment(ctx context.Context, comment models.Comment) (models.Comment, error) {
	now := s.clock.Now()
	comment.ID = uuid.NewString()
	comment.CreatedAt = &now

	if err := s.insertComment(ctx, s.db, comment); err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}

func (s *SQLiteStore) ListAuthors(ctx context.Context) ([]models.Author, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, handle, followers, avatar_url, platform FROM authors ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query authors: %w", err)
	}
	defer rows.Close()

	authors := []models.Author{}
	for rows.Next() {
		var (
			author    models.Author
			handle    sql.NullString
			followers sql.NullInt64
			avatarURL sql.NullString
			platform  sql.NullString
		)
		if err := rows.Scan(&author.ID, &author.Name, &handle, &followers, &avatarURL, &platform); err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}
		author.Handle = handle.String
		author.AvatarURL = avatarURL.String
		author.Platform = platform.String
		if followers.Valid {
			n := int(followers.Int64)
			author.Followers = &n
		}
		authors = append(authors, author)
	}
	return authors, rows.Err()
}

func (s *SQLiteStore) CreateAuthor(ctx context.Context, author models.Author) (models.Author, error) {
	if author.Name == "" {
		return models.Author{}, fmt.Errorf("author name is required")
	}
	author.ID = uuid.NewString()

	if err := s.insertAuthor(ctx, s.db, author); err != nil {
		return models.Author{}, err
	}
	return author, nil
}

func (s *SQLiteStore) GetConfig(ctx context.Context, userID string) (*models.Config, error) {
	return s.getConfig(ctx, s.db, userID)
}

func (s *SQLiteStore) getConfig(ctx context.Context, db rowQueryer, userID string) (*models.Config, error) {
	var (
		cfg   models.Config
		token sql.NullString
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, user_id, huggingface_token, demo_mode, sentiment_threshold
		FROM configs WHERE user_id = ?`, userID).
		Scan(&cfg.ID, &cfg.UserID, &token, &cfg.DemoMode, &cfg.SentimentThreshold)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config for %s: %w", userID, err)
	}
	if token.Valid {
		cfg.HuggingfaceToken = &token.String
	}
	return &cfg, nil
}

func (s *SQLiteStore) UpdateConfig(ctx context.Context, userID string, update models.ConfigUpdate) (models.Config, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Config{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := s.getConfig(ctx, tx, userID)
	if err != nil {
		return models.Config{}, err
	}

	merged := mergeConfig(existing, userID, update, uuid.NewString)
	if err := s.upsertConfig(ctx, tx, merged); err != nil {
		return models.Config{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Config{}, fmt.Errorf("failed to commit config: %w", err)
	}
	return merged, nil
}

func (s *SQLiteStore) Import(ctx context.Context, state State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, author := range state.Authors {
		if err := s.insertAuthor(ctx, tx, author); err != nil {
			return err
		}
	}
	for _, comment := range state.Comments {
		if err := s.insertComment(ctx, tx, comment); err != nil {
			return err
		}
	}
	for _, cfg := range state.Configs {
		if err := s.upsertConfig(ctx, tx, cfg); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Export(ctx context.Context) (State, error) {
	var state State
	var err error

	if state.Authors, err = s.ListAuthors(ctx); err != nil {
		return State{}, err
	}
	if state.Comments, err = s.ListComments(ctx, CommentFilter{}); err != nil {
		return State{}, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM configs ORDER BY rowid`)
	if err != nil {
		return State{}, fmt.Errorf("failed to query configs: %w", err)
	}
	var userIDs []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			rows.Close()
			return State{}, fmt.Errorf("failed to scan config: %w", err)
		}
		userIDs = append(userIDs, userID)
	}
	rows.Close()

	for _, userID := range userIDs {
		cfg, err := s.GetConfig(ctx, userID)
		if err != nil {
			return State{}, err
		}
		if cfg != nil {
			state.Configs = append(state.Configs, *cfg)
		}
	}

	return state, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) insertComment(ctx context.Context, db execer, c models.Comment) error {
	var createdAt sql.NullInt64
	if c.CreatedAt != nil {
		createdAt = sql.NullInt64{Int64: c.CreatedAt.UnixNano(), Valid: true}
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO comments (id, user_id, source, author_id, text, lang, country,
			created_at, sentiment_label, sentiment_score, influence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, c.ID, nullString(c.UserID), string(c.Source), nullString(c.AuthorID), c.Text, c.Lang, c.Country,
		createdAt, string(c.SentimentLabel), c.SentimentScore, c.Influence)
	if err != nil {
		return fmt.Errorf("failed to insert comment %s: %w", c.ID, err)
	}
	return nil
}

func (s *SQLiteStore) insertAuthor(ctx context.Context, db execer, a models.Author) error {
	var followers sql.NullInt64
	if a.Followers != nil {
		followers = sql.NullInt64{Int64: int64(*a.Followers), Valid: true}
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO authors (id, name, handle, followers, avatar_url, platform)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			handle = excluded.handle,
			followers = excluded.followers,
			avatar_url = excluded.avatar_url,
			platform = excluded.platform
	`, a.ID, a.Name, nullString(a.Handle), followers, nullString(a.AvatarURL), nullString(a.Platform))
	if err != nil {
		return fmt.Errorf("failed to insert author %s: %w", a.ID, err)
	}
	return nil
}

func (s *SQLiteStore) upsertConfig(ctx context.Context, db execer, cfg models.Config) error {
	var token sql.NullString
	if cfg.HuggingfaceToken != nil {
		token = sql.NullString{String: *cfg.HuggingfaceToken, Valid: true}
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO configs (id, user_id, huggingface_token, demo_mode, sentiment_threshold)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			huggingface_token = excluded.huggingface_token,
			demo_mode = excluded.demo_mode,
			sentiment_threshold = excluded.sentiment_threshold
	`, cfg.ID, cfg.UserID, token, cfg.DemoMode, cfg.SentimentThreshold)
	if err != nil {
		return fmt.Errorf("failed to save config for %s: %w", cfg.UserID, err)
	}
	return nil
}

func (s *SQLiteStore) authorNames(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM authors`)
	if err != nil {
		return nil, fmt.Errorf("failed to query author names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan author name: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}

func scanComment(rows *sql.Rows) (models.Comment, error) {
	var (
		c         models.Comment
		userID    sql.NullString
		authorID  sql.NullString
		createdAt sql.NullInt64
		source    string
		label     string
	)
	err := rows.Scan(&c.ID, &userID, &source, &authorID, &c.Text, &c.Lang, &c.Country,
		&createdAt, &label, &c.SentimentScore, &c.Influence)
	if err != nil {
		return models.Comment{}, fmt.Errorf("failed to scan comment: %w", err)
	}

	c.UserID = userID.String
	c.AuthorID = authorID.String
	c.Source = models.Source(source)
	c.SentimentLabel = models.SentimentLabel(label)
	if createdAt.Valid {
		ts := time.Unix(0, createdAt.Int64)
		c.CreatedAt = &ts
	}
	return c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
