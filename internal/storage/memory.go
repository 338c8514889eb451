package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pulseboard/sentiment-monitor/internal/models"
	"github.com/sirupsen/logrus"
)

// StateBlobName is the blob the memory store mirrors its state into
const StateBlobName = "storage.json"

// MemoryStore keeps everything in process memory behind a single lock.
// When a BlobStore is attached, every write schedules a background state dump;
// dump failures are logged and never affect the in-memory state.
type MemoryStore struct {
	clock clockwork.Clock

	mu          sync.RWMutex
	comments    map[string]models.Comment
	order       []string
	authors     map[string]models.Author
	authorOrder []string
	configs     map[string]models.Config // keyed by user ID

	persist *persister
}

var _ Repository = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store. blobs may be nil.
func NewMemoryStore(clock clockwork.Clock, blobs BlobStore) *MemoryStore {
	s := &MemoryStore{
		clock:    clock,
		comments: make(map[string]models.Comment),
		authors:  make(map[string]models.Author),
		configs:  make(map[string]models.Config),
	}

	if blobs != nil {
		s.persist = newPersister(blobs, StateBlobName, s.marshalState)
	}

	return s
}

// Restore loads the last persisted state. It reports false when none exists.
func (s *MemoryStore) Restore(ctx context.Context) (bool, error) {
	if s.persist == nil {
		return false, nil
	}

	data, err := s.persist.blobs.Retrieve(ctx, StateBlobName)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to retrieve state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return false, fmt.Errorf("failed to decode state: %w", err)
	}

	s.load(state)
	return true, nil
}

func (s *MemoryStore) ListComments(_ context.Context, filter CommentFilter) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comments := make([]models.Comment, 0, len(s.order))
	for _, id := range s.order {
		comments = append(comments, s.comments[id])
	}

	names := make(map[string]string, len(s.authors))
	for id, author := range s.authors {
		names[id] = author.Name
	}

	return ApplyFilter(comments, names, filter), nil
}

func (s *MemoryStore) CreateComment(_ context.Context, comment models.Comment) (models.Comment, error) {
	now := s.clock.Now()
	comment.ID = uuid.NewString()
	comment.CreatedAt = &now

	s.mu.Lock()
	s.comments[comment.ID] = comment
	s.order = append(s.order, comment.ID)
	s.mu.Unlock()

	s.changed()
	return comment, nil
}

func (s *MemoryStore) ListAuthors(_ context.Context) ([]models.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	authors := make([]models.Author, 0, len(s.authorOrder))
	for _, id := range s.authorOrder {
		authors = append(authors, s.authors[id])
	}
	return authors, nil
}

func (s *MemoryStore) CreateAuthor(_ context.Context, author models.Author) (models.Author, error) {
	if author.Name == "" {
		return models.Author{}, fmt.Errorf("author name is required")
	}
	author.ID = uuid.NewString()

	s.mu.Lock()
	s.authors[author.ID] = author
	s.authorOrder = append(s.authorOrder, author.ID)
	s.mu.Unlock()

	s.changed()
	return author, nil
}

func (s *MemoryStore) GetConfig(_ context.Context, userID string) (*models.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.configs[userID]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

func (s *MemoryStore) UpdateConfig(_ context.Context, userID string, update models.ConfigUpdate) (models.Config, error) {
	s.mu.Lock()
	var existing *models.Config
	if cfg, ok := s.configs[userID]; ok {
		existing = &cfg
	}
	merged := mergeConfig(existing, userID, update, uuid.NewString)
	s.configs[userID] = merged
	s.mu.Unlock()

	s.changed()
	return merged, nil
}

func (s *MemoryStore) Import(_ context.Context, state State) error {
	s.load(state)
	s.changed()
	return nil
}

func (s *MemoryStore) Export(_ context.Context) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(), nil
}

// Close stops the background writer after a final flush
func (s *MemoryStore) Close() error {
	if s.persist != nil {
		s.persist.close()
	}
	return nil
}

func (s *MemoryStore) load(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, author := range state.Authors {
		if _, exists := s.authors[author.ID]; !exists {
			s.authorOrder = append(s.authorOrder, author.ID)
		}
		s.authors[author.ID] = author
	}
	for _, comment := range state.Comments {
		if _, exists := s.comments[comment.ID]; !exists {
			s.order = append(s.order, comment.ID)
		}
		s.comments[comment.ID] = comment
	}
	for _, cfg := range state.Configs {
		s.configs[cfg.UserID] = cfg
	}
}

func (s *MemoryStore) snapshotLocked() State {
	state := State{
		Authors:  make([]models.Author, 0, len(s.authorOrder)),
		Comments: make([]models.Comment, 0, len(s.order)),
		Configs:  make([]models.Config, 0, len(s.configs)),
	}
	for _, id := range s.authorOrder {
		state.Authors = append(state.Authors, s.authors[id])
	}
	for _, id := range s.order {
		state.Comments = append(state.Comments, s.comments[id])
	}
	for _, cfg := range s.configs {
		state.Configs = append(state.Configs, cfg)
	}
	return state
}

func (s *MemoryStore) marshalState() ([]byte, error) {
	s.mu.RLock()
	state := s.snapshotLocked()
	s.mu.RUnlock()
	return json.MarshalIndent(state, "", "  ")
}

func (s *MemoryStore) changed() {
	if s.persist != nil {
		s.persist.notify()
	}
}

// persister coalesces change notifications into sequential blob writes
type persister struct {
	blobs  BlobStore
	name   string
	encode func() ([]byte, error)

	mu     sync.Mutex
	closed bool
	signal chan struct{}
	done   chan struct{}
}

func newPersister(blobs BlobStore, name string, encode func() ([]byte, error)) *persister {
	p := &persister{
		blobs:  blobs,
		name:   name,
		encode: encode,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *persister) notify() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	select {
	case p.signal <- struct{}{}:
	default:
	}
}

func (p *persister) run() {
	defer close(p.done)
	for range p.signal {
		p.flush()
	}
}

func (p *persister) flush() {
	data, err := p.encode()
	if err != nil {
		logrus.Errorf("Failed to encode state: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := p.blobs.Store(ctx, p.name, data); err != nil {
		logrus.Errorf("Failed to persist state to %s: %v", p.name, err)
	}
}

func (p *persister) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.signal)
	p.mu.Unlock()

	<-p.done
}
