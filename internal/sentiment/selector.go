package sentiment

import (
	"context"
	"sync"
	"time"

	"github.com/pulseboard/sentiment-monitor/internal/models"
	"github.com/sirupsen/logrus"
)

// Mode names the classifier chosen for a request
type Mode string

const (
	ModeHeuristic Mode = "heuristic"
	ModeRemote    Mode = "remote"
)

// ConfigSource looks up stored per-user settings
type ConfigSource interface {
	GetConfig(ctx context.Context, userID string) (*models.Config, error)
}

// SelectorOptions carries the process-wide sentiment settings
type SelectorOptions struct {
	Token         string // overrides any stored token
	DemoMode      bool   // forces the heuristic for everyone
	ModelURL      string
	Timeout       time.Duration
	OnRemoteError func(err error)
}

// Selector picks the heuristic or the remote model per user
type Selector struct {
	opts      SelectorOptions
	configs   ConfigSource
	heuristic Classifier

	mu      sync.Mutex
	remotes map[string]*HuggingFace
}

func NewSelector(opts SelectorOptions, configs ConfigSource, heuristic Classifier) *Selector {
	return &Selector{
		opts:      opts,
		configs:   configs,
		heuristic: heuristic,
		remotes:   make(map[string]*HuggingFace),
	}
}

// Select resolves the classifier for userID. Env settings win over stored ones.
func (s *Selector) Select(ctx context.Context, userID string) (Classifier, Mode) {
	token := s.opts.Token
	demo := s.opts.DemoMode

	if s.configs != nil {
		stored, err := s.configs.GetConfig(ctx, userID)
		if err != nil {
			logrus.Warnf("Failed to load config for user %s: %v", userID, err)
		} else if stored != nil {
			if token == "" && stored.HuggingfaceToken != nil {
				token = *stored.HuggingfaceToken
			}
			demo = demo || stored.DemoMode == "true"
		}
	}

	if demo || token == "" {
		return s.heuristic, ModeHeuristic
	}
	return s.remote(token), ModeRemote
}

func (s *Selector) remote(token string) *HuggingFace {
	s.mu.Lock()
	defer s.mu.Unlock()

	if client, ok := s.remotes[token]; ok {
		return client
	}
	client := NewHuggingFace(s.opts.ModelURL, token, s.opts.Timeout)
	client.OnError(s.opts.OnRemoteError)
	s.remotes[token] = client
	return client
}
