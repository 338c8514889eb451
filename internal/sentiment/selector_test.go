package sentiment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pulseboard/sentiment-monitor/internal/models"
	"github.com/stretchr/testify/assert"
)

type stubConfigs struct {
	config *models.Config
	err    error
}

func (s stubConfigs) GetConfig(_ context.Context, _ string) (*models.Config, error) {
	return s.config, s.err
}

func TestSelector_Select(t *testing.T) {
	token := "hf_stored"

	tests := []struct {
		name     string
		opts     SelectorOptions
		configs  ConfigSource
		expected Mode
	}{
		{
			name:     "No token anywhere",
			opts:     SelectorOptions{},
			configs:  stubConfigs{},
			expected: ModeHeuristic,
		},
		{
			name:     "Env token",
			opts:     SelectorOptions{Token: "hf_env"},
			configs:  stubConfigs{},
			expected: ModeRemote,
		},
		{
			name:     "Env demo mode overrides token",
			opts:     SelectorOptions{Token: "hf_env", DemoMode: true},
			configs:  stubConfigs{},
			expected: ModeHeuristic,
		},
		{
			name:     "Stored token with demo off",
			opts:     SelectorOptions{},
			configs:  stubConfigs{config: &models.Config{HuggingfaceToken: &token, DemoMode: "false"}},
			expected: ModeRemote,
		},
		{
			name:     "Stored demo mode",
			opts:     SelectorOptions{Token: "hf_env"},
			configs:  stubConfigs{config: &models.Config{DemoMode: "true"}},
			expected: ModeHeuristic,
		},
		{
			name:     "Config lookup error ignored",
			opts:     SelectorOptions{Token: "hf_env"},
			configs:  stubConfigs{err: errors.New("boom")},
			expected: ModeRemote,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selector := NewSelector(tt.opts, tt.configs, NewHeuristic(fixedRand(0)))
			classifier, mode := selector.Select(context.Background(), "user-1")
			assert.Equal(t, tt.expected, mode)
			assert.NotNil(t, classifier)
		})
	}
}

func TestSelector_ReusesRemoteClient(t *testing.T) {
	selector := NewSelector(SelectorOptions{Token: "hf_env", Timeout: time.Second}, nil, NewHeuristic(nil))

	first, _ := selector.Select(context.Background(), "a")
	second, _ := selector.Select(context.Background(), "b")
	assert.Same(t, first, second)
}
