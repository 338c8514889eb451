package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, "weekly", cfg.ReportSchedule)
	assert.Equal(t, "default", cfg.DefaultUserID)
	assert.Equal(t, 10*time.Second, cfg.SentimentTimeout)
	assert.Equal(t, 0.3, cfg.AlertNegativeRatio)
	assert.Empty(t, cfg.APITokens)
	assert.False(t, cfg.NotificationsEnabled())
	assert.False(t, cfg.CollectionEnabled())
	assert.Equal(t, 24*time.Hour, cfg.CollectionLookback)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("DEMO_MODE", "true")
	t.Setenv("SENTIMENT_TIMEOUT", "3s")
	t.Setenv("API_TOKENS", "abc=user-1, def=user-2,broken")
	t.Setenv("REPORT_USERS", "user-1, user-2")
	t.Setenv("TEAMS_WEBHOOK_URL", "https://example.com/hook")
	t.Setenv("KEYWORDS", "acme, acme widgets")
	t.Setenv("COLLECTION_LOOKBACK", "6h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.True(t, cfg.DemoMode)
	assert.Equal(t, 3*time.Second, cfg.SentimentTimeout)
	assert.Equal(t, map[string]string{"abc": "user-1", "def": "user-2"}, cfg.APITokens)
	assert.Equal(t, []string{"user-1", "user-2"}, cfg.ReportUsers)
	assert.True(t, cfg.NotificationsEnabled())
	assert.True(t, cfg.CollectionEnabled())
	assert.Equal(t, []string{"acme", "acme widgets"}, cfg.Keywords)
	assert.Equal(t, 6*time.Hour, cfg.CollectionLookback)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "Invalid schedule",
			env:  map[string]string{"REPORT_SCHEDULE": "hourly"},
		},
		{
			name: "Invalid backend",
			env:  map[string]string{"STORE_BACKEND": "postgres"},
		},
		{
			name: "Email without SMTP",
			env:  map[string]string{"NOTIFICATION_EMAIL": "owner@example.com"},
		},
		{
			name: "Alert ratio out of range",
			env:  map[string]string{"ALERT_NEGATIVE_RATIO": "1.5"},
		},
		{
			name: "Unknown time zone",
			env:  map[string]string{"TIMEZONE": "Mars/Olympus"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
