// ABOUTME: Tests for environment-variable configuration loading and defaults.
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.True(t, cfg.IsDevelopment())
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.GeminiAPIKey)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
	assert.Equal(t, 8*time.Second, cfg.IntelInlineTimeout)
	assert.Equal(t, 4*time.Hour, cfg.IntelRefreshInterval)
	assert.Equal(t, 10*time.Second, cfg.DispatchTimeout)
	assert.Equal(t, "alerts@sableridge.io", cfg.SMTPFrom)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("INTEL_INLINE_TIMEOUT", "3s")
	t.Setenv("SMTP_TLS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 3*time.Second, cfg.IntelInlineTimeout)
	assert.True(t, cfg.SMTPTLS)
}

func TestNotifyRecipients(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{"soc@sableridge.io", []string{"soc@sableridge.io"}},
		{"a@x.io, b@x.io ,, c@x.io", []string{"a@x.io", "b@x.io", "c@x.io"}},
	}
	for _, tt := range tests {
		cfg := &Config{IncidentNotifyEmails: tt.raw}
		assert.Equal(t, tt.want, cfg.NotifyRecipients(), "input %q", tt.raw)
	}
}
