package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "HTTP_ADDR", "EXPORT_MAX_ATTEMPTS", "ANALYTICS_NORMALIZE_CLOCK_SKEW", "ANALYTICS_CACHE_TTL", "OBJECT_STORE_ENDPOINT", "R2_S3_ENDPOINT", "R2_ACCOUNT_ID"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, ":8090", cfg.HTTPAddr)
	assert.Equal(t, 3, cfg.ExportMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.ExportDownloadURLTTL)
	assert.False(t, cfg.AnalyticsNormalizeClockSkew)
	assert.Zero(t, cfg.AnalyticsCacheTTL, "snapshots are rebuilt per request unless caching is configured")
	assert.False(t, cfg.ObjectStoreConfigured())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ANALYTICS_NORMALIZE_CLOCK_SKEW", "true")
	t.Setenv("ANALYTICS_CACHE_TTL", "90s")
	t.Setenv("EXPORT_MAX_ATTEMPTS", "-2")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("OBJECT_STORE_ENDPOINT", "")
	t.Setenv("R2_S3_ENDPOINT", "")
	t.Setenv("R2_ACCOUNT_ID", "acct")
	t.Setenv("WS_HEARTBEAT_INTERVAL", "not-a-duration")

	cfg := Load()
	assert.True(t, cfg.AnalyticsNormalizeClockSkew)
	assert.Equal(t, 90*time.Second, cfg.AnalyticsCacheTTL)
	assert.Equal(t, 3, cfg.ExportMaxAttempts)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CorsAllowedOrigins)
	assert.Equal(t, "https://acct.r2.cloudflarestorage.com", cfg.ObjectStoreEndpoint)
	assert.Equal(t, 30*time.Second, cfg.WSHeartbeatInterval)
}
