package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, 24*time.Hour, cfg.VisitDedupWindow)
	assert.Equal(t, 1500*time.Millisecond, cfg.GeoTimeout)
	assert.Contains(t, cfg.WeakAttributionVals, "direct")
	assert.False(t, cfg.ClickHouseEnabled())
	assert.False(t, cfg.RedisEnabled())
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveWindows(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("EVENT_DEDUP_WINDOW", "0s")

	_, err := Load()
	assert.Error(t, err)
}
