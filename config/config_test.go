package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/dharmic?sslmode=disable")
	t.Setenv("JWT_SECRET_KEY", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("MATCH_AUTOSTART", "")
	t.Setenv("SCHEDULER_INTERVAL", "")
	t.Setenv("R2_ACCOUNT_ID", "")
	t.Setenv("SMTP_HOST", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.MatchAutostart)
	assert.Equal(t, 30*time.Second, cfg.SchedulerInterval)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.False(t, cfg.R2Enabled())
	assert.False(t, cfg.SMTPEnabled())
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://games.nhsf.org.uk, http://localhost:3000,")
	t.Setenv("MATCH_AUTOSTART", "yes")
	t.Setenv("SCHEDULER_INTERVAL", "1m")
	t.Setenv("JWT_TTL", "bogus")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, []string{"https://games.nhsf.org.uk", "http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.MatchAutostart)
	assert.Equal(t, time.Minute, cfg.SchedulerInterval)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
}

func TestLoadRequiresDatabaseAndSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET_KEY", "secret")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("JWT_SECRET_KEY", "")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadPort(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "70000")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SERVER_PORT", "http")
	_, err = Load()
	assert.Error(t, err)
}

func TestR2Enabled(t *testing.T) {
	cfg := &Config{R2AccountID: "a", R2AccessKeyID: "b", R2SecretAccessKey: "c", R2BucketName: "d"}
	assert.False(t, cfg.R2Enabled())
	cfg.R2PublicBaseURL = "https://cdn.example.com"
	assert.True(t, cfg.R2Enabled())
}
