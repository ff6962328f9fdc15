package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/gigs")
	t.Setenv("JWT_SECRET", "secret")

	cfg := Load()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, 10080, cfg.JWTExpiresMin)
	assert.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, 2, cfg.Profile.MinSkills)
	assert.False(t, cfg.CookieSecure)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/gigs")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PROFILE_MIN_SKILLS", "0")
	t.Setenv("DB_CONN_MAX_LIFETIME", "90s")
	t.Setenv("STORAGE_DRIVER", "S3")
	t.Setenv("S3_BUCKET", "gig-media")
	t.Setenv("COOKIE_SECURE", "true")

	cfg := Load()

	assert.Equal(t, 0, cfg.Profile.MinSkills)
	assert.Equal(t, 90*time.Second, cfg.DBConnMaxLifetime)
	assert.Equal(t, "s3", cfg.Storage.Driver)
	assert.True(t, cfg.CookieSecure)
	assert.NoError(t, cfg.Validate())
}

func TestLoadPanicsWithoutSecret(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/gigs")
	t.Setenv("JWT_SECRET", "")
	assert.Panics(t, func() { Load() })
}

func TestValidate(t *testing.T) {
	base := Config{
		JWTExpiresMin:  60,
		DBMaxOpenConns: 10,
		DBMaxIdleConns: 2,
		Storage:        StorageConfig{Driver: "local"},
	}
	assert.NoError(t, base.Validate())

	bad := base
	bad.Storage = StorageConfig{Driver: "s3"}
	assert.ErrorContains(t, bad.Validate(), "S3_BUCKET")

	bad = base
	bad.DBMaxIdleConns = 20
	assert.ErrorContains(t, bad.Validate(), "DB_MAX_IDLE_CONNS")

	bad = base
	bad.Profile.MinBio = -1
	assert.ErrorContains(t, bad.Validate(), "PROFILE_MIN")
}
