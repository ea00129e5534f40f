package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_USER", "quiz")
	t.Setenv("PG_PASSWORD", "pw")
	t.Setenv("PG_DATABASE", "quizforge")
	t.Setenv("REDIS_ADDR", "redis:6379")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "quizforge", cfg.Name)
	assert.Equal(t, "postgres://quiz:pw@db:5432/quizforge?sslmode=disable", cfg.Postgres.DSN())
	assert.Equal(t, 30*time.Minute, cfg.Generation.CacheTTL)
	assert.Equal(t, 30, cfg.Session.GuestSeconds)
	assert.Equal(t, 45, cfg.Session.AuthenticatedSeconds)
	assert.Equal(t, 60, cfg.Session.ScheduledSeconds)
	assert.Equal(t, time.Second, cfg.Session.TickInterval)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
	assert.Empty(t, cfg.Security.JWTSecret)
}

func TestLoadLists(t *testing.T) {
	setRequired(t)
	t.Setenv("GENERATION_WARM_TOPICS", "ray optics; organic chemistry")
	t.Setenv("GENERATION_DENYLIST", "foo,bar")

	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ray optics", " organic chemistry"}, cfg.Generation.WarmTopics)
	assert.Equal(t, []string{"foo", "bar"}, cfg.Generation.Denylist)
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("PG_HOST", "")
	_, err := Load(context.Background())
	assert.Error(t, err)
}

func TestLoadGenerationNeedsNoDatabase(t *testing.T) {
	t.Setenv("PG_HOST", "")
	t.Setenv("AI_MODEL", "local-model")

	gen, ai, err := LoadGeneration()
	require.NoError(t, err)
	assert.Equal(t, "local-model", ai.Model)
	assert.Equal(t, 10, gen.WarmCount)
}
