package container

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinetrivia/internal/config"
	"cinetrivia/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:              "8080",
		AllowedOrigins:    []string{"http://localhost:3000"},
		LogLevel:          "error",
		Environment:       "test",
		JWTSecret:         "test-secret",
		AdminPasswordHash: "$2a$04$notarealhashnotarealhashnotarealhash",
		ScoringTable:      "arena",
	}
}

func TestNew_WithoutExternalDependencies(t *testing.T) {
	log, err := logger.New("error", "test")
	require.NoError(t, err)

	c, err := New(context.Background(), testConfig(), log)
	require.NoError(t, err)
	defer c.Close()

	assert.False(t, c.HasRedis())
	assert.False(t, c.HasDatabase())
	require.NotNil(t, c.Repositories)
	require.NotNil(t, c.Services)
	assert.NotNil(t, c.Services.Games)
	assert.NotNil(t, c.Services.Questions)
	assert.NotNil(t, c.Services.Leaderboard)
	assert.NotNil(t, c.Services.Auth)
	assert.NotNil(t, c.Hub)
	assert.NotNil(t, c.Gateway)
}

func TestNew_WithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	log, err := logger.New("error", "test")
	require.NoError(t, err)

	cfg := testConfig()
	cfg.RedisURL = fmt.Sprintf("redis://%s", mr.Addr())

	c, err := New(context.Background(), cfg, log)
	require.NoError(t, err)
	defer c.Close()

	assert.True(t, c.HasRedis())
}

func TestNew_InvalidScoringTable(t *testing.T) {
	log, err := logger.New("error", "test")
	require.NoError(t, err)

	cfg := testConfig()
	cfg.ScoringTable = "bogus"

	_, err = New(context.Background(), cfg, log)
	assert.Error(t, err)
}
