package main

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kluret.com/storefront/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:                 "0",
		HTTPTimeout:          time.Second,
		RetryAttempts:        1,
		CartPollInterval:     time.Second,
		WorkspaceIdleTimeout: time.Minute,
		SessionSecret:        "test-secret",
	}
}

func TestRun_invalidRedisURLReturnsError(t *testing.T) {
	cfg := testConfig()
	cfg.RedisURL = "mysql://nope"

	err := run(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorContains(t, err, "invalid REDIS_URL")
}

func TestRun_unreachableRedisReturnsError(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RedisURL = "redis://" + mr.Addr()
	mr.Close()

	err := run(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to connect to redis")
}
