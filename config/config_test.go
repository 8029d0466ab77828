package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOARD_DATA_DIR", "/tmp/board")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "local", cfg.Backend)
	assert.Equal(t, "file", cfg.KVDriver)
	assert.Equal(t, "/tmp/board/session", cfg.SessionDir)
	assert.Equal(t, "none", cfg.Broker)
	assert.Equal(t, "argon2id", cfg.Hasher)
	assert.Equal(t, 500*time.Millisecond, cfg.AutosaveDelay)
	assert.Equal(t, devTokenSecret, cfg.TokenSecret)
	assert.Empty(t, cfg.OtelEndpoint)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BOARD_BACKEND", "remote")
	t.Setenv("BOARD_API_URL", "https://board.example.com")
	t.Setenv("BOARD_BROKER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("BOARD_AUTOSAVE_DELAY", "2s")
	t.Setenv("BCRYPT_COST", "not-a-number")
	t.Setenv("S3_USE_SSL", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "remote", cfg.Backend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2*time.Second, cfg.AutosaveDelay)
	assert.Equal(t, 12, cfg.BcryptCost, "invalid numbers fall back to the default")
	assert.True(t, cfg.S3UseSSL)
}

func TestLoadRejectsUnknownValues(t *testing.T) {
	t.Setenv("BOARD_KV", "mongo")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOARD_KV")
}

func TestProductionNeedsTokenSecret(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("BOARD_TOKEN_SECRET", "s3cr3t")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", cfg.TokenSecret)
}
