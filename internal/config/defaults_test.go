package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultServerMode, cfg.Server.Mode)
	assert.Equal(t, DefaultDBHost, cfg.Database.Host)
	assert.Equal(t, DefaultRedisKeyPrefix, cfg.Redis.KeyPrefix)
	assert.Equal(t, []string{DefaultKafkaBroker}, cfg.Kafka.Brokers)
	assert.Equal(t, DefaultWorkerConcurrency, cfg.Worker.Concurrency)
	assert.Equal(t, DefaultMaxContractChars, cfg.Intelligence.MaxContractChars)
	assert.Equal(t, DefaultExtractionMaxTokens, cfg.Intelligence.ExtractionMaxTokens)
	assert.Equal(t, int64(DefaultClaimsValueCents), cfg.Compliance.ClaimsValuePerNoticeCents)
	assert.Equal(t, DefaultRateLimitPerHour, cfg.Compliance.RateLimitPerHour)
	assert.Equal(t, DefaultSearchRateLimitPerMin, cfg.Compliance.SearchRateLimitPerMinute)
	assert.Equal(t, DefaultDeadlineTimezone, cfg.Compliance.DefaultTimezone)
	assert.Equal(t, DefaultEmailFrom, cfg.Email.FromAddress)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Compliance.ClaimsValuePerNoticeCents = 2_500_000
	cfg.Redis.KeyPrefix = "custom:"
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, int64(2_500_000), cfg.Compliance.ClaimsValuePerNoticeCents)
	assert.Equal(t, "custom:", cfg.Redis.KeyPrefix)
}

func TestApplyDefaults_NilConfigIsSafe(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}
