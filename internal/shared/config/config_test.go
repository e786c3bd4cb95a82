package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, BackendPostgres, cfg.Store.CatalogBackend)
	assert.Equal(t, 600*time.Second, cfg.Admission.TokenTTL)
	assert.Equal(t, 300*time.Second, cfg.Admission.SeatLockTTL)
	assert.Equal(t, 10*time.Second, cfg.Admission.SchedulerInterval)
	assert.Equal(t, 100, cfg.Admission.BroadcastLimit)
	assert.False(t, cfg.Admission.SchedulerLeaderLock)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Contains(t, cfg.Database.DSN, "dbname=turnstile_db")
	assert.Equal(t, "/api", cfg.GetAPIBasePath())
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORE_BACKEND", "MEMORY")
	t.Setenv("CATALOG_BACKEND", "memory")
	t.Setenv("QUEUE_TOKEN_TTL", "120")
	t.Setenv("SCHEDULER_INTERVAL", "2s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("API_VERSION", "v1")
	t.Setenv("PAYMENT_SUCCESS_RATE", "0.5")

	cfg := Load()
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.False(t, cfg.UsesRedis())
	assert.False(t, cfg.UsesPostgres())
	assert.Equal(t, 120*time.Second, cfg.Admission.TokenTTL)
	assert.Equal(t, 2*time.Second, cfg.Admission.SchedulerInterval)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "/api/v1", cfg.GetAPIBasePath())
	assert.Equal(t, 0.5, cfg.Payment.SuccessRate)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown store", func(c *Config) { c.Store.Backend = "etcd" }},
		{"unknown catalog", func(c *Config) { c.Store.CatalogBackend = "mysql" }},
		{"zero token ttl", func(c *Config) { c.Admission.TokenTTL = 0 }},
		{"payment rate above one", func(c *Config) { c.Payment.SuccessRate = 1.5 }},
		{"leader lock without redis", func(c *Config) {
			c.Store.Backend = BackendMemory
			c.Admission.SchedulerLeaderLock = true
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
