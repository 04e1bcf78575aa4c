package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestFromLookupDefaults(t *testing.T) {
	cfg, err := fromLookup(env(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ReferenceUUID, cfg.ReferenceKind)
	assert.Equal(t, 8, cfg.BatchConcurrency)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.Redis.URL)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
	assert.Nil(t, cfg.Policy.MobileDiscountRate)
	assert.Nil(t, cfg.Policy.VelocityThreshold)
	assert.Nil(t, cfg.Policy.StaleAfter)
}

func TestFromLookupOverrides(t *testing.T) {
	cfg, err := fromLookup(env(map[string]string{
		"TXGUARD_ADDR":                  ":9090",
		"LOG_LEVEL":                     "DEBUG",
		"REFERENCE_GENERATOR":           "redis",
		"REDIS_URL":                     "redis://localhost:6379/0",
		"REDIS_POOL_SIZE":               "20",
		"POLICY_MOBILE_DISCOUNT_RATE":   "0.002",
		"POLICY_NETWORK_FEE":            " 0.75 ",
		"POLICY_FREQUENT_TRAVEL_FACTOR": "0.8",
		"POLICY_VELOCITY_THRESHOLD":     "0",
		"POLICY_STALE_AFTER":            "48h",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ReferenceRedis, cfg.ReferenceKind)
	assert.Equal(t, 20, cfg.Redis.PoolSize)
	require.NotNil(t, cfg.Policy.MobileDiscountRate)
	assert.Equal(t, "0.002", cfg.Policy.MobileDiscountRate.String())
	require.NotNil(t, cfg.Policy.NetworkFee)
	assert.Equal(t, "0.75", cfg.Policy.NetworkFee.String())
	require.NotNil(t, cfg.Policy.FrequentTravelFactor)
	assert.Equal(t, "0.8", cfg.Policy.FrequentTravelFactor.String())
	require.NotNil(t, cfg.Policy.VelocityThreshold)
	assert.Equal(t, 0, *cfg.Policy.VelocityThreshold)
	require.NotNil(t, cfg.Policy.StaleAfter)
	assert.Equal(t, 48*time.Hour, *cfg.Policy.StaleAfter)
	assert.Nil(t, cfg.Policy.FXFeeRate)
}

func TestFromLookupErrors(t *testing.T) {
	tests := []struct {
		name   string
		vars   map[string]string
		errMsg string
	}{
		{name: "malformed decimal", vars: map[string]string{"POLICY_FX_FEE_RATE": "five"}, errMsg: "POLICY_FX_FEE_RATE"},
		{name: "malformed duration", vars: map[string]string{"POLICY_FUTURE_SKEW": "5"}, errMsg: "POLICY_FUTURE_SKEW"},
		{name: "malformed integer", vars: map[string]string{"REDIS_POOL_SIZE": "ten"}, errMsg: "REDIS_POOL_SIZE"},
		{name: "unknown log level", vars: map[string]string{"LOG_LEVEL": "verbose"}, errMsg: "LOG_LEVEL"},
		{name: "unknown generator", vars: map[string]string{"REFERENCE_GENERATOR": "snowflake"}, errMsg: "REFERENCE_GENERATOR"},
		{name: "redis generator without url", vars: map[string]string{"REFERENCE_GENERATOR": "redis"}, errMsg: "requires REDIS_URL"},
		{name: "zero batch concurrency", vars: map[string]string{"BATCH_CONCURRENCY": "0"}, errMsg: "BATCH_CONCURRENCY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fromLookup(env(tt.vars))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
