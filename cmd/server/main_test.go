package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txguard/internal/evaluation"
	evalmetrics "txguard/internal/evaluation/metrics"
	"txguard/internal/evaluation/reference"
	"txguard/internal/platform/config"
)

func TestBuildPolicy(t *testing.T) {
	t.Run("no overrides keeps defaults", func(t *testing.T) {
		p, err := buildPolicy(config.PolicyOverrides{})
		require.NoError(t, err)
		assert.Equal(t, evaluation.DefaultPolicy(), p)
	})

	t.Run("overrides applied", func(t *testing.T) {
		fee := decimal.RequireFromString("0.75")
		travel := decimal.RequireFromString("0.8")
		velocity := 0
		stale := 48 * time.Hour
		p, err := buildPolicy(config.PolicyOverrides{
			NetworkFee:           &fee,
			FrequentTravelFactor: &travel,
			VelocityThreshold:    &velocity,
			StaleAfter:           &stale,
		})
		require.NoError(t, err)
		assert.True(t, fee.Equal(p.NetworkFee))
		assert.True(t, travel.Equal(p.FrequentTravelFactor))
		assert.Equal(t, 0, p.VelocityThreshold)
		assert.Equal(t, stale, p.StaleAfter)
	})

	t.Run("invalid override rejected", func(t *testing.T) {
		rate := decimal.RequireFromString("1.5")
		_, err := buildPolicy(config.PolicyOverrides{MobileDiscountRate: &rate})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mobile discount rate")
	})

	t.Run("travel factor above one rejected", func(t *testing.T) {
		travel := decimal.RequireFromString("1.1")
		_, err := buildPolicy(config.PolicyOverrides{FrequentTravelFactor: &travel})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "frequent travel factor")
	})
}

func TestBuildReferenceGenerator(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := evalmetrics.New(prometheus.NewRegistry())

	t.Run("uuid by default", func(t *testing.T) {
		refs, client, err := buildReferenceGenerator(context.Background(), config.Config{ReferenceKind: config.ReferenceUUID}, log, m)
		require.NoError(t, err)
		assert.Nil(t, client)
		assert.IsType(t, reference.UUID{}, refs)
	})

	t.Run("unreachable redis degrades to uuid", func(t *testing.T) {
		cfg := config.Config{
			ReferenceKind: config.ReferenceRedis,
			Redis:         config.RedisConfig{URL: "redis://127.0.0.1:1/0", DialTimeout: 100 * time.Millisecond},
		}
		refs, client, err := buildReferenceGenerator(context.Background(), cfg, log, m)
		require.NoError(t, err)
		assert.Nil(t, client)
		assert.IsType(t, reference.UUID{}, refs)
	})

	t.Run("malformed redis url fails", func(t *testing.T) {
		cfg := config.Config{ReferenceKind: config.ReferenceRedis, Redis: config.RedisConfig{URL: "::bad"}}
		_, _, err := buildReferenceGenerator(context.Background(), cfg, log, m)
		require.Error(t, err)
	})
}
