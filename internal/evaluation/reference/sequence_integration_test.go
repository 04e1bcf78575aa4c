//go:build integration

package reference

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txguard/pkg/testutil/containers"
)

func TestSequence_Redis(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	day := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
	g := NewSequence(rc.Client, WithSequenceClock(func() time.Time { return day }))

	t.Run("allocates consecutive numbers per day", func(t *testing.T) {
		assert.Equal(t, "TXN-20240101-00000001", g.Generate())
		assert.Equal(t, "TXN-20240101-00000002", g.Generate())
	})

	t.Run("counter carries a ttl", func(t *testing.T) {
		ttl, err := rc.Client.TTL(ctx, sequenceKeyPrefix+"20240101").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, 47*time.Hour)
	})

	t.Run("next day restarts at one", func(t *testing.T) {
		next := NewSequence(rc.Client, WithSequenceClock(func() time.Time { return day.Add(time.Minute) }))
		assert.Equal(t, "TXN-20240102-00000001", next.Generate())
	})

	t.Run("concurrent callers never share a number", func(t *testing.T) {
		const n = 50
		var (
			mu   sync.Mutex
			seen = make(map[string]struct{}, n)
			wg   sync.WaitGroup
		)
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ref := g.Generate()
				mu.Lock()
				seen[ref] = struct{}{}
				mu.Unlock()
			}()
		}
		wg.Wait()
		assert.Len(t, seen, n)
	})
}
