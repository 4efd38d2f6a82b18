package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedItem struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCacheHelper_SetGetDelete(t *testing.T) {
	_, client := newTestClient(t)
	helper := NewCacheHelper(client, "test:")
	ctx := context.Background()

	require.NoError(t, helper.Set(ctx, "a", cachedItem{Name: "a", Count: 2}, time.Minute))

	var got cachedItem
	require.NoError(t, helper.Get(ctx, "a", &got))
	assert.Equal(t, cachedItem{Name: "a", Count: 2}, got)

	require.NoError(t, helper.Delete(ctx, "a"))
	assert.ErrorIs(t, helper.Get(ctx, "a", &got), ErrCacheNotFound)
}

func TestCacheHelper_NilClientDegradesGracefully(t *testing.T) {
	helper := NewCacheHelper(nil, "test:")
	ctx := context.Background()

	assert.False(t, helper.Enabled())
	assert.NoError(t, helper.Set(ctx, "a", cachedItem{}, time.Minute))
	assert.ErrorIs(t, helper.Get(ctx, "a", &cachedItem{}), ErrCacheNotAvailable)
	assert.NoError(t, helper.InvalidatePattern(ctx, "*"))

	calls := 0
	var got cachedItem
	err := helper.CacheOrExecute(ctx, "a", &got, time.Minute, func() (interface{}, error) {
		calls++
		return cachedItem{Name: "fresh"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.Name)
	assert.Equal(t, 1, calls)
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	mr, client := newTestClient(t)
	helper := NewCacheHelper(client, "test:")
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return cachedItem{Name: "fetched", Count: calls}, nil
	}

	var first cachedItem
	require.NoError(t, helper.CacheOrExecute(ctx, "k", &first, time.Minute, fetch))
	assert.Equal(t, 1, first.Count)

	assert.Eventually(t, func() bool { return mr.Exists("test:k") }, time.Second, 10*time.Millisecond)

	var second cachedItem
	require.NoError(t, helper.CacheOrExecute(ctx, "k", &second, time.Minute, fetch))
	assert.Equal(t, 1, second.Count)
	assert.Equal(t, 1, calls)
}

func TestCacheHelper_CacheOrExecutePropagatesFetchError(t *testing.T) {
	_, client := newTestClient(t)
	helper := NewCacheHelper(client, "test:")
	boom := errors.New("boom")

	err := helper.CacheOrExecute(context.Background(), "k", &cachedItem{}, time.Minute, func() (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestCacheManager_Invalidation(t *testing.T) {
	mr, client := newTestClient(t)
	cm := NewCacheManager(client)
	ctx := context.Background()

	require.NoError(t, cm.Summary.Set(ctx, "user-1", cachedItem{Name: "u1"}, time.Minute))
	require.NoError(t, cm.Summary.Set(ctx, "user-2", cachedItem{Name: "u2"}, time.Minute))
	require.NoError(t, cm.Catalog.Set(ctx, "active", []cachedItem{{Name: "c"}}, time.Minute))

	InvalidateUserAchievements(ctx, cm, "user-1")
	InvalidateCatalog(ctx, cm)

	assert.False(t, mr.Exists("summary:user-1"))
	assert.True(t, mr.Exists("summary:user-2"))
	assert.False(t, mr.Exists("catalog:active"))
	assert.NoError(t, cm.HealthCheck(ctx))
}
