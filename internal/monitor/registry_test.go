package monitor

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registries(t *testing.T) map[string]Registry {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return map[string]Registry{
		"redis":  NewRedisRegistry(rdb),
		"memory": NewMemRegistry(),
	}
}

func TestRegistry_AddRemoveContains(t *testing.T) {
	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			ok, err := reg.Contains(ctx, 42)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, reg.Add(ctx, 42))
			require.NoError(t, reg.Add(ctx, 42)) // idempotent

			ok, err = reg.Contains(ctx, 42)
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, reg.Remove(ctx, 42))
			ok, err = reg.Contains(ctx, 42)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, reg.Remove(ctx, 42)) // idempotent
		})
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for _, id := range []int64{30, 10, 20} {
				require.NoError(t, reg.Add(ctx, id))
			}

			users, err := reg.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []int64{10, 20, 30}, users)
		})
	}
}
