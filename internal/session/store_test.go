package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/healping/internal/model"
)

func testStores(t *testing.T) map[string]Store {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(client, "healping:session"),
	}
}

func TestStores(t *testing.T) {
	ctx := context.Background()
	pair := model.TokenPair{
		AccessToken:  "a1",
		RefreshToken: "r1",
		ExpiresAt:    time.Unix(1900000000, 0).UTC(),
	}

	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load(ctx)
			require.ErrorIs(t, err, model.ErrNotFound)

			require.NoError(t, store.Save(ctx, pair))

			got, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, pair.AccessToken, got.AccessToken)
			assert.Equal(t, pair.RefreshToken, got.RefreshToken)
			assert.True(t, pair.ExpiresAt.Equal(got.ExpiresAt))

			require.NoError(t, store.Delete(ctx))
			_, err = store.Load(ctx)
			require.ErrorIs(t, err, model.ErrNotFound)

			// deleting twice is fine
			require.NoError(t, store.Delete(ctx))
		})
	}
}

func TestRedisStore_CorruptValue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	require.NoError(t, mr.Set("key", "{not json"))

	_, err := NewRedisStore(client, "key").Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrNotFound)
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	_, err := NewRedisStore(client, "key").Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrNotFound)
}
