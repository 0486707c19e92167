package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestClaimReportsUnavailableRedis(t *testing.T) {
	client := unreachableClient()
	defer client.Close()
	store := NewClaimStore(client)

	ok, err := store.Claim(context.Background(), "p1-platform-fee", time.Minute)

	assert.False(t, ok)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "p1-platform-fee")
	assert.Error(t, store.Release(context.Background(), "p1-platform-fee"))
}

func TestConnectFailsFast(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := Connect(ctx, "127.0.0.1:1")

	assert.Nil(t, client)
	assert.Error(t, err)
}

func TestClaimIsExclusiveUntilReleased(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()
	store := NewClaimStore(client)
	ctx := context.Background()

	first, err := store.Claim(ctx, "p1-platform-fee", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)
	assert.True(t, server.Exists(claimPrefix+"p1-platform-fee"))
	assert.Equal(t, time.Hour, server.TTL(claimPrefix+"p1-platform-fee"))

	second, err := store.Claim(ctx, "p1-platform-fee", time.Hour)
	require.NoError(t, err)
	assert.False(t, second)

	other, err := store.Claim(ctx, "p2-platform-fee", time.Hour)
	require.NoError(t, err)
	assert.True(t, other)

	require.NoError(t, store.Release(ctx, "p1-platform-fee"))
	assert.False(t, server.Exists(claimPrefix+"p1-platform-fee"))

	again, err := store.Claim(ctx, "p1-platform-fee", time.Hour)
	require.NoError(t, err)
	assert.True(t, again)
}

func TestClaimExpiresAfterTTL(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()
	store := NewClaimStore(client)
	ctx := context.Background()

	ok, err := store.Claim(ctx, "wd-1-platform-fee", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	server.FastForward(2 * time.Minute)

	ok, err = store.Claim(ctx, "wd-1-platform-fee", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConnectPingsServer(t *testing.T) {
	server := miniredis.RunT(t)

	client, err := Connect(context.Background(), server.Addr())

	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, "PONG", client.Ping(context.Background()).Val())
}
