package redisstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cace/storage/session/storetest"
)

func TestStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	rdb, err := Connect(context.Background(), addr, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	defer func() { _ = rdb.Close() }()

	s := New(rdb, time.Minute)
	storetest.Run(t, s)

	t.Run("sliding expiry", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, s.Save(ctx, "ttl-probe", "tok"))
		defer func() { _ = s.Clear(ctx, "ttl-probe") }()

		ttl, err := rdb.TTL(ctx, key("ttl-probe")).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, time.Minute)
	})
}
