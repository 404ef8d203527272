package inmem

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cace/storage/session/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, New(0))
}

func TestStore_idleTTL(t *testing.T) {
	now := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	ctx := context.Background()
	s := New(time.Hour)
	require.NoError(t, s.Save(ctx, "sid", "tok"))

	// reading refreshes the idle timer
	now = now.Add(50 * time.Minute)
	_, ok, err := s.Read(ctx, "sid")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(50 * time.Minute)
	_, ok, err = s.Read(ctx, "sid")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(61 * time.Minute)
	_, ok, err = s.Read(ctx, "sid")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestStore_Sweep(t *testing.T) {
	now := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	ctx := context.Background()
	s := New(time.Hour)
	for i := 0; i < 1000; i++ {
		require.NoError(t, s.Save(ctx, fmt.Sprintf("abandoned-%d", i), "tok"))
	}

	now = now.Add(30 * time.Minute)
	require.NoError(t, s.Save(ctx, "active", "tok"))

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing idle yet")

	now = now.Add(48 * time.Hour)
	require.NoError(t, s.Save(ctx, "fresh", "tok"))

	n, err = s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1001, n)
	assert.Equal(t, 1, s.Len())

	t.Run("zero ttl keeps everything", func(t *testing.T) {
		s := New(0)
		require.NoError(t, s.Save(ctx, "sid", "tok"))
		now = now.Add(1000 * time.Hour)

		n, err := s.Sweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Equal(t, 1, s.Len())
	})
}
