// Package storetest holds the behaviour every session.Store implementation must have.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cace/core/session"
)

// Run exercises store against the session.Store contract.
func Run(t *testing.T, store session.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("read absent", func(t *testing.T) {
		token, ok, err := store.Read(ctx, session.NewID())
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, token)
	})

	t.Run("save then read", func(t *testing.T) {
		sid := session.NewID()
		require.NoError(t, store.Save(ctx, sid, "tok-1"))

		token, ok, err := store.Read(ctx, sid)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "tok-1", token)
	})

	t.Run("save replaces", func(t *testing.T) {
		sid := session.NewID()
		require.NoError(t, store.Save(ctx, sid, "tok-1"))
		require.NoError(t, store.Save(ctx, sid, "tok-2"))

		token, ok, err := store.Read(ctx, sid)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "tok-2", token)
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		sid1, sid2 := session.NewID(), session.NewID()
		require.NoError(t, store.Save(ctx, sid1, "tok-a"))

		_, ok, err := store.Read(ctx, sid2)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, store.Clear(ctx, sid2))
		token, ok, err := store.Read(ctx, sid1)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "tok-a", token)
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		slot := session.NewSlot(store, session.NewID())
		require.NoError(t, slot.Save(ctx, "tok-1"))
		require.NoError(t, slot.Clear(ctx))
		require.NoError(t, slot.Clear(ctx))

		_, ok, err := slot.Read(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
