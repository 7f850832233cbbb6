package eventstore_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hippalus/eventually/pkg/eventstore"
)

func newRedisStore(t *testing.T) *eventstore.RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := eventstore.NewRedisStore(client, "")
	require.NoError(t, err)
	return store
}

func TestNewRedisStore(t *testing.T) {
	t.Parallel()

	_, err := eventstore.NewRedisStore(nil, "")
	assert.ErrorIs(t, err, eventstore.ErrNilClient)
}

func TestRedisStore_AppendAndRead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("records round-trip through redis", func(t *testing.T) {
		t.Parallel()

		store := newRedisStore(t)
		appended, err := store.Append(ctx, "stream/1", 0,
			newRecord("created", `{"name":"y"}`),
			newRecord("renamed", `{"name":"x"}`),
		)
		require.NoError(t, err)
		require.Len(t, appended, 2)

		records, err := store.ReadStream(ctx, "stream/1")
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, appended[0].ID, records[0].ID)
		assert.Equal(t, "created", records[0].Type)
		assert.Equal(t, int64(1), records[0].Version)
		assert.Equal(t, "renamed", records[1].Type)
		assert.Equal(t, int64(2), records[1].Version)
		assert.JSONEq(t, `{"name":"x"}`, string(records[1].Payload))
	})

	t.Run("unknown stream yields empty slice", func(t *testing.T) {
		t.Parallel()

		store := newRedisStore(t)
		records, err := store.ReadStream(ctx, "stream/none")
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("version conflict persists nothing", func(t *testing.T) {
		t.Parallel()

		store := newRedisStore(t)
		_, err := store.Append(ctx, "stream/2", 0, newRecord("created", `{}`))
		require.NoError(t, err)

		_, err = store.Append(ctx, "stream/2", 0, newRecord("renamed", `{}`))
		require.True(t, eventstore.IsVersionConflictError(err))

		var conflict *eventstore.ErrVersionConflict
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, int64(0), conflict.Expected)
		assert.Equal(t, int64(1), conflict.Actual)

		records, err := store.ReadStream(ctx, "stream/2")
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("argument validation", func(t *testing.T) {
		t.Parallel()

		store := newRedisStore(t)

		_, err := store.Append(ctx, "", 0, newRecord("created", `{}`))
		assert.ErrorIs(t, err, eventstore.ErrEmptyStreamID)

		_, err = store.Append(ctx, "stream/3", 0)
		assert.ErrorIs(t, err, eventstore.ErrNoRecords)

		_, err = store.ReadStream(ctx, "")
		assert.ErrorIs(t, err, eventstore.ErrEmptyStreamID)
	})
}
