package eventstore_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hippalus/eventually/pkg/eventstore"
)

func newRecord(eventType string, payload string) eventstore.Record {
	return eventstore.Record{
		Type:    eventType,
		Payload: json.RawMessage(payload),
	}
}

func TestMemoryStore_Append(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("assigns ids, versions and timestamps", func(t *testing.T) {
		t.Parallel()

		store := eventstore.NewMemoryStore()
		appended, err := store.Append(ctx, "stream/1", 0,
			newRecord("created", `{"name":"y"}`),
			newRecord("renamed", `{"name":"x"}`),
		)
		require.NoError(t, err)
		require.Len(t, appended, 2)

		for i, rec := range appended {
			assert.NotEqual(t, uuid.Nil, rec.ID)
			assert.Equal(t, "stream/1", rec.StreamID)
			assert.Equal(t, int64(i+1), rec.Version)
			assert.False(t, rec.OccurredAt.IsZero())
		}
	})

	t.Run("version conflict persists nothing", func(t *testing.T) {
		t.Parallel()

		store := eventstore.NewMemoryStore()
		_, err := store.Append(ctx, "stream/2", 0, newRecord("created", `{}`))
		require.NoError(t, err)

		_, err = store.Append(ctx, "stream/2", 0, newRecord("renamed", `{}`))
		require.True(t, eventstore.IsVersionConflictError(err))

		var conflict *eventstore.ErrVersionConflict
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "stream/2", conflict.StreamID)
		assert.Equal(t, int64(0), conflict.Expected)
		assert.Equal(t, int64(1), conflict.Actual)
		assert.Equal(t, int64(1), store.StreamVersion("stream/2"))
	})

	t.Run("argument validation", func(t *testing.T) {
		t.Parallel()

		store := eventstore.NewMemoryStore()

		_, err := store.Append(ctx, "", 0, newRecord("created", `{}`))
		assert.ErrorIs(t, err, eventstore.ErrEmptyStreamID)

		_, err = store.Append(ctx, "stream/3", -1, newRecord("created", `{}`))
		assert.ErrorIs(t, err, eventstore.ErrNegativeVersion)

		_, err = store.Append(ctx, "stream/3", 0)
		assert.ErrorIs(t, err, eventstore.ErrNoRecords)
	})

	t.Run("concurrent appends admit exactly one writer per version", func(t *testing.T) {
		t.Parallel()

		store := eventstore.NewMemoryStore()

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			conflicts int
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := store.Append(ctx, "stream/4", 0, newRecord("created", `{}`)); err != nil {
					mu.Lock()
					defer mu.Unlock()
					require.True(t, eventstore.IsVersionConflictError(err))
					conflicts++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 7, conflicts)
		assert.Equal(t, int64(1), store.StreamVersion("stream/4"))
	})
}

func TestMemoryStore_ReadStream(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("unknown stream yields empty slice", func(t *testing.T) {
		t.Parallel()

		store := eventstore.NewMemoryStore()
		records, err := store.ReadStream(ctx, "stream/none")
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("returns records in version order", func(t *testing.T) {
		t.Parallel()

		store := eventstore.NewMemoryStore()
		_, err := store.Append(ctx, "stream/5", 0, newRecord("created", `{}`))
		require.NoError(t, err)
		_, err = store.Append(ctx, "stream/5", 1, newRecord("renamed", `{}`))
		require.NoError(t, err)

		records, err := store.ReadStream(ctx, "stream/5")
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "created", records[0].Type)
		assert.Equal(t, "renamed", records[1].Type)
	})

	t.Run("returned slice is a defensive copy", func(t *testing.T) {
		t.Parallel()

		store := eventstore.NewMemoryStore()
		_, err := store.Append(ctx, "stream/6", 0, newRecord("created", `{}`))
		require.NoError(t, err)

		records, err := store.ReadStream(ctx, "stream/6")
		require.NoError(t, err)
		records[0].Type = "tampered"

		fresh, err := store.ReadStream(ctx, "stream/6")
		require.NoError(t, err)
		assert.Equal(t, "created", fresh[0].Type)
	})

	t.Run("empty stream id error", func(t *testing.T) {
		t.Parallel()

		store := eventstore.NewMemoryStore()
		_, err := store.ReadStream(ctx, "")
		assert.ErrorIs(t, err, eventstore.ErrEmptyStreamID)
	})

	t.Run("cancelled context error", func(t *testing.T) {
		t.Parallel()

		store := eventstore.NewMemoryStore()
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := store.ReadStream(cancelled, "stream/7")
		assert.ErrorIs(t, err, context.Canceled)
	})
}
