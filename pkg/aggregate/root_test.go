package aggregate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hippalus/eventually/pkg/aggregate"
)

func newProfileRoot(t *testing.T) *aggregate.Root[profile, profileEvent] {
	t.Helper()
	root, err := aggregate.NewRoot[profile, profileEvent](aggregate.FromOptional[profile, profileEvent](profileEvents{}))
	require.NoError(t, err)
	return root
}

func TestNewRoot(t *testing.T) {
	t.Parallel()

	t.Run("nil aggregate error", func(t *testing.T) {
		t.Parallel()

		root, err := aggregate.NewRoot[profile, profileEvent](nil)
		assert.ErrorIs(t, err, aggregate.ErrNilAggregate)
		assert.Nil(t, root)
	})

	t.Run("starts absent at version zero", func(t *testing.T) {
		t.Parallel()

		root := newProfileRoot(t)
		assert.Nil(t, root.State())
		assert.Zero(t, root.Version())
		assert.Empty(t, root.Uncommitted())
	})
}

func TestRoot_Rehydrate(t *testing.T) {
	t.Parallel()

	t.Run("replays history without buffering", func(t *testing.T) {
		t.Parallel()

		root := newProfileRoot(t)
		require.NoError(t, root.Rehydrate(
			profileCreated{Name: "y"},
			profileRenamed{Name: "x"},
		))

		state := root.State()
		require.NotNil(t, state)
		assert.Equal(t, profile{Exists: true, Name: "x"}, *state)
		assert.Equal(t, int64(2), root.Version())
		assert.Empty(t, root.Uncommitted())
	})

	t.Run("stops at the first failing event", func(t *testing.T) {
		t.Parallel()

		root := newProfileRoot(t)
		err := root.Rehydrate(
			profileCreated{Name: "y"},
			profileRenamed{},
		)
		assert.Equal(t, errEmptyName, err)
		assert.Equal(t, int64(1), root.Version())

		state := root.State()
		require.NotNil(t, state)
		assert.Equal(t, "y", state.Name)
	})
}

func TestRoot_Record(t *testing.T) {
	t.Parallel()

	t.Run("applies and buffers new events", func(t *testing.T) {
		t.Parallel()

		root := newProfileRoot(t)
		require.NoError(t, root.Rehydrate(profileCreated{Name: "y"}))
		require.NoError(t, root.Record(profileRenamed{Name: "x"}))

		assert.Equal(t, int64(2), root.Version())
		assert.Equal(t, []profileEvent{profileRenamed{Name: "x"}}, root.Uncommitted())
	})

	t.Run("a failing event is not buffered", func(t *testing.T) {
		t.Parallel()

		root := newProfileRoot(t)
		require.NoError(t, root.Record(profileCreated{Name: "y"}))

		err := root.Record(profileRenamed{})
		assert.Equal(t, errEmptyName, err)
		assert.Equal(t, []profileEvent{profileCreated{Name: "y"}}, root.Uncommitted())
		assert.Equal(t, int64(1), root.Version())
	})

	t.Run("clear drops the buffer but keeps state", func(t *testing.T) {
		t.Parallel()

		root := newProfileRoot(t)
		require.NoError(t, root.Record(profileCreated{Name: "y"}))

		root.ClearUncommitted()
		assert.Empty(t, root.Uncommitted())
		assert.Equal(t, int64(1), root.Version())
		require.NotNil(t, root.State())
	})

	t.Run("state copies are isolated from the root", func(t *testing.T) {
		t.Parallel()

		root := newProfileRoot(t)
		require.NoError(t, root.Record(profileCreated{Name: "y"}))

		state := root.State()
		state.Name = "mutated"
		assert.Equal(t, "y", root.State().Name)
	})
}
