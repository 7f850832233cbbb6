package eventstore

import (
	"context"
	"sync"
)

// MemoryStore implements Store in memory for testing and local development.
// Streams are guarded by a single RWMutex; records handed out are copies, so
// callers cannot corrupt the stored history.
type MemoryStore struct {
	mu      sync.RWMutex
	streams map[string][]Record
}

// NewMemoryStore creates an empty in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		streams: make(map[string][]Record),
	}
}

// ReadStream implements Store.
func (ms *MemoryStore) ReadStream(ctx context.Context, streamID string) ([]Record, error) {
	if streamID == "" {
		return nil, ErrEmptyStreamID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	stream := ms.streams[streamID]
	out := make([]Record, len(stream))
	copy(out, stream)
	return out, nil
}

// Append implements Store.
func (ms *MemoryStore) Append(ctx context.Context, streamID string, expectedVersion int64, records ...Record) ([]Record, error) {
	if err := validateAppend(streamID, expectedVersion, records); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	stream := ms.streams[streamID]
	if actual := int64(len(stream)); actual != expectedVersion {
		return nil, NewErrVersionConflict(streamID, expectedVersion, actual)
	}

	finalized := finalizeRecords(streamID, expectedVersion, records)
	ms.streams[streamID] = append(stream, finalized...)

	out := make([]Record, len(finalized))
	copy(out, finalized)
	return out, nil
}

// StreamVersion returns the number of records currently held for the stream.
func (ms *MemoryStore) StreamVersion(streamID string) int64 {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return int64(len(ms.streams[streamID]))
}
