package eventstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Record is the persisted envelope of a single domain event within a stream.
// Version is the 1-based position of the record in its stream; records of a
// stream are totally ordered by it.
type Record struct {
	ID         uuid.UUID         `json:"id" bson:"id"`
	StreamID   string            `json:"stream_id" bson:"stream_id"`
	Version    int64             `json:"version" bson:"version"`
	Type       string            `json:"type" bson:"type"`
	Payload    json.RawMessage   `json:"payload" bson:"payload"`
	Metadata   map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at" bson:"occurred_at"`
}

// Store persists ordered event streams with optimistic concurrency control.
//
// ReadStream returns every record of the stream in version order; a stream
// that has never been written to yields an empty slice, not an error.
//
// Append writes the given records at the end of the stream if and only if
// the stream currently holds exactly expectedVersion records; otherwise it
// fails with *ErrVersionConflict and persists nothing. The store assigns
// Version, and fills ID and OccurredAt when left zero. It returns the
// records as persisted.
type Store interface {
	ReadStream(ctx context.Context, streamID string) ([]Record, error)
	Append(ctx context.Context, streamID string, expectedVersion int64, records ...Record) ([]Record, error)
}

// finalizeRecords stamps stream identity, versions, IDs and timestamps onto
// records about to be appended. Shared by all store implementations so a
// record round-trips identically regardless of backend.
func finalizeRecords(streamID string, expectedVersion int64, records []Record) []Record {
	now := time.Now().UTC()
	out := make([]Record, len(records))
	for i, rec := range records {
		rec.StreamID = streamID
		rec.Version = expectedVersion + int64(i) + 1
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		if rec.OccurredAt.IsZero() {
			rec.OccurredAt = now
		}
		out[i] = rec
	}
	return out
}

// validateAppend checks the arguments shared by every Append implementation.
func validateAppend(streamID string, expectedVersion int64, records []Record) error {
	if streamID == "" {
		return ErrEmptyStreamID
	}
	if expectedVersion < 0 {
		return ErrNegativeVersion
	}
	if len(records) == 0 {
		return ErrNoRecords
	}
	return nil
}
