package eventstore

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrEmptyStreamID   = errors.New("stream id cannot be empty")
	ErrNegativeVersion = errors.New("expected version cannot be negative")
	ErrNoRecords       = errors.New("append requires at least one record")
	ErrNilPool         = errors.New("postgres pool cannot be nil")
	ErrNilClient       = errors.New("redis client cannot be nil")
	ErrNilDatabase     = errors.New("mongo database cannot be nil")

	ErrFailedToParseDBConfig    = errors.New("failed to parse postgres config")
	ErrFailedToOpenDBConnection = errors.New("failed to open postgres connection")
	ErrFailedToApplyMigrations  = errors.New("failed to apply event store migrations")

	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("redis connection is not available")

	ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")
)

// ErrVersionConflict indicates an optimistic concurrency failure: the stream
// was not at the version the appender expected, usually because another
// command appended first. Nothing was persisted.
type ErrVersionConflict struct {
	StreamID string
	Expected int64
	Actual   int64
}

func (e *ErrVersionConflict) Error() string {
	return fmt.Sprintf("version conflict on stream '%s': expected %d, actual %d", e.StreamID, e.Expected, e.Actual)
}

func NewErrVersionConflict(streamID string, expected, actual int64) *ErrVersionConflict {
	return &ErrVersionConflict{
		StreamID: streamID,
		Expected: expected,
		Actual:   actual,
	}
}

func IsVersionConflictError(err error) bool {
	var e *ErrVersionConflict
	return errors.As(err, &e)
}

// isDuplicateKeyError detects PostgreSQL unique constraint violations
// (SQLSTATE 23505). The events table enforces (stream_id, version)
// uniqueness, so a duplicate key on insert means a concurrent append won.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
