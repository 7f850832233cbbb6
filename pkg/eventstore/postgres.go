package eventstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresConfig holds the connection settings for a Postgres-backed event
// store, loadable from the environment.
type PostgresConfig struct {
	ConnectionString  string        `env:"EVENTSTORE_PG_CONN_URL,required"`                               // ConnectionString is the connection string to the database.
	MaxOpenConns      int32         `env:"EVENTSTORE_PG_MAX_OPEN_CONNS" envDefault:"10"`                  // MaxOpenConns is the maximum number of open connections to the database.
	MaxIdleConns      int32         `env:"EVENTSTORE_PG_MAX_IDLE_CONNS" envDefault:"5"`                   // MaxIdleConns is the maximum number of idle connections to the database.
	HealthCheckPeriod time.Duration `env:"EVENTSTORE_PG_HEALTHCHECK_PERIOD" envDefault:"1m"`              // HealthCheckPeriod is the period between health checks.
	MaxConnIdleTime   time.Duration `env:"EVENTSTORE_PG_MAX_CONN_IDLE_TIME" envDefault:"10m"`             // MaxConnIdleTime is the maximum amount of time a connection may be idle to be reused.
	MaxConnLifetime   time.Duration `env:"EVENTSTORE_PG_MAX_CONN_LIFETIME" envDefault:"30m"`              // MaxConnLifetime is the maximum amount of time a connection may be reused.
	RetryAttempts     int           `env:"EVENTSTORE_PG_RETRY_ATTEMPTS" envDefault:"3"`                   // RetryAttempts is the number of retry attempts to connect to the database.
	RetryInterval     time.Duration `env:"EVENTSTORE_PG_RETRY_INTERVAL" envDefault:"5s"`                  // RetryInterval is the interval between retry attempts.
	MigrationsTable   string        `env:"EVENTSTORE_PG_MIGRATIONS_TABLE" envDefault:"schema_migrations"` // MigrationsTable is the name of the table used to store the migration version.
}

// ConnectPostgres establishes a PostgreSQL connection pool with retry logic.
// Uses a growing backoff to ride out transient startup failures without
// hammering the database.
func ConnectPostgres(ctx context.Context, cfg PostgresConfig) (*pgxpool.Pool, error) {
	connConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseDBConfig, err)
	}
	connConfig.MaxConns = cfg.MaxOpenConns
	connConfig.MinConns = cfg.MaxIdleConns
	connConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	connConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	connConfig.MaxConnLifetime = cfg.MaxConnLifetime

	for i := range cfg.RetryAttempts {
		pool, err := pgxpool.NewWithConfig(ctx, connConfig)
		if err != nil {
			time.Sleep(time.Duration(i+1) * cfg.RetryInterval)
			continue
		}

		// Ping catches authentication and permission problems that pool
		// creation alone does not surface.
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			time.Sleep(time.Duration(i+1) * cfg.RetryInterval)
			continue
		}

		return pool, nil
	}

	return nil, ErrFailedToOpenDBConnection
}

// MigratePostgres applies the event store schema using goose. The SQL files
// are embedded in the package, so callers only need a connected pool.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool, cfg PostgresConfig, log *slog.Logger) error {
	if pool == nil {
		return errors.Join(ErrFailedToApplyMigrations, ErrNilPool)
	}
	if log == nil {
		log = slog.Default()
	}

	// goose speaks database/sql, so bridge the pgx pool through stdlib.
	db := stdlib.OpenDBFromPool(pool)
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "failed to close migration db handle", "error", err)
		}
	}(db)

	goose.SetLogger(&migrateSlogAdapter{log: log})
	goose.SetBaseFS(migrationsFS)
	if cfg.MigrationsTable != "" {
		goose.SetTableName(cfg.MigrationsTable)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	return nil
}

// migrateSlogAdapter bridges goose's Printf-style logging to slog.
type migrateSlogAdapter struct {
	log *slog.Logger
}

func (a *migrateSlogAdapter) Fatalf(format string, v ...any) {
	a.log.Error(fmt.Sprintf(format, v...))
}

func (a *migrateSlogAdapter) Printf(format string, v ...any) {
	a.log.Info(fmt.Sprintf(format, v...))
}

// PostgresStore implements Store on top of a pgx connection pool. The
// (stream_id, version) unique constraint is the concurrency backstop: two
// appends racing past the version check cannot both commit.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Store backed by the given pool. The schema must
// already be in place, see MigratePostgres.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	return &PostgresStore{pool: pool}, nil
}

// ReadStream implements Store.
func (ps *PostgresStore) ReadStream(ctx context.Context, streamID string) ([]Record, error) {
	if streamID == "" {
		return nil, ErrEmptyStreamID
	}

	rows, err := ps.pool.Query(ctx,
		`SELECT id, stream_id, version, event_type, payload, metadata, occurred_at
		 FROM events
		 WHERE stream_id = $1
		 ORDER BY version ASC`, streamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var (
			rec      Record
			metadata []byte
		)
		if err := rows.Scan(&rec.ID, &rec.StreamID, &rec.Version, &rec.Type, &rec.Payload, &metadata, &rec.OccurredAt); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
				return nil, err
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Append implements Store.
func (ps *PostgresStore) Append(ctx context.Context, streamID string, expectedVersion int64, records ...Record) ([]Record, error) {
	if err := validateAppend(streamID, expectedVersion, records); err != nil {
		return nil, err
	}

	finalized := finalizeRecords(streamID, expectedVersion, records)

	tx, err := ps.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }() // no-op after commit

	var actual int64
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM events WHERE stream_id = $1`, streamID,
	).Scan(&actual); err != nil {
		return nil, err
	}
	if actual != expectedVersion {
		return nil, NewErrVersionConflict(streamID, expectedVersion, actual)
	}

	for _, rec := range finalized {
		var metadata []byte
		if rec.Metadata != nil {
			if metadata, err = json.Marshal(rec.Metadata); err != nil {
				return nil, err
			}
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO events (id, stream_id, version, event_type, payload, metadata, occurred_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rec.ID, rec.StreamID, rec.Version, rec.Type, rec.Payload, metadata, rec.OccurredAt,
		); err != nil {
			if isDuplicateKeyError(err) {
				return nil, NewErrVersionConflict(streamID, expectedVersion, ps.currentVersion(ctx, streamID))
			}
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if isDuplicateKeyError(err) {
			return nil, NewErrVersionConflict(streamID, expectedVersion, ps.currentVersion(ctx, streamID))
		}
		return nil, err
	}
	return finalized, nil
}

// currentVersion is best-effort context for version conflict errors; it
// returns -1 when the stream cannot be read.
func (ps *PostgresStore) currentVersion(ctx context.Context, streamID string) int64 {
	var v int64
	err := ps.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM events WHERE stream_id = $1`, streamID,
	).Scan(&v)
	if err != nil {
		return -1
	}
	return v
}

// PostgresHealthcheck returns a closure that validates database connectivity
// for health endpoints.
func PostgresHealthcheck(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		return pool.Ping(ctx)
	}
}
