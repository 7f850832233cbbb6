// Package eventstore persists ordered event streams with optimistic
// concurrency control, serving as the durable side of the
// load-fold-handle-persist cycle: a dispatcher reads a stream, folds it into
// state, handles a command, and appends the produced event back.
//
// The Store interface is the whole contract; four implementations ship with
// the package:
//
//  1. MemoryStore — mutex-guarded maps, for tests and local development
//  2. PostgresStore — pgx pool, goose-managed schema, unique
//     (stream_id, version) constraint
//  3. RedisStore — one list per stream, WATCH-guarded appends
//  4. MongoStore — one collection, unique compound index
//
// Every backend enforces the same append rule: the caller states the version
// it last observed, and the append succeeds only if the stream still has
// exactly that many records. A lost race surfaces as *ErrVersionConflict,
// detectable with IsVersionConflictError; nothing is persisted on conflict.
//
// # Codecs
//
// Stores deal in Record envelopes, not domain types. Codec translates
// between the two; JSONCodec is a registry-backed implementation keyed by
// qualified struct name:
//
//	codec := eventstore.NewJSONCodec[ProfileEvent]()
//	eventstore.RegisterEvent[ProfileCreated](codec)
//	eventstore.RegisterEvent[ProfileRenamed](codec)
//
// # Configuration
//
// Backend configs load from environment variables with sane defaults,
// following the EVENTSTORE_* naming scheme:
//
//	cfg, err := eventstore.LoadPostgresConfig()
//	pool, err := eventstore.ConnectPostgres(ctx, cfg)
//	err = eventstore.MigratePostgres(ctx, pool, cfg, slog.Default())
//	store, err := eventstore.NewPostgresStore(pool)
//
// Connect helpers retry with backoff to ride out transient startup failures;
// the *Healthcheck constructors return func(context.Context) error closures
// for orchestration probes.
package eventstore
