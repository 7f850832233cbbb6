package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the connection settings for a Redis-backed event store,
// loadable from the environment.
type RedisConfig struct {
	ConnectionURL  string        `env:"EVENTSTORE_REDIS_URL,required" envDefault:"redis://localhost:6379/0"` // ConnectionURL is the URL of the database, e.g. "redis://:password@localhost:6379/0".
	RetryAttempts  int           `env:"EVENTSTORE_REDIS_RETRY_ATTEMPTS" envDefault:"3"`                      // RetryAttempts is the number of retry attempts to connect to the database.
	RetryInterval  time.Duration `env:"EVENTSTORE_REDIS_RETRY_INTERVAL" envDefault:"5s"`                     // RetryInterval is the interval between retry attempts.
	ConnectTimeout time.Duration `env:"EVENTSTORE_REDIS_CONNECT_TIMEOUT" envDefault:"30s"`                   // ConnectTimeout is the timeout for connecting to the database.
	KeyPrefix      string        `env:"EVENTSTORE_REDIS_KEY_PREFIX" envDefault:"eventstore:stream:"`         // KeyPrefix is prepended to every stream key.
}

// ConnectRedis establishes a connection to a Redis server with retry logic.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opt, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisConnString, err)
	}

	for range cfg.RetryAttempts {
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, ErrRedisNotReady
}

// RedisStore implements Store on Redis. Each stream is a list of
// JSON-encoded records under a prefixed key; the list length is the stream
// version. Appends run under WATCH so a concurrent writer aborts the
// transaction instead of interleaving.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Store backed by the given client. An empty prefix
// falls back to "eventstore:stream:".
func NewRedisStore(client *redis.Client, prefix string) (*RedisStore, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if prefix == "" {
		prefix = "eventstore:stream:"
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (rs *RedisStore) key(streamID string) string {
	return rs.prefix + streamID
}

// ReadStream implements Store.
func (rs *RedisStore) ReadStream(ctx context.Context, streamID string) ([]Record, error) {
	if streamID == "" {
		return nil, ErrEmptyStreamID
	}

	raw, err := rs.client.LRange(ctx, rs.key(streamID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(raw))
	for _, item := range raw {
		var rec Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Append implements Store.
func (rs *RedisStore) Append(ctx context.Context, streamID string, expectedVersion int64, records ...Record) ([]Record, error) {
	if err := validateAppend(streamID, expectedVersion, records); err != nil {
		return nil, err
	}

	finalized := finalizeRecords(streamID, expectedVersion, records)
	key := rs.key(streamID)

	err := rs.client.Watch(ctx, func(tx *redis.Tx) error {
		actual, err := tx.LLen(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if actual != expectedVersion {
			return NewErrVersionConflict(streamID, expectedVersion, actual)
		}

		values := make([]any, 0, len(finalized))
		for _, rec := range finalized {
			encoded, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			values = append(values, encoded)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, key, values...)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		// The key changed between WATCH and EXEC: a concurrent append won.
		actual, lenErr := rs.client.LLen(ctx, key).Result()
		if lenErr != nil {
			actual = -1
		}
		return nil, NewErrVersionConflict(streamID, expectedVersion, actual)
	}
	if err != nil {
		return nil, err
	}
	return finalized, nil
}

// RedisHealthcheck returns a closure that validates Redis connectivity for
// health endpoints.
func RedisHealthcheck(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
