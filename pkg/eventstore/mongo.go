package eventstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoConfig holds the connection settings for a MongoDB-backed event
// store, loadable from the environment.
type MongoConfig struct {
	ConnectionURL   string        `env:"EVENTSTORE_MONGODB_URL,required"`                          // ConnectionURL is the URL of the database.
	ConnectTimeout  time.Duration `env:"EVENTSTORE_MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`      // ConnectTimeout is the timeout for connecting to the database.
	MaxPoolSize     uint64        `env:"EVENTSTORE_MONGODB_MAX_POOL_SIZE" envDefault:"100"`        // MaxPoolSize is the maximum number of connections in the pool.
	MinPoolSize     uint64        `env:"EVENTSTORE_MONGODB_MIN_POOL_SIZE" envDefault:"1"`          // MinPoolSize is the minimum number of connections in the pool.
	MaxConnIdleTime time.Duration `env:"EVENTSTORE_MONGODB_MAX_CONN_IDLE_TIME" envDefault:"300s"`  // MaxConnIdleTime is the maximum time a connection can remain idle.
	RetryAttempts   int           `env:"EVENTSTORE_MONGODB_RETRY_ATTEMPTS" envDefault:"3"`         // RetryAttempts is the number of retry attempts to connect to the database.
	RetryInterval   time.Duration `env:"EVENTSTORE_MONGODB_RETRY_INTERVAL" envDefault:"5s"`        // RetryInterval is the interval between retry attempts.
	Collection      string        `env:"EVENTSTORE_MONGODB_COLLECTION" envDefault:"events"`        // Collection is the name of the events collection.
}

// ConnectMongo establishes a connection to a MongoDB server with retry logic.
func ConnectMongo(ctx context.Context, cfg MongoConfig) (*mongo.Client, error) {
	for range cfg.RetryAttempts {
		client, err := mongo.Connect(
			options.Client().
				ApplyURI(cfg.ConnectionURL).
				SetConnectTimeout(cfg.ConnectTimeout).
				SetMaxPoolSize(cfg.MaxPoolSize).
				SetMinPoolSize(cfg.MinPoolSize).
				SetMaxConnIdleTime(cfg.MaxConnIdleTime),
		)
		if err == nil {
			if err := client.Ping(ctx, nil); err == nil {
				return client, nil
			}
		}

		time.Sleep(cfg.RetryInterval)
	}

	return nil, ErrFailedToConnectToMongo
}

// MongoStore implements Store on a MongoDB collection. The unique
// (stream_id, version) index is the concurrency backstop: two appends racing
// past the version check cannot both insert.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates a Store on the named collection of the given
// database. An empty collection name falls back to "events". Call
// EnsureIndexes once before first use.
func NewMongoStore(db *mongo.Database, collection string) (*MongoStore, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}
	if collection == "" {
		collection = "events"
	}
	return &MongoStore{coll: db.Collection(collection)}, nil
}

// EnsureIndexes creates the unique (stream_id, version) index the append
// path relies on.
func (ms *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := ms.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "stream_id", Value: 1},
			{Key: "version", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// ReadStream implements Store.
func (ms *MongoStore) ReadStream(ctx context.Context, streamID string) ([]Record, error) {
	if streamID == "" {
		return nil, ErrEmptyStreamID
	}

	cursor, err := ms.coll.Find(ctx,
		bson.D{{Key: "stream_id", Value: streamID}},
		options.Find().SetSort(bson.D{{Key: "version", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Append implements Store.
func (ms *MongoStore) Append(ctx context.Context, streamID string, expectedVersion int64, records ...Record) ([]Record, error) {
	if err := validateAppend(streamID, expectedVersion, records); err != nil {
		return nil, err
	}

	actual, err := ms.coll.CountDocuments(ctx, bson.D{{Key: "stream_id", Value: streamID}})
	if err != nil {
		return nil, err
	}
	if actual != expectedVersion {
		return nil, NewErrVersionConflict(streamID, expectedVersion, actual)
	}

	finalized := finalizeRecords(streamID, expectedVersion, records)
	docs := make([]any, len(finalized))
	for i, rec := range finalized {
		docs[i] = rec
	}

	if _, err := ms.coll.InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			actual, countErr := ms.coll.CountDocuments(ctx, bson.D{{Key: "stream_id", Value: streamID}})
			if countErr != nil {
				actual = -1
			}
			return nil, NewErrVersionConflict(streamID, expectedVersion, actual)
		}
		return nil, err
	}
	return finalized, nil
}

// MongoHealthcheck returns a closure that validates MongoDB connectivity for
// health endpoints.
func MongoHealthcheck(client *mongo.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	}
}
