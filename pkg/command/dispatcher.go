package command

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hippalus/eventually/pkg/aggregate"
	"github.com/hippalus/eventually/pkg/eventstore"
)

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*dispatcherConfig)

type dispatcherConfig struct {
	log      *slog.Logger
	metadata map[string]string
}

// WithLogger sets the logger used for dispatch tracing. Defaults to
// slog.Default().
func WithLogger(log *slog.Logger) DispatcherOption {
	return func(c *dispatcherConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetadata attaches static metadata to every record the dispatcher
// appends, e.g. the service name or deployment version.
func WithMetadata(metadata map[string]string) DispatcherOption {
	return func(c *dispatcherConfig) {
		c.metadata = metadata
	}
}

// Dispatcher owns the load-fold-handle-persist cycle for one aggregate type:
// it reads the entity's stream, folds it into current state, invokes the
// command handler, and appends the produced event with the observed stream
// version as the optimistic concurrency check.
//
// Commands targeting the same stream are serialized by a per-stream lock, so
// two commands are never evaluated against the same stale state. Commands on
// distinct streams run concurrently.
type Dispatcher[S, C, E any] struct {
	store     eventstore.Store
	codec     eventstore.Codec[E]
	aggregate aggregate.Aggregate[S, E]
	handler   Handler[S, C, E]
	log       *slog.Logger
	metadata  map[string]string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewDispatcher wires a store, a codec, an aggregate and a handler into a
// Dispatcher.
func NewDispatcher[S, C, E any](
	store eventstore.Store,
	codec eventstore.Codec[E],
	agg aggregate.Aggregate[S, E],
	handler Handler[S, C, E],
	opts ...DispatcherOption,
) (*Dispatcher[S, C, E], error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if codec == nil {
		return nil, ErrNilCodec
	}
	if agg == nil {
		return nil, ErrNilAggregate
	}
	if handler == nil {
		return nil, ErrNilHandler
	}

	cfg := dispatcherConfig{log: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Dispatcher[S, C, E]{
		store:     store,
		codec:     codec,
		aggregate: agg,
		handler:   handler,
		log:       cfg.log,
		metadata:  cfg.metadata,
		locks:     make(map[string]*sync.Mutex),
	}, nil
}

// Dispatch runs one command against the entity identified by streamID and
// returns the event it produced. Transition, handler and store errors
// surface verbatim; on a version conflict nothing was persisted and the
// caller decides whether to retry.
func (d *Dispatcher[S, C, E]) Dispatch(ctx context.Context, streamID string, cmd C) (E, error) {
	var zero E
	if streamID == "" {
		return zero, eventstore.ErrEmptyStreamID
	}

	unlock := d.lockStream(streamID)
	defer unlock()

	state, version, err := d.load(ctx, streamID)
	if err != nil {
		return zero, err
	}

	event, err := d.handler.Handle(ctx, state, cmd)
	if err != nil {
		return zero, err
	}

	eventType, payload, err := d.codec.Marshal(event)
	if err != nil {
		return zero, err
	}

	rec := eventstore.Record{
		Type:     eventType,
		Payload:  payload,
		Metadata: d.metadata,
	}
	if _, err := d.store.Append(ctx, streamID, version, rec); err != nil {
		return zero, err
	}

	d.log.DebugContext(ctx, "command dispatched",
		"stream_id", streamID,
		"event_type", eventType,
		"version", version+1,
	)
	return event, nil
}

// Load reads and folds the entity's stream without handling a command,
// returning the current optional state and the stream version.
func (d *Dispatcher[S, C, E]) Load(ctx context.Context, streamID string) (*S, int64, error) {
	if streamID == "" {
		return nil, 0, eventstore.ErrEmptyStreamID
	}
	return d.load(ctx, streamID)
}

func (d *Dispatcher[S, C, E]) load(ctx context.Context, streamID string) (*S, int64, error) {
	records, err := d.store.ReadStream(ctx, streamID)
	if err != nil {
		return nil, 0, err
	}

	events := make([]E, 0, len(records))
	for _, rec := range records {
		event, err := d.codec.Unmarshal(rec.Type, rec.Payload)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, event)
	}

	state, err := aggregate.Fold(d.aggregate, nil, events...)
	if err != nil {
		return nil, 0, err
	}
	return state, int64(len(records)), nil
}

// lockStream serializes command handling per stream. The lock table grows
// with the number of distinct streams dispatched through this instance.
func (d *Dispatcher[S, C, E]) lockStream(streamID string) func() {
	d.mu.Lock()
	lock, ok := d.locks[streamID]
	if !ok {
		lock = &sync.Mutex{}
		d.locks[streamID] = lock
	}
	d.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
