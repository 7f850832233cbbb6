package aggregate

// Root tracks the lifecycle of a single event-sourced entity: its current
// optional state, the number of events applied so far (the version), and the
// events recorded since the last flush to a store.
//
// Root is not safe for concurrent use; callers that share one entity across
// goroutines must serialize access themselves, the same way a command
// dispatcher serializes commands per entity.
type Root[S, E any] struct {
	aggregate   Aggregate[S, E]
	state       *S
	version     int64
	uncommitted []E
}

// NewRoot creates an empty Root in the absent state.
func NewRoot[S, E any](a Aggregate[S, E]) (*Root[S, E], error) {
	if a == nil {
		return nil, ErrNilAggregate
	}
	return &Root[S, E]{aggregate: a}, nil
}

// State returns a copy of the current state, or nil when the entity does not
// exist yet. The copy keeps the internal state immune to caller mutation.
func (r *Root[S, E]) State() *S {
	if r.state == nil {
		return nil
	}
	s := *r.state
	return &s
}

// Version returns the number of events applied so far.
func (r *Root[S, E]) Version() int64 {
	return r.version
}

// Rehydrate replays already-persisted events without recording them, used
// when loading an entity from an event store. It stops at the first failing
// transition; events applied before the failure remain applied.
func (r *Root[S, E]) Rehydrate(events ...E) error {
	for _, event := range events {
		next, err := r.aggregate.Apply(r.state, event)
		if err != nil {
			return err
		}
		r.state = next
		r.version++
	}
	return nil
}

// Record applies new events and buffers them for a later flush to a store.
// An event that fails to apply is not buffered.
func (r *Root[S, E]) Record(events ...E) error {
	for _, event := range events {
		next, err := r.aggregate.Apply(r.state, event)
		if err != nil {
			return err
		}
		r.state = next
		r.version++
		r.uncommitted = append(r.uncommitted, event)
	}
	return nil
}

// Uncommitted returns a copy of the events recorded since the last
// ClearUncommitted call, in application order.
func (r *Root[S, E]) Uncommitted() []E {
	out := make([]E, len(r.uncommitted))
	copy(out, r.uncommitted)
	return out
}

// ClearUncommitted drops the buffered events, typically after the caller has
// persisted them.
func (r *Root[S, E]) ClearUncommitted() {
	r.uncommitted = nil
}
