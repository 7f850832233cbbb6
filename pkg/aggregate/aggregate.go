package aggregate

// Aggregate is the state-transition contract of an event-sourced entity:
// given the optional previous state and one event, it produces the next
// state or fails.
//
// A nil prev means the entity does not exist yet (no event has been applied);
// a non-nil prev wraps the current state. Implementations must be pure
// functions of their inputs: no I/O, no hidden state, and prev is never
// mutated in place. A successful Apply never returns nil — once an event has
// been applied, the entity exists.
type Aggregate[S, E any] interface {
	Apply(prev *S, event E) (*S, error)
}

// AggregateFunc is a function adapter for Aggregate.
type AggregateFunc[S, E any] func(prev *S, event E) (*S, error)

// Apply implements Aggregate.
func (f AggregateFunc[S, E]) Apply(prev *S, event E) (*S, error) {
	return f(prev, event)
}

// Optional splits the Aggregate contract into two explicit operations, so
// implementations never have to check for the absent state themselves:
// ApplyFirst is invoked only when no previous state exists, ApplyNext only
// when it does. Both return unwrapped state — presence is encoded by which
// operation was called, not by the return type.
//
// ApplyNext receives the state by value; the caller's copy is never touched.
//
// Use FromOptional to adapt an Optional back into an Aggregate.
type Optional[S, E any] interface {
	ApplyFirst(event E) (S, error)
	ApplyNext(state S, event E) (S, error)
}

// AsAggregate adapts an Optional implementation to the Aggregate contract.
// It dispatches on the presence of the previous state and wraps the result
// back into pointer form. Errors from either branch pass through untouched.
type AsAggregate[S, E any] struct {
	inner Optional[S, E]
}

// FromOptional wraps an Optional implementation into an AsAggregate adapter.
func FromOptional[S, E any](inner Optional[S, E]) AsAggregate[S, E] {
	return AsAggregate[S, E]{inner: inner}
}

// Apply implements Aggregate. A nil prev routes to ApplyFirst, a non-nil
// prev routes to ApplyNext with a copy of the pointed-to state.
func (a AsAggregate[S, E]) Apply(prev *S, event E) (*S, error) {
	var (
		next S
		err  error
	)
	if prev == nil {
		next, err = a.inner.ApplyFirst(event)
	} else {
		next, err = a.inner.ApplyNext(*prev, event)
	}
	if err != nil {
		return nil, err
	}
	return &next, nil
}

// Fold replays a sequence of events through an Aggregate, starting from the
// given optional state. It stops at the first failing transition and returns
// the state reached so far together with the error, leaving earlier progress
// observable to the caller.
func Fold[S, E any](a Aggregate[S, E], prev *S, events ...E) (*S, error) {
	state := prev
	for _, event := range events {
		next, err := a.Apply(state, event)
		if err != nil {
			return state, err
		}
		state = next
	}
	return state, nil
}
