package command

import "context"

// Handler is the command-handling contract of an event-sourced entity: given
// the optional current state and one command, it produces the event that
// should become the entity's next fact, or fails.
//
// A nil state means the entity does not exist yet. Handlers may perform
// external work (lookups, remote validation) and must honor ctx while doing
// so; a cancelled call must leave no observable effect, since nothing is
// durable until the caller persists the returned event. Handlers never
// mutate state — state changes happen exclusively by applying the returned
// event through an aggregate.Aggregate.
type Handler[S, C, E any] interface {
	Handle(ctx context.Context, state *S, cmd C) (E, error)
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc[S, C, E any] func(ctx context.Context, state *S, cmd C) (E, error)

// Handle implements Handler.
func (f HandlerFunc[S, C, E]) Handle(ctx context.Context, state *S, cmd C) (E, error) {
	return f(ctx, state, cmd)
}

// Optional splits the Handler contract into two explicit operations:
// HandleFirst is invoked only when the entity has no state yet, HandleNext
// only when it does. HandleNext receives the state by value as a read-only
// view — mutating it has no effect on the caller.
//
// Use FromOptional to adapt an Optional back into a Handler.
type Optional[S, C, E any] interface {
	HandleFirst(ctx context.Context, cmd C) (E, error)
	HandleNext(ctx context.Context, state S, cmd C) (E, error)
}

// AsHandler adapts an Optional implementation to the Handler contract,
// dispatching on the presence of the current state. Errors from either
// branch pass through untouched.
type AsHandler[S, C, E any] struct {
	inner Optional[S, C, E]
}

// FromOptional wraps an Optional implementation into an AsHandler adapter.
func FromOptional[S, C, E any](inner Optional[S, C, E]) AsHandler[S, C, E] {
	return AsHandler[S, C, E]{inner: inner}
}

// Handle implements Handler. A nil state routes to HandleFirst, a non-nil
// state routes to HandleNext with a copy of the pointed-to state.
func (h AsHandler[S, C, E]) Handle(ctx context.Context, state *S, cmd C) (E, error) {
	if state == nil {
		return h.inner.HandleFirst(ctx, cmd)
	}
	return h.inner.HandleNext(ctx, *state, cmd)
}
